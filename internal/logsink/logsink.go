// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package logsink stores the accepted sensor lines, one row per packet.
package logsink

import (
	"errors"
	"fmt"
)

// Sink is an append-only record stream. It is owned by the ingester; nothing
// else writes to it.
type Sink interface {
	Append(line string) error
	Close() error
}

// OpenError reports that a sink could not be created. It is fatal at startup.
type OpenError struct {
	Path string
	Err  error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("open log sink %s: %v", e.Path, e.Err)
}

func (e *OpenError) Unwrap() error { return e.Err }

type multi []Sink

// Multi fans every line out to all sinks, in order.
func Multi(sinks ...Sink) Sink {
	if len(sinks) == 1 {
		return sinks[0]
	}
	return multi(sinks)
}

func (m multi) Append(line string) error {
	for _, s := range m {
		if err := s.Append(line); err != nil {
			return err
		}
	}
	return nil
}

func (m multi) Close() error {
	var errs []error
	for _, s := range m {
		errs = append(errs, s.Close())
	}
	return errors.Join(errs...)
}
