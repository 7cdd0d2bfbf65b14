// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package packet

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedPacket matches any *MalformedPacketError.
	ErrMalformedPacket = errors.New("malformed packet")
	// ErrTruncatedPacket matches any *TruncatedPacketError.
	ErrTruncatedPacket = errors.New("truncated packet")

	errNotFinite = errors.New("not a finite number")
)

// MalformedPacketError reports a non-numeric token where a number was expected.
type MalformedPacketError struct {
	Index int
	Token string
	Err   error
}

func (e *MalformedPacketError) Error() string {
	return fmt.Sprintf("malformed packet: token %d %q is not a finite number", e.Index, e.Token)
}

func (e *MalformedPacketError) Is(target error) bool { return target == ErrMalformedPacket }

func (e *MalformedPacketError) Unwrap() error { return e.Err }

// TruncatedPacketError reports a channel marker followed by fewer values
// than the channel carries.
type TruncatedPacketError struct {
	Channel Channel
	Got     int
}

func (e *TruncatedPacketError) Error() string {
	return fmt.Sprintf("truncated packet: %s (id %d) has %d of %d values",
		e.Channel.Name, e.Channel.ID, e.Got, e.Channel.Columns)
}

func (e *TruncatedPacketError) Is(target error) bool { return target == ErrTruncatedPacket }
