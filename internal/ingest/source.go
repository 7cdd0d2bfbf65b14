// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package ingest

import (
	"errors"
	"fmt"
	"net"
	"os"
	"time"
)

// Source delivers raw datagrams from the phone.
type Source interface {
	// ReadPacket blocks until a datagram arrives or the deadline passes.
	// A passed deadline is reported as an error matching os.ErrDeadlineExceeded
	// (or any net.Error whose Timeout is true). After Close it returns
	// net.ErrClosed. A datagram too large to receive whole is skipped and
	// reported as an error matching ErrOversizedPacket; reading may go on.
	ReadPacket(deadline time.Time) ([]byte, error)
	// Close releases the underlying endpoint. It may be called from another
	// goroutine to unblock a pending ReadPacket and may be called more than once.
	Close() error
	String() string
}

// ErrOversizedPacket reports a datagram that was dropped for exceeding
// the receive buffer.
var ErrOversizedPacket = errors.New("oversized packet")

// SocketBindError reports that the input endpoint could not be opened.
// It is fatal: the ingester does not retry.
type SocketBindError struct {
	Addr string
	Err  error
}

func (e *SocketBindError) Error() string {
	return fmt.Sprintf("bind %s: %v", e.Addr, e.Err)
}

func (e *SocketBindError) Unwrap() error { return e.Err }

func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// waitUntil sleeps until deadline or until done is closed.
// It returns the error ReadPacket should report.
func waitUntil(deadline time.Time, done <-chan struct{}) error {
	timer := time.NewTimer(time.Until(deadline))
	defer timer.Stop()
	select {
	case <-timer.C:
		return os.ErrDeadlineExceeded
	case <-done:
		return net.ErrClosed
	}
}
