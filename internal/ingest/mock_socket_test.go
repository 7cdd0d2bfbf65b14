// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package ingest

import (
	"context"
	"net"
	"os"
	"sync"
	"time"
)

// mockDatagram arrives After the previous read returned.
type mockDatagram struct {
	After time.Duration
	Data  string
}

// mockSocket replays a script of datagrams and honours read deadlines, so
// silence behaves like a real socket would.
type mockSocket struct {
	mu       sync.Mutex
	script   []mockDatagram
	deadline time.Time
	closed   chan struct{}
	once     sync.Once
	reads    int
}

func newMockSocket(script ...mockDatagram) *mockSocket {
	return &mockSocket{script: script, closed: make(chan struct{})}
}

func (m *mockSocket) ReadFromUDP(b []byte) (int, *net.UDPAddr, error) {
	m.mu.Lock()
	deadline := m.deadline
	var next *mockDatagram
	if len(m.script) > 0 {
		next = &m.script[0]
	}
	m.mu.Unlock()

	wait := time.Until(deadline)
	if next != nil && next.After < wait {
		wait = next.After
	} else {
		next = nil
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-m.closed:
		return 0, nil, net.ErrClosed
	case <-timer.C:
	}

	if next == nil {
		return 0, nil, os.ErrDeadlineExceeded
	}

	m.mu.Lock()
	m.script = m.script[1:]
	m.reads++
	m.mu.Unlock()
	n := copy(b, next.Data)
	return n, &net.UDPAddr{IP: net.IPv4(192, 168, 1, 20), Port: 40000}, nil
}

func (m *mockSocket) SetReadBuffer(int) error { return nil }

func (m *mockSocket) SetReadDeadline(t time.Time) error {
	m.mu.Lock()
	m.deadline = t
	m.mu.Unlock()
	return nil
}

func (m *mockSocket) Close() error {
	m.once.Do(func() { close(m.closed) })
	return nil
}

func (m *mockSocket) isClosed() bool {
	select {
	case <-m.closed:
		return true
	default:
		return false
	}
}

func (m *mockSocket) LocalAddr() net.Addr {
	return &net.UDPAddr{IP: net.IPv4zero, Port: 5555}
}

type mockFactory struct {
	sock *mockSocket
	err  error
}

func (f mockFactory) ListenUDP(ctx context.Context, addr string) (UDPSocket, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.sock, nil
}
