// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package ingest

import (
	"context"
	"fmt"
	"log"
	"net"
	"sync"
	"time"
)

// DefaultUDPAddr is the port the phone app broadcasts to.
const DefaultUDPAddr = ":5555"

// MaxDatagram is the largest datagram read in one call.
const MaxDatagram = 8192

// UDPSocket is the part of *net.UDPConn the UDP source needs.
// This abstraction enables unit testing without real network connections.
type UDPSocket interface {
	ReadFromUDP(b []byte) (n int, addr *net.UDPAddr, err error)
	SetReadBuffer(bytes int) error
	SetReadDeadline(t time.Time) error
	Close() error
	LocalAddr() net.Addr
}

// SocketFactory creates UDP sockets.
type SocketFactory interface {
	ListenUDP(ctx context.Context, addr string) (UDPSocket, error)
}

// BroadcastSocketFactory binds sockets with SO_REUSEADDR and SO_BROADCAST
// set, so the streamer can share the port and receive broadcast datagrams.
type BroadcastSocketFactory struct{}

// ListenUDP binds an IPv4 UDP socket on addr.
func (BroadcastSocketFactory) ListenUDP(ctx context.Context, addr string) (UDPSocket, error) {
	conn, err := ListenBroadcast(ctx, addr)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// ListenBroadcast binds an IPv4 UDP socket that may send to and receive
// from broadcast addresses.
func ListenBroadcast(ctx context.Context, addr string) (*net.UDPConn, error) {
	lc := net.ListenConfig{Control: setBroadcastReuse}
	pc, err := lc.ListenPacket(ctx, "udp4", addr)
	if err != nil {
		return nil, err
	}
	conn, ok := pc.(*net.UDPConn)
	if !ok {
		pc.Close()
		return nil, fmt.Errorf("unexpected packet conn type %T", pc)
	}
	return conn, nil
}

// UDPSource reads datagrams from a bound UDP socket. The receive waits on
// the socket with a read deadline rather than polling.
type UDPSource struct {
	addr string
	sock UDPSocket
	buf  []byte

	closeOnce sync.Once
	closeErr  error
}

// ListenUDP binds addr through factory. maxDatagram <= 0 uses MaxDatagram.
func ListenUDP(ctx context.Context, factory SocketFactory, addr string, maxDatagram int) (*UDPSource, error) {
	if factory == nil {
		factory = BroadcastSocketFactory{}
	}
	if maxDatagram <= 0 {
		maxDatagram = MaxDatagram
	}

	sock, err := factory.ListenUDP(ctx, addr)
	if err != nil {
		return nil, &SocketBindError{Addr: addr, Err: err}
	}

	if err := sock.SetReadBuffer(maxDatagram * 64); err != nil {
		log.Printf("ingest: warning: failed to set UDP receive buffer on %s: %v", addr, err)
	}

	return &UDPSource{addr: addr, sock: sock, buf: make([]byte, maxDatagram)}, nil
}

// ReadPacket waits for one datagram. The returned slice is a copy.
func (s *UDPSource) ReadPacket(deadline time.Time) ([]byte, error) {
	if err := s.sock.SetReadDeadline(deadline); err != nil {
		return nil, fmt.Errorf("set read deadline: %w", err)
	}
	n, _, err := s.sock.ReadFromUDP(s.buf)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, s.buf[:n])
	return out, nil
}

// LocalAddr is the bound address, useful when binding port 0.
func (s *UDPSource) LocalAddr() net.Addr { return s.sock.LocalAddr() }

func (s *UDPSource) Close() error {
	s.closeOnce.Do(func() { s.closeErr = s.sock.Close() })
	return s.closeErr
}

func (s *UDPSource) String() string { return "udp " + s.addr }
