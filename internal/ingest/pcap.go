// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package ingest

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

// PCAPSource replays the UDP payloads sent to one port from a capture file.
// With realtime pacing the gaps between packets match the capture, so a
// long pause in the recording trips the silence timeout just as it did live.
// At end of file the source goes quiet until the deadline passes.
type PCAPSource struct {
	path     string
	port     layers.UDPPort
	realtime bool

	file    *os.File
	packets *gopacket.PacketSource

	// replay clock
	started   time.Time
	firstSeen time.Time
	pending   *pcapPayload
	eof       bool

	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

type pcapPayload struct {
	ts   time.Time
	data []byte
}

// OpenPCAP opens a classic pcap file. Only UDP datagrams with destination
// port == port are replayed.
func OpenPCAP(path string, port uint16, realtime bool) (*PCAPSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &SocketBindError{Addr: path, Err: err}
	}
	r, err := pcapgo.NewReader(f)
	if err != nil {
		f.Close()
		return nil, &SocketBindError{Addr: path, Err: fmt.Errorf("read pcap header: %w", err)}
	}

	src := gopacket.NewPacketSource(r, r.LinkType())
	src.DecodeOptions.Lazy = true
	src.DecodeOptions.NoCopy = true

	return &PCAPSource{
		path:     path,
		port:     layers.UDPPort(port),
		realtime: realtime,
		file:     f,
		packets:  src,
		done:     make(chan struct{}),
	}, nil
}

// next returns the next matching payload, or io.EOF.
func (s *PCAPSource) next() (*pcapPayload, error) {
	for {
		pkt, err := s.packets.NextPacket()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, io.EOF
			}
			return nil, fmt.Errorf("pcap %s: %w", s.path, err)
		}

		udpLayer := pkt.Layer(layers.LayerTypeUDP)
		if udpLayer == nil {
			continue
		}
		udp, ok := udpLayer.(*layers.UDP)
		if !ok || udp.DstPort != s.port || len(udp.Payload) == 0 {
			continue
		}

		data := make([]byte, len(udp.Payload))
		copy(data, udp.Payload)
		return &pcapPayload{ts: pkt.Metadata().Timestamp, data: data}, nil
	}
}

func (s *PCAPSource) ReadPacket(deadline time.Time) ([]byte, error) {
	select {
	case <-s.done:
		return nil, net.ErrClosed
	default:
	}

	if s.pending == nil && !s.eof {
		p, err := s.next()
		switch {
		case errors.Is(err, io.EOF):
			s.eof = true
		case err != nil:
			return nil, err
		default:
			s.pending = p
		}
	}
	if s.eof {
		return nil, waitUntil(deadline, s.done)
	}

	if s.realtime {
		if s.started.IsZero() {
			s.started = time.Now()
			s.firstSeen = s.pending.ts
		}
		due := s.started.Add(s.pending.ts.Sub(s.firstSeen))
		if due.After(deadline) {
			return nil, waitUntil(deadline, s.done)
		}
		if err := waitUntil(due, s.done); !errors.Is(err, os.ErrDeadlineExceeded) {
			return nil, err
		}
	}

	p := s.pending
	s.pending = nil
	return p.data, nil
}

func (s *PCAPSource) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
		s.closeErr = s.file.Close()
	})
	return s.closeErr
}

func (s *PCAPSource) String() string { return "pcap " + s.path }
