// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package ingest receives phone datagrams, appends each accepted one to the
// log sink and publishes the latest orientation to the mailbox.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/relabs-tech/phone_orientation/internal/gps"
	"github.com/relabs-tech/phone_orientation/internal/logsink"
	"github.com/relabs-tech/phone_orientation/internal/orientation"
	"github.com/relabs-tech/phone_orientation/internal/packet"
)

const (
	DefaultInitialTimeout = 10 * time.Second
	DefaultSteadyTimeout  = 1 * time.Second
)

// ErrStreamTimeout ends the stream after the phone has been silent for
// longer than the active timeout. It is the normal way a session ends.
var ErrStreamTimeout = errors.New("stream timeout")

// Observer gets every accepted packet and GPS fix. Calls happen on the
// ingestion goroutine, so implementations must not block.
type Observer interface {
	OnPacket(p packet.Packet)
	OnFix(f gps.Fix)
}

// Logf is the logging hook, log.Printf by default.
type Logf func(format string, v ...any)

type Config struct {
	Source  Source
	Sink    logsink.Sink
	Mailbox *orientation.Mailbox

	// InitialTimeout bounds the wait for the first datagram,
	// SteadyTimeout every wait after it.
	InitialTimeout time.Duration
	SteadyTimeout  time.Duration

	Observers []Observer
	Logf      Logf
	// Verbose logs every accepted line.
	Verbose bool
}

// Ingestor is the only writer of the sink and the mailbox.
type Ingestor struct {
	cfg   Config
	stats Stats
}

func New(cfg Config) (*Ingestor, error) {
	if cfg.Source == nil {
		return nil, errors.New("ingest: source is required")
	}
	if cfg.Sink == nil {
		return nil, errors.New("ingest: sink is required")
	}
	if cfg.Mailbox == nil {
		return nil, errors.New("ingest: mailbox is required")
	}
	if cfg.InitialTimeout <= 0 {
		cfg.InitialTimeout = DefaultInitialTimeout
	}
	if cfg.SteadyTimeout <= 0 {
		cfg.SteadyTimeout = DefaultSteadyTimeout
	}
	if cfg.Logf == nil {
		cfg.Logf = log.Printf
	}
	return &Ingestor{cfg: cfg}, nil
}

// Stats returns the live counters.
func (in *Ingestor) Stats() *Stats { return &in.stats }

// Run receives until the stream goes silent, the context is cancelled or
// something fatal happens. The source and the sink are closed on return.
// A silent stream yields an error wrapping ErrStreamTimeout.
func (in *Ingestor) Run(ctx context.Context) (err error) {
	src := in.cfg.Source
	stop := context.AfterFunc(ctx, func() { src.Close() })
	defer stop()

	in.stats.started = time.Now()
	defer func() {
		src.Close()
		if cerr := in.cfg.Sink.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("ingest: close sink: %w", cerr)
		}
		in.cfg.Logf("ingest: %s: %s", src, in.stats.Snapshot())
	}()

	in.cfg.Logf("ingest: listening on %s", src)

	timeout := in.cfg.InitialTimeout
	for {
		raw, rerr := src.ReadPacket(time.Now().Add(timeout))
		if errors.Is(rerr, ErrOversizedPacket) {
			timeout = in.cfg.SteadyTimeout
			in.stats.packets.Add(1)
			in.stats.malformed.Add(1)
			in.cfg.Logf("ingest: dropping packet: %v", rerr)
			continue
		}
		if rerr != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if isTimeout(rerr) {
				return fmt.Errorf("%w: no data from %s for %s", ErrStreamTimeout, src, timeout)
			}
			return fmt.Errorf("ingest: read %s: %w", src, rerr)
		}

		// Any datagram, even one we reject, means the phone is alive.
		timeout = in.cfg.SteadyTimeout

		if err := in.handle(raw); err != nil {
			return err
		}
	}
}

func (in *Ingestor) handle(raw []byte) error {
	in.stats.packets.Add(1)
	in.stats.bytes.Add(uint64(len(raw)))

	if isNMEA(raw) {
		in.stats.nmea.Add(1)
		fixes, err := parseFixes(raw)
		if err != nil {
			in.cfg.Logf("ingest: dropping gps sentence: %v", err)
		}
		for _, f := range fixes {
			for _, o := range in.cfg.Observers {
				o.OnFix(f)
			}
		}
		return nil
	}

	pkt, line, err := packet.Parse(raw)
	if err != nil {
		if errors.Is(err, packet.ErrTruncatedPacket) {
			in.stats.truncated.Add(1)
		} else {
			in.stats.malformed.Add(1)
		}
		in.cfg.Logf("ingest: dropping packet: %v", err)
		return nil
	}

	if err := in.cfg.Sink.Append(line); err != nil {
		return fmt.Errorf("ingest: append log line: %w", err)
	}
	in.stats.logged.Add(1)
	if in.cfg.Verbose {
		in.cfg.Logf("ingest: %s", line)
	}

	if pkt.Orientation != nil {
		in.cfg.Mailbox.Publish(*pkt.Orientation)
	}
	for _, o := range in.cfg.Observers {
		o.OnPacket(pkt)
	}
	return nil
}
