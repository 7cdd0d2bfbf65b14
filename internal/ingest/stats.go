// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package ingest

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
)

// Stats counts what the ingester has seen. Safe for concurrent reads.
type Stats struct {
	packets   atomic.Uint64
	bytes     atomic.Uint64
	logged    atomic.Uint64
	malformed atomic.Uint64
	truncated atomic.Uint64
	nmea      atomic.Uint64
	started   time.Time
}

// StatsSnapshot is a point-in-time copy of Stats.
type StatsSnapshot struct {
	Packets   uint64
	Bytes     uint64
	Logged    uint64
	Malformed uint64
	Truncated uint64
	NMEA      uint64
	Uptime    time.Duration
}

func (s *Stats) Snapshot() StatsSnapshot {
	snap := StatsSnapshot{
		Packets:   s.packets.Load(),
		Bytes:     s.bytes.Load(),
		Logged:    s.logged.Load(),
		Malformed: s.malformed.Load(),
		Truncated: s.truncated.Load(),
		NMEA:      s.nmea.Load(),
	}
	if !s.started.IsZero() {
		snap.Uptime = time.Since(s.started)
	}
	return snap
}

func (s StatsSnapshot) String() string {
	return fmt.Sprintf("%s packets (%s), %s logged, %s malformed, %s truncated, %s nmea in %s",
		humanize.Comma(int64(s.Packets)),
		humanize.Bytes(s.Bytes),
		humanize.Comma(int64(s.Logged)),
		humanize.Comma(int64(s.Malformed)),
		humanize.Comma(int64(s.Truncated)),
		humanize.Comma(int64(s.NMEA)),
		s.Uptime.Round(time.Millisecond),
	)
}
