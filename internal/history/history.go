// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package history keeps the orientations of a session and plots them when
// the session ends.
package history

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/relabs-tech/phone_orientation/internal/gps"
	"github.com/relabs-tech/phone_orientation/internal/orientation"
	"github.com/relabs-tech/phone_orientation/internal/packet"
)

// DefaultMaxSamples is about an hour and a half at 20 packets per second.
const DefaultMaxSamples = 100_000

// Sample is one orientation and when it arrived, relative to the first.
type Sample struct {
	At          time.Duration
	Orientation orientation.Orientation
}

// Recorder is an ingest observer collecting orientations. When full, the
// oldest half is dropped.
type Recorder struct {
	max int
	now func() time.Time

	mu      sync.Mutex
	start   time.Time
	samples []Sample
}

func NewRecorder(maxSamples int) *Recorder {
	if maxSamples <= 0 {
		maxSamples = DefaultMaxSamples
	}
	return &Recorder{max: maxSamples, now: time.Now}
}

func (r *Recorder) OnPacket(p packet.Packet) {
	if p.Orientation == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if r.start.IsZero() {
		r.start = now
	}
	if len(r.samples) >= r.max {
		keep := r.samples[len(r.samples)/2:]
		r.samples = append(r.samples[:0], keep...)
	}
	r.samples = append(r.samples, Sample{At: now.Sub(r.start), Orientation: *p.Orientation})
}

func (r *Recorder) OnFix(gps.Fix) {}

// Samples returns a copy of what has been recorded.
func (r *Recorder) Samples() []Sample {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Sample(nil), r.samples...)
}

// ErrNoSamples is returned by WritePlot when nothing was recorded.
var ErrNoSamples = errors.New("history: no samples")

// WritePlot saves alpha, beta and gamma over time. The format follows the
// file extension (png, svg, pdf, ...).
func (r *Recorder) WritePlot(path string) error {
	samples := r.Samples()
	if len(samples) == 0 {
		return ErrNoSamples
	}

	alpha := make(plotter.XYs, len(samples))
	beta := make(plotter.XYs, len(samples))
	gamma := make(plotter.XYs, len(samples))
	for i, s := range samples {
		t := s.At.Seconds()
		alpha[i] = plotter.XY{X: t, Y: s.Orientation.Alpha}
		beta[i] = plotter.XY{X: t, Y: s.Orientation.Beta}
		gamma[i] = plotter.XY{X: t, Y: s.Orientation.Gamma}
	}

	p := plot.New()
	p.Title.Text = "Phone orientation"
	p.X.Label.Text = "time (s)"
	p.Y.Label.Text = "degrees"
	p.Add(plotter.NewGrid())

	if err := plotutil.AddLines(p, "alpha", alpha, "beta", beta, "gamma", gamma); err != nil {
		return fmt.Errorf("history: add lines: %w", err)
	}
	if err := p.Save(10*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("history: save %s: %w", path, err)
	}
	return nil
}
