// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package render redraws the phone at a fixed rate from the latest
// orientation in the mailbox.
package render

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"log"
	"sync/atomic"
	"time"

	"github.com/relabs-tech/phone_orientation/internal/geometry"
	"github.com/relabs-tech/phone_orientation/internal/orientation"
)

const (
	DefaultFrameRate = 10
	DefaultLimit     = 1.5
	DefaultOpacity   = 0.3
)

// DefaultColor is the phone body colour.
var DefaultColor = color.NRGBA{A: 0xff}

type Logf func(format string, v ...any)

type Config struct {
	Mailbox     *orientation.Mailbox
	FramePeriod time.Duration
	Dimensions  geometry.Dimensions
	Surface     Surface

	// Limit is the half-width of the visible cube on every axis.
	Limit   float64
	Color   color.NRGBA
	Opacity float64
	Logf    Logf
}

// Scheduler reads the mailbox once per tick and redraws the surface. It
// never writes the mailbox.
type Scheduler struct {
	cfg    Config
	frames atomic.Uint64
}

func NewScheduler(cfg Config) (*Scheduler, error) {
	if cfg.Mailbox == nil {
		return nil, errors.New("render: mailbox is required")
	}
	if cfg.Surface == nil {
		return nil, errors.New("render: surface is required")
	}
	if cfg.FramePeriod <= 0 {
		cfg.FramePeriod = time.Second / DefaultFrameRate
	}
	if cfg.Dimensions == (geometry.Dimensions{}) {
		cfg.Dimensions = geometry.PhoneDimensions
	}
	if cfg.Limit <= 0 {
		cfg.Limit = DefaultLimit
	}
	if cfg.Color == (color.NRGBA{}) {
		cfg.Color = DefaultColor
	}
	if cfg.Opacity <= 0 {
		cfg.Opacity = DefaultOpacity
	}
	if cfg.Logf == nil {
		cfg.Logf = log.Printf
	}
	return &Scheduler{cfg: cfg}, nil
}

// Frames is the number of frames flushed so far.
func (s *Scheduler) Frames() uint64 { return s.frames.Load() }

// Run draws a frame immediately and then once per frame period until ctx
// is done or the surface fails. The surface is closed on return.
func (s *Scheduler) Run(ctx context.Context) (err error) {
	defer func() {
		if cerr := s.cfg.Surface.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("render: close surface: %w", cerr)
		}
		s.cfg.Logf("render: stopped after %d frames", s.frames.Load())
	}()

	ticker := time.NewTicker(s.cfg.FramePeriod)
	defer ticker.Stop()

	for {
		if err := s.Tick(); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Tick draws one frame from the current mailbox value.
func (s *Scheduler) Tick() error {
	o, version := s.cfg.Mailbox.Snapshot()
	solid := geometry.Build(o, s.cfg.Dimensions)
	surf := s.cfg.Surface

	if err := surf.Clear(); err != nil {
		return fmt.Errorf("render: clear: %w", err)
	}
	if err := surf.AddSolid(solid.Faces, s.cfg.Color, s.cfg.Opacity); err != nil {
		return fmt.Errorf("render: add solid: %w", err)
	}
	for _, seg := range solid.Axes {
		if err := surf.AddSegment(seg[0], seg[1]); err != nil {
			return fmt.Errorf("render: add segment: %w", err)
		}
	}
	for _, axis := range []Axis{AxisX, AxisY, AxisZ} {
		if err := surf.SetBounds(axis, -s.cfg.Limit, s.cfg.Limit); err != nil {
			return fmt.Errorf("render: set %s bounds: %w", axis, err)
		}
	}
	if a, ok := surf.(Annotator); ok {
		if err := a.Annotate(o, version); err != nil {
			return fmt.Errorf("render: annotate: %w", err)
		}
	}
	if err := surf.Flush(); err != nil {
		return fmt.Errorf("render: flush: %w", err)
	}
	s.frames.Add(1)
	return nil
}
