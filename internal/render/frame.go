// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package render

import (
	"image/color"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/relabs-tech/phone_orientation/internal/geometry"
	"github.com/relabs-tech/phone_orientation/internal/orientation"
)

// Solid is a filled set of faces with one colour.
type Solid struct {
	Faces   [6]geometry.Quad `json:"faces"`
	Color   color.NRGBA      `json:"color"`
	Opacity float64          `json:"opacity"`
}

// Frame is one complete drawing as collected between Clear and Flush.
type Frame struct {
	Seq         uint64                  `json:"seq"`
	At          time.Time               `json:"at"`
	Orientation orientation.Orientation `json:"orientation"`
	// Version is the mailbox version the orientation was read at.
	Version     uint64                  `json:"version"`
	Solids      []Solid                 `json:"solids"`
	Segments    []geometry.Segment      `json:"segments"`
	Bounds      [3]Bounds               `json:"bounds"`
}

// Recorder is a Surface that collects the calls of one frame and hands the
// finished Frame to a callback on Flush. Surfaces that draw whole frames at
// once (web, OLED, terminal) are built on it.
type Recorder struct {
	onFlush func(Frame) error
	onClose func() error

	seq     uint64
	pending Frame
}

// NewRecorder returns a recorder calling onFlush for every frame. onClose
// may be nil.
func NewRecorder(onFlush func(Frame) error, onClose func() error) *Recorder {
	return &Recorder{onFlush: onFlush, onClose: onClose}
}

func (r *Recorder) Clear() error {
	r.pending = Frame{}
	return nil
}

func (r *Recorder) AddSolid(faces [6]geometry.Quad, c color.NRGBA, opacity float64) error {
	r.pending.Solids = append(r.pending.Solids, Solid{Faces: faces, Color: c, Opacity: opacity})
	return nil
}

func (r *Recorder) AddSegment(from, to r3.Vec) error {
	r.pending.Segments = append(r.pending.Segments, geometry.Segment{from, to})
	return nil
}

func (r *Recorder) SetBounds(axis Axis, min, max float64) error {
	if axis >= AxisX && axis <= AxisZ {
		r.pending.Bounds[axis] = Bounds{Min: min, Max: max}
	}
	return nil
}

func (r *Recorder) Annotate(o orientation.Orientation, version uint64) error {
	r.pending.Orientation = o
	r.pending.Version = version
	return nil
}

func (r *Recorder) Flush() error {
	r.seq++
	f := r.pending
	f.Seq = r.seq
	f.At = time.Now()
	r.pending = Frame{}
	return r.onFlush(f)
}

func (r *Recorder) Close() error {
	if r.onClose == nil {
		return nil
	}
	return r.onClose()
}
