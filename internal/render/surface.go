// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package render

import (
	"errors"
	"fmt"
	"image/color"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/relabs-tech/phone_orientation/internal/geometry"
	"github.com/relabs-tech/phone_orientation/internal/orientation"
)

// Axis names one of the three plot axes.
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

func (a Axis) String() string {
	switch a {
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	case AxisZ:
		return "z"
	}
	return fmt.Sprintf("axis(%d)", int(a))
}

// Bounds is the visible range of one axis.
type Bounds struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Surface is a 3D drawing target. A frame is Clear, any number of Add and
// SetBounds calls, then Flush. Surfaces are used from one goroutine.
type Surface interface {
	Clear() error
	AddSolid(faces [6]geometry.Quad, c color.NRGBA, opacity float64) error
	AddSegment(from, to r3.Vec) error
	SetBounds(axis Axis, min, max float64) error
	Flush() error
	Close() error
}

// Annotator is implemented by surfaces that can also show the orientation
// the frame was built from, and the mailbox version it was read at. It is
// called before Flush.
type Annotator interface {
	Annotate(o orientation.Orientation, version uint64) error
}

type multiSurface []Surface

// MultiSurface draws every frame on all surfaces in order.
func MultiSurface(surfaces ...Surface) Surface {
	if len(surfaces) == 1 {
		return surfaces[0]
	}
	return multiSurface(surfaces)
}

func (m multiSurface) each(fn func(Surface) error) error {
	for _, s := range m {
		if err := fn(s); err != nil {
			return err
		}
	}
	return nil
}

func (m multiSurface) Clear() error { return m.each(Surface.Clear) }

func (m multiSurface) AddSolid(faces [6]geometry.Quad, c color.NRGBA, opacity float64) error {
	return m.each(func(s Surface) error { return s.AddSolid(faces, c, opacity) })
}

func (m multiSurface) AddSegment(from, to r3.Vec) error {
	return m.each(func(s Surface) error { return s.AddSegment(from, to) })
}

func (m multiSurface) SetBounds(axis Axis, min, max float64) error {
	return m.each(func(s Surface) error { return s.SetBounds(axis, min, max) })
}

func (m multiSurface) Annotate(o orientation.Orientation, version uint64) error {
	return m.each(func(s Surface) error {
		if a, ok := s.(Annotator); ok {
			return a.Annotate(o, version)
		}
		return nil
	})
}

func (m multiSurface) Flush() error { return m.each(Surface.Flush) }

func (m multiSurface) Close() error {
	var errs []error
	for _, s := range m {
		errs = append(errs, s.Close())
	}
	return errors.Join(errs...)
}

// Discard is a surface that draws nothing.
type Discard struct{}

func (Discard) Clear() error                                          { return nil }
func (Discard) AddSolid([6]geometry.Quad, color.NRGBA, float64) error { return nil }
func (Discard) AddSegment(from, to r3.Vec) error                      { return nil }
func (Discard) SetBounds(Axis, float64, float64) error                { return nil }
func (Discard) Flush() error                                          { return nil }
func (Discard) Close() error                                          { return nil }
