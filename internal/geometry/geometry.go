// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package geometry turns a phone orientation into the faces of a rotated box.
package geometry

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/relabs-tech/phone_orientation/internal/orientation"
)

// Dimensions are the box extents along its local x, y and z axes.
type Dimensions [3]float64

// PhoneDimensions is the default box, roughly a phone's proportions.
var PhoneDimensions = Dimensions{0.8, 0.4, 0.1}

// Quad is one face of the box, corners in drawing order.
type Quad [4]r3.Vec

// Segment is a line from [0] to [1].
type Segment [2]r3.Vec

// Solid is everything drawn for one orientation.
type Solid struct {
	Faces [6]Quad
	Axes  [3]Segment
}

// RotationMatrix builds the Z-Y-X rotation for o.
//
// The phone reports alpha and gamma with the opposite handedness to the
// plotting frame, so their sines are negated before composing the matrix.
func RotationMatrix(o orientation.Orientation) *mat.Dense {
	a := o.Alpha * math.Pi / 180
	b := o.Beta * math.Pi / 180
	g := o.Gamma * math.Pi / 180

	ca, cb, cg := math.Cos(a), math.Cos(b), math.Cos(g)
	sa, sb, sg := math.Sin(a), math.Sin(b), math.Sin(g)

	sa = -sa
	sg = -sg

	return mat.NewDense(3, 3, []float64{
		ca * cb, ca*sb*sg - sa*cg, ca*sb*cg + sa*sg,
		sa * cb, sa*sb*sg + ca*cg, sa*sb*cg - ca*sg,
		-sb, cb * sg, cb * cg,
	})
}

// Axes applies r to the unit basis vectors and returns the rotated local
// x, y and z axes.
func Axes(r mat.Matrix) [3]r3.Vec {
	var rotated mat.Dense
	rotated.Mul(r, identity())

	var axes [3]r3.Vec
	for i := range axes {
		axes[i] = r3.Vec{X: rotated.At(0, i), Y: rotated.At(1, i), Z: rotated.At(2, i)}
	}
	return axes
}

func identity() *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		1, 0, 0,
		0, 1, 0,
		0, 0, 1,
	})
}

// corner sign pairs walked around each face.
var cornerSigns = [4][2]float64{{-1, 1}, {-1, -1}, {1, -1}, {1, 1}}

// Faces returns the six faces of a box with the given dimensions whose
// local axes are axes. Faces come in pairs per axis, negative side first.
func Faces(axes [3]r3.Vec, dims Dimensions) [6]Quad {
	var u [3]r3.Vec
	for i := range u {
		u[i] = r3.Scale(dims[i], axes[i])
	}

	var faces [6]Quad
	n := 0
	for i := 0; i < 3; i++ {
		j, k := (i+1)%3, (i+2)%3
		if j > k {
			j, k = k, j
		}
		for _, dir := range [2]float64{-1, 1} {
			center := r3.Scale(0.5*dir, u[i])
			for c, s := range cornerSigns {
				faces[n][c] = r3.Add(center, r3.Add(r3.Scale(0.5*s[0], u[j]), r3.Scale(0.5*s[1], u[k])))
			}
			n++
		}
	}
	return faces
}

// AxisSegments returns the rotated unit axes as segments from the origin.
func AxisSegments(axes [3]r3.Vec) [3]Segment {
	var segs [3]Segment
	for i, a := range axes {
		segs[i] = Segment{{}, a}
	}
	return segs
}

// Build computes the solid for o.
func Build(o orientation.Orientation, dims Dimensions) Solid {
	axes := Axes(RotationMatrix(o))
	return Solid{
		Faces: Faces(axes, dims),
		Axes:  AxisSegments(axes),
	}
}
