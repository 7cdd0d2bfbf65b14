// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package geometry

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// View is an orthographic camera given by azimuth and elevation in degrees.
type View struct {
	Azimuth   float64
	Elevation float64
}

// DefaultView looks at the scene from the same angle as a default 3D plot.
var DefaultView = View{Azimuth: -60, Elevation: 30}

func (v View) basis() (right, up, toward r3.Vec) {
	az := v.Azimuth * math.Pi / 180
	el := v.Elevation * math.Pi / 180
	right = r3.Vec{X: -math.Sin(az), Y: math.Cos(az)}
	up = r3.Vec{X: -math.Cos(az) * math.Sin(el), Y: -math.Sin(az) * math.Sin(el), Z: math.Cos(el)}
	toward = r3.Vec{X: math.Cos(el) * math.Cos(az), Y: math.Cos(el) * math.Sin(az), Z: math.Sin(el)}
	return right, up, toward
}

// Project maps p onto the view plane. x grows to the right, y grows up.
func (v View) Project(p r3.Vec) (x, y float64) {
	right, up, _ := v.basis()
	return r3.Dot(p, right), r3.Dot(p, up)
}

// Depth is the distance of p towards the camera; larger is nearer.
func (v View) Depth(p r3.Vec) float64 {
	_, _, toward := v.basis()
	return r3.Dot(p, toward)
}

// Centroid is the mean of the quad's corners.
func (q Quad) Centroid() r3.Vec {
	var c r3.Vec
	for _, p := range q {
		c = r3.Add(c, p)
	}
	return r3.Scale(0.25, c)
}
