// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package raster draws a render.Frame into a 2D image using an orthographic
// view of the scene.
package raster

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"sort"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/relabs-tech/phone_orientation/internal/geometry"
	"github.com/relabs-tech/phone_orientation/internal/render"
)

// Style controls colours and what gets drawn.
type Style struct {
	Background color.Color
	// Outline is used for face edges. Nil skips edges.
	Outline color.Color
	// Fill paints faces with the solid's colour and opacity.
	Fill       bool
	AxisColors [3]color.Color
	// Label, when set, prints the orientation in the top left corner.
	Label     color.Color
	LineWidth float32
	Margin    int
}

var (
	// WebStyle matches the desktop plot: translucent black body on white.
	WebStyle = Style{
		Background: color.White,
		Outline:    color.NRGBA{R: 0x30, G: 0x30, B: 0x30, A: 0xff},
		Fill:       true,
		AxisColors: [3]color.Color{
			color.NRGBA{R: 0xd6, G: 0x27, B: 0x28, A: 0xff},
			color.NRGBA{R: 0x2c, G: 0xa0, B: 0x2c, A: 0xff},
			color.NRGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff},
		},
		Label:     color.Black,
		LineWidth: 1.5,
		Margin:    8,
	}

	// MonoStyle is for 1-bit displays: white wireframe on black.
	MonoStyle = Style{
		Background: color.Black,
		Outline:    color.White,
		AxisColors: [3]color.Color{color.White, color.White, color.White},
		Label:      color.White,
		LineWidth:  1,
		Margin:     2,
	}
)

// Draw renders f into dst. Faces are painted far to near.
func Draw(dst draw.Image, f render.Frame, view geometry.View, st Style) {
	b := dst.Bounds()
	draw.Draw(dst, b, image.NewUniform(st.Background), image.Point{}, draw.Src)

	p := newProjector(b, f.Bounds, view, st.Margin)

	for _, face := range sortFaces(f.Solids, view) {
		pts := p.quad(face.quad)
		if st.Fill {
			c := fillColor(face.color, face.opacity)
			z := vector.NewRasterizer(b.Dx(), b.Dy())
			polygon(z, pts[:])
			z.Draw(dst, b, image.NewUniform(c), image.Point{})
		}
		if st.Outline != nil {
			for i := range pts {
				strokeLine(dst, pts[i], pts[(i+1)%len(pts)], st.LineWidth, st.Outline)
			}
		}
	}

	for i, seg := range f.Segments {
		c := st.AxisColors[i%3]
		if c == nil {
			continue
		}
		strokeLine(dst, p.point(seg[0]), p.point(seg[1]), st.LineWidth*1.5, c)
	}

	if st.Label != nil {
		drawLabel(dst, f, st.Label)
	}
}

// PNG renders f at w×h with WebStyle and encodes it.
func PNG(f render.Frame, w, h int) ([]byte, error) {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	Draw(img, f, geometry.DefaultView, WebStyle)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

type point struct{ x, y float32 }

type projector struct {
	view   geometry.View
	cx, cy float64
	scale  float64
}

func newProjector(b image.Rectangle, bounds [3]render.Bounds, view geometry.View, margin int) projector {
	limit := 0.0
	for _, bb := range bounds {
		limit = math.Max(limit, math.Max(math.Abs(bb.Min), math.Abs(bb.Max)))
	}
	if limit == 0 {
		limit = render.DefaultLimit
	}
	half := float64(min(b.Dx(), b.Dy()))/2 - float64(margin)
	if half < 1 {
		half = 1
	}
	return projector{
		view:  view,
		cx:    float64(b.Dx()) / 2,
		cy:    float64(b.Dy()) / 2,
		scale: half / limit,
	}
}

// point maps a scene point to rasterizer coordinates relative to the
// destination's top left corner.
func (p projector) point(v r3.Vec) point {
	x, y := p.view.Project(v)
	return point{x: float32(p.cx + x*p.scale), y: float32(p.cy - y*p.scale)}
}

func (p projector) quad(q geometry.Quad) [4]point {
	var out [4]point
	for i, v := range q {
		out[i] = p.point(v)
	}
	return out
}

type paintFace struct {
	quad    geometry.Quad
	color   color.NRGBA
	opacity float64
	depth   float64
}

func sortFaces(solids []render.Solid, view geometry.View) []paintFace {
	var faces []paintFace
	for _, s := range solids {
		for _, q := range s.Faces {
			faces = append(faces, paintFace{
				quad:    q,
				color:   s.Color,
				opacity: s.Opacity,
				depth:   view.Depth(q.Centroid()),
			})
		}
	}
	sort.SliceStable(faces, func(i, j int) bool { return faces[i].depth < faces[j].depth })
	return faces
}

func fillColor(c color.NRGBA, opacity float64) color.NRGBA {
	opacity = math.Max(0, math.Min(1, opacity))
	c.A = uint8(math.Round(float64(c.A) * opacity))
	return c
}

func polygon(z *vector.Rasterizer, pts []point) {
	z.MoveTo(pts[0].x, pts[0].y)
	for _, pt := range pts[1:] {
		z.LineTo(pt.x, pt.y)
	}
	z.ClosePath()
}

// strokeLine fills the thin rectangle around the segment a-b.
func strokeLine(dst draw.Image, a, b point, width float32, c color.Color) {
	dx, dy := b.x-a.x, b.y-a.y
	length := float32(math.Hypot(float64(dx), float64(dy)))
	if length == 0 {
		return
	}
	nx, ny := -dy/length*width/2, dx/length*width/2

	r := dst.Bounds()
	z := vector.NewRasterizer(r.Dx(), r.Dy())
	polygon(z, []point{
		{a.x + nx, a.y + ny},
		{b.x + nx, b.y + ny},
		{b.x - nx, b.y - ny},
		{a.x - nx, a.y - ny},
	})
	z.Draw(dst, r, image.NewUniform(c), image.Point{})
}

func drawLabel(dst draw.Image, f render.Frame, c color.Color) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
	}
	o := f.Orientation
	origin := dst.Bounds().Min
	d.Dot = fixed.P(origin.X+1, origin.Y+11)
	d.DrawString(fmt.Sprintf("%4.0f %4.0f %4.0f", o.Alpha, o.Beta, o.Gamma))
}
