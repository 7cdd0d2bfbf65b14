// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package surface

import (
	"fmt"
	"image"
	"math"
	"sync"

	ui "github.com/gizak/termui/v3"
	"github.com/gizak/termui/v3/widgets"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/relabs-tech/phone_orientation/internal/geometry"
	"github.com/relabs-tech/phone_orientation/internal/render"
)

// Braille cells hold 2x4 dots.
const (
	dotsX = 2
	dotsY = 4
)

// Terminal draws a braille wireframe in the terminal. While it is open the
// terminal is in raw mode, so the standard logger should not write to it.
type Terminal struct {
	*render.Recorder

	quit     chan struct{}
	quitOnce sync.Once

	done      chan struct{}
	closeOnce sync.Once
}

// OpenTerminal takes over the terminal. Pressing q or Ctrl-C closes Quit.
func OpenTerminal() (*Terminal, error) {
	if err := ui.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize terminal: %w", err)
	}
	t := &Terminal{quit: make(chan struct{}), done: make(chan struct{})}
	t.Recorder = render.NewRecorder(t.present, t.close)
	go t.pollEvents()
	return t, nil
}

// Quit is closed when the user asks to stop.
func (t *Terminal) Quit() <-chan struct{} { return t.quit }

func (t *Terminal) pollEvents() {
	events := ui.PollEvents()
	for {
		select {
		case <-t.done:
			return
		case e := <-events:
			if e.Type == ui.KeyboardEvent && (e.ID == "q" || e.ID == "<C-c>") {
				t.quitOnce.Do(func() { close(t.quit) })
			}
		}
	}
}

func (t *Terminal) present(f render.Frame) error {
	w, h := ui.TerminalDimensions()
	if h < 4 || w < 4 {
		return nil
	}

	canvas := ui.NewCanvas()
	canvas.Title = "phone"
	canvas.SetRect(0, 0, w, h-3)
	for _, l := range termLines(f, w, h-3) {
		canvas.SetLine(l.from, l.to, l.color)
	}

	status := widgets.NewParagraph()
	o := f.Orientation
	status.Text = fmt.Sprintf("alpha %6.1f  beta %6.1f  gamma %6.1f   frame %d   q to quit",
		o.Alpha, o.Beta, o.Gamma, f.Seq)
	status.SetRect(0, h-3, w, h)

	ui.Render(canvas, status)
	return nil
}

func (t *Terminal) close() error {
	t.closeOnce.Do(func() {
		close(t.done)
		ui.Close()
	})
	return nil
}

type termLine struct {
	from, to image.Point
	color    ui.Color
}

var termAxisColors = [3]ui.Color{ui.ColorRed, ui.ColorGreen, ui.ColorBlue}

// termLines projects the frame into braille dot space for a w×h cell area,
// keeping one cell of border.
func termLines(f render.Frame, w, h int) []termLine {
	limit := 0.0
	for _, b := range f.Bounds {
		limit = math.Max(limit, math.Max(math.Abs(b.Min), math.Abs(b.Max)))
	}
	if limit == 0 {
		limit = render.DefaultLimit
	}

	// Keep the aspect ratio square in dot space.
	dw, dh := float64((w-2)*dotsX), float64((h-2)*dotsY)
	scale := math.Min(dw, dh) / 2 / limit
	cx, cy := float64(dotsX)+dw/2, float64(dotsY)+dh/2

	pt := func(v r3.Vec) image.Point {
		x, y := geometry.DefaultView.Project(v)
		return image.Pt(int(math.Round(cx+x*scale)), int(math.Round(cy-y*scale)))
	}

	var lines []termLine
	for _, s := range f.Solids {
		for _, q := range s.Faces {
			for i := range q {
				lines = append(lines, termLine{from: pt(q[i]), to: pt(q[(i+1)%4]), color: ui.ColorWhite})
			}
		}
	}
	for i, seg := range f.Segments {
		lines = append(lines, termLine{from: pt(seg[0]), to: pt(seg[1]), color: termAxisColors[i%3]})
	}
	return lines
}
