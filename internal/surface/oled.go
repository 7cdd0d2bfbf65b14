// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package surface

import (
	"fmt"
	"image"
	"image/draw"
	"log"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/phone_orientation/internal/geometry"
	"github.com/relabs-tech/phone_orientation/internal/raster"
	"github.com/relabs-tech/phone_orientation/internal/render"
)

// Display is the part of *ssd1306.Dev the OLED surface draws on.
type Display interface {
	Bounds() image.Rectangle
	Draw(r image.Rectangle, src image.Image, sp image.Point) error
	Halt() error
}

// OLED draws a wireframe of the phone on a 128x64 SSD1306 panel.
type OLED struct {
	*render.Recorder

	dev Display
	bus i2c.BusCloser
	img *image1bit.VerticalLSB
}

// OpenOLED initialises periph, opens the I2C bus (first one when busName is
// empty) and shows a splash screen.
func OpenOLED(busName string) (*OLED, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph: %w", err)
	}

	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("failed to open I2C bus: %w", err)
	}

	dev, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("failed to initialize display: %w", err)
	}
	log.Printf("oled: display initialized on %s", bus)

	o := NewOLED(dev)
	o.bus = bus
	if err := o.splash(); err != nil {
		log.Printf("oled: error showing splash: %v", err)
	}
	return o, nil
}

// NewOLED wraps an already opened display.
func NewOLED(dev Display) *OLED {
	o := &OLED{
		dev: dev,
		img: image1bit.NewVerticalLSB(dev.Bounds()),
	}
	o.Recorder = render.NewRecorder(o.present, o.close)
	return o
}

func (o *OLED) present(f render.Frame) error {
	raster.Draw(o.img, f, geometry.DefaultView, raster.MonoStyle)
	return o.dev.Draw(o.dev.Bounds(), o.img, image.Point{})
}

func (o *OLED) splash() error {
	draw.Draw(o.img, o.img.Bounds(), &image.Uniform{image1bit.Off}, image.Point{}, draw.Src)

	drawer := &font.Drawer{
		Dst:  o.img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
	drawer.Dot = fixed.P(10, 26)
	drawer.DrawString("Phone pose")
	drawer.Dot = fixed.P(5, 43)
	drawer.DrawString("Waiting...")

	return o.dev.Draw(o.dev.Bounds(), o.img, image.Point{})
}

func (o *OLED) close() error {
	err := o.dev.Halt()
	if o.bus != nil {
		if cerr := o.bus.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
