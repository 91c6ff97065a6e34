// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package waveshare7in5v2

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"time"

	"github.com/GermanBionicSystems/epaperframe/rawframe"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3/rpi"
)

// Commands
const (
	panelSetting               byte = 0x00
	powerSetting               byte = 0x01
	powerOff                   byte = 0x02
	powerOn                    byte = 0x04
	deepSleepMode              byte = 0x07
	dataStartTransmission1     byte = 0x10
	displayRefresh             byte = 0x12
	dataStartTransmission2     byte = 0x13
	dualSPI                    byte = 0x15
	vcomAndDataIntervalSetting byte = 0x50
	tconSetting                byte = 0x60
	resolutionSetting          byte = 0x61
	getStatus                  byte = 0x71
)

// deepSleepCheckCode must follow deepSleepMode for the controller to accept
// the command.
const deepSleepCheckCode byte = 0xA5

// Dev defines the handler which is used to access the display.
type Dev struct {
	c conn.Conn

	dc   gpio.PinOut
	cs   gpio.PinOut
	rst  gpio.PinOut
	busy gpio.PinIn

	frame *rawframe.Frame

	opts *Opts
}

// Opts definies the structure of the display configuration.
type Opts struct {
	Width  int
	Height int

	// BusyTimeout bounds every wait for the busy line. Zero waits forever.
	BusyTimeout time.Duration
}

// EPD7in5v2 contains display configuration for the Waveshare 7in5 V2.
var EPD7in5v2 = Opts{
	Width:       rawframe.Width,
	Height:      rawframe.Height,
	BusyTimeout: 30 * time.Second,
}

// New creates new handler which is used to access the display.
func New(p spi.Port, dc, cs, rst gpio.PinOut, busy gpio.PinIn, opts *Opts) (*Dev, error) {
	c, err := p.Connect(4*physic.MegaHertz, spi.Mode0, 8)
	if err != nil {
		return nil, err
	}

	if err := busy.In(gpio.PullUp, gpio.NoEdge); err != nil {
		return nil, err
	}

	d := &Dev{
		c:     c,
		dc:    dc,
		cs:    cs,
		rst:   rst,
		busy:  busy,
		frame: rawframe.New(opts.Width, opts.Height),
		opts:  opts,
	}

	return d, nil
}

// NewHat creates new handler which is used to access the display. Default Waveshare Hat configuration is used.
func NewHat(p spi.Port, opts *Opts) (*Dev, error) {
	dc := rpi.P1_22
	cs := rpi.P1_24
	rst := rpi.P1_11
	busy := rpi.P1_18
	return New(p, dc, cs, rst, busy, opts)
}

// Reset pulses the hardware reset line. It wakes the controller from deep
// sleep and must precede Init.
func (d *Dev) Reset() error {
	eh := errorHandler{d: *d}

	eh.rstOut(gpio.High)
	time.Sleep(200 * time.Millisecond)
	eh.rstOut(gpio.Low)
	time.Sleep(4 * time.Millisecond)
	eh.rstOut(gpio.High)
	time.Sleep(200 * time.Millisecond)

	return eh.err
}

// Init powers the panel and programs resolution and timing.
func (d *Dev) Init() error {
	eh := errorHandler{d: *d}

	initDisplay(&eh, d.opts)

	return eh.err
}

// DisplayFrame uploads a raw raster (see package rawframe for the layout)
// and refreshes the whole panel. The raster must match the panel size
// exactly.
func (d *Dev) DisplayFrame(frame []byte) error {
	if want := rawframe.Size(d.opts.Width, d.opts.Height); len(frame) != want {
		return fmt.Errorf("waveshare7in5v2: frame is %d bytes, want %d", len(frame), want)
	}

	eh := errorHandler{d: *d}

	displayFrame(&eh, d.opts, frame)

	return eh.err
}

// Clear fills the display with the given color.
func (d *Dev) Clear(c color.Color) error {
	var fill byte
	if image1bit.BitModel.Convert(c).(image1bit.Bit) {
		fill = 0xFF
	}

	d.frame.Fill(fill)

	eh := errorHandler{d: *d}

	clearDisplay(&eh, d.opts, fill)

	return eh.err
}

// ColorModel returns a 1Bit color model.
func (d *Dev) ColorModel() color.Model {
	return image1bit.BitModel
}

// Bounds returns the bounds for the configurated display.
func (d *Dev) Bounds() image.Rectangle {
	return image.Rect(0, 0, d.opts.Width, d.opts.Height)
}

// Draw draws the given image to the display. The panel has no partial
// refresh, so the whole frame is uploaded and refreshed.
func (d *Dev) Draw(dstRect image.Rectangle, src image.Image, srcPts image.Point) error {
	draw.Src.Draw(d.frame, dstRect, src, srcPts)

	return d.DisplayFrame(d.frame.Bytes())
}

// Sleep makes the controller enter deep sleep mode. Reset and Init wake it
// up again. The displayed image is retained.
func (d *Dev) Sleep() error {
	eh := errorHandler{d: *d}

	deepSleep(&eh)

	return eh.err
}

// Halt puts the panel to sleep. E-paper keeps its image without power, so
// the display is not cleared.
func (d *Dev) Halt() error {
	return d.Sleep()
}

// String returns a string containing configuration information.
func (d *Dev) String() string {
	return fmt.Sprintf("epd.Dev{%s, %s, Width: %d, Height: %d}", d.c, d.dc, d.opts.Width, d.opts.Height)
}

var _ display.Drawer = &Dev{}
