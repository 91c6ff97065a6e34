// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package termview implements a virtual e-paper panel that prints a
// down-sampled rendering of every frame to the terminal using ANSI colour
// codes.
//
// Useful while the real panel is still in the mail.
package termview

import (
	"bytes"
	"fmt"
	"image/color"
	"io"
	"sync"

	"github.com/maruel/ansi256"
	"github.com/mattn/go-colorable"

	"github.com/GermanBionicSystems/epaperframe/picframe"
	"github.com/GermanBionicSystems/epaperframe/rawframe"
)

// Opts represents the options available for this display.
type Opts struct {
	// Width and Height of the frame; they default to the 7.5" panel.
	Width, Height int
	// Cols is the number of terminal cells per row.
	Cols int
	// Palette defaults to ansi256.Default.
	Palette *ansi256.Palette
	// Output defaults to a colour-capable stdout.
	Output io.Writer
}

// Dev prints frames to the console.
type Dev struct {
	w       io.Writer
	palette ansi256.Palette
	frame   *rawframe.Frame
	cols    int
	rows    int

	mu  sync.Mutex
	buf bytes.Buffer
}

var _ picframe.Display = &Dev{}

// New returns a Dev that displays at the console.
func New(opts *Opts) *Dev {
	o := Opts{}
	if opts != nil {
		o = *opts
	}
	if o.Width <= 0 || o.Height <= 0 {
		o.Width, o.Height = rawframe.Width, rawframe.Height
	}
	if o.Cols <= 0 || o.Cols > o.Width {
		o.Cols = min(80, o.Width)
	}
	if o.Palette == nil {
		o.Palette = ansi256.Default
	}
	if o.Output == nil {
		o.Output = colorable.NewColorableStdout()
	}
	// A terminal cell is about twice as high as wide.
	rows := (o.Height*o.Cols + o.Width) / (2 * o.Width)
	if rows < 1 {
		rows = 1
	}
	return &Dev{
		w:       o.Output,
		palette: *o.Palette,
		frame:   rawframe.New(o.Width, o.Height),
		cols:    o.Cols,
		rows:    rows,
	}
}

func (d *Dev) String() string {
	return fmt.Sprintf("TermView{%dx%d}", d.cols, d.rows)
}

// Reset implements picframe.Display.
func (d *Dev) Reset() error { return nil }

// Init implements picframe.Display.
func (d *Dev) Init() error { return nil }

// Sleep implements picframe.Display.
func (d *Dev) Sleep() error { return nil }

// Halt resets the terminal attributes.
func (d *Dev) Halt() error {
	_, err := io.WriteString(d.w, "\033[0m\n")
	return err
}

// DisplayFrame implements picframe.Display.
func (d *Dev) DisplayFrame(b []byte) error {
	if len(b) != d.frame.Len() {
		return fmt.Errorf("termview: frame is %d bytes, want %d", len(b), d.frame.Len())
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.frame.Load(b)
	return d.refreshLocked()
}

// cell returns the grey level of the frame area covered by terminal cell
// (cx, cy).
func (d *Dev) cell(cx, cy int) color.NRGBA {
	r := d.frame.Bounds()
	x0, x1 := cx*r.Dx()/d.cols, (cx+1)*r.Dx()/d.cols
	y0, y1 := cy*r.Dy()/d.rows, (cy+1)*r.Dy()/d.rows
	white, n := 0, 0
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			if d.frame.BitAt(x, y) {
				white++
			}
			n++
		}
	}
	v := byte(255)
	if n != 0 {
		v = byte(white * 255 / n)
	}
	return color.NRGBA{v, v, v, 255}
}

func (d *Dev) refreshLocked() error {
	d.buf.Reset()
	for cy := 0; cy < d.rows; cy++ {
		_, _ = d.buf.WriteString("\033[0m")
		for cx := 0; cx < d.cols; cx++ {
			_, _ = d.buf.WriteString(d.palette.Block(d.cell(cx, cy)))
		}
		_, _ = d.buf.WriteString("\033[0m\n")
	}
	_, err := d.buf.WriteTo(d.w)
	return err
}
