// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package rawframe holds the fixed-size monochrome raster sent to an e-paper
// panel.
//
// Pixels are stored one bit each, row-major, most significant bit first. A
// set bit is a white pixel. This is the layout Waveshare panels expect and the
// layout the image server is required to deliver.
package rawframe

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"periph.io/x/devices/v3/ssd1306/image1bit"
)

// Dimensions of the 7.5 inch panel driven by the picture frame.
const (
	Width  = 800
	Height = 480
)

// Size returns the number of bytes needed for a w×h raster.
func Size(w, h int) int {
	return (w + 7) / 8 * h
}

// Frame is a 1 bit per pixel raster. It implements draw.Image so regular
// image operations can target it.
type Frame struct {
	w, h   int
	stride int
	pix    []byte
}

// New returns a white w×h frame.
func New(w, h int) *Frame {
	f := &Frame{
		w:      w,
		h:      h,
		stride: (w + 7) / 8,
		pix:    make([]byte, Size(w, h)),
	}
	f.Fill(0xFF)
	return f
}

// NewDefault returns a white frame sized for the 800×480 panel.
func NewDefault() *Frame {
	return New(Width, Height)
}

// Len returns the size of the raster in bytes.
func (f *Frame) Len() int {
	return len(f.pix)
}

// Bytes returns the underlying raster. The slice aliases the frame.
func (f *Frame) Bytes() []byte {
	return f.pix
}

// Fill sets every byte of the raster to b.
func (f *Frame) Fill(b byte) {
	for i := range f.pix {
		f.pix[i] = b
	}
}

// Load copies raw raster bytes into the frame. Bytes beyond the frame size
// are dropped; when src is shorter than the frame the remainder is cleared to
// white so nothing from a previous image survives. The number of bytes copied
// is returned.
func (f *Frame) Load(src []byte) int {
	n := copy(f.pix, src)
	for i := n; i < len(f.pix); i++ {
		f.pix[i] = 0xFF
	}
	return n
}

// ColorModel implements image.Image.
func (f *Frame) ColorModel() color.Model {
	return image1bit.BitModel
}

// Bounds implements image.Image.
func (f *Frame) Bounds() image.Rectangle {
	return image.Rect(0, 0, f.w, f.h)
}

// At implements image.Image.
func (f *Frame) At(x, y int) color.Color {
	return f.BitAt(x, y)
}

// BitAt returns the pixel at (x, y); out of bounds pixels are white.
func (f *Frame) BitAt(x, y int) image1bit.Bit {
	if !(image.Point{x, y}.In(f.Bounds())) {
		return image1bit.On
	}
	return image1bit.Bit(f.pix[y*f.stride+x/8]&(0x80>>uint(x%8)) != 0)
}

// Set implements draw.Image.
func (f *Frame) Set(x, y int, c color.Color) {
	f.SetBit(x, y, image1bit.BitModel.Convert(c).(image1bit.Bit))
}

// SetBit sets the pixel at (x, y). Out of bounds writes are ignored.
func (f *Frame) SetBit(x, y int, b image1bit.Bit) {
	if !(image.Point{x, y}.In(f.Bounds())) {
		return
	}
	mask := byte(0x80 >> uint(x%8))
	if b {
		f.pix[y*f.stride+x/8] |= mask
	} else {
		f.pix[y*f.stride+x/8] &^= mask
	}
}

// String returns a short description of the frame.
func (f *Frame) String() string {
	return fmt.Sprintf("rawframe.Frame{%dx%d, %d bytes}", f.w, f.h, len(f.pix))
}

var _ draw.Image = &Frame{}
