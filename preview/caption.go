// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package preview

import (
	"image"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
)

// captionHeight is the height of the band below the frame.
const captionHeight = 24

var (
	faceOnce sync.Once
	face     font.Face
)

// captionFace returns Go Regular at 14pt, or the fixed 7x13 face if the
// embedded font fails to parse.
func captionFace() font.Face {
	faceOnce.Do(func() {
		f, err := truetype.Parse(goregular.TTF)
		if err != nil {
			face = basicfont.Face7x13
			return
		}
		face = truetype.NewFace(f, &truetype.Options{Size: 14, DPI: 72, Hinting: font.HintingFull})
	})
	return face
}

// drawCaption paints text into band, a region of dst.
func drawCaption(dst *image.RGBA, band image.Rectangle, text string) {
	dc := gg.NewContextForRGBA(dst)
	dc.SetRGB(0.15, 0.15, 0.15)
	dc.DrawRectangle(float64(band.Min.X), float64(band.Min.Y), float64(band.Dx()), float64(band.Dy()))
	dc.Fill()
	dc.SetFontFace(captionFace())
	dc.SetRGB(0.95, 0.95, 0.95)
	dc.DrawStringAnchored(text, float64(band.Min.X+6), float64(band.Min.Y)+float64(band.Dy())/2, 0, 0.35)
}
