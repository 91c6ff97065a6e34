// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package preview

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"sync"
)

// ImageFormat is the encoding of the images sent to clients.
type ImageFormat int

// Supported formats.
const (
	PNG ImageFormat = iota
	JPEG
)

func (f ImageFormat) String() string {
	switch f {
	case PNG:
		return "PNG"
	case JPEG:
		return "JPEG"
	default:
		return fmt.Sprint(int(f))
	}
}

func (f ImageFormat) mimeType() string {
	switch f {
	case PNG:
		return "image/png"
	case JPEG:
		return "image/jpeg"
	}
	return "application/octet-stream"
}

// ParseImageFormat returns the format for a URL parameter value.
func ParseImageFormat(value string) (ImageFormat, error) {
	switch value {
	case "png":
		return PNG, nil
	case "jpg", "jpeg":
		return JPEG, nil
	}
	return PNG, fmt.Errorf("unrecognized image format %q", value)
}

var pngEnc = png.Encoder{
	CompressionLevel: png.BestSpeed,
	BufferPool:       &pngPool{},
}

type pngPool sync.Pool

func (p *pngPool) Get() *png.EncoderBuffer {
	b, _ := (*sync.Pool)(p).Get().(*png.EncoderBuffer)
	return b
}

func (p *pngPool) Put(b *png.EncoderBuffer) {
	(*sync.Pool)(p).Put(b)
}

func encode(img image.Image, f ImageFormat) ([]byte, error) {
	var buf bytes.Buffer
	switch f {
	case PNG:
		if err := pngEnc.Encode(&buf, img); err != nil {
			return nil, err
		}
	case JPEG:
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unhandled image format %s", f)
	}
	return buf.Bytes(), nil
}
