// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package rawframe

import (
	"bytes"
	"image"
	"image/draw"
	"testing"

	"github.com/google/go-cmp/cmp"
	"periph.io/x/devices/v3/ssd1306/image1bit"
)

func TestSize(t *testing.T) {
	for _, tc := range []struct {
		w, h int
		want int
	}{
		{w: Width, h: Height, want: 48000},
		{w: 122, h: 250, want: 16 * 250},
		{w: 0, h: 0, want: 0},
	} {
		if got := Size(tc.w, tc.h); got != tc.want {
			t.Errorf("Size(%d, %d) = %d, want %d", tc.w, tc.h, got, tc.want)
		}
	}
}

func TestLoad(t *testing.T) {
	for _, tc := range []struct {
		name  string
		prev  []byte
		src   []byte
		wantN int
		want  []byte
	}{
		{
			name:  "exact",
			src:   []byte{1, 2, 3, 4},
			wantN: 4,
			want:  []byte{1, 2, 3, 4},
		},
		{
			name:  "short body clears the tail",
			prev:  []byte{9, 9, 9, 9},
			src:   []byte{1, 2},
			wantN: 2,
			want:  []byte{1, 2, 0xFF, 0xFF},
		},
		{
			name:  "long body is truncated",
			src:   []byte{1, 2, 3, 4, 5, 6},
			wantN: 4,
			want:  []byte{1, 2, 3, 4},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			f := New(16, 2)
			if tc.prev != nil {
				f.Load(tc.prev)
			}

			if got := f.Load(tc.src); got != tc.wantN {
				t.Errorf("Load() = %d, want %d", got, tc.wantN)
			}

			if diff := cmp.Diff(f.Bytes(), tc.want); diff != "" {
				t.Errorf("Bytes() difference (-got +want):\n%s", diff)
			}
		})
	}
}

func TestBits(t *testing.T) {
	f := New(16, 2)
	f.Fill(0x00)

	f.SetBit(0, 0, image1bit.On)
	f.SetBit(9, 1, image1bit.On)
	f.SetBit(100, 100, image1bit.On)

	if diff := cmp.Diff(f.Bytes(), []byte{0x80, 0x00, 0x00, 0x40}); diff != "" {
		t.Errorf("Bytes() difference (-got +want):\n%s", diff)
	}

	for _, tc := range []struct {
		pt   image.Point
		want image1bit.Bit
	}{
		{pt: image.Pt(0, 0), want: image1bit.On},
		{pt: image.Pt(1, 0), want: image1bit.Off},
		{pt: image.Pt(9, 1), want: image1bit.On},
		{pt: image.Pt(-1, 0), want: image1bit.On},
	} {
		if got := f.BitAt(tc.pt.X, tc.pt.Y); got != tc.want {
			t.Errorf("BitAt(%v) = %v, want %v", tc.pt, got, tc.want)
		}
	}
}

func TestDraw(t *testing.T) {
	f := NewDefault()
	draw.Src.Draw(f, image.Rect(0, 0, 8, 1), &image.Uniform{image1bit.Off}, image.Point{})

	if got, want := f.Bytes()[0], byte(0x00); got != want {
		t.Errorf("first byte = %#x, want %#x", got, want)
	}
	if got := f.Bytes()[1:]; !bytes.Equal(got, bytes.Repeat([]byte{0xFF}, len(got))) {
		t.Errorf("draw touched bytes outside the destination rectangle")
	}
}
