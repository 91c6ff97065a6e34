// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package preview

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"mime"
	"net/http"
	"net/textproto"
	"sync"
	"time"

	"github.com/GermanBionicSystems/epaperframe/digest"
	"github.com/GermanBionicSystems/epaperframe/picframe"
	"github.com/GermanBionicSystems/epaperframe/rawframe"
)

// Options for a preview Display.
type Options struct {
	// Width and Height of the frame; they default to the 7.5" panel.
	Width, Height int

	// Format is sent when the client does not ask for one.
	Format ImageFormat

	// NoCaption drops the caption band.
	NoCaption bool

	// Now defaults to time.Now.
	Now func() time.Time
}

// ErrNotInitialized is returned by DisplayFrame before Init or after Sleep.
var ErrNotInitialized = errors.New("preview: panel not initialized")

type state int

const (
	stateOff state = iota
	stateReset
	stateReady
	stateAsleep
)

func (s state) String() string {
	switch s {
	case stateReset:
		return "reset"
	case stateReady:
		return "ready"
	case stateAsleep:
		return "asleep"
	default:
		return "off"
	}
}

// Display is a virtual panel. It implements picframe.Display and
// http.Handler.
type Display struct {
	opts Options

	mu       sync.Mutex
	state    state
	frame    *rawframe.Frame
	canvas   *image.RGBA
	refresh  time.Time
	sum      digest.Digest
	snapshot map[ImageFormat][]byte
	clients  map[*client]struct{}
}

var (
	_ picframe.Display = &Display{}
	_ http.Handler     = &Display{}
)

type client struct {
	refresh   chan struct{}
	terminate chan struct{}
}

// New returns a blank Display.
func New(opts *Options) *Display {
	o := Options{}
	if opts != nil {
		o = *opts
	}
	if o.Width <= 0 || o.Height <= 0 {
		o.Width, o.Height = rawframe.Width, rawframe.Height
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	h := o.Height
	if !o.NoCaption {
		h += captionHeight
	}
	d := &Display{
		opts:     o,
		frame:    rawframe.New(o.Width, o.Height),
		canvas:   image.NewRGBA(image.Rect(0, 0, o.Width, h)),
		snapshot: map[ImageFormat][]byte{},
		clients:  map[*client]struct{}{},
	}
	d.mu.Lock()
	d.renderLocked()
	d.mu.Unlock()
	return d
}

func (d *Display) String() string {
	return fmt.Sprintf("preview.Display{%dx%d}", d.opts.Width, d.opts.Height)
}

// Bounds returns the size of the served images, caption included.
func (d *Display) Bounds() image.Rectangle {
	return d.canvas.Bounds()
}

// Reset implements picframe.Display.
func (d *Display) Reset() error {
	d.setState(stateReset)
	return nil
}

// Init implements picframe.Display.
func (d *Display) Init() error {
	d.setState(stateReady)
	return nil
}

// Sleep implements picframe.Display. The image stays visible.
func (d *Display) Sleep() error {
	d.setState(stateAsleep)
	return nil
}

// DisplayFrame implements picframe.Display.
func (d *Display) DisplayFrame(b []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state != stateReady {
		return ErrNotInitialized
	}
	if len(b) != d.frame.Len() {
		return fmt.Errorf("preview: frame is %d bytes, want %d", len(b), d.frame.Len())
	}
	d.frame.Load(b)
	d.sum = digest.Sum(b)
	d.refresh = d.opts.Now()
	d.renderLocked()
	return nil
}

// Halt terminates all running client requests.
func (d *Display) Halt() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for c := range d.clients {
		select {
		case c.terminate <- struct{}{}:
		default:
		}
	}
	return nil
}

// Image returns a copy of the current image, caption included.
func (d *Display) Image() *image.RGBA {
	d.mu.Lock()
	defer d.mu.Unlock()
	img := image.NewRGBA(d.canvas.Bounds())
	copy(img.Pix, d.canvas.Pix)
	return img
}

func (d *Display) setState(s state) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = s
	d.renderLocked()
}

func (d *Display) caption() string {
	if d.refresh.IsZero() {
		return d.state.String()
	}
	return fmt.Sprintf("%s | %s | %s", d.state, d.refresh.Format("2006-01-02 15:04:05"), d.sum.Short())
}

func (d *Display) renderLocked() {
	fr := d.frame.Bounds()
	draw.Draw(d.canvas, fr, d.frame, image.Point{}, draw.Src)
	if !d.opts.NoCaption {
		band := image.Rect(0, fr.Max.Y, fr.Max.X, fr.Max.Y+captionHeight)
		drawCaption(d.canvas, band, d.caption())
	}
	for f := range d.snapshot {
		delete(d.snapshot, f)
	}
	for c := range d.clients {
		select {
		case c.refresh <- struct{}{}:
		default:
		}
	}
}

func (d *Display) encoded(f ImageFormat) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if b, ok := d.snapshot[f]; ok {
		return b, nil
	}
	b, err := encode(d.canvas, f)
	if err != nil {
		return nil, err
	}
	d.snapshot[f] = b
	return b, nil
}

// ServeHTTP streams the panel content. "?format=png" or "?format=jpeg"
// selects the format; "?once" returns a single image.
func (d *Display) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "", http.StatusMethodNotAllowed)
		return
	}
	q := r.URL.Query()
	format := d.opts.Format
	if v := q.Get("format"); v != "" {
		f, err := ParseImageFormat(v)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		format = f
	}

	if q.Has("once") {
		b, err := d.encoded(format)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", format.mimeType())
		w.Write(b)
		return
	}

	ps := newPartStream(w)
	w.Header().Set("Content-Type", mime.FormatMediaType("multipart/x-mixed-replace", map[string]string{"boundary": ps.boundary}))

	c := &client{refresh: make(chan struct{}, 1), terminate: make(chan struct{}, 1)}
	d.mu.Lock()
	d.clients[c] = struct{}{}
	d.mu.Unlock()
	defer func() {
		d.mu.Lock()
		delete(d.clients, c)
		d.mu.Unlock()
	}()

	hdr := textproto.MIMEHeader{}
	hdr.Set("Content-Type", format.mimeType())
	for {
		b, err := d.encoded(format)
		if err != nil {
			return
		}
		// A write error means the client left.
		if err := ps.writePart(hdr, b); err != nil {
			return
		}
		if fl, ok := w.(http.Flusher); ok {
			fl.Flush()
		}
		select {
		case <-c.refresh:
		case <-c.terminate:
			return
		case <-r.Context().Done():
			return
		}
	}
}

