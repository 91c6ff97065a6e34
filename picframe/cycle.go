// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package picframe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/time/rate"

	"github.com/GermanBionicSystems/epaperframe/digest"
	"github.com/GermanBionicSystems/epaperframe/logging"
	"github.com/GermanBionicSystems/epaperframe/rawframe"
)

// Status is the result class of an update attempt.
type Status int

// Attempt results.
const (
	Failed Status = iota
	Unchanged
	Updated
)

func (s Status) String() string {
	switch s {
	case Failed:
		return "failed"
	case Unchanged:
		return "unchanged"
	case Updated:
		return "updated"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Outcome is the result of one AttemptUpdate call. Err is set only when
// Status is Failed.
type Outcome struct {
	Status Status
	Err    error
}

// Succeeded reports whether the attempt left the panel showing the image.
func (o Outcome) Succeeded() bool {
	return o.Status != Failed
}

func (o Outcome) String() string {
	if o.Err != nil {
		return fmt.Sprintf("%s(%v)", o.Status, o.Err)
	}
	return o.Status.String()
}

// Decision is what Poll did and what the caller has to do next.
type Decision struct {
	// Attempted is false when the rate limit held the attempt back.
	Attempted bool
	Outcome   Outcome
	// Sleep asks the caller to move the device towards deep sleep.
	Sleep bool
	// Exhausted is set when Sleep was forced by the retry ceiling.
	Exhausted bool
}

// CycleOptions tune an UpdateCycle. The zero value is not useful; start from
// DefaultCycleOptions.
type CycleOptions struct {
	// MinCheckInterval separates two attempts.
	MinCheckInterval time.Duration
	// MaxRetries consecutive failures force a sleep request.
	MaxRetries int
	// AttemptTimeout bounds a whole attempt, fetch and render. Zero
	// disables the bound.
	AttemptTimeout time.Duration
}

// DefaultCycleOptions matches the timing of the deployed frames.
var DefaultCycleOptions = CycleOptions{
	MinCheckInterval: MinCheckInterval,
	MaxRetries:       MaxRetries,
	AttemptTimeout:   60 * time.Second,
}

// UpdateCycle fetches the configured image and renders it when its digest
// differs from the image on the panel.
//
// It is not safe for concurrent use; the Controller goroutine owns it.
type UpdateCycle struct {
	fetcher Fetcher
	display Display
	frame   *rawframe.Frame
	opts    CycleOptions
	log     hclog.Logger

	cfg     Configuration
	last    digest.Digest
	retries int
	limiter *rate.Limiter
}

// NewUpdateCycle returns an UpdateCycle rendering into frame. opts may be nil
// for DefaultCycleOptions.
func NewUpdateCycle(f Fetcher, d Display, frame *rawframe.Frame, opts *CycleOptions, logger hclog.Logger) *UpdateCycle {
	if opts == nil {
		opts = &DefaultCycleOptions
	}
	if frame == nil {
		frame = rawframe.NewDefault()
	}
	c := &UpdateCycle{
		fetcher: f,
		display: d,
		frame:   frame,
		opts:    *opts,
		log:     logging.OrNull(logger),
	}
	if c.opts.MaxRetries <= 0 {
		c.opts.MaxRetries = MaxRetries
	}
	c.Rearm()
	return c
}

// Config returns the current configuration.
func (c *UpdateCycle) Config() Configuration {
	return c.cfg
}

// SetImageURL replaces the image URL. The payload is used verbatim.
func (c *UpdateCycle) SetImageURL(url string) {
	c.cfg.ImageURL = url
}

// SetSleepInterval replaces the sleep interval.
func (c *UpdateCycle) SetSleepInterval(d time.Duration) {
	c.cfg.SleepInterval = d
}

// LastDigest returns the digest of the image on the panel, or digest.Zero
// when nothing was rendered in this process.
func (c *UpdateCycle) LastDigest() digest.Digest {
	return c.last
}

// Retries returns the number of consecutive failed attempts.
func (c *UpdateCycle) Retries() int {
	return c.retries
}

// Rearm makes the next attempt unconditional, as after a wake-up.
func (c *UpdateCycle) Rearm() {
	c.limiter = rate.NewLimiter(rate.Every(c.opts.MinCheckInterval), 1)
}

// AttemptUpdate runs one fetch, compare and render pass.
//
// The digest of the panel content is committed only after Reset, Init,
// DisplayFrame and Sleep all succeeded.
func (c *UpdateCycle) AttemptUpdate(ctx context.Context) Outcome {
	if c.cfg.ImageURL == "" {
		return Outcome{Status: Failed, Err: ErrNoURLConfigured}
	}
	if c.opts.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.AttemptTimeout)
		defer cancel()
	}

	status, body, err := c.fetcher.Fetch(ctx, c.cfg.ImageURL)
	if err != nil {
		return Outcome{Status: Failed, Err: failure(ErrFetch, err)}
	}
	if status != http.StatusOK {
		return Outcome{Status: Failed, Err: failure(ErrFetch, fmt.Errorf("status %d", status))}
	}
	if len(body) == 0 {
		return Outcome{Status: Failed, Err: ErrEmptyBody}
	}

	d := digest.Sum(body)
	if d == c.last {
		c.log.Debug("image unchanged", logging.KeyDigest, d.Short())
		return Outcome{Status: Unchanged}
	}

	if n := c.frame.Load(body); n != len(body) {
		c.log.Warn("image larger than frame, truncated", logging.KeyBytes, len(body))
	} else if n < c.frame.Len() {
		c.log.Warn("image shorter than frame, padded with white", logging.KeyBytes, len(body))
	}
	if err := c.render(); err != nil {
		return Outcome{Status: Failed, Err: err}
	}
	c.last = d
	c.log.Info("image updated", logging.KeyDigest, d.Short(), logging.KeyBytes, len(body))
	return Outcome{Status: Updated}
}

func (c *UpdateCycle) render() error {
	if err := c.display.Reset(); err != nil {
		return failure(ErrDisplayInit, err)
	}
	if err := c.display.Init(); err != nil {
		return failure(ErrDisplayInit, err)
	}
	if err := c.display.DisplayFrame(c.frame.Bytes()); err != nil {
		return failure(ErrRender, err)
	}
	if err := c.display.Sleep(); err != nil {
		return failure(ErrRender, err)
	}
	return nil
}

// Poll runs an attempt at now unless the rate limit holds it back, then
// applies the retry policy to its outcome.
func (c *UpdateCycle) Poll(ctx context.Context, now time.Time) Decision {
	if !c.limiter.AllowN(now, 1) {
		return Decision{}
	}
	out := c.AttemptUpdate(ctx)
	dec := Decision{Attempted: true, Outcome: out}
	switch {
	case out.Succeeded():
		c.retries = 0
		dec.Sleep = true
	case errors.Is(out.Err, ErrNoURLConfigured):
		// Not a retry: the URL may still arrive in this wake cycle.
	default:
		c.retries++
		c.log.Warn("update attempt failed", logging.KeyRetries, c.retries, logging.KeyError, out.Err)
		if c.retries >= c.opts.MaxRetries {
			c.log.Error("retries exhausted, giving up until next wake-up", logging.KeyRetries, c.retries)
			c.retries = 0
			dec.Sleep = true
			dec.Exhausted = true
		}
	}
	return dec
}
