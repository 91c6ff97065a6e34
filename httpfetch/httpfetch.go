// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package httpfetch retrieves raw frame images over HTTP.
package httpfetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/GermanBionicSystems/epaperframe/logging"
	"github.com/GermanBionicSystems/epaperframe/picframe"
	"github.com/GermanBionicSystems/epaperframe/rawframe"
)

// Opts configures a Client.
type Opts struct {
	// Timeout bounds a whole request, body included.
	Timeout time.Duration
	// UserAgent is sent with every request.
	UserAgent string
	// MaxBytes is the largest body accepted.
	MaxBytes int64
}

// DefaultOpts allows a few frames worth of body.
var DefaultOpts = Opts{
	Timeout:   30 * time.Second,
	UserAgent: "epaperframe/1",
	MaxBytes:  4 * int64(rawframe.Size(rawframe.Width, rawframe.Height)),
}

// ErrTooLarge is returned when the body exceeds Opts.MaxBytes.
var ErrTooLarge = errors.New("httpfetch: body exceeds limit")

// Client implements picframe.Fetcher.
type Client struct {
	hc   *http.Client
	opts Opts
	log  hclog.Logger
}

var _ picframe.Fetcher = &Client{}

// New returns a Client. opts may be nil for DefaultOpts; hc may be nil for a
// client built from opts.
func New(hc *http.Client, opts *Opts, logger hclog.Logger) *Client {
	if opts == nil {
		opts = &DefaultOpts
	}
	o := *opts
	if o.MaxBytes <= 0 {
		o.MaxBytes = DefaultOpts.MaxBytes
	}
	if hc == nil {
		hc = &http.Client{Timeout: o.Timeout}
	}
	return &Client{hc: hc, opts: o, log: logging.OrNull(logger)}
}

// Fetch issues a GET for url. Non-200 responses are returned with their
// status and body; only transport failures are errors.
func (c *Client) Fetch(ctx context.Context, url string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("httpfetch: %w", err)
	}
	if c.opts.UserAgent != "" {
		req.Header.Set("User-Agent", c.opts.UserAgent)
	}
	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("httpfetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.opts.MaxBytes+1))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("httpfetch: reading body: %w", err)
	}
	if int64(len(body)) > c.opts.MaxBytes {
		return resp.StatusCode, nil, fmt.Errorf("%w (%d bytes)", ErrTooLarge, c.opts.MaxBytes)
	}
	c.log.Debug("fetched", logging.KeyURL, url, logging.KeyStatus, resp.StatusCode,
		logging.KeyBytes, len(body), logging.KeyDuration, time.Since(start))
	return resp.StatusCode, body, nil
}
