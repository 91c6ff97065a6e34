// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package logging builds the structured logger shared by every component of
// the picture frame.
package logging

import (
	"io"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/mattn/go-colorable"
)

// Options control the root logger.
type Options struct {
	// Name is the root logger name. Sub-loggers append to it.
	Name string

	// Level is one of trace, debug, info, warn or error. Unknown values
	// fall back to info.
	Level string

	// JSON switches to one JSON object per line.
	JSON bool

	// Output defaults to a colour-capable stderr.
	Output io.Writer
}

// New returns the root logger.
func New(opts *Options) hclog.Logger {
	out := opts.Output
	color := hclog.ColorOff
	if out == nil {
		out = colorable.NewColorableStderr()
		color = hclog.AutoColor
	}
	if opts.JSON {
		color = hclog.ColorOff
	}

	level := hclog.LevelFromString(strings.TrimSpace(opts.Level))
	if level == hclog.NoLevel {
		level = hclog.Info
	}

	return hclog.New(&hclog.LoggerOptions{
		Name:            opts.Name,
		Level:           level,
		Output:          out,
		JSONFormat:      opts.JSON,
		Color:           color,
		IncludeLocation: level <= hclog.Debug,
	})
}

// OrNull returns l, or a logger that discards everything when l is nil.
func OrNull(l hclog.Logger) hclog.Logger {
	if l == nil {
		return hclog.NewNullLogger()
	}
	return l
}
