// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package picframe

import (
	"strconv"
	"strings"
	"time"
)

// Timing and retry constants shared with the image server side.
const (
	// DefaultSleepInterval applies when no valid interval was received.
	DefaultSleepInterval = 300000 * time.Millisecond

	// MinCheckInterval separates two update attempts within one wake cycle.
	MinCheckInterval = 10000 * time.Millisecond

	// MaxRetries failed attempts send the device back to sleep.
	MaxRetries = 3
)

// Configuration is the runtime configuration delivered by the config channel.
// It starts empty on every boot.
type Configuration struct {
	// ImageURL is used verbatim. Empty means unset.
	ImageURL string

	// SleepInterval is zero until a message set it.
	SleepInterval time.Duration
}

// EffectiveSleepInterval returns the interval to sleep for, falling back to
// DefaultSleepInterval when none was configured.
func (c Configuration) EffectiveSleepInterval() time.Duration {
	if c.SleepInterval <= 0 {
		return DefaultSleepInterval
	}
	return c.SleepInterval
}

// ParseSleepInterval converts a sleep interval payload, a decimal count of
// seconds, into a duration. Payloads that are not a positive integer yield
// DefaultSleepInterval.
func ParseSleepInterval(payload string) time.Duration {
	n, err := strconv.ParseInt(strings.TrimSpace(payload), 10, 64)
	if err != nil || n <= 0 || n > int64(maxSleepInterval/time.Second) {
		return DefaultSleepInterval
	}
	return time.Duration(n) * time.Second
}

// maxSleepInterval keeps parsed intervals clear of time.Duration overflow.
const maxSleepInterval = time.Duration(1<<63-1) / 2
