// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package picframe

import (
	"context"
	"time"
)

// Fetcher retrieves the image at url. A transport failure is returned as an
// error; any HTTP response is returned with its status code and body.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (status int, body []byte, err error)
}

// Display is the logical contract of the panel. Calls happen in the order
// Reset, Init, DisplayFrame, Sleep; DisplayFrame is never called after a
// failed Init.
type Display interface {
	Reset() error
	Init() error
	DisplayFrame(frame []byte) error
	Sleep() error
}

// State is the device state announced on the config channel.
type State string

// Announced states.
const (
	StateInit     State = "init"
	StateReady    State = "ready"
	StateSleeping State = "sleeping"
	StateLost     State = "lost"
)

// Messenger publishes device state on the config channel. Announce returns
// once the message left the device or ctx expired.
type Messenger interface {
	Announce(ctx context.Context, s State) error
}

// Sleeper cuts power for d. Production implementations do not return; the
// device boots again when the interval elapsed.
type Sleeper interface {
	DeepSleep(d time.Duration) error
}

// Observer receives notifications for metrics. Calls happen on the
// Controller goroutine.
type Observer interface {
	ObserveAttempt(out Outcome, took time.Duration)
	ObserveRetriesExhausted()
	ObservePhase(p Phase)
}

type nopObserver struct{}

func (nopObserver) ObserveAttempt(Outcome, time.Duration) {}
func (nopObserver) ObserveRetriesExhausted()              {}
func (nopObserver) ObservePhase(Phase)                    {}

type nopMessenger struct{}

func (nopMessenger) Announce(context.Context, State) error { return nil }
