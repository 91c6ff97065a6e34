// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package picframe

import (
	"context"
	"time"
)

type fetchResult struct {
	status int
	body   []byte
	err    error
}

// fakeFetcher replays results; the last one repeats.
type fakeFetcher struct {
	results []fetchResult
	urls    []string
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) (int, []byte, error) {
	f.urls = append(f.urls, url)
	if len(f.results) == 0 {
		return 0, nil, context.DeadlineExceeded
	}
	r := f.results[0]
	if len(f.results) > 1 {
		f.results = f.results[1:]
	}
	return r.status, r.body, r.err
}

func ok(body string) fetchResult {
	return fetchResult{status: 200, body: []byte(body)}
}

// fakeDisplay records calls. errs maps a call name to the error it returns.
type fakeDisplay struct {
	calls  []string
	frames [][]byte
	errs   map[string]error
}

func (d *fakeDisplay) call(name string) error {
	d.calls = append(d.calls, name)
	return d.errs[name]
}

func (d *fakeDisplay) Reset() error { return d.call("reset") }
func (d *fakeDisplay) Init() error  { return d.call("init") }
func (d *fakeDisplay) Sleep() error { return d.call("sleep") }

func (d *fakeDisplay) DisplayFrame(b []byte) error {
	d.frames = append(d.frames, append([]byte(nil), b...))
	return d.call("frame")
}

type fakeMessenger struct {
	states []State
	err    error
}

func (m *fakeMessenger) Announce(ctx context.Context, s State) error {
	m.states = append(m.states, s)
	return m.err
}

type fakeSleeper struct {
	slept []time.Duration
	err   error
}

func (s *fakeSleeper) DeepSleep(d time.Duration) error {
	s.slept = append(s.slept, d)
	return s.err
}

type fakeObserver struct {
	attempts  []Status
	exhausted int
	phases    []Phase
}

func (o *fakeObserver) ObserveAttempt(out Outcome, _ time.Duration) {
	o.attempts = append(o.attempts, out.Status)
}

func (o *fakeObserver) ObserveRetriesExhausted() { o.exhausted++ }
func (o *fakeObserver) ObservePhase(p Phase)     { o.phases = append(o.phases, p) }
