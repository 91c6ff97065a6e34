// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package picframe

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/GermanBionicSystems/epaperframe/digest"
	"github.com/GermanBionicSystems/epaperframe/rawframe"
)

const testURL = "http://frames.local/raw/kitchen.bin"

func newTestCycle(f *fakeFetcher, d *fakeDisplay) *UpdateCycle {
	c := NewUpdateCycle(f, d, rawframe.New(16, 2), nil, nil)
	c.SetImageURL(testURL)
	return c
}

var epoch = time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)

func TestAttemptUpdate_NoURL(t *testing.T) {
	f := &fakeFetcher{results: []fetchResult{ok("x")}}
	c := NewUpdateCycle(f, &fakeDisplay{}, nil, nil, nil)

	out := c.AttemptUpdate(context.Background())
	if out.Status != Failed || !errors.Is(out.Err, ErrNoURLConfigured) {
		t.Fatalf("AttemptUpdate() = %v", out)
	}
	if len(f.urls) != 0 {
		t.Errorf("fetcher called %d times", len(f.urls))
	}
}

func TestAttemptUpdate_Updated(t *testing.T) {
	f := &fakeFetcher{results: []fetchResult{ok("\x00\x0f\xf0\xff")}}
	d := &fakeDisplay{}
	c := newTestCycle(f, d)

	out := c.AttemptUpdate(context.Background())
	if out.Status != Updated || out.Err != nil {
		t.Fatalf("AttemptUpdate() = %v", out)
	}
	if diff := cmp.Diff([]string{testURL}, f.urls); diff != "" {
		t.Errorf("fetch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"reset", "init", "frame", "sleep"}, d.calls); diff != "" {
		t.Errorf("display calls (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([][]byte{{0x00, 0x0f, 0xf0, 0xff}}, d.frames); diff != "" {
		t.Errorf("frames (-want +got):\n%s", diff)
	}
	if got, want := c.LastDigest(), digest.Sum([]byte("\x00\x0f\xf0\xff")); got != want {
		t.Errorf("LastDigest() = %s, want %s", got, want)
	}
}

func TestAttemptUpdate_Idempotent(t *testing.T) {
	f := &fakeFetcher{results: []fetchResult{ok("same")}}
	d := &fakeDisplay{}
	frame := rawframe.New(16, 2)
	c := NewUpdateCycle(f, d, frame, nil, nil)
	c.SetImageURL(testURL)

	if out := c.AttemptUpdate(context.Background()); out.Status != Updated {
		t.Fatalf("first AttemptUpdate() = %v", out)
	}
	last := c.LastDigest()
	frame.Fill(0x55)
	d.calls = nil

	if out := c.AttemptUpdate(context.Background()); out.Status != Unchanged {
		t.Fatalf("second AttemptUpdate() = %v", out)
	}
	if c.LastDigest() != last {
		t.Error("digest changed on unchanged image")
	}
	if len(d.calls) != 0 {
		t.Errorf("display touched: %v", d.calls)
	}
	if !bytes.Equal(frame.Bytes(), bytes.Repeat([]byte{0x55}, 4)) {
		t.Errorf("frame buffer modified: %x", frame.Bytes())
	}
}

func TestAttemptUpdate_Failures(t *testing.T) {
	boom := errors.New("boom")
	for _, tc := range []struct {
		name    string
		fetch   fetchResult
		errs    map[string]error
		want    error
		display []string
	}{
		{name: "transport", fetch: fetchResult{err: boom}, want: ErrFetch},
		{name: "404", fetch: fetchResult{status: 404, body: []byte("nope")}, want: ErrFetch},
		{name: "204", fetch: fetchResult{status: 204}, want: ErrFetch},
		{name: "empty", fetch: ok(""), want: ErrEmptyBody},
		{
			name: "reset", fetch: ok("img"), errs: map[string]error{"reset": boom},
			want: ErrDisplayInit, display: []string{"reset"},
		},
		{
			name: "init", fetch: ok("img"), errs: map[string]error{"init": boom},
			want: ErrDisplayInit, display: []string{"reset", "init"},
		},
		{
			name: "render", fetch: ok("img"), errs: map[string]error{"frame": boom},
			want: ErrRender, display: []string{"reset", "init", "frame"},
		},
		{
			name: "sleep", fetch: ok("img"), errs: map[string]error{"sleep": boom},
			want: ErrRender, display: []string{"reset", "init", "frame", "sleep"},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			d := &fakeDisplay{errs: tc.errs}
			c := newTestCycle(&fakeFetcher{results: []fetchResult{tc.fetch}}, d)

			out := c.AttemptUpdate(context.Background())
			if out.Status != Failed || !errors.Is(out.Err, tc.want) {
				t.Fatalf("AttemptUpdate() = %v, want failure %v", out, tc.want)
			}
			if tc.errs != nil && !errors.Is(out.Err, boom) {
				t.Errorf("cause lost: %v", out.Err)
			}
			if diff := cmp.Diff(tc.display, d.calls); diff != "" {
				t.Errorf("display calls (-want +got):\n%s", diff)
			}
			if !c.LastDigest().IsZero() {
				t.Error("digest committed after failure")
			}
		})
	}
}

func TestAttemptUpdate_RetryAfterInitFailure(t *testing.T) {
	d := &fakeDisplay{errs: map[string]error{"init": errors.New("busy")}}
	c := newTestCycle(&fakeFetcher{results: []fetchResult{ok("img")}}, d)

	if out := c.AttemptUpdate(context.Background()); out.Status != Failed {
		t.Fatalf("AttemptUpdate() = %v", out)
	}
	d.errs = nil
	if out := c.AttemptUpdate(context.Background()); out.Status != Updated {
		t.Fatalf("retry AttemptUpdate() = %v, want updated", out)
	}
}

func TestAttemptUpdate_ShortBodyClearsTail(t *testing.T) {
	frame := rawframe.New(16, 2)
	f := &fakeFetcher{results: []fetchResult{ok("\x01\x02\x03\x04"), ok("\x09")}}
	d := &fakeDisplay{}
	c := NewUpdateCycle(f, d, frame, nil, nil)
	c.SetImageURL(testURL)

	c.AttemptUpdate(context.Background())
	c.AttemptUpdate(context.Background())
	if diff := cmp.Diff([]byte{0x09, 0xff, 0xff, 0xff}, d.frames[1]); diff != "" {
		t.Errorf("second frame (-want +got):\n%s", diff)
	}
}

func TestAttemptUpdate_Timeout(t *testing.T) {
	var deadline time.Time
	f := fetcherFunc(func(ctx context.Context, url string) (int, []byte, error) {
		deadline, _ = ctx.Deadline()
		return 200, []byte("x"), nil
	})
	c := NewUpdateCycle(f, &fakeDisplay{}, nil, &CycleOptions{MinCheckInterval: time.Second, AttemptTimeout: time.Minute}, nil)
	c.SetImageURL(testURL)
	c.AttemptUpdate(context.Background())
	if deadline.IsZero() {
		t.Error("fetch ran without a deadline")
	}
}

type fetcherFunc func(ctx context.Context, url string) (int, []byte, error)

func (f fetcherFunc) Fetch(ctx context.Context, url string) (int, []byte, error) {
	return f(ctx, url)
}

func TestPoll_RateLimit(t *testing.T) {
	f := &fakeFetcher{results: []fetchResult{{status: 500}}}
	c := newTestCycle(f, &fakeDisplay{})

	if dec := c.Poll(context.Background(), epoch); !dec.Attempted {
		t.Fatal("first attempt after boot was held back")
	}
	for _, dt := range []time.Duration{0, time.Second, MinCheckInterval - time.Millisecond} {
		if dec := c.Poll(context.Background(), epoch.Add(dt)); dec.Attempted {
			t.Fatalf("attempt %v after previous one was allowed", dt)
		}
	}
	if dec := c.Poll(context.Background(), epoch.Add(MinCheckInterval)); !dec.Attempted {
		t.Fatal("attempt after MinCheckInterval was held back")
	}
	if len(f.urls) != 2 {
		t.Errorf("fetch calls = %d, want 2", len(f.urls))
	}
}

func TestPoll_RetryCeiling(t *testing.T) {
	f := &fakeFetcher{results: []fetchResult{{status: 404}}}
	c := newTestCycle(f, &fakeDisplay{})
	now := epoch

	var got []Decision
	for i := 0; i < 6; i++ {
		dec := c.Poll(context.Background(), now)
		dec.Outcome.Err = nil
		got = append(got, dec)
		if i == 0 && c.Retries() != 1 {
			t.Errorf("retries after first 404 = %d, want 1", c.Retries())
		}
		now = now.Add(MinCheckInterval)
		if dec.Sleep {
			// Waking up starts a fresh limiter window.
			c.Rearm()
		}
	}
	failed := Decision{Attempted: true, Outcome: Outcome{Status: Failed}}
	exhausted := Decision{Attempted: true, Outcome: Outcome{Status: Failed}, Sleep: true, Exhausted: true}
	want := []Decision{failed, failed, exhausted, failed, failed, exhausted}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("decisions (-want +got):\n%s", diff)
	}
	if c.Retries() != 0 {
		t.Errorf("retries = %d after exhaustion", c.Retries())
	}
}

func TestPoll_SuccessResetsRetries(t *testing.T) {
	f := &fakeFetcher{results: []fetchResult{{status: 503}, {status: 503}, ok("img")}}
	c := newTestCycle(f, &fakeDisplay{})
	now := epoch
	for i := 0; i < 2; i++ {
		if dec := c.Poll(context.Background(), now); dec.Sleep {
			t.Fatalf("attempt %d requested sleep", i)
		}
		now = now.Add(MinCheckInterval)
	}
	if c.Retries() != 2 {
		t.Fatalf("retries = %d", c.Retries())
	}
	dec := c.Poll(context.Background(), now)
	if dec.Outcome.Status != Updated || !dec.Sleep || dec.Exhausted {
		t.Errorf("Poll() = %+v", dec)
	}
	if c.Retries() != 0 {
		t.Errorf("retries = %d after success", c.Retries())
	}
}

func TestPoll_UnchangedRequestsSleep(t *testing.T) {
	c := newTestCycle(&fakeFetcher{results: []fetchResult{ok("img")}}, &fakeDisplay{})
	c.AttemptUpdate(context.Background())

	dec := c.Poll(context.Background(), epoch)
	if dec.Outcome.Status != Unchanged || !dec.Sleep {
		t.Errorf("Poll() = %+v", dec)
	}
}

func TestPoll_NoURLKeepsBudget(t *testing.T) {
	c := NewUpdateCycle(&fakeFetcher{}, &fakeDisplay{}, nil, nil, nil)
	now := epoch
	for i := 0; i < 5; i++ {
		dec := c.Poll(context.Background(), now)
		if dec.Sleep {
			t.Fatalf("attempt %d requested sleep", i)
		}
		now = now.Add(MinCheckInterval)
	}
	if c.Retries() != 0 {
		t.Errorf("retries = %d", c.Retries())
	}
}

func TestStatus_String(t *testing.T) {
	if got := (Outcome{Status: Failed, Err: ErrEmptyBody}).String(); got != "failed(image body is empty)" {
		t.Errorf("got %q", got)
	}
	if got := (Outcome{Status: Updated}).String(); got != "updated" {
		t.Errorf("got %q", got)
	}
}
