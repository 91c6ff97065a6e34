// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package picframe

import (
	"context"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/jonboulle/clockwork"

	"github.com/GermanBionicSystems/epaperframe/logging"
)

// ControllerOptions tune a Controller.
type ControllerOptions struct {
	// PollInterval is the period of the Tick events generated by Run.
	PollInterval time.Duration
	// Clock drives the poll ticker. Defaults to the real clock.
	Clock clockwork.Clock
	// Observer is notified of attempts and phase changes.
	Observer Observer
	// AnnounceTimeout bounds each state publication.
	AnnounceTimeout time.Duration
}

// DefaultControllerOptions is used when NewController receives nil.
var DefaultControllerOptions = ControllerOptions{
	PollInterval:    250 * time.Millisecond,
	AnnounceTimeout: 5 * time.Second,
}

// Controller is the driver loop. It owns the UpdateCycle and the
// PowerStateMachine and mutates them only from Dispatch.
type Controller struct {
	cycle     *UpdateCycle
	power     *PowerStateMachine
	messenger Messenger
	sleeper   Sleeper
	log       hclog.Logger
	opts      ControllerOptions

	queue []Event
}

// NewController returns a Controller in Booting. messenger may be nil when
// no state is published.
func NewController(cycle *UpdateCycle, messenger Messenger, sleeper Sleeper, logger hclog.Logger, opts *ControllerOptions) *Controller {
	if opts == nil {
		opts = &DefaultControllerOptions
	}
	c := &Controller{
		cycle:     cycle,
		power:     NewPowerStateMachine(),
		messenger: messenger,
		sleeper:   sleeper,
		log:       logging.OrNull(logger),
		opts:      *opts,
	}
	if c.messenger == nil {
		c.messenger = nopMessenger{}
	}
	if c.opts.Clock == nil {
		c.opts.Clock = clockwork.NewRealClock()
	}
	if c.opts.Observer == nil {
		c.opts.Observer = nopObserver{}
	}
	if c.opts.PollInterval <= 0 {
		c.opts.PollInterval = DefaultControllerOptions.PollInterval
	}
	if c.opts.AnnounceTimeout <= 0 {
		c.opts.AnnounceTimeout = DefaultControllerOptions.AnnounceTimeout
	}
	return c
}

// Phase returns the current power phase.
func (c *Controller) Phase() Phase {
	return c.power.Phase()
}

// Cycle returns the UpdateCycle driven by c.
func (c *Controller) Cycle() *UpdateCycle {
	return c.cycle
}

// Run consumes events and poll ticks until the device went to sleep, ctx is
// done or events is closed. It returns ErrAsleep after a deep sleep that
// returned.
func (c *Controller) Run(ctx context.Context, events <-chan Event) error {
	ticker := c.opts.Clock.NewTicker(c.opts.PollInterval)
	defer ticker.Stop()
	c.opts.Observer.ObservePhase(c.power.Phase())
	for {
		var ev Event
		select {
		case <-ctx.Done():
			return ctx.Err()
		case e, ok := <-events:
			if !ok {
				return nil
			}
			ev = e
		case now := <-ticker.Chan():
			ev = Tick{Now: now}
		}
		if err := c.Dispatch(ctx, ev); err != nil {
			return err
		}
	}
}

// Dispatch handles ev and every event it produces, in order. Events produced
// while handling one are queued, never handled re-entrantly.
func (c *Controller) Dispatch(ctx context.Context, ev Event) error {
	c.queue = append(c.queue, ev)
	for len(c.queue) > 0 {
		ev, c.queue = c.queue[0], c.queue[1:]
		before := c.power.Phase()
		err := c.handle(ctx, ev)
		if p := c.power.Phase(); p != before {
			c.log.Debug("phase changed", logging.KeyFrom, before, logging.KeyPhase, p)
			c.opts.Observer.ObservePhase(p)
		}
		if err != nil {
			c.queue = c.queue[:0]
			return err
		}
	}
	return nil
}

func (c *Controller) handle(ctx context.Context, ev Event) error {
	switch e := ev.(type) {
	case ConnectivityUp:
		c.power.ConnectivityUp()
	case ConnectivityLost:
		c.log.Warn("connectivity lost")
		c.power.ConnectivityLost()
	case MessagingReady:
		c.power.MessagingReady()
		c.announce(ctx, StateReady)
	case SleepIntervalMessage:
		d := ParseSleepInterval(e.Payload)
		c.cycle.SetSleepInterval(d)
		c.log.Info("sleep interval set", logging.KeyInterval, d)
	case ImageURLMessage:
		c.cycle.SetImageURL(e.Payload)
		c.log.Info("image URL set", logging.KeyURL, e.Payload)
	case Tick:
		c.tick(ctx, e.Now)
	case ReadyToSleep:
		return c.sleep()
	}
	return nil
}

func (c *Controller) tick(ctx context.Context, now time.Time) {
	if !c.power.CanAttempt(c.cycle.Config()) {
		return
	}
	start := c.opts.Clock.Now()
	dec := c.cycle.Poll(ctx, now)
	if !dec.Attempted {
		return
	}
	c.opts.Observer.ObserveAttempt(dec.Outcome, c.opts.Clock.Since(start))
	if dec.Exhausted {
		c.opts.Observer.ObserveRetriesExhausted()
	}
	if !dec.Sleep {
		return
	}
	if err := c.power.RequestSleep(); err != nil {
		c.log.Error("cannot request sleep", logging.KeyError, err)
		return
	}
	c.announce(ctx, StateSleeping)
	c.queue = append(c.queue, ReadyToSleep{})
}

func (c *Controller) sleep() error {
	d, err := c.power.ReadyToSleep(c.cycle.Config())
	if err != nil {
		c.log.Error("ignoring sleep signal", logging.KeyPhase, c.power.Phase(), logging.KeyError, err)
		return nil
	}
	c.cycle.Rearm()
	c.log.Info("entering deep sleep", logging.KeyInterval, d)
	if err := c.sleeper.DeepSleep(d); err != nil {
		return err
	}
	return ErrAsleep
}

func (c *Controller) announce(ctx context.Context, s State) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.AnnounceTimeout)
	defer cancel()
	if err := c.messenger.Announce(ctx, s); err != nil {
		c.log.Warn("announcing state failed", logging.KeyState, s, logging.KeyError, err)
	}
}
