// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package picframe

import (
	"fmt"
	"time"
)

// Phase is the lifecycle phase of the device within one wake cycle.
type Phase int

// Phases in the order a wake cycle passes through them.
const (
	Booting Phase = iota
	Active
	PreparingToSleep
	Asleep
)

func (p Phase) String() string {
	switch p {
	case Booting:
		return "booting"
	case Active:
		return "active"
	case PreparingToSleep:
		return "preparing-to-sleep"
	case Asleep:
		return "asleep"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// PowerStateMachine tracks the device phase and decides whether an update
// attempt may run.
type PowerStateMachine struct {
	phase     Phase
	online    bool
	messaging bool
}

// NewPowerStateMachine returns a machine in Booting.
func NewPowerStateMachine() *PowerStateMachine {
	return &PowerStateMachine{}
}

// Phase returns the current phase.
func (m *PowerStateMachine) Phase() Phase {
	return m.phase
}

// Online reports whether connectivity is currently established.
func (m *PowerStateMachine) Online() bool {
	return m.online
}

// ConnectivityUp records an established link.
func (m *PowerStateMachine) ConnectivityUp() {
	m.online = true
	m.activate()
}

// ConnectivityLost records a dropped link. The phase is kept; attempts are
// gated until the link returns. Subscriptions are re-established by the
// transport and reported again through MessagingReady.
func (m *PowerStateMachine) ConnectivityLost() {
	m.online = false
	m.messaging = false
}

// MessagingReady records that the configuration topics are subscribed.
func (m *PowerStateMachine) MessagingReady() {
	m.messaging = true
	m.activate()
}

func (m *PowerStateMachine) activate() {
	if m.phase == Booting && m.online && m.messaging {
		m.phase = Active
	}
}

// CanAttempt reports whether an update attempt may run for cfg. The rate
// limit is checked separately by the UpdateCycle.
func (m *PowerStateMachine) CanAttempt(cfg Configuration) bool {
	return m.phase == Active && m.online && cfg.ImageURL != ""
}

// RequestSleep moves Active to PreparingToSleep.
func (m *PowerStateMachine) RequestSleep() error {
	if m.phase != Active {
		return fmt.Errorf("%w: sleep requested in %s", ErrInvalidTransition, m.phase)
	}
	m.phase = PreparingToSleep
	return nil
}

// ReadyToSleep moves PreparingToSleep to Asleep and returns how long to sleep
// for cfg.
func (m *PowerStateMachine) ReadyToSleep(cfg Configuration) (time.Duration, error) {
	if m.phase != PreparingToSleep {
		return 0, fmt.Errorf("%w: ready to sleep in %s", ErrInvalidTransition, m.phase)
	}
	m.phase = Asleep
	return cfg.EffectiveSleepInterval(), nil
}
