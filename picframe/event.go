// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package picframe

import "time"

// Event is something the Controller reacts to. The set of events is closed:
// only the types in this file implement it.
type Event interface {
	event()
}

// ConnectivityUp reports that the network link to the broker is established.
type ConnectivityUp struct{}

// ConnectivityLost reports that the link to the broker dropped.
type ConnectivityLost struct{}

// MessagingReady reports that the configuration topics are subscribed.
type MessagingReady struct{}

// SleepIntervalMessage carries a raw sleep interval payload.
type SleepIntervalMessage struct {
	Payload string
}

// ImageURLMessage carries a raw image URL payload.
type ImageURLMessage struct {
	Payload string
}

// ReadyToSleep reports that outbound state was flushed and power can be cut.
type ReadyToSleep struct{}

// Tick asks the Controller to consider an update attempt at Now.
type Tick struct {
	Now time.Time
}

func (ConnectivityUp) event()       {}
func (ConnectivityLost) event()     {}
func (MessagingReady) event()       {}
func (SleepIntervalMessage) event() {}
func (ImageURLMessage) event()      {}
func (ReadyToSleep) event()         {}
func (Tick) event()                 {}
