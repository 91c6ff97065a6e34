// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package waveshare7in5v2

import (
	"errors"
	"time"

	"periph.io/x/conn/v3/gpio"
)

// ErrBusyTimeout is returned when the panel keeps its busy line asserted for
// longer than Opts.BusyTimeout.
var ErrBusyTimeout = errors.New("waveshare7in5v2: timeout waiting for the panel to become idle")

// errorHandler is a wrapper for error management.
type errorHandler struct {
	d   Dev
	err error
}

func (eh *errorHandler) rstOut(l gpio.Level) {
	if eh.err != nil {
		return
	}
	eh.err = eh.d.rst.Out(l)
}

func (eh *errorHandler) cTx(w []byte, r []byte) {
	if eh.err != nil {
		return
	}
	eh.err = eh.d.c.Tx(w, r)
}

func (eh *errorHandler) dcOut(l gpio.Level) {
	if eh.err != nil {
		return
	}
	eh.err = eh.d.dc.Out(l)
}

func (eh *errorHandler) csOut(l gpio.Level) {
	if eh.err != nil {
		return
	}
	eh.err = eh.d.cs.Out(l)
}

// waitUntilIdle polls the status register until the busy line is released.
// The line is active low on this controller.
func (eh *errorHandler) waitUntilIdle() {
	if eh.err != nil {
		return
	}

	var deadline time.Time
	if eh.d.opts.BusyTimeout > 0 {
		deadline = time.Now().Add(eh.d.opts.BusyTimeout)
	}

	for {
		eh.sendCommand(getStatus)
		if eh.err != nil {
			return
		}
		if eh.d.busy.Read() == gpio.High {
			break
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			eh.err = ErrBusyTimeout
			return
		}
		time.Sleep(10 * time.Millisecond)
	}

	time.Sleep(200 * time.Millisecond)
}

func (eh *errorHandler) delay(d time.Duration) {
	if eh.err != nil {
		return
	}
	time.Sleep(d)
}

func (eh *errorHandler) sendCommand(cmd byte) {
	if eh.err != nil {
		return
	}

	eh.dcOut(gpio.Low)
	eh.csOut(gpio.Low)
	eh.cTx([]byte{cmd}, nil)
	eh.csOut(gpio.High)
}

func (eh *errorHandler) sendData(data []byte) {
	if eh.err != nil {
		return
	}

	eh.dcOut(gpio.High)
	eh.csOut(gpio.Low)
	eh.cTx(data, nil)
	eh.csOut(gpio.High)
}
