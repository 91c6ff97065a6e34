// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package waveshare7in5v2

import "time"

type controller interface {
	sendCommand(byte)
	sendData([]byte)
	waitUntilIdle()
	delay(time.Duration)
}

func initDisplay(ctrl controller, opts *Opts) {
	ctrl.sendCommand(powerSetting)
	ctrl.sendData([]byte{0x07, 0x07, 0x3F, 0x3F})

	ctrl.sendCommand(powerOn)
	ctrl.delay(100 * time.Millisecond)
	ctrl.waitUntilIdle()

	// KW mode, scan up, shift right, booster on.
	ctrl.sendCommand(panelSetting)
	ctrl.sendData([]byte{0x1F})

	ctrl.sendCommand(resolutionSetting)
	ctrl.sendData([]byte{
		byte(opts.Width >> 8),
		byte(opts.Width),
		byte(opts.Height >> 8),
		byte(opts.Height),
	})

	ctrl.sendCommand(dualSPI)
	ctrl.sendData([]byte{0x00})

	ctrl.sendCommand(vcomAndDataIntervalSetting)
	ctrl.sendData([]byte{0x10, 0x07})

	ctrl.sendCommand(tconSetting)
	ctrl.sendData([]byte{0x22})
}

// displayFrame uploads a full raster and refreshes the panel. The controller
// treats a set bit as black in KW mode, so the raster is inverted on the way
// out.
func displayFrame(ctrl controller, opts *Opts, frame []byte) {
	cols := (opts.Width + 7) / 8

	ctrl.sendCommand(dataStartTransmission2)

	row := make([]byte, cols)
	for y := 0; y < opts.Height; y++ {
		for x, b := range frame[y*cols : (y+1)*cols] {
			row[x] = ^b
		}
		ctrl.sendData(row)
	}

	ctrl.sendCommand(displayRefresh)
	ctrl.delay(100 * time.Millisecond)
	ctrl.waitUntilIdle()
}

// clearDisplay fills both controller memories so that the old and new frame
// agree, then refreshes.
func clearDisplay(ctrl controller, opts *Opts, fill byte) {
	cols := (opts.Width + 7) / 8

	old := make([]byte, cols)
	next := make([]byte, cols)
	for i := range old {
		old[i] = fill
		next[i] = ^fill
	}

	ctrl.sendCommand(dataStartTransmission1)
	for y := 0; y < opts.Height; y++ {
		ctrl.sendData(old)
	}

	ctrl.sendCommand(dataStartTransmission2)
	for y := 0; y < opts.Height; y++ {
		ctrl.sendData(next)
	}

	ctrl.sendCommand(displayRefresh)
	ctrl.delay(100 * time.Millisecond)
	ctrl.waitUntilIdle()
}

func deepSleep(ctrl controller) {
	ctrl.sendCommand(powerOff)
	ctrl.waitUntilIdle()

	ctrl.sendCommand(deepSleepMode)
	ctrl.sendData([]byte{deepSleepCheckCode})
}
