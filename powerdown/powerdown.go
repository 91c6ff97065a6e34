// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package powerdown implements deep sleep for a host that cannot suspend a
// single process: the process ends and is started again on wake-up.
package powerdown

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/GermanBionicSystems/epaperframe/logging"
	"github.com/GermanBionicSystems/epaperframe/picframe"
)

// DefaultWakeAlarm is the RTC wake alarm of the first RTC on Linux.
const DefaultWakeAlarm = "/sys/class/rtc/rtc0/wakealarm"

// Exit ends the process. When WakeAlarm is set the RTC is armed first so
// the host powers up again after the interval.
type Exit struct {
	// WakeAlarm is the sysfs wakealarm file. Empty skips arming.
	WakeAlarm string
	// Code is the process exit code.
	Code int
	// Log receives the last message before exit.
	Log hclog.Logger

	// exit defaults to os.Exit.
	exit func(int)
}

var _ picframe.Sleeper = &Exit{}

// DeepSleep arms the wake alarm and exits. It returns only when arming
// failed.
func (e *Exit) DeepSleep(d time.Duration) error {
	if e.WakeAlarm != "" {
		if err := ArmWakeAlarm(e.WakeAlarm, d); err != nil {
			return err
		}
	}
	logging.OrNull(e.Log).Info("powering down", logging.KeyInterval, d)
	exit := e.exit
	if exit == nil {
		exit = os.Exit
	}
	exit(e.Code)
	return nil
}

// ArmWakeAlarm programs the RTC at path to fire after d. A pending alarm is
// cleared first; the kernel refuses to overwrite one.
func ArmWakeAlarm(path string, d time.Duration) error {
	if err := os.WriteFile(path, []byte("0"), 0o644); err != nil {
		return fmt.Errorf("powerdown: clearing wake alarm: %w", err)
	}
	secs := int64((d + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	if err := os.WriteFile(path, []byte("+"+strconv.FormatInt(secs, 10)), 0o644); err != nil {
		return fmt.Errorf("powerdown: arming wake alarm: %w", err)
	}
	return nil
}

// Park blocks forever. It fits hosts whose power is cut by an external
// timer once the state was announced.
type Park struct {
	// Log receives the last message before parking.
	Log hclog.Logger
}

var _ picframe.Sleeper = Park{}

// DeepSleep never returns.
func (p Park) DeepSleep(d time.Duration) error {
	logging.OrNull(p.Log).Info("parked until power cut", logging.KeyInterval, d)
	select {}
}
