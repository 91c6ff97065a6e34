// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package picframe implements the update and sleep decisions of a battery
// powered e-paper picture frame.
//
// A Controller runs on a single goroutine. It consumes Events delivered by the
// configuration channel (image URL, sleep interval, connectivity) and a poll
// ticker, and drives two pieces of state it owns exclusively:
//
//   - an UpdateCycle, which fetches the configured image, skips it when its
//     digest matches the image on the panel, renders it otherwise, and applies
//     the rate limit and retry ceiling between attempts;
//   - a PowerStateMachine, which gates attempts until the device is online and
//     walks it through Booting, Active, PreparingToSleep and Asleep.
//
// Deep sleep is terminal for a process: nothing in memory survives it and the
// next wake-up starts again from Booting.
//
// Fetcher, Display, Messenger and Sleeper are the boundaries to the outside
// world; packages httpfetch, waveshare7in5v2, mqttchannel, natschannel and
// powerdown provide implementations.
package picframe
