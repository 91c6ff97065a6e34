// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package epaperframe is a container for the packages of a battery powered
// e-paper picture frame.
//
// picframe holds the update and sleep decisions. The other packages plug it
// into hardware and the network: waveshare7in5v2 drives the panel, httpfetch
// downloads images, mqttchannel and natschannel deliver configuration,
// powerdown ends a wake cycle. cmd/epaperframe wires them together.
package epaperframe
