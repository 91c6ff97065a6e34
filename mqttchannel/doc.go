// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package mqttchannel delivers frame configuration from an MQTT broker.
//
// Two topics carry the configuration: the sleep interval in seconds and the
// raw image URL. The device state is published retained on
// <prefix>/<device-id>/$state following the Homie convention, with a last
// will of "lost".
//
// Connection callbacks of the client are turned into picframe events; the
// channel never touches controller state directly.
package mqttchannel
