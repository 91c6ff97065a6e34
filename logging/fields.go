// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package logging

// Canonical field names so log lines from different packages line up.
const (
	KeyURL      = "url"
	KeyStatus   = "status"
	KeyBytes    = "bytes"
	KeyDigest   = "digest"
	KeyOutcome  = "outcome"
	KeyPhase    = "phase"
	KeyFrom     = "from"
	KeyRetries  = "retries"
	KeyInterval = "interval"
	KeyTopic    = "topic"
	KeyState    = "state"
	KeyDuration = "duration"
	KeyError    = "error"
)
