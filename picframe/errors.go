// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package picframe

import (
	"errors"
	"fmt"
)

// Failure reasons of an update attempt. Attempt errors wrap exactly one of
// them; match with errors.Is.
var (
	ErrNoURLConfigured = errors.New("no image URL configured")
	ErrFetch           = errors.New("fetching image failed")
	ErrEmptyBody       = errors.New("image body is empty")
	ErrDisplayInit     = errors.New("display initialization failed")
	ErrRender          = errors.New("rendering image failed")
)

// ErrInvalidTransition is returned by PowerStateMachine for a transition not
// allowed from the current phase.
var ErrInvalidTransition = errors.New("invalid power transition")

// ErrAsleep is returned by Controller.Run once the device entered deep sleep.
var ErrAsleep = errors.New("device is asleep")

// reasonError ties a failure reason to its cause.
type reasonError struct {
	reason error
	cause  error
}

func failure(reason, cause error) error {
	if cause == nil {
		return reason
	}
	return &reasonError{reason: reason, cause: cause}
}

func (e *reasonError) Error() string {
	return fmt.Sprintf("%v: %v", e.reason, e.cause)
}

func (e *reasonError) Unwrap() []error {
	return []error{e.reason, e.cause}
}
