// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package digest fingerprints frame content so that an unchanged image can be
// recognized without comparing it byte by byte against the displayed one.
//
// The fingerprint is SHA-256. It is used for change detection only.
package digest

import (
	"crypto/sha256"
	"encoding/hex"
)

// Size is the length of a Digest in bytes.
const Size = sha256.Size

// Digest is the fixed-size fingerprint of some content.
type Digest [Size]byte

// Zero is the all-zero sentinel. It never equals the digest of real content
// and is what a device starts with after boot.
var Zero Digest

// Sum returns the digest of b.
func Sum(b []byte) Digest {
	return Digest(sha256.Sum256(b))
}

// IsZero reports whether d is the sentinel.
func (d Digest) IsZero() bool {
	return d == Zero
}

// String returns the lowercase hex encoding of d.
func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// Short returns the first 8 hex characters, enough to tell frames apart in
// logs.
func (d Digest) Short() string {
	return hex.EncodeToString(d[:4])
}
