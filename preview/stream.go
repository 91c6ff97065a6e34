// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package preview

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"net/textproto"
	"strconv"
)

// newBoundary returns a random RFC 2046 boundary.
func newBoundary() string {
	var b [32]byte
	if _, err := io.ReadFull(rand.Reader, b[:]); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b[:])
}

// partStream writes an endless multipart body. Every part is terminated by
// the next boundary line so the client can show it without waiting for more
// data; mime/multipart.Writer only writes that line when the next part
// starts.
type partStream struct {
	w        io.Writer
	boundary string
	started  bool
}

func newPartStream(w io.Writer) *partStream {
	return &partStream{w: w, boundary: newBoundary()}
}

func (s *partStream) writePart(header textproto.MIMEHeader, body []byte) error {
	header.Set("Content-Length", strconv.Itoa(len(body)))
	var buf bytes.Buffer
	if !s.started {
		fmt.Fprintf(&buf, "--%s\r\n", s.boundary)
		s.started = true
	}
	for k, vs := range header {
		for _, v := range vs {
			fmt.Fprintf(&buf, "%s: %s\r\n", k, v)
		}
	}
	buf.WriteString("\r\n")
	buf.Write(body)
	fmt.Fprintf(&buf, "\r\n--%s\r\n", s.boundary)
	_, err := buf.WriteTo(s.w)
	return err
}
