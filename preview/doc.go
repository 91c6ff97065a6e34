// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package preview provides a virtual e-paper panel served over HTTP.
//
// It accepts the same raw frames as the real panel and streams them to
// clients as "MJPEG" (https://en.wikipedia.org/wiki/Motion_JPEG), a
// multipart/x-mixed-replace response where every part is one image. Each
// client gets the current frame on connect and a new part on every refresh.
//
// PNG is the default format since it suits 1 bit graphics better than JPEG.
// Clients select a format with the "format" URL parameter and request a
// single image instead of a stream with "once".
//
// Below the frame a caption band shows the panel state, the time of the last
// refresh and the short digest of the frame.
package preview
