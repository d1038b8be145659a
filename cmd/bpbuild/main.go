// Copyright 2026 The bpbuild Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command bpbuild fetches, builds and packages Google Breakpad for one
// target platform.
package main

import "github.com/goplus/bpbuild/cmd/bpbuild/internal"

func main() {
	internal.Execute()
}
