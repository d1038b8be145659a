// Copyright 2026 The bpbuild Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package xcode wraps xcodebuild project builds.
package xcode

import (
	"context"
	"path/filepath"

	"github.com/goplus/bpbuild/internal/runner"
)

// configuration is the xcodebuild configuration products are built in.
const configuration = "Release"

// Project drives xcodebuild for the project found in a directory.
type Project struct {
	runner runner.Runner
	dir    string
}

// New returns the project in dir.
func New(r runner.Runner, dir string) *Project {
	return &Project{runner: r, dir: dir}
}

// Dir returns the project directory.
func (p *Project) Dir() string { return p.dir }

// Build runs xcodebuild in the project directory with optional extra
// arguments appended.
func (p *Project) Build(ctx context.Context, args ...string) error {
	cmd := append([]string{"xcodebuild", "-configuration", configuration}, args...)
	return p.runner.Run(ctx, p.dir, cmd...)
}

// ProductsDir returns where xcodebuild places products by default.
func (p *Project) ProductsDir() string {
	return filepath.Join(p.dir, "build", configuration)
}

// Product returns the path of a named product.
func (p *Project) Product(name string) string {
	return filepath.Join(p.ProductsDir(), name)
}
