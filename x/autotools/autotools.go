// Copyright 2026 The bpbuild Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package autotools wraps the classic configure/make/make-install workflow.
package autotools

import (
	"context"
	"path/filepath"

	"github.com/goplus/bpbuild/internal/runner"
)

// AutoTools drives Autotools-style builds.
type AutoTools struct {
	runner     runner.Runner
	sourceDir  string
	buildDir   string
	installDir string
}

// New returns a ready-to-use AutoTools. An empty buildDir builds in
// sourceDir.
func New(r runner.Runner, sourceDir, buildDir, installDir string) *AutoTools {
	return &AutoTools{
		runner:     r,
		sourceDir:  sourceDir,
		buildDir:   buildDir,
		installDir: installDir,
	}
}

// Configure runs <sourceDir>/configure inside the build directory.
// --prefix is prepended automatically when installDir is set.
// Extra flags are appended after --prefix.
func (a *AutoTools) Configure(ctx context.Context, args ...string) error {
	exe := "./configure"
	if a.buildDir != "" && a.buildDir != a.sourceDir {
		exe = filepath.Join(a.sourceDir, "configure")
	}
	flags := make([]string, 0, 2+len(args))
	flags = append(flags, exe)
	if a.installDir != "" {
		flags = append(flags, "--prefix="+a.installDir)
	}
	return a.runner.Run(ctx, a.WorkDir(), append(flags, args...)...)
}

// Install runs "make install" with optional extra arguments appended.
func (a *AutoTools) Install(ctx context.Context, args ...string) error {
	return a.runner.Run(ctx, a.WorkDir(), append([]string{"make", "install"}, args...)...)
}

// WorkDir returns the directory configure and make run in.
func (a *AutoTools) WorkDir() string {
	if a.buildDir == "" {
		return a.sourceDir
	}
	return a.buildDir
}
