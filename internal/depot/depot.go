// Copyright 2026 The bpbuild Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package depot makes Chromium's depot_tools available to a build run.
package depot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/charmbracelet/log"

	"github.com/goplus/bpbuild/internal/env"
	"github.com/goplus/bpbuild/internal/vcs"
)

// DefaultURL is the upstream depot_tools repository.
const DefaultURL = "https://chromium.googlesource.com/chromium/tools/depot_tools.git"

// Bootstrapper clones depot_tools on first use and exposes it to an Env.
type Bootstrapper struct {
	vcs    vcs.VCS
	url    string
	goos   string
	logger *log.Logger
}

// Option configures a Bootstrapper.
type Option func(*Bootstrapper)

// WithURL overrides the repository depot_tools is cloned from.
func WithURL(url string) Option {
	return func(b *Bootstrapper) {
		b.url = url
	}
}

// WithGOOS overrides the host operating system.
func WithGOOS(goos string) Option {
	return func(b *Bootstrapper) {
		b.goos = goos
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(b *Bootstrapper) {
		b.logger = l
	}
}

// New returns a Bootstrapper cloning with v.
func New(v vcs.VCS, opts ...Option) *Bootstrapper {
	b := &Bootstrapper{
		vcs:    v,
		url:    DefaultURL,
		goos:   runtime.GOOS,
		logger: log.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Ensure clones depot_tools into path when it is missing, then prepends
// path to e's PATH. On Windows hosts it also pins the locally installed
// Visual Studio toolchain by setting DEPOT_TOOLS_WIN_TOOLCHAIN=0.
func (b *Bootstrapper) Ensure(ctx context.Context, path string, e *env.Env) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(abs); os.IsNotExist(err) {
		b.logger.Info("Cloning depot_tools", "url", b.url, "path", abs)
		if err := b.vcs.Clone(ctx, b.url, abs); err != nil {
			return fmt.Errorf("depot_tools: %w", err)
		}
	} else if err != nil {
		return err
	}

	e.PrependPath(abs)
	if b.goos == "windows" {
		e.Set("DEPOT_TOOLS_WIN_TOOLCHAIN", "0")
	}
	b.logger.Debug("depot_tools ready", "path", abs)
	return nil
}
