// Copyright 2026 The bpbuild Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package repo manages the local Breakpad checkout driven by depot_tools.
package repo

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/goplus/bpbuild/internal/runner"
	"github.com/goplus/bpbuild/internal/vcs"
)

// Solution is the depot_tools fetch recipe checked out by Init.
const Solution = "breakpad"

// Repo is a gclient checkout rooted at a directory. The Breakpad sources
// live in the src subdirectory.
type Repo struct {
	root   string
	runner runner.Runner
	vcs    vcs.VCS
	logger *log.Logger
}

// New returns the checkout rooted at root.
func New(root string, r runner.Runner, v vcs.VCS, logger *log.Logger) *Repo {
	if logger == nil {
		logger = log.Default()
	}
	return &Repo{root: root, runner: r, vcs: v, logger: logger}
}

// SourceDir returns the directory holding the Breakpad sources.
func (r *Repo) SourceDir() string { return filepath.Join(r.root, "src") }

// Exists reports whether the checkout root is present.
func (r *Repo) Exists() bool {
	_, err := os.Stat(r.root)
	return err == nil
}

// Init performs the first-time acquisition: fetch the solution, then sync
// its dependencies. Fetching into a root that already holds the solution
// fails like any other fetch error.
func (r *Repo) Init(ctx context.Context) error {
	if err := os.MkdirAll(r.root, 0o755); err != nil {
		return err
	}
	r.logger.Info("Fetching", "solution", Solution, "root", r.root)
	if err := r.runner.Run(ctx, r.root, "fetch", "--nohooks", Solution); err != nil {
		return fmt.Errorf("could not fetch %s; it may have already been fetched: %w", Solution, err)
	}
	if err := r.runner.Run(ctx, r.root, "gclient", "sync", "-v"); err != nil {
		return fmt.Errorf("could not do initial gclient sync: %w", err)
	}
	return nil
}

// Update brings an existing checkout to the latest upstream revision of
// the solution and its dependencies. Running it on an up to date checkout
// is a no-op.
func (r *Repo) Update(ctx context.Context) error {
	r.logger.Info("Syncing to latest", "root", r.root)
	if err := r.runner.Run(ctx, r.root, "gclient", "sync", "-v"); err != nil {
		return fmt.Errorf("gclient sync: %w", err)
	}
	return nil
}

// Revision returns the commit hash checked out in the source directory.
func (r *Repo) Revision() (string, error) {
	return r.vcs.Revision(r.SourceDir())
}

// Clean deletes the checkout root, then removes every untracked and ignored
// file under workspace with git clean. Failing to delete the root is
// logged and ignored; a failing git clean is returned.
func (r *Repo) Clean(ctx context.Context, workspace string) error {
	if info, err := os.Stat(r.root); err == nil && info.IsDir() {
		r.logger.Info("Deleting directory", "path", r.root)
		if err := os.RemoveAll(r.root); err != nil {
			r.logger.Warn("Could not delete directory", "path", r.root, "err", err)
		}
	}
	if err := r.runner.Run(ctx, workspace, "git", "clean", "-dfx"); err != nil {
		return fmt.Errorf("git clean: %w", err)
	}
	return nil
}
