// Copyright 2026 The bpbuild Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-git/go-git/v5"
)

// ErrNotRepository is returned when a directory holds no git repository.
var ErrNotRepository = errors.New("not a git repository")

// VCS defines the version control operations a build run needs.
type VCS interface {
	// Clone clones remote into dir. dir must not already hold a repository.
	Clone(ctx context.Context, remote, dir string) error

	// Revision returns the full commit hash HEAD points to in dir.
	// It fails if dir itself is not the root of a repository.
	Revision(dir string) (string, error)
}

// gitVCS implements VCS with go-git, so no git executable is required.
type gitVCS struct {
	progress io.Writer
}

// GitOption configures gitVCS.
type GitOption func(*gitVCS)

// WithProgress sets where clone progress is reported.
func WithProgress(w io.Writer) GitOption {
	return func(g *gitVCS) {
		g.progress = w
	}
}

// NewGitVCS creates a new git VCS instance.
func NewGitVCS(opts ...GitOption) VCS {
	g := &gitVCS{progress: os.Stdout}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *gitVCS) Clone(ctx context.Context, remote, dir string) error {
	_, err := git.PlainCloneContext(ctx, dir, false, &git.CloneOptions{
		URL:      remote,
		Progress: g.progress,
	})
	if err != nil {
		return fmt.Errorf("clone %s: %w", remote, err)
	}
	return nil
}

func (g *gitVCS) Revision(dir string) (string, error) {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return "", fmt.Errorf("%s: %w", dir, ErrNotRepository)
		}
		return "", fmt.Errorf("open %s: %w", dir, err)
	}
	head, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("resolve HEAD in %s: %w", dir, err)
	}
	return head.Hash().String(), nil
}
