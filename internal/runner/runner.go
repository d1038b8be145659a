// Copyright 2026 The bpbuild Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package runner spawns the external tools a build run depends on.
package runner

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"

	"github.com/goplus/bpbuild/internal/env"
)

// Runner executes external commands synchronously.
type Runner interface {
	// Run executes args in dir, streaming its output, and returns nil iff
	// the process exits with status zero.
	Run(ctx context.Context, dir string, args ...string) error
}

// Error reports a command that could not be started or exited non-zero.
type Error struct {
	Args []string
	Dir  string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("failed to run command: %s (in %q): %v", strings.Join(e.Args, " "), e.Dir, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Exec implements Runner with os/exec. Commands see the environment of
// the Env it was created with, and argv[0] is looked up on that Env's PATH.
type Exec struct {
	env    *env.Env
	stdout io.Writer
	logger *log.Logger
}

// Option configures Exec.
type Option func(*Exec)

// WithStdout sets where command standard output goes.
func WithStdout(w io.Writer) Option {
	return func(r *Exec) {
		r.stdout = w
	}
}

// WithLogger sets the logger commands are traced to.
func WithLogger(l *log.Logger) Option {
	return func(r *Exec) {
		r.logger = l
	}
}

// New returns an Exec bound to e. A nil e means an empty context.
func New(e *env.Env, opts ...Option) *Exec {
	if e == nil {
		e = env.New()
	}
	r := &Exec{
		env:    e,
		stdout: os.Stdout,
		logger: log.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Exec) Run(ctx context.Context, dir string, args ...string) error {
	cmd, err := r.command(ctx, dir, args)
	if err != nil {
		return err
	}
	cmd.Stdout = r.stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return &Error{Args: args, Dir: cmd.Dir, Err: err}
	}
	return nil
}

func (r *Exec) command(ctx context.Context, dir string, args []string) (*exec.Cmd, error) {
	if len(args) == 0 {
		return nil, &Error{Dir: dir, Err: fmt.Errorf("empty command")}
	}
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, &Error{Args: args, Err: err}
		}
		dir = wd
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, &Error{Args: args, Dir: dir, Err: err}
	}

	environ := r.env.Environ()
	path, err := interp.LookPathDir(dir, expand.ListEnviron(environ...), args[0])
	if err != nil {
		return nil, &Error{Args: args, Dir: dir, Err: err}
	}

	r.logger.Debug("exec", "cmd", strings.Join(args, " "), "dir", dir)

	cmd := exec.CommandContext(ctx, path, args[1:]...)
	cmd.Args[0] = args[0]
	cmd.Dir = dir
	cmd.Env = environ
	return cmd, nil
}
