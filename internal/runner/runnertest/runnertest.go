// Copyright 2026 The bpbuild Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package runnertest provides a Runner that records commands instead of
// spawning them.
package runnertest

import (
	"context"
	"errors"
	"strings"

	"github.com/goplus/bpbuild/internal/runner"
)

// Call is one recorded invocation.
type Call struct {
	Dir  string
	Args []string
}

// String renders the call as a shell-like command line.
func (c Call) String() string {
	return strings.Join(c.Args, " ")
}

// Recorder implements runner.Runner. Commands whose line starts with a key
// of Fail exit non-zero. OnRun, when set, runs after a command is recorded
// and may fail it.
type Recorder struct {
	Calls []Call
	Fail  map[string]bool
	OnRun func(c Call) error
}

// New returns an empty Recorder.
func New() *Recorder {
	return &Recorder{Fail: make(map[string]bool)}
}

var errExit = errors.New("exit status 1")

func (r *Recorder) Run(ctx context.Context, dir string, args ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c := Call{Dir: dir, Args: append([]string(nil), args...)}
	r.Calls = append(r.Calls, c)
	if r.OnRun != nil {
		if err := r.OnRun(c); err != nil {
			return &runner.Error{Args: args, Dir: dir, Err: err}
		}
	}
	line := c.String()
	for prefix := range r.Fail {
		if strings.HasPrefix(line, prefix) {
			return &runner.Error{Args: args, Dir: dir, Err: errExit}
		}
	}
	return nil
}

// Lines returns every recorded command line in order.
func (r *Recorder) Lines() []string {
	lines := make([]string, len(r.Calls))
	for i, c := range r.Calls {
		lines[i] = c.String()
	}
	return lines
}

// Ran reports whether a command starting with prefix was recorded.
func (r *Recorder) Ran(prefix string) bool {
	for _, c := range r.Calls {
		if strings.HasPrefix(c.String(), prefix) {
			return true
		}
	}
	return false
}
