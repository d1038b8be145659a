// Copyright 2026 The bpbuild Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package platform builds a Breakpad checkout for one target platform.
//
// Each buildable platform is a Builder registered under its ID. Selectors
// that are known but have no builder, and selectors that are not known at
// all, fail with ErrUnsupported.
package platform

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/goplus/bpbuild/internal/runner"
)

// ID is a platform selector.
type ID string

const (
	Linux        ID = "linux-x64"
	MacOS        ID = "osx"
	Windows      ID = "win32"
	AndroidARMv7 ID = "linux-android-armeabi-v7a"
)

// Known lists every accepted selector.
var Known = []ID{Linux, MacOS, Windows, AndroidARMv7}

// ErrUnsupported is returned for selectors that cannot be built.
var ErrUnsupported = errors.New("unsupported platform")

// Parse validates a selector.
func Parse(s string) (ID, error) {
	for _, id := range Known {
		if string(id) == s {
			return id, nil
		}
	}
	names := make([]string, len(Known))
	for i, id := range Known {
		names[i] = string(id)
	}
	return "", fmt.Errorf("%w %q (want one of %s)", ErrUnsupported, s, strings.Join(names, ", "))
}

// Layout locates a checkout and the install prefix of one build.
type Layout struct {
	Root    string
	Version string
}

// SourceDir returns the Breakpad source tree.
func (l Layout) SourceDir() string { return filepath.Join(l.Root, "src") }

// Prefix returns the install prefix, named by version.
func (l Layout) Prefix() string { return filepath.Join(l.Root, l.Version) }

// Builder builds a checkout into its install prefix.
type Builder interface {
	Build(ctx context.Context, l Layout) error
}

// StepError reports the build step that failed and where it ran.
type StepError struct {
	Step string
	Dir  string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("failed to %s in path %q: %v", e.Step, e.Dir, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

var builders = map[ID]func(r runner.Runner) Builder{
	Linux:   func(r runner.Runner) Builder { return &autotoolsBuilder{runner: r} },
	MacOS:   func(r runner.Runner) Builder { return &xcodeBuilder{runner: r} },
	Windows: func(runner.Runner) Builder { return unsupported(Windows) },
}

// Lookup returns the builder for id, running its commands with r.
func Lookup(id ID, r runner.Runner) (Builder, error) {
	newBuilder, ok := builders[id]
	if !ok {
		return nil, fmt.Errorf("%w: no builder for %q", ErrUnsupported, id)
	}
	return newBuilder(r), nil
}
