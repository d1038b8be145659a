// Copyright 2026 The bpbuild Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package platform

import (
	"context"
	"os"
	"path/filepath"

	"github.com/goplus/bpbuild/internal/runner"
	"github.com/goplus/bpbuild/x/xcode"
)

const (
	frameworkName = "Breakpad.framework"
	dumpSymsName  = "dump_syms"
)

// xcodeBuilder builds Breakpad.framework, then dump_syms against it, and
// stages both into the install prefix.
type xcodeBuilder struct {
	runner runner.Runner
}

func (b *xcodeBuilder) Build(ctx context.Context, l Layout) error {
	src := l.SourceDir()
	client := xcode.New(b.runner, filepath.Join(src, "src", "client", "mac"))
	dumpSyms := xcode.New(b.runner, filepath.Join(src, "src", "tools", "mac", "dump_syms"))
	framework := client.Product(frameworkName)

	if err := client.Build(ctx); err != nil {
		return &StepError{Step: "build Breakpad framework", Dir: client.Dir(), Err: err}
	}
	if err := b.runner.Run(ctx, src, "cp", "-R", framework, dumpSyms.Dir()); err != nil {
		return &StepError{Step: "copy Breakpad framework to dump_syms directory", Dir: src, Err: err}
	}
	if err := dumpSyms.Build(ctx); err != nil {
		return &StepError{Step: "build dump_syms", Dir: dumpSyms.Dir(), Err: err}
	}

	prefix := l.Prefix()
	bin := filepath.Join(prefix, "bin")
	if err := os.MkdirAll(bin, 0o755); err != nil {
		return &StepError{Step: "create install prefix", Dir: prefix, Err: err}
	}
	if err := b.runner.Run(ctx, src, "cp", "-R", framework, prefix); err != nil {
		return &StepError{Step: "stage Breakpad framework", Dir: src, Err: err}
	}
	if err := b.runner.Run(ctx, src, "cp", dumpSyms.Product(dumpSymsName), bin); err != nil {
		return &StepError{Step: "stage dump_syms", Dir: src, Err: err}
	}
	return nil
}
