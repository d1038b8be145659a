// Copyright 2026 The bpbuild Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package platform

import (
	"context"

	"github.com/goplus/bpbuild/internal/runner"
	"github.com/goplus/bpbuild/x/autotools"
)

// autotoolsBuilder configures and installs in-tree.
type autotoolsBuilder struct {
	runner runner.Runner
}

func (b *autotoolsBuilder) Build(ctx context.Context, l Layout) error {
	a := autotools.New(b.runner, l.SourceDir(), "", l.Prefix())
	if err := a.Configure(ctx); err != nil {
		return &StepError{Step: "run configure", Dir: a.WorkDir(), Err: err}
	}
	if err := a.Install(ctx); err != nil {
		return &StepError{Step: "make install", Dir: a.WorkDir(), Err: err}
	}
	return nil
}
