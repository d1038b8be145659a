// Copyright 2026 The bpbuild Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package pipeline drives one fetch, build and package run of Breakpad.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/goplus/bpbuild/internal/depot"
	"github.com/goplus/bpbuild/internal/env"
	"github.com/goplus/bpbuild/internal/metrics"
	"github.com/goplus/bpbuild/internal/pack"
	"github.com/goplus/bpbuild/internal/platform"
	"github.com/goplus/bpbuild/internal/repo"
	"github.com/goplus/bpbuild/internal/runner"
	"github.com/goplus/bpbuild/internal/vcs"
)

// Stage names, as used in errors, logs and metrics.
const (
	StageClean     = "clean"
	StageBootstrap = "bootstrap"
	StageInit      = "init"
	StageUpdate    = "update"
	StageRevision  = "revision"
	StageBuild     = "build"
	StagePackage   = "package"
)

const cleanHint = "try again with --clean"

// Config is the resolved configuration of a run.
type Config struct {
	Output     string // build root; the checkout lives in Output/breakpad
	DepotTools string
	Version    string // defaults to the checked out revision
	Platform   platform.ID
	Workspace  string // where git clean runs, defaults to the working directory

	Clean         bool
	Update        bool
	Package       bool
	StrictPackage bool // packaging failures fail the run
}

// BreakpadDir returns the directory holding the checkout and build outputs.
func (c *Config) BreakpadDir() string {
	return filepath.Join(c.Output, repo.Solution)
}

// StageError reports the stage that aborted a run.
type StageError struct {
	Stage string
	Hint  string
	Err   error
}

func (e *StageError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("%s failed: %v; %s", e.Stage, e.Err, e.Hint)
	}
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Packager archives the install prefix of a build.
type Packager interface {
	Create(ctx context.Context, buildRoot, version, platform string) (*pack.Artifact, error)
}

// Result describes a finished run.
type Result struct {
	RunID      string
	Revision   string
	Version    string
	Platform   platform.ID
	Artifact   *pack.Artifact // nil when packaging was skipped or failed
	PackageErr error          // non-nil when a lenient packaging step failed
}

// Pipeline runs the stages of a build in order, stopping at the first
// fatal failure.
type Pipeline struct {
	cfg       Config
	newRunner func(*env.Env) runner.Runner
	vcs       vcs.VCS
	depotURL  string
	packager  Packager
	recorder  metrics.Recorder
	logger    *log.Logger
	goos      string
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithRunnerFactory sets how the command runner of a run is created from
// the run's environment.
func WithRunnerFactory(f func(*env.Env) runner.Runner) Option {
	return func(p *Pipeline) {
		p.newRunner = f
	}
}

// WithVCS sets the VCS used to clone depot_tools and read revisions.
func WithVCS(v vcs.VCS) Option {
	return func(p *Pipeline) {
		p.vcs = v
	}
}

// WithDepotURL overrides where depot_tools is cloned from.
func WithDepotURL(url string) Option {
	return func(p *Pipeline) {
		p.depotURL = url
	}
}

// WithPackager sets the packager.
func WithPackager(pk Packager) Option {
	return func(p *Pipeline) {
		p.packager = pk
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(p *Pipeline) {
		p.recorder = r
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(p *Pipeline) {
		p.logger = l
	}
}

// WithGOOS overrides the host operating system.
func WithGOOS(goos string) Option {
	return func(p *Pipeline) {
		p.goos = goos
	}
}

// New creates a Pipeline for cfg.
func New(cfg Config, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg:      cfg,
		depotURL: depot.DefaultURL,
		recorder: metrics.NoopRecorder{},
		logger:   log.Default(),
		goos:     runtime.GOOS,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.vcs == nil {
		p.vcs = vcs.NewGitVCS()
	}
	if p.packager == nil {
		p.packager = pack.New(pack.WithLogger(p.logger))
	}
	return p
}

// Run executes one build. Each run gets its own environment, so the
// depot_tools PATH entry never leaks into the process or other runs.
func (p *Pipeline) Run(ctx context.Context) (res *Result, err error) {
	cfg := p.cfg
	res = &Result{RunID: uuid.NewString(), Platform: cfg.Platform}
	logger := p.logger.With("run", res.RunID)
	start := time.Now()
	defer func() {
		p.recorder.ObserveRunDuration(time.Since(start))
		p.recorder.SetRunOutcome(string(cfg.Platform), outcome(ctx, err))
	}()

	e := env.New()
	var r runner.Runner
	if p.newRunner != nil {
		r = p.newRunner(e)
	} else {
		// Standard output is left for the archive path.
		r = runner.New(e, runner.WithLogger(logger), runner.WithStdout(os.Stderr))
	}

	builder, err := platform.Lookup(cfg.Platform, r)
	if err != nil {
		return res, &StageError{Stage: StageBuild, Err: err}
	}
	src := repo.New(cfg.BreakpadDir(), r, p.vcs, logger)

	if cfg.Clean {
		logger.Info("Cleaning repository")
		if err := p.stage(ctx, StageClean, func() error {
			return src.Clean(ctx, cfg.Workspace)
		}); err != nil {
			return res, &StageError{Stage: StageClean, Err: err}
		}
	} else {
		p.skip(StageClean)
	}

	boot := depot.New(p.vcs, depot.WithURL(p.depotURL), depot.WithGOOS(p.goos), depot.WithLogger(logger))
	if err := p.stage(ctx, StageBootstrap, func() error {
		return boot.Ensure(ctx, cfg.DepotTools, e)
	}); err != nil {
		return res, &StageError{Stage: StageBootstrap, Err: fmt.Errorf("initializing %q: %w", cfg.DepotTools, err)}
	}

	switch {
	case !src.Exists():
		logger.Info("Initializing repository")
		if err := p.stage(ctx, StageInit, func() error { return src.Init(ctx) }); err != nil {
			return res, &StageError{Stage: StageInit, Hint: cleanHint, Err: err}
		}
		p.skip(StageUpdate)
	case cfg.Update:
		p.skip(StageInit)
		logger.Info("Updating repository")
		if err := p.stage(ctx, StageUpdate, func() error { return src.Update(ctx) }); err != nil {
			return res, &StageError{Stage: StageUpdate, Hint: cleanHint, Err: err}
		}
	default:
		p.skip(StageInit)
		p.skip(StageUpdate)
		logger.Info("Skipping repository update")
	}

	if err := p.stage(ctx, StageRevision, func() (err error) {
		if res.Revision, err = src.Revision(); err != nil {
			return err
		}
		res.Version = cfg.Version
		if res.Version == "" {
			res.Version = res.Revision
		}
		return pack.CheckVersion(res.Version)
	}); err != nil {
		return res, &StageError{Stage: StageRevision, Err: err}
	}
	logger.Info("Resolved version", "revision", res.Revision, "version", res.Version)

	layout := platform.Layout{Root: cfg.BreakpadDir(), Version: res.Version}
	logger.Info("Building", "platform", cfg.Platform, "prefix", layout.Prefix())
	if err := p.stage(ctx, StageBuild, func() error { return builder.Build(ctx, layout) }); err != nil {
		return res, &StageError{Stage: StageBuild, Err: err}
	}

	if !cfg.Package {
		p.skip(StagePackage)
		logger.Info("Skipping packaging")
		return res, nil
	}
	t := time.Now()
	a, err := p.packager.Create(ctx, layout.Root, res.Version, string(cfg.Platform))
	p.recorder.ObserveStageDuration(StagePackage, time.Since(t))
	if err != nil {
		if cfg.StrictPackage {
			p.recorder.IncStageResult(StagePackage, outcome(ctx, err))
			return res, &StageError{Stage: StagePackage, Err: err}
		}
		p.recorder.IncStageResult(StagePackage, metrics.ResultWarning)
		logger.Error("Packaging failed", "err", err)
		res.PackageErr = err
		return res, nil
	}
	p.recorder.IncStageResult(StagePackage, metrics.ResultSuccess)
	res.Artifact = a
	logger.Info("Package created", "path", a.Path)
	return res, nil
}

func (p *Pipeline) stage(ctx context.Context, name string, fn func() error) error {
	start := time.Now()
	err := fn()
	p.recorder.ObserveStageDuration(name, time.Since(start))
	p.recorder.IncStageResult(name, outcome(ctx, err))
	return err
}

func (p *Pipeline) skip(name string) {
	p.recorder.IncStageResult(name, metrics.ResultSkipped)
}

func outcome(ctx context.Context, err error) metrics.ResultLabel {
	switch {
	case err == nil:
		return metrics.ResultSuccess
	case errors.Is(err, context.Canceled), ctx.Err() != nil:
		return metrics.ResultCanceled
	default:
		return metrics.ResultFatal
	}
}
