// Copyright 2026 The bpbuild Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package internal

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/goplus/bpbuild/internal/metrics"
	"github.com/goplus/bpbuild/internal/pack"
	"github.com/goplus/bpbuild/internal/pipeline"
	"github.com/goplus/bpbuild/internal/vcs"
)

var rootCmd = &cobra.Command{
	Use:   "bpbuild",
	Short: "bpbuild fetches, builds and packages Google Breakpad",
	Long: `bpbuild bootstraps depot_tools, fetches or syncs the Breakpad sources,
builds them for the selected platform and packages the install prefix as
breakpad-<version>-<platform>.tar.gz.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runBuild,
}

func init() {
	addFlags(rootCmd)
}

// Execute runs the root command and exits with status 1 on failure.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		log.Fatal(err)
	}
}

func runBuild(cmd *cobra.Command, _ []string) error {
	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{
		Prefix:          "bpbuild",
		Level:           s.level,
		ReportTimestamp: true,
	})
	log.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	packOpts := []pack.Option{pack.WithLogger(logger)}
	if s.signKey != "" {
		signer, err := pack.LoadSigner(s.signKey, []byte(s.signPassphrase))
		if err != nil {
			return err
		}
		packOpts = append(packOpts, pack.WithSigner(signer))
	}

	var rec metrics.Recorder = metrics.NoopRecorder{}
	var prom *metrics.PrometheusRecorder
	if s.metricsFile != "" {
		prom = metrics.NewPrometheusRecorder(nil)
		rec = prom
	}

	logger.Debug("configuration", "output", s.cfg.Output, "depot_tools", s.cfg.DepotTools,
		"platform", s.cfg.Platform, "clean", s.cfg.Clean, "update", s.cfg.Update, "package", s.cfg.Package)

	p := pipeline.New(s.cfg,
		pipeline.WithLogger(logger),
		pipeline.WithVCS(vcs.NewGitVCS(vcs.WithProgress(os.Stderr))),
		pipeline.WithPackager(pack.New(packOpts...)),
		pipeline.WithRecorder(rec),
	)
	res, err := p.Run(ctx)
	if prom != nil {
		if werr := prom.WriteTextfile(s.metricsFile); werr != nil {
			logger.Warn("Could not write metrics", "err", werr)
		}
	}
	if err != nil {
		return err
	}
	printArtifact(cmd, res)
	return nil
}

// printArtifact writes the archive path, if any, to standard output so
// scripts can capture it; everything else goes to standard error.
func printArtifact(cmd *cobra.Command, res *pipeline.Result) {
	if res.Artifact != nil {
		fmt.Fprintln(cmd.OutOrStdout(), res.Artifact.Path)
	}
}
