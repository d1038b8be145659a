// Copyright 2026 The bpbuild Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package internal

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/goplus/bpbuild/internal/env"
	"github.com/goplus/bpbuild/internal/pack"
	"github.com/goplus/bpbuild/internal/pipeline"
	"github.com/goplus/bpbuild/internal/platform"
)

// envPrefix prefixes environment variables overriding any setting,
// e.g. BPBUILD_PLATFORM or BPBUILD_SIGN_PASSPHRASE.
const envPrefix = "BPBUILD"

// settings is the resolved command line, environment and config file.
type settings struct {
	cfg            pipeline.Config
	level          log.Level
	signKey        string
	signPassphrase string
	metricsFile    string
}

func addFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringP("output", "o", "", "build root (default: current directory)")
	f.String("depot_tools", "", "path to depot_tools (default: <executable dir>/depot_tools)")
	f.StringP("version", "v", "", "version label (default: checked out revision)")
	f.StringP("platform", "p", "", "target platform: "+strings.Join(platformNames(), ", "))
	f.Bool("clean", false, "delete the checkout and run git clean before building")
	f.Bool("no-update", false, "do not sync an existing checkout")
	f.Bool("no-package", false, "do not create the archive")
	f.Bool("strict-package", false, "fail the run when packaging fails")
	f.String("sign-key", "", "armored OpenPGP secret key used to sign the archive")
	f.String("metrics-file", "", "write Prometheus metrics to this file")
	f.String("config", "", "config file (YAML, TOML or JSON)")
	f.String("log-level", "info", "log level: debug, info, warn or error")
}

func platformNames() []string {
	names := make([]string, len(platform.Known))
	for i, id := range platform.Known {
		names[i] = string(id)
	}
	return names
}

func loadSettings(cmd *cobra.Command) (*settings, error) {
	return resolveSettings(cmd, runtime.GOOS)
}

func resolveSettings(cmd *cobra.Command, goos string) (*settings, error) {
	v := viper.New()
	v.SetDefault("log-level", "info")
	v.SetDefault("workspace", "")
	v.SetDefault("sign-passphrase", "")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, err
	}

	if file := v.GetString("config"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	level, err := log.ParseLevel(v.GetString("log-level"))
	if err != nil {
		return nil, err
	}

	name := v.GetString("platform")
	if name == "" {
		if name = env.DefaultPlatform(goos); name == "" {
			return nil, fmt.Errorf("no default platform for host %s; use --platform", goos)
		}
	}
	id, err := platform.Parse(name)
	if err != nil {
		return nil, err
	}
	version := v.GetString("version")
	if version != "" {
		if err := pack.CheckVersion(version); err != nil {
			return nil, err
		}
	}

	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	output, err := absOr(v.GetString("output"), wd)
	if err != nil {
		return nil, err
	}
	workspace, err := absOr(v.GetString("workspace"), wd)
	if err != nil {
		return nil, err
	}
	depotTools := v.GetString("depot_tools")
	if depotTools == "" {
		dir, err := env.ScriptDir()
		if err != nil {
			return nil, fmt.Errorf("locate default depot_tools: %w", err)
		}
		depotTools = filepath.Join(dir, "depot_tools")
	}
	if depotTools, err = filepath.Abs(depotTools); err != nil {
		return nil, err
	}

	return &settings{
		cfg: pipeline.Config{
			Output:        output,
			DepotTools:    depotTools,
			Version:       version,
			Platform:      id,
			Workspace:     workspace,
			Clean:         v.GetBool("clean"),
			Update:        !v.GetBool("no-update"),
			Package:       !v.GetBool("no-package"),
			StrictPackage: v.GetBool("strict-package"),
		},
		level:          level,
		signKey:        v.GetString("sign-key"),
		signPassphrase: v.GetString("sign-passphrase"),
		metricsFile:    v.GetString("metrics-file"),
	}, nil
}

// absOr returns path made absolute, or def when path is empty.
func absOr(path, def string) (string, error) {
	if path == "" {
		return def, nil
	}
	return filepath.Abs(path)
}
