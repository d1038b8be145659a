// Copyright 2026 The bpbuild Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package env holds the execution context shared by every command a build
// run spawns, and the host-derived defaults of the CLI.
package env

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// Env is the environment a single build run hands to its child processes.
// It never touches the process environment: PATH prefixes and variable
// overrides are layered on top of os.Environ() when Environ is called.
type Env struct {
	paths []string
	vars  map[string]string
	keys  []string
}

// New returns an empty execution context.
func New() *Env {
	return &Env{vars: make(map[string]string)}
}

// PrependPath puts dir in front of PATH for every later command.
// The most recently prepended directory wins.
func (e *Env) PrependPath(dir string) {
	e.paths = append([]string{dir}, e.paths...)
}

// Set overrides key for every later command.
func (e *Env) Set(key, value string) {
	if _, ok := e.vars[key]; !ok {
		e.keys = append(e.keys, key)
	}
	e.vars[key] = value
}

// Paths returns the prepended PATH entries, most recent first.
func (e *Env) Paths() []string {
	return append([]string(nil), e.paths...)
}

// Environ returns os.Environ() with the overrides applied and PATH rebuilt.
func (e *Env) Environ() []string {
	overrides := make(map[string]string, len(e.vars)+1)
	order := append([]string(nil), e.keys...)
	for k, v := range e.vars {
		overrides[k] = v
	}
	if len(e.paths) > 0 {
		key, cur := pathVar()
		value := strings.Join(e.paths, string(os.PathListSeparator))
		if cur != "" {
			value += string(os.PathListSeparator) + cur
		}
		if _, ok := overrides[key]; !ok {
			order = append(order, key)
		}
		overrides[key] = value
	}
	return mergeEnv(os.Environ(), overrides, order)
}

// pathVar returns the spelling of the PATH key in the process environment
// and its current value.
func pathVar() (key, value string) {
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok && sameKey(k, "PATH") {
			return k, v
		}
	}
	return "PATH", ""
}

// mergeEnv returns base with every key in overrides replaced or appended.
// Appended keys keep the order given by order.
func mergeEnv(base []string, overrides map[string]string, order []string) []string {
	out := make([]string, 0, len(base)+len(overrides))
	seen := make(map[string]bool, len(overrides))
	for _, kv := range base {
		k, _, ok := strings.Cut(kv, "=")
		if !ok {
			out = append(out, kv)
			continue
		}
		if name, ok := lookupKey(overrides, k); ok {
			out = append(out, k+"="+overrides[name])
			seen[name] = true
			continue
		}
		out = append(out, kv)
	}
	for _, k := range order {
		if !seen[k] {
			out = append(out, k+"="+overrides[k])
			seen[k] = true
		}
	}
	return out
}

func lookupKey(m map[string]string, key string) (string, bool) {
	if _, ok := m[key]; ok {
		return key, true
	}
	if runtime.GOOS != "windows" {
		return "", false
	}
	for k := range m {
		if strings.EqualFold(k, key) {
			return k, true
		}
	}
	return "", false
}

// sameKey reports whether two variable names refer to the same variable.
// Windows variable names are case-insensitive.
func sameKey(a, b string) bool {
	if runtime.GOOS == "windows" {
		return strings.EqualFold(a, b)
	}
	return a == b
}

// DefaultPlatform maps a GOOS value to the platform selector built by default
// on that host. It returns "" for hosts without a default.
func DefaultPlatform(goos string) string {
	switch goos {
	case "windows":
		return "win32"
	case "linux":
		return "linux-x64"
	case "darwin":
		return "osx"
	}
	return ""
}

// ScriptDir returns the directory holding the running executable.
func ScriptDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(exe), nil
}
