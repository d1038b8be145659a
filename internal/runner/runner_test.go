package runner

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/goplus/bpbuild/internal/env"
)

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("uses POSIX shell scripts")
	}
}

func quiet() Option {
	return WithLogger(log.New(&bytes.Buffer{}))
}

func writeScript(t *testing.T, dir, name, body string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// output runs args with a runner bound to e and returns its trimmed stdout.
func output(t *testing.T, e *env.Env, dir string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := New(e, WithStdout(&out), quiet()).Run(context.Background(), dir, args...)
	return strings.TrimSpace(out.String()), err
}

func TestRunSuccess(t *testing.T) {
	skipOnWindows(t)
	var out bytes.Buffer
	r := New(env.New(), WithStdout(&out), quiet())

	if err := r.Run(context.Background(), t.TempDir(), "sh", "-c", "echo hello"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != "hello" {
		t.Errorf("stdout = %q, want %q", got, "hello")
	}
}

func TestRunNonZeroExit(t *testing.T) {
	skipOnWindows(t)
	dir := t.TempDir()
	r := New(env.New(), quiet())

	err := r.Run(context.Background(), dir, "sh", "-c", "exit 3")
	if err == nil {
		t.Fatal("expected error for non-zero exit")
	}
	var rerr *Error
	if !errors.As(err, &rerr) {
		t.Fatalf("error %T is not *Error", err)
	}
	if rerr.Dir != dir {
		t.Errorf("Dir = %q, want %q", rerr.Dir, dir)
	}
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) || exitErr.ExitCode() != 3 {
		t.Errorf("expected exit status 3, got %v", err)
	}
	if !strings.Contains(err.Error(), "sh -c exit 3") {
		t.Errorf("error %q does not name the command", err)
	}
}

func TestRunWorkingDirectory(t *testing.T) {
	skipOnWindows(t)
	dir := t.TempDir()

	got, err := output(t, env.New(), dir, "pwd")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want, _ := filepath.EvalSymlinks(dir)
	if resolved, _ := filepath.EvalSymlinks(got); resolved != want {
		t.Errorf("pwd = %q, want %q", got, want)
	}
}

func TestRunResolvesAgainstEnvPath(t *testing.T) {
	skipOnWindows(t)
	tools := t.TempDir()
	writeScript(t, tools, "bpbuild-fake-tool", `echo "$BPBUILD_FAKE"`)

	if _, err := exec.LookPath("bpbuild-fake-tool"); err == nil {
		t.Fatal("tool unexpectedly on the process PATH")
	}

	e := env.New()
	e.PrependPath(tools)
	e.Set("BPBUILD_FAKE", "from-env")

	got, err := output(t, e, t.TempDir(), "bpbuild-fake-tool")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got != "from-env" {
		t.Errorf("output = %q, want %q", got, "from-env")
	}

	// A runner bound to another context must not see the tool.
	other := New(env.New(), quiet())
	if err := other.Run(context.Background(), t.TempDir(), "bpbuild-fake-tool"); err == nil {
		t.Error("expected lookup failure in an independent context")
	}
}

func TestRunRelativeExecutable(t *testing.T) {
	skipOnWindows(t)
	dir := t.TempDir()
	writeScript(t, dir, "configure", `echo configured "$@"`)

	got, err := output(t, env.New(), dir, "./configure", "--prefix=/x")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got != "configured --prefix=/x" {
		t.Errorf("output = %q", got)
	}
}

func TestRunMissingDirectory(t *testing.T) {
	skipOnWindows(t)
	r := New(env.New(), quiet())
	missing := filepath.Join(t.TempDir(), "missing")
	if err := r.Run(context.Background(), missing, "true"); err == nil {
		t.Fatal("expected error for missing working directory")
	}
}

func TestRunEmptyCommand(t *testing.T) {
	r := New(env.New(), quiet())
	if err := r.Run(context.Background(), t.TempDir()); err == nil {
		t.Fatal("expected error for empty command")
	}
}

func TestRunCanceled(t *testing.T) {
	skipOnWindows(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := New(env.New(), quiet())
	if err := r.Run(ctx, t.TempDir(), "sh", "-c", "sleep 5"); err == nil {
		t.Fatal("expected error for canceled context")
	}
}
