package autotools

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"reflect"
	"runtime"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/goplus/bpbuild/internal/env"
	"github.com/goplus/bpbuild/internal/runner"
	"github.com/goplus/bpbuild/internal/runner/runnertest"
)

func TestConfigureInTree(t *testing.T) {
	rec := runnertest.New()
	a := New(rec, "/src", "", "/out/v1")

	if err := a.Configure(context.Background()); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if err := a.Install(context.Background()); err != nil {
		t.Fatalf("Install: %v", err)
	}
	want := []string{"./configure --prefix=/out/v1", "make install"}
	if got := rec.Lines(); !reflect.DeepEqual(got, want) {
		t.Errorf("commands = %v, want %v", got, want)
	}
	for _, c := range rec.Calls {
		if c.Dir != "/src" {
			t.Errorf("%s ran in %q, want /src", c, c.Dir)
		}
	}
}

func TestConfigureOutOfTree(t *testing.T) {
	rec := runnertest.New()
	a := New(rec, "/src", "/build", "")

	if err := a.Configure(context.Background(), "--enable-foo"); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	want := filepath.Join("/src", "configure") + " --enable-foo"
	if got := rec.Lines()[0]; got != want {
		t.Errorf("command = %q, want %q", got, want)
	}
	if rec.Calls[0].Dir != "/build" {
		t.Errorf("dir = %q, want /build", rec.Calls[0].Dir)
	}
}

func TestWorkDir(t *testing.T) {
	if got := New(nil, "src", "build", "inst").WorkDir(); got != "build" {
		t.Errorf("WorkDir = %q, want %q", got, "build")
	}
	if got := New(nil, "src", "", "inst").WorkDir(); got != "src" {
		t.Errorf("WorkDir = %q, want %q", got, "src")
	}
}

func TestConfigureInstallE2E(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses POSIX shell scripts")
	}
	if _, err := exec.LookPath("make"); err != nil {
		t.Skip("make not found in PATH")
	}

	tmp := t.TempDir()
	src := filepath.Join(tmp, "src")
	installDir := filepath.Join(tmp, "install")
	if err := os.MkdirAll(src, 0o755); err != nil {
		t.Fatal(err)
	}
	configure := `#!/bin/sh
prefix=
for arg in "$@"; do
	case "$arg" in
	--prefix=*) prefix="${arg#--prefix=}" ;;
	esac
done
printf 'PREFIX=%s\nCUSTOM=%s\n' "$prefix" "$CUSTOM" > config.log
printf 'install:\n\tmkdir -p %s/bin\n\tcp config.log %s/bin/\n' "$prefix" "$prefix" > Makefile
`
	if err := os.WriteFile(filepath.Join(src, "configure"), []byte(configure), 0o755); err != nil {
		t.Fatal(err)
	}

	e := env.New()
	e.Set("CUSTOM", "VAL")
	r := runner.New(e, runner.WithLogger(log.New(&bytes.Buffer{})), runner.WithStdout(&bytes.Buffer{}))
	a := New(r, src, "", installDir)

	if err := a.Configure(context.Background()); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if err := a.Install(context.Background()); err != nil {
		t.Fatalf("Install: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(installDir, "bin", "config.log"))
	if err != nil {
		t.Fatalf("read installed config.log: %v", err)
	}
	for _, want := range []string{"CUSTOM=VAL", "PREFIX=" + installDir} {
		if !strings.Contains(string(data), want) {
			t.Errorf("config.log missing %q", want)
		}
	}
}
