package vcs

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// initRepo creates a repository in dir with a single commit and returns
// the commit hash.
func initRepo(t *testing.T, dir string) string {
	t.Helper()
	repo, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("init %s: %v", dir, err)
	}
	if err := os.WriteFile(filepath.Join(dir, "README"), []byte("breakpad\n"), 0o644); err != nil {
		t.Fatalf("write README: %v", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		t.Fatalf("worktree: %v", err)
	}
	if _, err := wt.Add("README"); err != nil {
		t.Fatalf("add: %v", err)
	}
	hash, err := wt.Commit("initial", &git.CommitOptions{
		Author: &object.Signature{Name: "test", Email: "test@example.com", When: time.Now()},
	})
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	return hash.String()
}

func TestGitVCS_Revision(t *testing.T) {
	dir := t.TempDir()
	want := initRepo(t, dir)

	got, err := NewGitVCS().Revision(dir)
	if err != nil {
		t.Fatalf("Revision failed: %v", err)
	}
	if got != want {
		t.Errorf("Revision = %q, want %q", got, want)
	}
	if len(got) != 40 {
		t.Errorf("expected 40-char hash, got %d chars: %s", len(got), got)
	}
}

func TestGitVCS_RevisionNotRepository(t *testing.T) {
	got, err := NewGitVCS().Revision(t.TempDir())
	if err == nil {
		t.Fatalf("expected error, got revision %q", got)
	}
	if !errors.Is(err, ErrNotRepository) {
		t.Errorf("error %v does not wrap ErrNotRepository", err)
	}
	if got != "" {
		t.Errorf("Revision returned partial result %q", got)
	}
}

func TestGitVCS_RevisionDoesNotSearchParents(t *testing.T) {
	parent := t.TempDir()
	initRepo(t, parent)
	child := filepath.Join(parent, "src")
	if err := os.Mkdir(child, 0o755); err != nil {
		t.Fatal(err)
	}
	if _, err := NewGitVCS().Revision(child); err == nil {
		t.Fatal("expected error for a subdirectory of a repository")
	}
}

func TestGitVCS_RevisionEmptyRepository(t *testing.T) {
	dir := t.TempDir()
	if _, err := git.PlainInit(dir, false); err != nil {
		t.Fatal(err)
	}
	if _, err := NewGitVCS().Revision(dir); err == nil {
		t.Fatal("expected error for repository without commits")
	}
}

// requireGit skips tests that clone from a local path: go-git serves
// file transports through git-upload-pack.
func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not found in PATH")
	}
}

func TestGitVCS_Clone(t *testing.T) {
	requireGit(t)
	upstream := t.TempDir()
	want := initRepo(t, upstream)

	dir := filepath.Join(t.TempDir(), "depot_tools")
	v := NewGitVCS(WithProgress(io.Discard))
	if err := v.Clone(context.Background(), upstream, dir); err != nil {
		t.Fatalf("Clone failed: %v", err)
	}
	got, err := v.Revision(dir)
	if err != nil {
		t.Fatalf("Revision after clone: %v", err)
	}
	if got != want {
		t.Errorf("cloned HEAD = %q, want %q", got, want)
	}
	if _, err := os.Stat(filepath.Join(dir, "README")); err != nil {
		t.Errorf("worktree not checked out: %v", err)
	}
}

func TestGitVCS_CloneBadRemote(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	err := NewGitVCS(WithProgress(io.Discard)).Clone(context.Background(), filepath.Join(t.TempDir(), "nope"), dir)
	if err == nil {
		t.Fatal("expected error cloning a missing remote")
	}
}
