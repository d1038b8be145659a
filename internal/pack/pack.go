// Copyright 2026 The bpbuild Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package pack turns an installed Breakpad prefix into a distributable
// archive with its checksum, manifest and optional signature.
package pack

import (
	"archive/tar"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/klauspost/compress/gzip"
	"golang.org/x/mod/sumdb/dirhash"
)

var (
	// ErrNoArtifact is returned when the version directory to package is missing.
	ErrNoArtifact = errors.New("no build artifact")
	// ErrInvalidVersion is returned for a version label that is not a
	// single path element.
	ErrInvalidVersion = errors.New("invalid version label")
)

// Artifact describes the files written by Create.
type Artifact struct {
	Path      string // absolute path of the .tar.gz
	SHA256    string // hex digest of the archive
	Checksum  string // path of the .sha256 file
	Manifest  string // path of the .manifest.yaml file
	Signature string // path of the .asc file, empty when unsigned
	TreeHash  string // dirhash h1: over the regular files of the prefix
}

// Packager archives build outputs.
type Packager struct {
	signer *Signer
	logger *log.Logger
	now    func() time.Time
}

// Option configures a Packager.
type Option func(*Packager)

// WithSigner makes Create write a detached signature next to the archive.
func WithSigner(s *Signer) Option {
	return func(p *Packager) {
		p.signer = s
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(p *Packager) {
		p.logger = l
	}
}

// WithClock overrides the time recorded in manifests.
func WithClock(now func() time.Time) Option {
	return func(p *Packager) {
		p.now = now
	}
}

// New creates a Packager.
func New(opts ...Option) *Packager {
	p := &Packager{logger: log.Default(), now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// CheckVersion reports whether version can name the install prefix and the
// archive: it must be a single path element other than "." and "..".
func CheckVersion(version string) error {
	switch {
	case version == "", version == ".", version == "..":
		return fmt.Errorf("%w %q", ErrInvalidVersion, version)
	case strings.ContainsAny(version, `/\`):
		return fmt.Errorf("%w %q: contains a path separator", ErrInvalidVersion, version)
	}
	return nil
}

// ArchiveName returns the file name of the archive for version and platform.
func ArchiveName(version, platform string) string {
	return fmt.Sprintf("breakpad-%s-%s.tar.gz", version, platform)
}

// Create archives buildRoot/version into buildRoot/ArchiveName(version, platform).
// Entries are stored under "<version>/" and symlinks are kept as links.
// If a step after the archive is in place fails, the archive and the files
// written next to it are removed.
func (p *Packager) Create(ctx context.Context, buildRoot, version, platform string) (_ *Artifact, err error) {
	if err := CheckVersion(version); err != nil {
		return nil, err
	}
	root, err := filepath.Abs(buildRoot)
	if err != nil {
		return nil, err
	}
	src := filepath.Join(root, version)
	info, err := os.Stat(src)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s does not exist", ErrNoArtifact, src)
		}
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrNoArtifact, src)
	}

	name := ArchiveName(version, platform)
	archive := filepath.Join(root, name)
	p.logger.Info("packaging", "dir", src, "archive", archive)

	sum, files, err := writeArchive(ctx, root, version, archive)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", name, err)
	}
	a := &Artifact{
		Path:     archive,
		SHA256:   sum,
		Checksum: archive + ".sha256",
		Manifest: archive + ".manifest.yaml",
	}
	defer func() {
		if err != nil {
			for _, f := range []string{a.Path, a.Checksum, archive + ".asc", a.Manifest} {
				os.Remove(f)
			}
		}
	}()

	if err := writeChecksum(a.Checksum, sum, name); err != nil {
		return nil, err
	}

	treeHash, herr := dirhash.Hash1(files, func(name string) (io.ReadCloser, error) {
		return os.Open(filepath.Join(root, filepath.FromSlash(name)))
	})
	if herr != nil {
		p.logger.Warn("could not hash install tree", "err", herr)
	} else {
		a.TreeHash = treeHash
	}

	if p.signer != nil {
		a.Signature = archive + ".asc"
		if err := p.signer.SignFile(archive, a.Signature); err != nil {
			return nil, err
		}
		p.logger.Info("signed", "signature", a.Signature, "key", p.signer.KeyID())
	}

	m := Manifest{
		Version:  version,
		Platform: platform,
		Archive:  name,
		SHA256:   sum,
		TreeHash: a.TreeHash,
		Files:    len(files),
		Created:  p.now().UTC(),
	}
	if a.Signature != "" {
		m.Signature = filepath.Base(a.Signature)
	}
	if err := m.WriteFile(a.Manifest); err != nil {
		return nil, err
	}

	p.logger.Info("packaged", "archive", archive, "sha256", sum, "files", len(files))
	return a, nil
}

// writeArchive writes the tarball to a temporary file in root and renames it
// into place once complete. It returns the archive digest and the
// slash-separated names of the regular files it contains.
func writeArchive(ctx context.Context, root, version, archive string) (sum string, files []string, err error) {
	tmp, err := os.CreateTemp(root, ".breakpad-*.tar.gz.tmp")
	if err != nil {
		return "", nil, err
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	h := sha256.New()
	zw := gzip.NewWriter(io.MultiWriter(tmp, h))
	tw := tar.NewWriter(zw)

	files, err = addTree(ctx, tw, filepath.Join(root, version), version)
	if err != nil {
		return "", nil, err
	}
	if err = tw.Close(); err != nil {
		return "", nil, err
	}
	if err = zw.Close(); err != nil {
		return "", nil, err
	}
	if err = tmp.Close(); err != nil {
		return "", nil, err
	}
	if err = os.Rename(tmp.Name(), archive); err != nil {
		return "", nil, err
	}
	return hex.EncodeToString(h.Sum(nil)), files, nil
}

func addTree(ctx context.Context, tw *tar.Writer, dir, prefix string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		name := prefix
		if rel != "." {
			name = path.Join(prefix, filepath.ToSlash(rel))
		}

		var link string
		if info.Mode()&os.ModeSymlink != 0 {
			if link, err = os.Readlink(p); err != nil {
				return err
			}
		}
		hdr, err := tar.FileInfoHeader(info, link)
		if err != nil {
			return err
		}
		hdr.Name = name
		if info.IsDir() {
			hdr.Name += "/"
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}

		f, err := os.Open(p)
		if err != nil {
			return err
		}
		defer f.Close()
		if _, err := io.Copy(tw, f); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
		files = append(files, name)
		return nil
	})
	return files, err
}

func writeChecksum(file, sum, name string) error {
	return os.WriteFile(file, []byte(sum+"  "+name+"\n"), 0o644)
}
