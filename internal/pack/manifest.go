// Copyright 2026 The bpbuild Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pack

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Manifest describes a packaged archive.
type Manifest struct {
	Version   string    `yaml:"version"`
	Platform  string    `yaml:"platform"`
	Archive   string    `yaml:"archive"`
	SHA256    string    `yaml:"sha256"`
	TreeHash  string    `yaml:"tree_hash,omitempty"`
	Files     int       `yaml:"files"`
	Created   time.Time `yaml:"created"`
	Signature string    `yaml:"signature,omitempty"`
}

// WriteFile writes m as YAML to path.
func (m *Manifest) WriteFile(path string) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
