// Copyright 2026 The bpbuild Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pack

import (
	"errors"
	"fmt"
	"os"

	"github.com/ProtonMail/go-crypto/openpgp"
)

// Signer produces armored detached OpenPGP signatures.
type Signer struct {
	entity *openpgp.Entity
}

// NewSigner returns a Signer for an entity whose private key is usable.
func NewSigner(e *openpgp.Entity) (*Signer, error) {
	if e == nil || e.PrivateKey == nil {
		return nil, errors.New("signing key has no private key")
	}
	if e.PrivateKey.Encrypted {
		return nil, errors.New("signing key is encrypted")
	}
	return &Signer{entity: e}, nil
}

// LoadSigner reads an armored secret key from path. The first entity
// carrying a private key is used; it is decrypted with passphrase when
// protected.
func LoadSigner(path string, passphrase []byte) (*Signer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open signing key: %w", err)
	}
	defer f.Close()

	entities, err := openpgp.ReadArmoredKeyRing(f)
	if err != nil {
		return nil, fmt.Errorf("read signing key %s: %w", path, err)
	}
	for _, e := range entities {
		if e.PrivateKey == nil {
			continue
		}
		if e.PrivateKey.Encrypted {
			if len(passphrase) == 0 {
				return nil, fmt.Errorf("signing key %s is encrypted and no passphrase was given", path)
			}
			if err := e.DecryptPrivateKeys(passphrase); err != nil {
				return nil, fmt.Errorf("decrypt signing key %s: %w", path, err)
			}
		}
		return NewSigner(e)
	}
	return nil, fmt.Errorf("no private key found in %s", path)
}

// KeyID returns the short hex id of the signing key.
func (s *Signer) KeyID() string {
	return s.entity.PrimaryKey.KeyIdString()
}

// SignFile writes the signature of file to sigFile.
func (s *Signer) SignFile(file, sigFile string) (err error) {
	in, err := os.Open(file)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(sigFile)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
	}()
	if err := openpgp.ArmoredDetachSign(out, s.entity, in, nil); err != nil {
		return fmt.Errorf("sign %s: %w", file, err)
	}
	return nil
}
