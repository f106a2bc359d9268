// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-josekm.
//
// go-josekm is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

// Package direct implements the "dir" algorithm: the shared symmetric key is
// used as the content encryption key.
package direct

import (
	"fmt"

	"github.com/jeremyhahn/go-josekm/pkg/encoding/jwk"
	"github.com/jeremyhahn/go-josekm/pkg/keymanagement"
)

// Algorithm supplies the CEK from an "oct" JWK.
type Algorithm struct{}

// New returns the "dir" algorithm.
func New() *Algorithm {
	return &Algorithm{}
}

func (a *Algorithm) Name() string { return keymanagement.Dir }

func (a *Algorithm) Mode() keymanagement.Mode { return keymanagement.ModeDirect }

// KeyTypes accepts "oct" and the older "dir" key type.
func (a *Algorithm) KeyTypes() []string {
	return []string{string(jwk.KeyTypeOct), string(jwk.KeyTypeDir)}
}

// CEK returns the decoded "k" member of key unmodified.
func (a *Algorithm) CEK(key *jwk.JWK) ([]byte, error) {
	if err := keymanagement.CheckKeyType(a, key); err != nil {
		return nil, err
	}
	cek, err := key.ToSymmetricKey()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", keymanagement.ErrInvalidKey, err)
	}
	return cek, nil
}

var _ keymanagement.DirectKeySupplier = (*Algorithm)(nil)
