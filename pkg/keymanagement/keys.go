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

package keymanagement

import (
	"fmt"
	"slices"

	"github.com/jeremyhahn/go-josekm/pkg/encoding/jwk"
)

// CheckKeyType verifies that key is non-nil and its "kty" is one the
// algorithm accepts.
func CheckKeyType(alg Algorithm, key *jwk.JWK) error {
	if key == nil {
		return fmt.Errorf("%w: %s requires a key", ErrInvalidKey, alg.Name())
	}
	if !slices.Contains(alg.KeyTypes(), key.Kty) {
		return fmt.Errorf("%w: %s does not accept kty %q", ErrInvalidKey, alg.Name(), key.Kty)
	}
	return nil
}

// OctetKey returns the decoded "k" member of a symmetric key, which must be
// exactly size bytes long.
func OctetKey(key *jwk.JWK, size int) ([]byte, error) {
	k, err := key.ToSymmetricKey()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	if len(k) != size {
		return nil, fmt.Errorf("%w: expected a %d-bit key, got %d bits", ErrInvalidKey, size*8, len(k)*8)
	}
	return k, nil
}
