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

// Package aeskw implements the A128KW, A192KW and A256KW key management
// algorithms (RFC 7518 section 4.4).
package aeskw

import (
	"errors"
	"fmt"

	"github.com/jeremyhahn/go-josekm/pkg/crypto/wrapping"
	"github.com/jeremyhahn/go-josekm/pkg/encoding/jwk"
	"github.com/jeremyhahn/go-josekm/pkg/keymanagement"
)

// Algorithm wraps a CEK with RFC 3394 AES Key Wrap under an "oct" key of
// a fixed size.
type Algorithm struct {
	name    string
	keySize int
}

// New returns the AES-KW variant registered under name.
func New(name string) (*Algorithm, error) {
	size, ok := KeySize(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", keymanagement.ErrUnsupportedAlgorithm, name)
	}
	return &Algorithm{name: name, keySize: size}, nil
}

// KeySize returns the key-encryption key size in bytes for an AES-KW
// algorithm name.
func KeySize(name string) (int, bool) {
	switch name {
	case keymanagement.A128KW:
		return 16, true
	case keymanagement.A192KW:
		return 24, true
	case keymanagement.A256KW:
		return 32, true
	default:
		return 0, false
	}
}

// AlgorithmForBits returns the AES-KW algorithm name for a key length in bits.
func AlgorithmForBits(bits int) (string, bool) {
	switch bits {
	case 128:
		return keymanagement.A128KW, true
	case 192:
		return keymanagement.A192KW, true
	case 256:
		return keymanagement.A256KW, true
	default:
		return "", false
	}
}

func (a *Algorithm) Name() string { return a.name }

func (a *Algorithm) Mode() keymanagement.Mode { return keymanagement.ModeWrap }

func (a *Algorithm) KeyTypes() []string { return []string{string(jwk.KeyTypeOct)} }

// KeySize returns the required key size in bytes.
func (a *Algorithm) KeySize() int { return a.keySize }

// WrapKey wraps cek. No header parameters are produced.
func (a *Algorithm) WrapKey(key *jwk.JWK, cek []byte, _ keymanagement.Header) ([]byte, keymanagement.Header, error) {
	kek, err := a.checkKey(key)
	if err != nil {
		return nil, nil, err
	}
	wrapped, err := Wrap(kek, cek)
	if err != nil {
		return nil, nil, err
	}
	return wrapped, keymanagement.Header{}, nil
}

// UnwrapKey recovers the CEK from encryptedCEK.
func (a *Algorithm) UnwrapKey(key *jwk.JWK, encryptedCEK []byte, _ keymanagement.Header) ([]byte, error) {
	kek, err := a.checkKey(key)
	if err != nil {
		return nil, err
	}
	return Unwrap(kek, encryptedCEK)
}

func (a *Algorithm) checkKey(key *jwk.JWK) ([]byte, error) {
	if err := keymanagement.CheckKeyType(a, key); err != nil {
		return nil, err
	}
	return keymanagement.OctetKey(key, a.keySize)
}

// Wrap wraps cek under a raw key-encryption key. It is shared by the
// algorithms that derive a key-encryption key before wrapping.
func Wrap(kek, cek []byte) ([]byte, error) {
	wrapped, err := wrapping.WrapAESKW(kek, cek)
	if errors.Is(err, wrapping.ErrInvalidKEK) {
		return nil, fmt.Errorf("%w: %v", keymanagement.ErrInvalidKey, err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to wrap CEK: %w", err)
	}
	return wrapped, nil
}

// Unwrap reverses Wrap. A malformed or tampered encrypted key returns
// ErrDecryptionFailed.
func Unwrap(kek, encryptedCEK []byte) ([]byte, error) {
	cek, err := wrapping.UnwrapAESKW(kek, encryptedCEK)
	switch {
	case err == nil:
		return cek, nil
	case errors.Is(err, wrapping.ErrInvalidKEK):
		return nil, fmt.Errorf("%w: %v", keymanagement.ErrInvalidKey, err)
	case errors.Is(err, wrapping.ErrInvalidInput):
		return nil, fmt.Errorf("%w: %v", keymanagement.ErrDecryptionFailed, err)
	default:
		return nil, keymanagement.ErrDecryptionFailed
	}
}

var _ keymanagement.KeyWrapper = (*Algorithm)(nil)
