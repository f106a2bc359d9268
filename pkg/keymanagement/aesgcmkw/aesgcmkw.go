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

// Package aesgcmkw implements key wrapping with AES-GCM (A128GCMKW,
// A192GCMKW and A256GCMKW, RFC 7518 section 4.7).
package aesgcmkw

import (
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/jeremyhahn/go-josekm/pkg/crypto/rand"
	"github.com/jeremyhahn/go-josekm/pkg/crypto/wrapping"
	"github.com/jeremyhahn/go-josekm/pkg/encoding/jwk"
	"github.com/jeremyhahn/go-josekm/pkg/keymanagement"
)

// Algorithm encrypts a CEK with AES-GCM under an "oct" key. The IV and the
// authentication tag travel in the "iv" and "tag" header parameters.
type Algorithm struct {
	name    string
	keySize int
	opts    *keymanagement.Options
}

// New returns the AES-GCM key wrap variant registered under name.
func New(name string, opts ...keymanagement.Option) (*Algorithm, error) {
	var size int
	switch name {
	case keymanagement.A128GCMKW:
		size = 16
	case keymanagement.A192GCMKW:
		size = 24
	case keymanagement.A256GCMKW:
		size = 32
	default:
		return nil, fmt.Errorf("%w: %q", keymanagement.ErrUnsupportedAlgorithm, name)
	}
	return &Algorithm{name: name, keySize: size, opts: keymanagement.NewOptions(opts...)}, nil
}

func (a *Algorithm) Name() string { return a.name }

func (a *Algorithm) Mode() keymanagement.Mode { return keymanagement.ModeWrap }

func (a *Algorithm) KeyTypes() []string { return []string{string(jwk.KeyTypeOct)} }

// WrapKey encrypts cek under a fresh random 96-bit IV and returns the IV
// and tag as base64url "iv" and "tag" parameters.
func (a *Algorithm) WrapKey(key *jwk.JWK, cek []byte, _ keymanagement.Header) ([]byte, keymanagement.Header, error) {
	kek, err := a.checkKey(key)
	if err != nil {
		return nil, nil, err
	}

	iv, err := rand.Bytes(a.opts.Random, wrapping.GCMIVSize)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate IV: %w", err)
	}
	if t := a.opts.NonceTracker; t != nil {
		if err := t.CheckAndRecordNonce(kek, iv); err != nil {
			return nil, nil, fmt.Errorf("failed to generate IV: %w", err)
		}
	}

	ciphertext, tag, err := wrapping.SealAESGCM(kek, iv, cek)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encrypt CEK: %w", err)
	}

	extra := keymanagement.Header{
		keymanagement.HeaderIV:  base64.RawURLEncoding.EncodeToString(iv),
		keymanagement.HeaderTag: base64.RawURLEncoding.EncodeToString(tag),
	}
	return ciphertext, extra, nil
}

// UnwrapKey decrypts encryptedCEK using the "iv" and "tag" parameters.
// A tag mismatch returns ErrDecryptionFailed and no plaintext.
func (a *Algorithm) UnwrapKey(key *jwk.JWK, encryptedCEK []byte, header keymanagement.Header) ([]byte, error) {
	kek, err := a.checkKey(key)
	if err != nil {
		return nil, err
	}

	iv, err := header.RequireBytes(keymanagement.HeaderIV)
	if err != nil {
		return nil, err
	}
	tag, err := header.RequireBytes(keymanagement.HeaderTag)
	if err != nil {
		return nil, err
	}
	if len(iv) != wrapping.GCMIVSize {
		return nil, fmt.Errorf("%w: iv must be %d bytes", keymanagement.ErrInvalidHeader, wrapping.GCMIVSize)
	}
	if len(tag) != wrapping.GCMTagSize {
		return nil, fmt.Errorf("%w: tag must be %d bytes", keymanagement.ErrInvalidHeader, wrapping.GCMTagSize)
	}

	cek, err := wrapping.OpenAESGCM(kek, iv, encryptedCEK, tag)
	if errors.Is(err, wrapping.ErrIntegrity) {
		return nil, keymanagement.ErrDecryptionFailed
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt CEK: %w", err)
	}
	return cek, nil
}

func (a *Algorithm) checkKey(key *jwk.JWK) ([]byte, error) {
	if err := keymanagement.CheckKeyType(a, key); err != nil {
		return nil, err
	}
	return keymanagement.OctetKey(key, a.keySize)
}

var _ keymanagement.KeyWrapper = (*Algorithm)(nil)
