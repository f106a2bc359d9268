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

// Package pbes2 implements password-based key wrapping with PBKDF2 and
// AES Key Wrap (PBES2-HS256+A128KW, PBES2-HS384+A192KW and
// PBES2-HS512+A256KW, RFC 7518 section 4.8).
//
// The password is the "k" member of an "oct" JWK. The PBKDF2 salt is
// alg || 0x00 || p2s, which binds the derived key to the algorithm name.
package pbes2

import (
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"fmt"
	"hash"

	"golang.org/x/crypto/pbkdf2"

	"github.com/jeremyhahn/go-josekm/pkg/crypto/rand"
	"github.com/jeremyhahn/go-josekm/pkg/encoding/jwk"
	"github.com/jeremyhahn/go-josekm/pkg/keymanagement"
	"github.com/jeremyhahn/go-josekm/pkg/keymanagement/aeskw"
)

// Algorithm derives an AES-KW key from a password and wraps the CEK with it.
type Algorithm struct {
	name       string
	hash       func() hash.Hash
	keySize    int
	saltSize   int
	iterations int
	opts       *keymanagement.Options
}

// New returns the PBES2 variant registered under name. The salt size and
// iteration count used for wrapping come from the options and must meet
// the RFC 7518 minimums.
func New(name string, opts ...keymanagement.Option) (*Algorithm, error) {
	h, size, err := params(name)
	if err != nil {
		return nil, err
	}

	o := keymanagement.NewOptions(opts...)
	if o.PBES2SaltSize < keymanagement.MinPBES2SaltSize {
		return nil, fmt.Errorf("pbes2: salt size must be at least %d bytes, got %d",
			keymanagement.MinPBES2SaltSize, o.PBES2SaltSize)
	}
	if o.PBES2Iterations < keymanagement.MinPBES2Iterations || o.PBES2Iterations > keymanagement.MaxPBES2Iterations {
		return nil, fmt.Errorf("pbes2: iteration count must be between %d and %d, got %d",
			keymanagement.MinPBES2Iterations, keymanagement.MaxPBES2Iterations, o.PBES2Iterations)
	}

	return &Algorithm{
		name:       name,
		hash:       h,
		keySize:    size,
		saltSize:   o.PBES2SaltSize,
		iterations: o.PBES2Iterations,
		opts:       o,
	}, nil
}

func params(name string) (func() hash.Hash, int, error) {
	switch name {
	case keymanagement.PBES2HS256A128KW:
		return sha256.New, 16, nil
	case keymanagement.PBES2HS384A192KW:
		return sha512.New384, 24, nil
	case keymanagement.PBES2HS512A256KW:
		return sha512.New, 32, nil
	default:
		return nil, 0, fmt.Errorf("%w: %q", keymanagement.ErrUnsupportedAlgorithm, name)
	}
}

func (a *Algorithm) Name() string { return a.name }

func (a *Algorithm) Mode() keymanagement.Mode { return keymanagement.ModeWrap }

func (a *Algorithm) KeyTypes() []string { return []string{string(jwk.KeyTypeOct)} }

// SaltSize returns the salt length in bytes used when wrapping.
func (a *Algorithm) SaltSize() int { return a.saltSize }

// Iterations returns the PBKDF2 iteration count used when wrapping.
func (a *Algorithm) Iterations() int { return a.iterations }

// WrapKey derives a wrapping key from the password with a fresh salt and
// wraps cek. The header must carry "alg". The salt and iteration count are
// returned as "p2s" and "p2c".
func (a *Algorithm) WrapKey(key *jwk.JWK, cek []byte, header keymanagement.Header) ([]byte, keymanagement.Header, error) {
	password, err := a.password(key)
	if err != nil {
		return nil, nil, err
	}
	alg, err := header.RequireString(keymanagement.HeaderAlg)
	if err != nil {
		return nil, nil, err
	}

	p2s, err := rand.Bytes(a.opts.Random, a.saltSize)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	kek := a.deriveKey(password, alg, p2s, a.iterations)
	wrapped, err := aeskw.Wrap(kek, cek)
	if err != nil {
		return nil, nil, err
	}

	extra := keymanagement.Header{
		keymanagement.HeaderP2S: base64.RawURLEncoding.EncodeToString(p2s),
		keymanagement.HeaderP2C: a.iterations,
	}
	return wrapped, extra, nil
}

// UnwrapKey re-derives the wrapping key from "alg", "p2s" and "p2c" and
// unwraps encryptedCEK.
func (a *Algorithm) UnwrapKey(key *jwk.JWK, encryptedCEK []byte, header keymanagement.Header) ([]byte, error) {
	password, err := a.password(key)
	if err != nil {
		return nil, err
	}
	alg, p2s, p2c, err := saltParams(header)
	if err != nil {
		return nil, err
	}

	kek := a.deriveKey(password, alg, p2s, p2c)
	return aeskw.Unwrap(kek, encryptedCEK)
}

// DeriveWrappingKey returns the AES-KW key derived from password for the
// given "alg", "p2s" and "p2c" values. The result is deterministic.
func (a *Algorithm) DeriveWrappingKey(password []byte, alg string, p2s []byte, p2c int) ([]byte, error) {
	if alg == "" {
		return nil, fmt.Errorf("%w: missing %q", keymanagement.ErrInvalidHeader, keymanagement.HeaderAlg)
	}
	if err := checkSalt(p2s, p2c); err != nil {
		return nil, err
	}
	return a.deriveKey(password, alg, p2s, p2c), nil
}

func (a *Algorithm) deriveKey(password []byte, alg string, p2s []byte, p2c int) []byte {
	return pbkdf2.Key(password, SaltInput(alg, p2s), p2c, a.keySize, a.hash)
}

func (a *Algorithm) password(key *jwk.JWK) ([]byte, error) {
	if err := keymanagement.CheckKeyType(a, key); err != nil {
		return nil, err
	}
	password, err := key.ToSymmetricKey()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", keymanagement.ErrInvalidKey, err)
	}
	return password, nil
}

// SaltInput returns the PBKDF2 salt alg || 0x00 || p2s.
func SaltInput(alg string, p2s []byte) []byte {
	salt := make([]byte, 0, len(alg)+1+len(p2s))
	salt = append(salt, alg...)
	salt = append(salt, 0x00)
	salt = append(salt, p2s...)
	return salt
}

func saltParams(header keymanagement.Header) (string, []byte, int, error) {
	alg, err := header.RequireString(keymanagement.HeaderAlg)
	if err != nil {
		return "", nil, 0, err
	}
	p2s, err := header.RequireBytes(keymanagement.HeaderP2S)
	if err != nil {
		return "", nil, 0, err
	}
	p2c, err := header.RequireInt(keymanagement.HeaderP2C)
	if err != nil {
		return "", nil, 0, err
	}
	if err := checkSalt(p2s, p2c); err != nil {
		return "", nil, 0, err
	}
	return alg, p2s, p2c, nil
}

func checkSalt(p2s []byte, p2c int) error {
	if len(p2s) < keymanagement.MinPBES2SaltSize {
		return fmt.Errorf("%w: %q must be at least %d bytes",
			keymanagement.ErrInvalidHeader, keymanagement.HeaderP2S, keymanagement.MinPBES2SaltSize)
	}
	if p2c < 1 || p2c > keymanagement.MaxPBES2Iterations {
		return fmt.Errorf("%w: %q must be between 1 and %d",
			keymanagement.ErrInvalidHeader, keymanagement.HeaderP2C, keymanagement.MaxPBES2Iterations)
	}
	return nil
}

var _ keymanagement.KeyWrapper = (*Algorithm)(nil)
