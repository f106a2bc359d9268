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

// Package wrapping exposes the two symmetric primitives the key management
// algorithms build on: AES Key Wrap (RFC 3394) and AES-GCM with an empty
// additional authenticated data input.
package wrapping

import (
	"crypto/aes"
	"crypto/cipher"
	"errors"
	"fmt"

	josecipher "github.com/go-jose/go-jose/v4/cipher"
)

const (
	// GCMIVSize is the IV length used for AES-GCM key wrapping (96 bits).
	GCMIVSize = 12

	// GCMTagSize is the authentication tag length (128 bits).
	GCMTagSize = 16
)

var (
	// ErrInvalidKEK is returned when the key-encryption key is not 16, 24
	// or 32 bytes.
	ErrInvalidKEK = errors.New("wrapping: key-encryption key must be 16, 24, or 32 bytes")

	// ErrInvalidInput is returned for malformed plaintext or ciphertext
	// lengths.
	ErrInvalidInput = errors.New("wrapping: invalid input length")

	// ErrIntegrity is returned when an integrity check fails during unwrap
	// or authenticated decryption.
	ErrIntegrity = errors.New("wrapping: integrity check failed")
)

// WrapAESKW wraps cek under kek using the RFC 3394 AES Key Wrap algorithm
// with the default initial value A6A6A6A6A6A6A6A6.
//
// Parameters:
//   - kek: The AES key-encryption key (16, 24 or 32 bytes)
//   - cek: The key to wrap (a multiple of 8 bytes, at least 16)
//
// Returns:
//   - The wrapped key, 8 bytes longer than cek
//   - An error if the parameters are invalid
func WrapAESKW(kek, cek []byte) ([]byte, error) {
	block, err := newBlock(kek)
	if err != nil {
		return nil, err
	}
	if len(cek) < 16 || len(cek)%8 != 0 {
		return nil, fmt.Errorf("%w: key to wrap must be a multiple of 8 bytes and at least 16 bytes, got %d",
			ErrInvalidInput, len(cek))
	}

	wrapped, err := josecipher.KeyWrap(block, cek)
	if err != nil {
		return nil, fmt.Errorf("failed to wrap key: %w", err)
	}
	return wrapped, nil
}

// UnwrapAESKW reverses WrapAESKW. An integrity failure returns ErrIntegrity.
func UnwrapAESKW(kek, wrapped []byte) ([]byte, error) {
	block, err := newBlock(kek)
	if err != nil {
		return nil, err
	}
	if len(wrapped) < 24 || len(wrapped)%8 != 0 {
		return nil, fmt.Errorf("%w: wrapped key must be a multiple of 8 bytes and at least 24 bytes, got %d",
			ErrInvalidInput, len(wrapped))
	}

	cek, err := josecipher.KeyUnwrap(block, wrapped)
	if err != nil {
		return nil, ErrIntegrity
	}
	return cek, nil
}

// SealAESGCM encrypts plaintext under kek with the given 96-bit IV and an
// empty AAD. The ciphertext and the 128-bit tag are returned separately.
func SealAESGCM(kek, iv, plaintext []byte) (ciphertext, tag []byte, err error) {
	aead, err := newGCM(kek)
	if err != nil {
		return nil, nil, err
	}
	if len(iv) != GCMIVSize {
		return nil, nil, fmt.Errorf("%w: IV must be %d bytes, got %d", ErrInvalidInput, GCMIVSize, len(iv))
	}

	sealed := aead.Seal(nil, iv, plaintext, nil)
	split := len(sealed) - GCMTagSize
	return sealed[:split], sealed[split:], nil
}

// OpenAESGCM decrypts ciphertext produced by SealAESGCM. Any tag mismatch
// returns ErrIntegrity and no partial plaintext.
func OpenAESGCM(kek, iv, ciphertext, tag []byte) ([]byte, error) {
	aead, err := newGCM(kek)
	if err != nil {
		return nil, err
	}
	if len(iv) != GCMIVSize {
		return nil, fmt.Errorf("%w: IV must be %d bytes, got %d", ErrInvalidInput, GCMIVSize, len(iv))
	}
	if len(tag) != GCMTagSize {
		return nil, fmt.Errorf("%w: tag must be %d bytes, got %d", ErrInvalidInput, GCMTagSize, len(tag))
	}

	sealed := make([]byte, 0, len(ciphertext)+len(tag))
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plaintext, err := aead.Open(nil, iv, sealed, nil)
	if err != nil {
		return nil, ErrIntegrity
	}
	return plaintext, nil
}

func newBlock(kek []byte) (cipher.Block, error) {
	switch len(kek) {
	case 16, 24, 32:
	default:
		return nil, fmt.Errorf("%w: got %d", ErrInvalidKEK, len(kek))
	}
	block, err := aes.NewCipher(kek)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}
	return block, nil
}

func newGCM(kek []byte) (cipher.AEAD, error) {
	block, err := newBlock(kek)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return aead, nil
}
