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

// Package concatkdf implements the single-step key derivation function of
// NIST SP 800-56A §5.8.1 with the JWA parameter layout (RFC 7518 §4.6.2):
//
//	round(i) = SHA-256( uint32(i) || Z || len(alg)||alg || len(apu)||apu ||
//	                    len(apv)||apv || uint32(keyBitLength) )
//
// Rounds start at 1 and are concatenated until keyBitLength bits are
// available. Outputs of 256 bits or less come from the first round alone.
// The round function is go-jose's ConcatKDF reader; this package fixes the
// hash, validates the inputs and lays out OtherInfo.
package concatkdf

import (
	"crypto"
	_ "crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	josecipher "github.com/go-jose/go-jose/v4/cipher"
)

// MaxKeyBitLength is the largest output supported.
const MaxKeyBitLength = (1 << 16) * 8

var (
	// ErrInvalidLength is returned for key lengths that are not a positive
	// multiple of eight bits or exceed MaxKeyBitLength.
	ErrInvalidLength = errors.New("concatkdf: invalid key length")

	// ErrEmptySecret is returned when Z is empty.
	ErrEmptySecret = errors.New("concatkdf: shared secret is empty")
)

// Generate derives keyBitLength/8 bytes from the shared secret z.
func Generate(z []byte, algorithmID string, keyBitLength int, apu, apv []byte) ([]byte, error) {
	if len(z) == 0 {
		return nil, ErrEmptySecret
	}
	if keyBitLength <= 0 || keyBitLength%8 != 0 || keyBitLength > MaxKeyBitLength {
		return nil, fmt.Errorf("%w: %d bits", ErrInvalidLength, keyBitLength)
	}

	reader := josecipher.NewConcatKDF(crypto.SHA256, z,
		lengthPrefixed([]byte(algorithmID)),
		lengthPrefixed(apu),
		lengthPrefixed(apv),
		suppPubInfo(keyBitLength),
		nil)

	out := make([]byte, keyBitLength/8)
	if _, err := io.ReadFull(reader, out); err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}
	return out, nil
}

// OtherInfo returns the fixed input that follows Z in every round.
func OtherInfo(algorithmID string, keyBitLength int, apu, apv []byte) []byte {
	out := make([]byte, 0, 16+len(algorithmID)+len(apu)+len(apv))
	out = append(out, lengthPrefixed([]byte(algorithmID))...)
	out = append(out, lengthPrefixed(apu)...)
	out = append(out, lengthPrefixed(apv)...)
	return append(out, suppPubInfo(keyBitLength)...)
}

func lengthPrefixed(data []byte) []byte {
	out := make([]byte, 4, 4+len(data))
	binary.BigEndian.PutUint32(out, uint32(len(data)))
	return append(out, data...)
}

func suppPubInfo(keyBitLength int) []byte {
	return binary.BigEndian.AppendUint32(nil, uint32(keyBitLength))
}
