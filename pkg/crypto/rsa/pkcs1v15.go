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

package rsa

import (
	"crypto/subtle"
	"fmt"
	"io"

	"github.com/jeremyhahn/go-josekm/pkg/crypto/rand"
)

// PKCS1v15BlockSize returns the largest message that fits in one PKCS#1 v1.5
// block: k − 11.
func PKCS1v15BlockSize(k *Key) int {
	return k.size - 11
}

// EncryptPKCS1v15 encrypts msg with RSAES-PKCS1-v1_5. Long messages are
// chunked the same way as EncryptOAEP.
func EncryptPKCS1v15(random io.Reader, k *Key, msg []byte) ([]byte, error) {
	blockSize := PKCS1v15BlockSize(k)
	if blockSize <= 0 {
		return nil, ErrMessageTooLong
	}

	random = rand.ReaderOrDefault(random)
	out := make([]byte, 0, k.size)
	for _, m := range chunks(msg, blockSize) {
		em, err := encodePKCS1v15(random, k.size, m)
		if err != nil {
			return nil, err
		}
		c, err := encryptBlock(k, em)
		if err != nil {
			return nil, err
		}
		out = append(out, c...)
	}
	return out, nil
}

// DecryptPKCS1v15 reverses EncryptPKCS1v15. Any failure is reported as
// ErrDecryption.
func DecryptPKCS1v15(k *Key, ct []byte) ([]byte, error) {
	if !k.IsPrivate() {
		return nil, fmt.Errorf("%w: private key required", ErrInvalidKey)
	}
	if k.size < 11 {
		return nil, ErrDecryption
	}

	blocks, err := ciphertextBlocks(k, ct)
	if err != nil {
		return nil, err
	}

	var out []byte
	for _, block := range blocks {
		em, err := decryptBlock(k, block)
		if err != nil {
			return nil, ErrDecryption
		}
		m, err := decodePKCS1v15(em)
		if err != nil {
			return nil, err
		}
		out = append(out, m...)
	}
	return out, nil
}

// encodePKCS1v15 builds EM = 0x00 || 0x02 || PS || 0x00 || M with a nonzero
// random PS of at least eight bytes.
func encodePKCS1v15(random io.Reader, k int, msg []byte) ([]byte, error) {
	if len(msg) > k-11 {
		return nil, ErrMessageTooLong
	}

	em := make([]byte, k)
	em[1] = 2
	ps := em[2 : k-len(msg)-1]
	if err := nonZeroRandomBytes(random, ps); err != nil {
		return nil, err
	}
	em[k-len(msg)-1] = 0
	copy(em[k-len(msg):], msg)
	return em, nil
}

func nonZeroRandomBytes(random io.Reader, s []byte) error {
	if _, err := io.ReadFull(random, s); err != nil {
		return fmt.Errorf("failed to generate padding: %w", err)
	}
	var b [1]byte
	for i := range s {
		for s[i] == 0 {
			if _, err := io.ReadFull(random, b[:]); err != nil {
				return fmt.Errorf("failed to generate padding: %w", err)
			}
			s[i] = b[0]
		}
	}
	return nil
}

// decodePKCS1v15 recovers M from EM in constant time with respect to the
// padding contents.
func decodePKCS1v15(em []byte) ([]byte, error) {
	firstByteIsZero := subtle.ConstantTimeByteEq(em[0], 0)
	secondByteIsTwo := subtle.ConstantTimeByteEq(em[1], 2)

	lookingForIndex := 1
	index := 0
	for i := 2; i < len(em); i++ {
		equals0 := subtle.ConstantTimeByteEq(em[i], 0)
		index = subtle.ConstantTimeSelect(lookingForIndex&equals0, i, index)
		lookingForIndex = subtle.ConstantTimeSelect(equals0, 0, lookingForIndex)
	}

	// PS must be at least eight bytes, so the separator sits at index 10 or later.
	validPS := subtle.ConstantTimeLessOrEq(2+8, index)

	if firstByteIsZero&secondByteIsTwo&^lookingForIndex&validPS != 1 {
		return nil, ErrDecryption
	}
	return em[index+1:], nil
}
