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
	"crypto"
	_ "crypto/sha1" // registers crypto.SHA1 for RSA-OAEP
	_ "crypto/sha256"
	_ "crypto/sha512"
	"crypto/subtle"
	"fmt"
	"io"

	"github.com/jeremyhahn/go-josekm/pkg/crypto/rand"
)

// OAEPBlockSize returns the largest message that fits in one OAEP block for
// the given key and hash: k − 2·hLen − 2.
func OAEPBlockSize(k *Key, hash crypto.Hash) int {
	return k.size - 2*hash.Size() - 2
}

// EncryptOAEP encrypts msg with RSAES-OAEP and an empty label. Messages
// longer than OAEPBlockSize are split into blocks that are encrypted
// independently and concatenated; a message that fits in one block produces
// standard RFC 8017 output.
func EncryptOAEP(random io.Reader, hash crypto.Hash, k *Key, msg []byte) ([]byte, error) {
	if !hash.Available() {
		return nil, fmt.Errorf("unsupported OAEP hash: %v", hash)
	}
	blockSize := OAEPBlockSize(k, hash)
	if blockSize <= 0 {
		return nil, ErrMessageTooLong
	}

	random = rand.ReaderOrDefault(random)
	out := make([]byte, 0, k.size)
	for _, m := range chunks(msg, blockSize) {
		em, err := encodeOAEP(random, hash, k.size, m)
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

// DecryptOAEP reverses EncryptOAEP. Any failure is reported as ErrDecryption
// without indicating which check failed.
func DecryptOAEP(hash crypto.Hash, k *Key, ct []byte) ([]byte, error) {
	if !hash.Available() {
		return nil, fmt.Errorf("unsupported OAEP hash: %v", hash)
	}
	if !k.IsPrivate() {
		return nil, fmt.Errorf("%w: private key required", ErrInvalidKey)
	}
	if k.size < 2*hash.Size()+2 {
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
		m, err := decodeOAEP(hash, em)
		if err != nil {
			return nil, err
		}
		out = append(out, m...)
	}
	return out, nil
}

// encodeOAEP builds EM = 0x00 || maskedSeed || maskedDB where
// DB = lHash || PS || 0x01 || M.
func encodeOAEP(random io.Reader, hash crypto.Hash, k int, msg []byte) ([]byte, error) {
	h := hash.New()
	hLen := h.Size()
	if len(msg) > k-2*hLen-2 {
		return nil, ErrMessageTooLong
	}

	h.Write(nil)
	lHash := h.Sum(nil)

	em := make([]byte, k)
	seed := em[1 : 1+hLen]
	db := em[1+hLen:]

	copy(db[:hLen], lHash)
	db[len(db)-len(msg)-1] = 0x01
	copy(db[len(db)-len(msg):], msg)

	if _, err := io.ReadFull(random, seed); err != nil {
		return nil, fmt.Errorf("failed to generate OAEP seed: %w", err)
	}

	xorMGF1(h, db, seed)
	xorMGF1(h, seed, db)

	return em, nil
}

// decodeOAEP recovers M from EM. The leading byte, lHash and the 0x01
// separator are checked without data-dependent branches.
func decodeOAEP(hash crypto.Hash, em []byte) ([]byte, error) {
	h := hash.New()
	hLen := h.Size()

	h.Write(nil)
	lHash := h.Sum(nil)

	firstByteIsZero := subtle.ConstantTimeByteEq(em[0], 0)

	seed := make([]byte, hLen)
	copy(seed, em[1:1+hLen])
	db := make([]byte, len(em)-1-hLen)
	copy(db, em[1+hLen:])

	xorMGF1(h, seed, db)
	xorMGF1(h, db, seed)

	lHashGood := subtle.ConstantTimeCompare(lHash, db[:hLen])

	// The remainder of DB must be zero or more 0x00 bytes followed by 0x01.
	rest := db[hLen:]
	lookingForIndex := 1
	index := 0
	invalid := 0
	for i, b := range rest {
		equals0 := subtle.ConstantTimeByteEq(b, 0)
		equals1 := subtle.ConstantTimeByteEq(b, 1)
		index = subtle.ConstantTimeSelect(lookingForIndex&equals1, i, index)
		lookingForIndex = subtle.ConstantTimeSelect(equals1, 0, lookingForIndex)
		invalid = subtle.ConstantTimeSelect(lookingForIndex&^equals0, 1, invalid)
	}

	if firstByteIsZero&lHashGood&^invalid&^lookingForIndex != 1 {
		return nil, ErrDecryption
	}

	return rest[index+1:], nil
}
