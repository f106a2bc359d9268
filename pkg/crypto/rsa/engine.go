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
	"fmt"

	"github.com/jeremyhahn/go-josekm/pkg/bigint"
)

// EncryptPrimitive computes m^e mod n (RSAEP).
func EncryptPrimitive(k *Key, m *bigint.Int) (*bigint.Int, error) {
	if err := checkRange(k, m); err != nil {
		return nil, err
	}
	return m.ModPow(k.e, k.n)
}

// DecryptPrimitive computes c^d mod n (RSADP). Keys with CRT values use
// Garner's recombination:
//
//	m1 = c^dP mod p
//	m2 = c^dQ mod q
//	h  = qInv·(m1 − m2 + p) mod p
//	m  = m2 + h·q
func DecryptPrimitive(k *Key, c *bigint.Int) (*bigint.Int, error) {
	if k.d == nil {
		return nil, fmt.Errorf("%w: private exponent required", ErrInvalidKey)
	}
	if err := checkRange(k, c); err != nil {
		return nil, err
	}
	if k.crt == nil {
		return c.ModPow(k.d, k.n)
	}

	crt := k.crt
	m1, err := c.ModPow(crt.DP, crt.P)
	if err != nil {
		return nil, err
	}
	m2, err := c.ModPow(crt.DQ, crt.Q)
	if err != nil {
		return nil, err
	}
	h, err := crt.QI.Mul(m1.Sub(m2).Add(crt.P)).Mod(crt.P)
	if err != nil {
		return nil, err
	}
	return m2.Add(h.Mul(crt.Q)), nil
}

func checkRange(k *Key, x *bigint.Int) error {
	if x.Sign() < 0 || x.Cmp(k.n) >= 0 {
		return ErrMessageOutOfRange
	}
	return nil
}

// encryptBlock applies RSAEP to a k-byte encoded message.
func encryptBlock(k *Key, em []byte) ([]byte, error) {
	c, err := EncryptPrimitive(k, bigint.FromBytes(em))
	if err != nil {
		return nil, err
	}
	return c.FillBytes(k.size)
}

// decryptBlock applies RSADP to a k-byte ciphertext block.
func decryptBlock(k *Key, block []byte) ([]byte, error) {
	if len(block) != k.size {
		return nil, ErrDecryption
	}
	m, err := DecryptPrimitive(k, bigint.FromBytes(block))
	if err != nil {
		return nil, err
	}
	return m.FillBytes(k.size)
}

// chunks splits msg into blocks of at most size bytes. An empty message
// yields a single empty block.
func chunks(msg []byte, size int) [][]byte {
	if len(msg) == 0 {
		return [][]byte{{}}
	}
	out := make([][]byte, 0, (len(msg)+size-1)/size)
	for len(msg) > 0 {
		n := size
		if len(msg) < n {
			n = len(msg)
		}
		out = append(out, msg[:n])
		msg = msg[n:]
	}
	return out
}

// ciphertextBlocks splits ct into modulus-sized blocks.
func ciphertextBlocks(k *Key, ct []byte) ([][]byte, error) {
	if len(ct) == 0 || len(ct)%k.size != 0 {
		return nil, ErrDecryption
	}
	out := make([][]byte, 0, len(ct)/k.size)
	for i := 0; i < len(ct); i += k.size {
		out = append(out, ct[i:i+k.size])
	}
	return out, nil
}
