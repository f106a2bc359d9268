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
	"encoding/binary"
	"hash"
)

// MGF1 returns length bytes of the RFC 8017 B.2.1 mask generated from seed.
func MGF1(h hash.Hash, seed []byte, length int) []byte {
	out := make([]byte, 0, length+h.Size())
	var counter [4]byte

	for i := uint32(0); len(out) < length; i++ {
		binary.BigEndian.PutUint32(counter[:], i)
		h.Reset()
		h.Write(seed)
		h.Write(counter[:])
		out = h.Sum(out)
	}

	return out[:length]
}

// xorMGF1 XORs the mask generated from seed into out.
func xorMGF1(h hash.Hash, out, seed []byte) {
	mask := MGF1(h, seed, len(out))
	for i := range out {
		out[i] ^= mask[i]
	}
}
