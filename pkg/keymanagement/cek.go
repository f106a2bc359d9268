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

import "fmt"

// Content encryption algorithms (RFC 7518 Section 5.1).
const (
	A128GCM      = "A128GCM"
	A192GCM      = "A192GCM"
	A256GCM      = "A256GCM"
	A128CBCHS256 = "A128CBC-HS256"
	A192CBCHS384 = "A192CBC-HS384"
	A256CBCHS512 = "A256CBC-HS512"
)

var contentEncryptionKeyBits = map[string]int{
	A128GCM:      128,
	A192GCM:      192,
	A256GCM:      256,
	A128CBCHS256: 256,
	A192CBCHS384: 384,
	A256CBCHS512: 512,
}

// ContentEncryptionKeyBits returns the CEK length in bits required by the
// content encryption algorithm enc.
func ContentEncryptionKeyBits(enc string) (int, error) {
	bits, ok := contentEncryptionKeyBits[enc]
	if !ok {
		return 0, fmt.Errorf("%w: unknown content encryption algorithm %q", ErrUnsupportedAlgorithm, enc)
	}
	return bits, nil
}
