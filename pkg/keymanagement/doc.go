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

// Package keymanagement defines the JOSE key management algorithm suite of
// RFC 7518 Section 4: the capability contracts every algorithm implements,
// the header view algorithms read from, and the error taxonomy they share.
//
// # Modes
//
// Each algorithm declares exactly one Mode:
//
//   - ModeDirect: the key itself is the CEK ("dir")
//   - ModeWrap: the CEK is encrypted for the recipient (AES-KW, AES-GCM-KW,
//     PBES2, RSA key transport and the ECDH-ES+AxxxKW composites)
//   - ModeAgreement: the CEK is derived by key agreement ("ECDH-ES")
//
// # Headers
//
// Algorithms receive the merged protected and unprotected JWE header as a
// read-only Header. Parameters an algorithm produces (iv, tag, p2s, p2c,
// epk) are returned in a separate Header that the caller merges:
//
//	encryptedKey, extra, err := wrapper.WrapKey(key, cek, header)
//	header, err = header.Merge(extra)
//
// # Concurrency
//
// Algorithm values hold only immutable configuration and are safe for
// concurrent use. The only shared resource is the random source configured
// through WithRandom.
//
// The concrete algorithms live in the subpackages direct, aeskw, aesgcmkw,
// pbes2, ecdhes and rsaes. Package registry resolves algorithm names to
// instances.
package keymanagement
