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

import (
	"fmt"

	"github.com/jeremyhahn/go-josekm/pkg/encoding/jwk"
)

// Mode identifies how an algorithm determines the CEK.
type Mode int

const (
	// ModeDirect uses the shared symmetric key as the CEK.
	ModeDirect Mode = iota + 1

	// ModeWrap encrypts a caller-supplied CEK for the recipient.
	ModeWrap

	// ModeAgreement derives the CEK by key agreement.
	ModeAgreement
)

func (m Mode) String() string {
	switch m {
	case ModeDirect:
		return "direct"
	case ModeWrap:
		return "wrap"
	case ModeAgreement:
		return "agreement"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Registered "alg" values (RFC 7518 Section 4.1).
const (
	Dir = "dir"

	A128KW = "A128KW"
	A192KW = "A192KW"
	A256KW = "A256KW"

	A128GCMKW = "A128GCMKW"
	A192GCMKW = "A192GCMKW"
	A256GCMKW = "A256GCMKW"

	PBES2HS256A128KW = "PBES2-HS256+A128KW"
	PBES2HS384A192KW = "PBES2-HS384+A192KW"
	PBES2HS512A256KW = "PBES2-HS512+A256KW"

	ECDHES       = "ECDH-ES"
	ECDHESA128KW = "ECDH-ES+A128KW"
	ECDHESA192KW = "ECDH-ES+A192KW"
	ECDHESA256KW = "ECDH-ES+A256KW"

	RSA15      = "RSA1_5"
	RSAOAEP    = "RSA-OAEP"
	RSAOAEP256 = "RSA-OAEP-256"
	RSAOAEP384 = "RSA-OAEP-384"
	RSAOAEP512 = "RSA-OAEP-512"
)

// Algorithm is implemented by every key management algorithm.
type Algorithm interface {
	// Name returns the registered "alg" value.
	Name() string

	// Mode returns the algorithm's key management mode.
	Mode() Mode

	// KeyTypes returns the "kty" values the algorithm accepts.
	KeyTypes() []string
}

// DirectKeySupplier is implemented by ModeDirect algorithms.
type DirectKeySupplier interface {
	Algorithm

	// CEK returns the content encryption key held by key.
	CEK(key *jwk.JWK) ([]byte, error)
}

// KeyWrapper is implemented by ModeWrap algorithms.
type KeyWrapper interface {
	Algorithm

	// WrapKey encrypts cek for the holder of key. Header parameters the
	// recipient needs are returned in a new Header; header is not modified.
	WrapKey(key *jwk.JWK, cek []byte, header Header) ([]byte, Header, error)

	// UnwrapKey recovers the CEK from encryptedCEK.
	UnwrapKey(key *jwk.JWK, encryptedCEK []byte, header Header) ([]byte, error)
}

// KeyAgreement is implemented by ModeAgreement algorithms.
type KeyAgreement interface {
	Algorithm

	// DeriveKey derives a key of length bits using local's private key.
	// When peer is non-nil the local public key is returned as "epk";
	// otherwise the peer key is read from the "epk" header parameter.
	DeriveKey(length int, algorithmID string, local, peer *jwk.JWK, header Header) ([]byte, Header, error)
}

// KeyAgreementWrapper is implemented by agreement algorithms that wrap the
// CEK with the agreed key.
type KeyAgreementWrapper interface {
	Algorithm

	// WrapAgreementKey generates an ephemeral key on peer's curve, derives a
	// key-encryption key of length bits and wraps cek with it. The
	// ephemeral public key is returned as "epk".
	WrapAgreementKey(peer *jwk.JWK, cek []byte, length int, header Header) ([]byte, Header, error)

	// UnwrapAgreementKey reverses WrapAgreementKey using the "epk" header.
	UnwrapAgreementKey(recipient *jwk.JWK, encryptedCEK []byte, length int, header Header) ([]byte, error)
}
