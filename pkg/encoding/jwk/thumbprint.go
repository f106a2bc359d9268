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

package jwk

import (
	"crypto"
	_ "crypto/sha1"
	_ "crypto/sha256"
	_ "crypto/sha512"
	"encoding/base64"
	"encoding/json"
	"fmt"

	jose "github.com/go-jose/go-jose/v4"
)

// ThumbprintSHA256 computes the SHA-256 JWK thumbprint as defined in RFC 7638.
func (jwk *JWK) ThumbprintSHA256() (string, error) {
	return jwk.Thumbprint(crypto.SHA256)
}

// Thumbprint computes the RFC 7638 thumbprint of the key using hashFunc and
// returns it base64url encoded. Private members never contribute, so a
// private key and its public projection share a thumbprint.
func (jwk *JWK) Thumbprint(hashFunc crypto.Hash) (string, error) {
	if !hashFunc.Available() {
		return "", fmt.Errorf("unsupported hash function: %v", hashFunc)
	}
	if jwk.IsSymmetric() {
		return jwk.symmetricThumbprint(hashFunc)
	}

	pub := jwk.Public()
	if pub == nil {
		return "", fmt.Errorf("%w: no thumbprint for kty %q", ErrUnsupportedKeyType, jwk.Kty)
	}
	joseKey, err := pub.ToJOSE()
	if err != nil {
		return "", err
	}

	sum, err := joseKey.Thumbprint(hashFunc)
	if err != nil {
		return "", fmt.Errorf("failed to compute thumbprint: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(sum), nil
}

// symmetricThumbprint hashes {"k":...,"kty":"oct"}, the members RFC 7638
// requires for oct keys.
func (jwk *JWK) symmetricThumbprint(hashFunc crypto.Hash) (string, error) {
	if jwk.K == "" {
		return "", fmt.Errorf("%w: symmetric JWK missing k", ErrInvalidKey)
	}
	input, err := json.Marshal(struct {
		K   string `json:"k"`
		Kty string `json:"kty"`
	}{K: jwk.K, Kty: string(KeyTypeOct)})
	if err != nil {
		return "", err
	}
	h := hashFunc.New()
	h.Write(input)
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil)), nil
}

// ToJOSE converts the key to a go-jose JSONWebKey. RSA private keys must
// carry p and q.
func (jwk *JWK) ToJOSE() (*jose.JSONWebKey, error) {
	if jwk.Kty == string(KeyTypeDir) {
		c := *jwk
		c.Kty = string(KeyTypeOct)
		jwk = &c
	}

	data, err := json.Marshal(jwk)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JWK: %w", err)
	}

	var out jose.JSONWebKey
	if err := out.UnmarshalJSON(data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return &out, nil
}

// FromJOSE converts a go-jose JSONWebKey.
func FromJOSE(key *jose.JSONWebKey) (*JWK, error) {
	if key == nil {
		return nil, fmt.Errorf("%w: key cannot be nil", ErrInvalidKey)
	}
	data, err := key.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return Unmarshal(data)
}
