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

// Package ecdhes implements Elliptic Curve Diffie-Hellman Ephemeral Static
// key agreement (RFC 7518 section 4.6) over P-256, P-384 and P-521.
//
// "ECDH-ES" derives the CEK directly, with the "enc" value as the ConcatKDF
// AlgorithmID. The composites "ECDH-ES+A128KW", "ECDH-ES+A192KW" and
// "ECDH-ES+A256KW" derive a key-encryption key, with their own name as
// AlgorithmID, and wrap a caller-supplied CEK with AES Key Wrap.
package ecdhes

import (
	"errors"
	"fmt"

	"github.com/jeremyhahn/go-josekm/pkg/crypto/concatkdf"
	"github.com/jeremyhahn/go-josekm/pkg/crypto/ecdh"
	"github.com/jeremyhahn/go-josekm/pkg/encoding/jwk"
	"github.com/jeremyhahn/go-josekm/pkg/keymanagement"
)

// Agreement is the "ECDH-ES" key agreement algorithm.
type Agreement struct {
	opts *keymanagement.Options
}

// NewAgreement returns the ECDH-ES algorithm. The random source in opts is
// used for ephemeral key generation.
func NewAgreement(opts ...keymanagement.Option) *Agreement {
	return &Agreement{opts: keymanagement.NewOptions(opts...)}
}

func (a *Agreement) Name() string { return keymanagement.ECDHES }

func (a *Agreement) Mode() keymanagement.Mode { return keymanagement.ModeAgreement }

func (a *Agreement) KeyTypes() []string { return []string{string(jwk.KeyTypeEC)} }

// DeriveKey computes Z between local's private key and the peer public key
// and derives length bits with ConcatKDF.
//
// With a non-nil peer the caller is the sender: local is its ephemeral key
// and the public part of local is returned as "epk". With a nil peer the
// caller is the recipient and the peer key is read from the "epk" header.
// "apu" and "apv" are read from header when present.
func (a *Agreement) DeriveKey(length int, algorithmID string, local, peer *jwk.JWK, header keymanagement.Header) ([]byte, keymanagement.Header, error) {
	if err := keymanagement.CheckKeyType(a, local); err != nil {
		return nil, nil, err
	}
	if local.D == "" {
		return nil, nil, fmt.Errorf("%w: local key must be an EC private key", keymanagement.ErrInvalidKey)
	}
	priv, err := local.ECDSAPrivateKey()
	if err != nil {
		return nil, nil, keyError(keymanagement.ErrInvalidKey, err)
	}

	extra := keymanagement.Header{}
	var peerKey *jwk.JWK
	if peer != nil {
		if err := keymanagement.CheckKeyType(a, peer); err != nil {
			return nil, nil, err
		}
		if peer.D != "" {
			return nil, nil, fmt.Errorf("%w: peer key must be public", keymanagement.ErrInvalidKey)
		}
		peerKey = peer
		extra[keymanagement.HeaderEPK] = ephemeralPublicKey(local).ToMap()
	} else {
		epk, err := header.JWK(keymanagement.HeaderEPK)
		if err != nil {
			return nil, nil, err
		}
		if epk == nil {
			return nil, nil, fmt.Errorf("%w: missing %q", keymanagement.ErrInvalidHeader, keymanagement.HeaderEPK)
		}
		if epk.Kty != string(jwk.KeyTypeEC) {
			return nil, nil, fmt.Errorf("%w: %q must be an EC key", keymanagement.ErrInvalidHeader, keymanagement.HeaderEPK)
		}
		peerKey = ephemeralPublicKey(epk)
	}

	if peerKey.Crv != local.Crv {
		return nil, nil, fmt.Errorf("%w: local key uses %s, peer key uses %s",
			keymanagement.ErrCurveMismatch, local.Crv, peerKey.Crv)
	}

	pub, err := peerKey.ECDSAPublicKey()
	if err != nil {
		if peer == nil {
			return nil, nil, keyError(keymanagement.ErrInvalidHeader, err)
		}
		return nil, nil, keyError(keymanagement.ErrInvalidKey, err)
	}

	z, err := ecdh.DeriveSharedSecret(priv, pub)
	if err != nil {
		return nil, nil, fmt.Errorf("key agreement failed: %w", err)
	}

	apu, err := header.Bytes(keymanagement.HeaderAPU)
	if err != nil {
		return nil, nil, err
	}
	apv, err := header.Bytes(keymanagement.HeaderAPV)
	if err != nil {
		return nil, nil, err
	}

	derived, err := concatkdf.Generate(z, algorithmID, length, apu, apv)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", keymanagement.ErrInvalidKey, err)
	}
	return derived, extra, nil
}

// AgreementKey derives the CEK on the recipient side. The length and
// AlgorithmID come from the header's "enc" value.
func (a *Agreement) AgreementKey(recipient *jwk.JWK, header keymanagement.Header) ([]byte, error) {
	enc, bits, err := contentEncryption(header)
	if err != nil {
		return nil, err
	}
	cek, _, err := a.DeriveKey(bits, enc, recipient, nil, header)
	return cek, err
}

// EphemeralAgreementKey derives the CEK on the sender side. An ephemeral
// key is generated on the recipient's curve and returned as "epk".
func (a *Agreement) EphemeralAgreementKey(recipient *jwk.JWK, header keymanagement.Header) ([]byte, keymanagement.Header, error) {
	enc, bits, err := contentEncryption(header)
	if err != nil {
		return nil, nil, err
	}
	if err := keymanagement.CheckKeyType(a, recipient); err != nil {
		return nil, nil, err
	}
	ephemeral, err := a.GenerateEphemeralKey(recipient.Crv)
	if err != nil {
		return nil, nil, err
	}
	return a.DeriveKey(bits, enc, ephemeral, recipient.Public(), header)
}

// GenerateEphemeralKey returns a fresh EC private JWK on the named curve.
func (a *Agreement) GenerateEphemeralKey(crv string) (*jwk.JWK, error) {
	curve, err := ecdh.CurveByName(crv)
	if err != nil {
		return nil, err
	}
	priv, err := ecdh.GenerateKey(curve, a.opts.Random)
	if err != nil {
		return nil, err
	}
	return jwk.FromPrivateKey(priv)
}

func contentEncryption(header keymanagement.Header) (string, int, error) {
	enc, err := header.RequireString(keymanagement.HeaderEnc)
	if err != nil {
		return "", 0, err
	}
	bits, err := keymanagement.ContentEncryptionKeyBits(enc)
	if err != nil {
		return "", 0, err
	}
	return enc, bits, nil
}

// ephemeralPublicKey projects key to the members published in "epk".
func ephemeralPublicKey(key *jwk.JWK) *jwk.JWK {
	return &jwk.JWK{
		Kty: string(jwk.KeyTypeEC),
		Crv: key.Crv,
		X:   key.X,
		Y:   key.Y,
	}
}

// keyError keeps ErrUnsupportedCurve and reports anything else as kind.
func keyError(kind, err error) error {
	if errors.Is(err, keymanagement.ErrUnsupportedCurve) {
		return err
	}
	return fmt.Errorf("%w: %v", kind, err)
}

var _ keymanagement.KeyAgreement = (*Agreement)(nil)
