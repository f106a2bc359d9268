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

package ecdhes

import (
	"fmt"

	"github.com/jeremyhahn/go-josekm/pkg/encoding/jwk"
	"github.com/jeremyhahn/go-josekm/pkg/keymanagement"
	"github.com/jeremyhahn/go-josekm/pkg/keymanagement/aeskw"
)

// KeyWrap is an ECDH-ES+AxxxKW composite: the agreed key wraps the CEK.
type KeyWrap struct {
	name      string
	kwBits    int
	agreement *Agreement
}

// NewKeyWrap returns the composite registered under name.
func NewKeyWrap(name string, opts ...keymanagement.Option) (*KeyWrap, error) {
	var kw string
	switch name {
	case keymanagement.ECDHESA128KW:
		kw = keymanagement.A128KW
	case keymanagement.ECDHESA192KW:
		kw = keymanagement.A192KW
	case keymanagement.ECDHESA256KW:
		kw = keymanagement.A256KW
	default:
		return nil, fmt.Errorf("%w: %q", keymanagement.ErrUnsupportedAlgorithm, name)
	}
	size, _ := aeskw.KeySize(kw)
	return &KeyWrap{name: name, kwBits: size * 8, agreement: NewAgreement(opts...)}, nil
}

func (w *KeyWrap) Name() string { return w.name }

// Mode reports ModeWrap: the CEK is supplied by the caller.
func (w *KeyWrap) Mode() keymanagement.Mode { return keymanagement.ModeWrap }

func (w *KeyWrap) KeyTypes() []string { return w.agreement.KeyTypes() }

// KeyBits returns the key-encryption key length in bits.
func (w *KeyWrap) KeyBits() int { return w.kwBits }

// WrapAgreementKey generates an ephemeral key on peer's curve, derives a
// length-bit key-encryption key and wraps cek with it.
func (w *KeyWrap) WrapAgreementKey(peer *jwk.JWK, cek []byte, length int, header keymanagement.Header) ([]byte, keymanagement.Header, error) {
	if err := keymanagement.CheckKeyType(w, peer); err != nil {
		return nil, nil, err
	}
	if err := w.checkLength(length); err != nil {
		return nil, nil, err
	}

	ephemeral, err := w.agreement.GenerateEphemeralKey(peer.Crv)
	if err != nil {
		return nil, nil, err
	}
	kek, extra, err := w.agreement.DeriveKey(length, w.name, ephemeral, peer.Public(), header)
	if err != nil {
		return nil, nil, err
	}

	wrapped, err := aeskw.Wrap(kek, cek)
	if err != nil {
		return nil, nil, err
	}
	return wrapped, extra, nil
}

// UnwrapAgreementKey derives the key-encryption key from recipient and the
// "epk" header and unwraps encryptedCEK.
func (w *KeyWrap) UnwrapAgreementKey(recipient *jwk.JWK, encryptedCEK []byte, length int, header keymanagement.Header) ([]byte, error) {
	if err := w.checkLength(length); err != nil {
		return nil, err
	}
	kek, _, err := w.agreement.DeriveKey(length, w.name, recipient, nil, header)
	if err != nil {
		return nil, err
	}
	return aeskw.Unwrap(kek, encryptedCEK)
}

// WrapKey is WrapAgreementKey with the variant's key length.
func (w *KeyWrap) WrapKey(key *jwk.JWK, cek []byte, header keymanagement.Header) ([]byte, keymanagement.Header, error) {
	return w.WrapAgreementKey(key, cek, w.kwBits, header)
}

// UnwrapKey is UnwrapAgreementKey with the variant's key length.
func (w *KeyWrap) UnwrapKey(key *jwk.JWK, encryptedCEK []byte, header keymanagement.Header) ([]byte, error) {
	return w.UnwrapAgreementKey(key, encryptedCEK, w.kwBits, header)
}

func (w *KeyWrap) checkLength(length int) error {
	if _, ok := aeskw.AlgorithmForBits(length); !ok {
		return fmt.Errorf("%w: %s cannot wrap with a %d-bit key", keymanagement.ErrInvalidKey, w.name, length)
	}
	return nil
}

var (
	_ keymanagement.KeyAgreementWrapper = (*KeyWrap)(nil)
	_ keymanagement.KeyWrapper          = (*KeyWrap)(nil)
)
