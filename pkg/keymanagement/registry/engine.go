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

package registry

import (
	"fmt"

	"github.com/jeremyhahn/go-josekm/pkg/crypto/rand"
	"github.com/jeremyhahn/go-josekm/pkg/encoding/jwk"
	"github.com/jeremyhahn/go-josekm/pkg/keymanagement"
	"github.com/jeremyhahn/go-josekm/pkg/metrics"
)

// contentKeyAgreement is implemented by agreement algorithms that derive
// the CEK itself, keyed by the "enc" header value.
type contentKeyAgreement interface {
	EphemeralAgreementKey(recipient *jwk.JWK, header keymanagement.Header) ([]byte, keymanagement.Header, error)
	AgreementKey(recipient *jwk.JWK, header keymanagement.Header) ([]byte, error)
}

// Result holds the key material produced for one JWE recipient.
type Result struct {
	// CEK is the content encryption key.
	CEK []byte

	// EncryptedKey is the JWE Encrypted Key. It is empty for direct
	// encryption and direct key agreement.
	EncryptedKey []byte

	// Header holds the parameters the algorithm added, such as "iv",
	// "tag", "epk", "p2s" and "p2c".
	Header keymanagement.Header
}

// Encrypt produces the key material for the algorithm named by the "alg"
// header parameter. For key wrapping algorithms a nil cek is replaced by a
// random key sized for "enc"; direct modes ignore cek.
func (r *Registry) Encrypt(key *jwk.JWK, cek []byte, header keymanagement.Header) (*Result, error) {
	name, err := header.RequireString(keymanagement.HeaderAlg)
	if err != nil {
		return nil, err
	}
	alg, err := r.Lookup(name)
	if err != nil {
		return nil, err
	}

	switch alg.Mode() {
	case keymanagement.ModeDirect:
		supplier, err := r.Direct(name)
		if err != nil {
			return nil, err
		}
		cek, err := supplier.CEK(key)
		if err != nil {
			return nil, err
		}
		return &Result{CEK: cek, Header: keymanagement.Header{}}, nil

	case keymanagement.ModeAgreement:
		agreement, ok := alg.(contentKeyAgreement)
		if !ok {
			return nil, fmt.Errorf("%w: %s cannot derive a content encryption key", keymanagement.ErrUnsupportedAlgorithm, name)
		}
		done := r.observer(name).track(metrics.OpDerive)
		cek, extra, err := agreement.EphemeralAgreementKey(key, header)
		done(err)
		if err != nil {
			return nil, err
		}
		return &Result{CEK: cek, Header: extra}, nil

	default:
		if cek == nil {
			cek, err = r.GenerateCEK(header)
			if err != nil {
				return nil, err
			}
		}
		wrapper, err := r.Wrapper(name)
		if err != nil {
			return nil, err
		}
		encrypted, extra, err := wrapper.WrapKey(key, cek, header)
		if err != nil {
			return nil, err
		}
		return &Result{CEK: cek, EncryptedKey: encrypted, Header: extra}, nil
	}
}

// Decrypt recovers the CEK for the algorithm named by the "alg" header
// parameter. Direct modes require an empty encryptedKey.
func (r *Registry) Decrypt(key *jwk.JWK, encryptedKey []byte, header keymanagement.Header) ([]byte, error) {
	name, err := header.RequireString(keymanagement.HeaderAlg)
	if err != nil {
		return nil, err
	}
	alg, err := r.Lookup(name)
	if err != nil {
		return nil, err
	}

	switch alg.Mode() {
	case keymanagement.ModeDirect:
		if len(encryptedKey) > 0 {
			return nil, fmt.Errorf("%w: %s requires an empty encrypted key", keymanagement.ErrDecryptionFailed, name)
		}
		supplier, err := r.Direct(name)
		if err != nil {
			return nil, err
		}
		return supplier.CEK(key)

	case keymanagement.ModeAgreement:
		if len(encryptedKey) > 0 {
			return nil, fmt.Errorf("%w: %s requires an empty encrypted key", keymanagement.ErrDecryptionFailed, name)
		}
		agreement, ok := alg.(contentKeyAgreement)
		if !ok {
			return nil, fmt.Errorf("%w: %s cannot derive a content encryption key", keymanagement.ErrUnsupportedAlgorithm, name)
		}
		done := r.observer(name).track(metrics.OpDerive)
		cek, err := agreement.AgreementKey(key, header)
		done(err)
		return cek, err

	default:
		wrapper, err := r.Wrapper(name)
		if err != nil {
			return nil, err
		}
		return wrapper.UnwrapKey(key, encryptedKey, header)
	}
}

// GenerateCEK returns a random key sized for the "enc" header parameter.
func (r *Registry) GenerateCEK(header keymanagement.Header) ([]byte, error) {
	enc, err := header.RequireString(keymanagement.HeaderEnc)
	if err != nil {
		return nil, err
	}
	bits, err := keymanagement.ContentEncryptionKeyBits(enc)
	if err != nil {
		return nil, err
	}
	cek, err := rand.Bytes(r.random, bits/8)
	if err != nil {
		return nil, fmt.Errorf("failed to generate CEK: %w", err)
	}
	return cek, nil
}
