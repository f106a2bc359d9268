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

// Package rsaes implements RSA key transport: RSA1_5, RSA-OAEP,
// RSA-OAEP-256, RSA-OAEP-384 and RSA-OAEP-512 (RFC 7518 section 4.2 and 4.3).
//
// Decryption failures are reported as keymanagement.ErrDecryptionFailed with
// no wrapped cause, whatever check failed.
package rsaes

import (
	"crypto"
	"errors"
	"fmt"
	"io"

	"github.com/jeremyhahn/go-josekm/pkg/bigint"
	"github.com/jeremyhahn/go-josekm/pkg/crypto/rsa"
	"github.com/jeremyhahn/go-josekm/pkg/encoding/jwk"
	"github.com/jeremyhahn/go-josekm/pkg/keymanagement"
)

type padding int

const (
	paddingPKCS1v15 padding = iota
	paddingOAEP
)

// Algorithm encrypts the CEK to an RSA public key.
type Algorithm struct {
	name    string
	padding padding
	hash    crypto.Hash
	opts    *keymanagement.Options
}

// New returns the RSA key transport algorithm registered under name.
func New(name string, opts ...keymanagement.Option) (*Algorithm, error) {
	a := &Algorithm{name: name, padding: paddingOAEP, opts: keymanagement.NewOptions(opts...)}
	switch name {
	case keymanagement.RSA15:
		a.padding = paddingPKCS1v15
	case keymanagement.RSAOAEP:
		a.hash = crypto.SHA1
	case keymanagement.RSAOAEP256:
		a.hash = crypto.SHA256
	case keymanagement.RSAOAEP384:
		a.hash = crypto.SHA384
	case keymanagement.RSAOAEP512:
		a.hash = crypto.SHA512
	default:
		return nil, fmt.Errorf("%w: %q", keymanagement.ErrUnsupportedAlgorithm, name)
	}
	return a, nil
}

func (a *Algorithm) Name() string { return a.name }

func (a *Algorithm) Mode() keymanagement.Mode { return keymanagement.ModeWrap }

func (a *Algorithm) KeyTypes() []string { return []string{string(jwk.KeyTypeRSA)} }

// WrapKey encrypts cek with the public members (n, e) of key.
func (a *Algorithm) WrapKey(key *jwk.JWK, cek []byte, _ keymanagement.Header) ([]byte, keymanagement.Header, error) {
	if err := keymanagement.CheckKeyType(a, key); err != nil {
		return nil, nil, err
	}
	pub, err := PublicKey(key)
	if err != nil {
		return nil, nil, err
	}

	var ct []byte
	switch a.padding {
	case paddingPKCS1v15:
		ct, err = rsa.EncryptPKCS1v15(a.opts.Random, pub, cek)
	default:
		ct, err = rsa.EncryptOAEP(a.opts.Random, a.hash, pub, cek)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encrypt CEK: %w", err)
	}
	return ct, keymanagement.Header{}, nil
}

// UnwrapKey decrypts encryptedCEK. Keys without CRT members have their
// primes recovered first; if that fails decryption uses d directly.
//
// Recovery is repeated on every call and costs several modular
// exponentiations. Callers unwrapping repeatedly with an (n, e, d) key
// should convert it once with RecoverCRT.
func (a *Algorithm) UnwrapKey(key *jwk.JWK, encryptedCEK []byte, _ keymanagement.Header) ([]byte, error) {
	if err := keymanagement.CheckKeyType(a, key); err != nil {
		return nil, err
	}
	priv, err := PrivateKey(key)
	if err != nil {
		return nil, err
	}
	if crt, err := priv.Precompute(a.opts.Random); err == nil {
		priv = crt
	}

	var cek []byte
	switch a.padding {
	case paddingPKCS1v15:
		cek, err = rsa.DecryptPKCS1v15(priv, encryptedCEK)
	default:
		cek, err = rsa.DecryptOAEP(a.hash, priv, encryptedCEK)
	}
	if err != nil {
		return nil, keymanagement.ErrDecryptionFailed
	}
	return cek, nil
}

// PublicKey builds the numeric RSA public key from the "n" and "e" members.
func PublicKey(key *jwk.JWK) (*rsa.Key, error) {
	n, err := param(key, "n")
	if err != nil {
		return nil, err
	}
	e, err := param(key, "e")
	if err != nil {
		return nil, err
	}
	if n == nil || e == nil {
		return nil, fmt.Errorf("%w: RSA key requires n and e", keymanagement.ErrInvalidKey)
	}

	pub, err := rsa.NewPublicKey(n, e)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", keymanagement.ErrInvalidKey, err)
	}
	return pub, nil
}

// PrivateKey builds the numeric RSA private key from "d" and whichever of
// "p", "q", "dp", "dq" and "qi" are present. The CRT values are derived
// when only the primes are given.
func PrivateKey(key *jwk.JWK) (*rsa.Key, error) {
	values := make(map[string]*bigint.Int, 8)
	for _, name := range []string{"n", "e", "d", "p", "q", "dp", "dq", "qi"} {
		v, err := param(key, name)
		if err != nil {
			return nil, err
		}
		values[name] = v
	}
	if values["n"] == nil || values["e"] == nil {
		return nil, fmt.Errorf("%w: RSA key requires n and e", keymanagement.ErrInvalidKey)
	}

	var crt *rsa.CRT
	if values["p"] != nil && values["q"] != nil {
		crt = &rsa.CRT{
			P:  values["p"],
			Q:  values["q"],
			DP: values["dp"],
			DQ: values["dq"],
			QI: values["qi"],
		}
	}

	priv, err := rsa.NewPrivateKey(values["n"], values["e"], values["d"], crt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", keymanagement.ErrInvalidKey, err)
	}
	return priv, nil
}

// RecoverCRT returns key with the prime factors recovered from (n, e, d)
// and the CRT members filled in.
func RecoverCRT(key *jwk.JWK, random io.Reader) (*jwk.JWK, error) {
	priv, err := PrivateKey(key)
	if err != nil {
		return nil, err
	}
	priv, err = priv.Precompute(random)
	if errors.Is(err, rsa.ErrFactorizationFailed) {
		return nil, keymanagement.ErrFactorizationFailed
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", keymanagement.ErrInvalidKey, err)
	}

	out := *key
	out.KeyOps = append([]string(nil), key.KeyOps...)
	crt := priv.CRT()
	out.D = priv.D().Base64URL()
	out.P = crt.P.Base64URL()
	out.Q = crt.Q.Base64URL()
	out.DP = crt.DP.Base64URL()
	out.DQ = crt.DQ.Base64URL()
	out.QI = crt.QI.Base64URL()
	return &out, nil
}

func param(key *jwk.JWK, name string) (*bigint.Int, error) {
	b, err := key.Param(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", keymanagement.ErrInvalidKey, err)
	}
	if b == nil {
		return nil, nil
	}
	return bigint.FromBytes(b), nil
}

var _ keymanagement.KeyWrapper = (*Algorithm)(nil)
