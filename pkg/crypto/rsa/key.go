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

// Package rsa implements the RSA primitives used for JOSE key transport:
// CRT-accelerated exponentiation, OAEP and PKCS#1 v1.5 encryption padding,
// MGF1 and recovery of the prime factors from (n, e, d).
//
// The arithmetic runs on pkg/bigint. Keys are immutable once built and may be
// shared between goroutines.
//
// Example usage:
//
//	pub, _ := rsa.NewPublicKey(n, e)
//	ct, _ := rsa.EncryptOAEP(rand.Reader, crypto.SHA256, pub, cek)
//
//	priv, _ := rsa.NewPrivateKey(n, e, d, nil)
//	priv, _ = priv.Precompute(rand.Reader) // recovers p, q and the CRT values
//	cek, _ := rsa.DecryptOAEP(crypto.SHA256, priv, ct)
package rsa

import (
	stdrsa "crypto/rsa"
	"errors"
	"fmt"
	"io"

	"github.com/jeremyhahn/go-josekm/pkg/bigint"
)

var (
	// ErrInvalidKey is returned when key parameters are missing or inconsistent.
	ErrInvalidKey = errors.New("rsa: invalid key")

	// ErrMessageOutOfRange is returned when a primitive input is not in [0, n).
	ErrMessageOutOfRange = errors.New("rsa: message representative out of range")

	// ErrMessageTooLong is returned when a message cannot be padded into one block.
	ErrMessageTooLong = errors.New("rsa: message too long for RSA key size")

	// ErrDecryption is returned for every padding or ciphertext failure. It
	// carries no detail about which check failed.
	ErrDecryption = errors.New("rsa: decryption error")

	// ErrFactorizationFailed is returned when the prime factors cannot be
	// recovered within the attempt budget.
	ErrFactorizationFailed = errors.New("rsa: prime factorization failed")
)

// CRT holds the prime factors and Chinese Remainder Theorem values of a
// two-prime private key.
type CRT struct {
	P  *bigint.Int
	Q  *bigint.Int
	DP *bigint.Int
	DQ *bigint.Int
	QI *bigint.Int
}

// Key is the normalized numeric view of an RSA key. A Key with a nil private
// exponent is a public key.
type Key struct {
	n    *bigint.Int
	e    *bigint.Int
	d    *bigint.Int
	crt  *CRT
	size int
}

// NewPublicKey builds a public key from its modulus and public exponent.
func NewPublicKey(n, e *bigint.Int) (*Key, error) {
	if n == nil || e == nil {
		return nil, fmt.Errorf("%w: modulus and exponent are required", ErrInvalidKey)
	}
	if n.Sign() <= 0 || n.IsEven() || n.BitLen() < 512 {
		return nil, fmt.Errorf("%w: invalid modulus", ErrInvalidKey)
	}
	if e.Cmp(bigint.Two()) < 0 || e.IsEven() || e.Cmp(n) >= 0 {
		return nil, fmt.Errorf("%w: invalid public exponent", ErrInvalidKey)
	}
	return &Key{n: n, e: e, size: n.ByteLen()}, nil
}

// NewPrivateKey builds a private key. Either d or crt (with at least P and Q)
// must be supplied. When crt carries only the primes the CRT exponents and
// coefficient are derived; when d is nil it is derived from the primes. The
// relation n = p·q is verified whenever primes are present, and supplied CRT
// values must satisfy their identities.
//
// A key built without primes performs plain d-exponentiation; call
// Precompute to recover the primes and enable CRT.
func NewPrivateKey(n, e, d *bigint.Int, crt *CRT) (*Key, error) {
	pub, err := NewPublicKey(n, e)
	if err != nil {
		return nil, err
	}

	hasPrimes := crt != nil && crt.P != nil && crt.Q != nil
	if d == nil && !hasPrimes {
		return nil, fmt.Errorf("%w: private exponent or prime factors are required", ErrInvalidKey)
	}

	if !hasPrimes {
		if d.Sign() <= 0 || d.Cmp(n) >= 0 {
			return nil, fmt.Errorf("%w: invalid private exponent", ErrInvalidKey)
		}
		pub.d = d
		return pub, nil
	}

	full, err := completeCRT(n, e, d, crt)
	if err != nil {
		return nil, err
	}
	if d == nil {
		d, err = privateExponent(e, full.P, full.Q)
		if err != nil {
			return nil, err
		}
	}
	pub.d = d
	pub.crt = full
	return pub, nil
}

// completeCRT validates the primes and fills in any missing CRT values.
func completeCRT(n, e, d *bigint.Int, crt *CRT) (*CRT, error) {
	p, q := crt.P, crt.Q
	if p.Cmp(bigint.One()) <= 0 || q.Cmp(bigint.One()) <= 0 {
		return nil, fmt.Errorf("%w: invalid prime factors", ErrInvalidKey)
	}
	if !p.Mul(q).Equal(n) {
		return nil, fmt.Errorf("%w: n != p*q", ErrInvalidKey)
	}

	out := &CRT{P: p, Q: q, DP: crt.DP, DQ: crt.DQ, QI: crt.QI}
	if out.DP != nil && out.DQ != nil && out.QI != nil {
		if err := checkCRT(e, d, out); err != nil {
			return nil, err
		}
		return out, nil
	}

	if d == nil {
		var err error
		d, err = privateExponent(e, p, q)
		if err != nil {
			return nil, err
		}
	}

	pMinus1 := p.Sub(bigint.One())
	qMinus1 := q.Sub(bigint.One())

	dp, err := d.Mod(pMinus1)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	dq, err := d.Mod(qMinus1)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	qi, err := q.ModInverse(p)
	if err != nil {
		return nil, fmt.Errorf("%w: q is not invertible mod p", ErrInvalidKey)
	}

	out.DP, out.DQ, out.QI = dp, dq, qi
	return out, nil
}

// checkCRT verifies supplied CRT values against the primes. With d known
// dp and dq must equal d mod (p-1) and d mod (q-1); without it they must
// invert e modulo p-1 and q-1. qi·q ≡ 1 (mod p) always.
func checkCRT(e, d *bigint.Int, crt *CRT) error {
	one := bigint.One()
	for _, f := range []struct {
		name     string
		exponent *bigint.Int
		prime    *bigint.Int
	}{
		{"dp", crt.DP, crt.P},
		{"dq", crt.DQ, crt.Q},
	} {
		pMinus1 := f.prime.Sub(one)
		if f.exponent.Sign() <= 0 || f.exponent.Cmp(pMinus1) >= 0 {
			return fmt.Errorf("%w: %s out of range", ErrInvalidKey, f.name)
		}
		if d != nil {
			want, err := d.Mod(pMinus1)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrInvalidKey, err)
			}
			if !want.Equal(f.exponent) {
				return fmt.Errorf("%w: %s does not match d", ErrInvalidKey, f.name)
			}
			continue
		}
		check, err := e.Mul(f.exponent).Mod(pMinus1)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidKey, err)
		}
		if !check.IsOne() {
			return fmt.Errorf("%w: %s does not invert e", ErrInvalidKey, f.name)
		}
	}

	if crt.QI.Sign() <= 0 || crt.QI.Cmp(crt.P) >= 0 {
		return fmt.Errorf("%w: qi out of range", ErrInvalidKey)
	}
	check, err := crt.QI.Mul(crt.Q).Mod(crt.P)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	if !check.IsOne() {
		return fmt.Errorf("%w: qi is not the inverse of q mod p", ErrInvalidKey)
	}
	return nil
}

// privateExponent computes d = e^-1 mod lcm(p-1, q-1).
func privateExponent(e, p, q *bigint.Int) (*bigint.Int, error) {
	pMinus1 := p.Sub(bigint.One())
	qMinus1 := q.Sub(bigint.One())
	g := pMinus1.GCD(qMinus1)
	lambda, err := pMinus1.Mul(qMinus1).Div(g)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	d, err := e.ModInverse(lambda)
	if err != nil {
		return nil, fmt.Errorf("%w: e is not invertible", ErrInvalidKey)
	}
	return d, nil
}

// Precompute returns a copy of k with the prime factors recovered from
// (n, e, d) and the CRT values derived. Keys that already carry CRT values
// and public keys are returned unchanged.
func (k *Key) Precompute(random io.Reader) (*Key, error) {
	if k.d == nil || k.crt != nil {
		return k, nil
	}

	p, q, err := RecoverPrimes(random, k.n, k.e, k.d)
	if err != nil {
		return nil, err
	}

	return NewPrivateKey(k.n, k.e, k.d, &CRT{P: p, Q: q})
}

// N returns the modulus.
func (k *Key) N() *bigint.Int { return k.n }

// E returns the public exponent.
func (k *Key) E() *bigint.Int { return k.e }

// D returns the private exponent, or nil for a public key.
func (k *Key) D() *bigint.Int { return k.d }

// CRT returns the CRT parameters, or nil when the key has none.
func (k *Key) CRT() *CRT {
	if k.crt == nil {
		return nil
	}
	c := *k.crt
	return &c
}

// Size returns the modulus length in bytes.
func (k *Key) Size() int { return k.size }

// IsPrivate reports whether k can perform private-key operations.
func (k *Key) IsPrivate() bool { return k.d != nil }

// HasCRT reports whether private operations use the CRT.
func (k *Key) HasCRT() bool { return k.crt != nil }

// Public returns the public part of k.
func (k *Key) Public() *Key {
	return &Key{n: k.n, e: k.e, size: k.size}
}

// FromStdPublicKey converts a crypto/rsa public key.
func FromStdPublicKey(pub *stdrsa.PublicKey) (*Key, error) {
	if pub == nil || pub.N == nil {
		return nil, fmt.Errorf("%w: public key cannot be nil", ErrInvalidKey)
	}
	return NewPublicKey(bigint.FromBigInt(pub.N), bigint.New(int64(pub.E)))
}

// FromStdPrivateKey converts a two-prime crypto/rsa private key, including
// its CRT values.
func FromStdPrivateKey(priv *stdrsa.PrivateKey) (*Key, error) {
	if priv == nil || priv.D == nil {
		return nil, fmt.Errorf("%w: private key cannot be nil", ErrInvalidKey)
	}
	if len(priv.Primes) != 2 {
		return nil, fmt.Errorf("%w: only two-prime keys are supported", ErrInvalidKey)
	}
	if priv.Precomputed.Dp == nil {
		priv.Precompute()
	}
	crt := &CRT{
		P:  bigint.FromBigInt(priv.Primes[0]),
		Q:  bigint.FromBigInt(priv.Primes[1]),
		DP: bigint.FromBigInt(priv.Precomputed.Dp),
		DQ: bigint.FromBigInt(priv.Precomputed.Dq),
		QI: bigint.FromBigInt(priv.Precomputed.Qinv),
	}
	return NewPrivateKey(bigint.FromBigInt(priv.N), bigint.New(int64(priv.E)), bigint.FromBigInt(priv.D), crt)
}
