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

// Package ecdh provides the Elliptic Curve Diffie-Hellman primitive used by
// the ECDH-ES key agreement algorithms.
//
// This package supports the NIST P-256, P-384, and P-521 curves. The shared
// secret Z is the X coordinate of d·Q encoded big-endian at the full field
// width of the curve, as required by RFC 7518 §4.6.2. Point arithmetic is
// delegated to crypto/ecdh.
//
// Example usage:
//
//	// Generate key pairs for Alice and Bob
//	alicePriv, _ := ecdh.GenerateKey(elliptic.P256(), rand.Reader)
//	bobPriv, _ := ecdh.GenerateKey(elliptic.P256(), rand.Reader)
//
//	// Alice derives Z using Bob's public key
//	aliceZ, _ := ecdh.DeriveSharedSecret(alicePriv, &bobPriv.PublicKey)
//
//	// Bob derives Z using Alice's public key
//	bobZ, _ := ecdh.DeriveSharedSecret(bobPriv, &alicePriv.PublicKey)
//
//	// aliceZ == bobZ, len == ecdh.FieldSize(elliptic.P256())
package ecdh

import (
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/elliptic"
	"errors"
	"fmt"
	"io"
	"math/big"

	"github.com/jeremyhahn/go-josekm/pkg/crypto/rand"
)

var (
	// ErrCurveMismatch is returned when the two keys use different curves.
	ErrCurveMismatch = errors.New("ecdh: curve mismatch")

	// ErrUnsupportedCurve is returned for curves other than P-256, P-384 and P-521.
	ErrUnsupportedCurve = errors.New("ecdh: unsupported curve")

	// ErrInvalidPoint is returned when a public key is not on its curve.
	ErrInvalidPoint = errors.New("ecdh: invalid curve point")
)

// Curve names as registered for JWK "crv".
const (
	P256 = "P-256"
	P384 = "P-384"
	P521 = "P-521"
)

// DeriveSharedSecret performs ECDH key agreement between a private key and
// a public key, returning Z at the full field width of the curve.
//
// Both keys must use the same elliptic curve (P-256, P-384, or P-521).
func DeriveSharedSecret(privateKey *ecdsa.PrivateKey, publicKey *ecdsa.PublicKey) ([]byte, error) {
	if privateKey == nil {
		return nil, fmt.Errorf("private key cannot be nil")
	}
	if publicKey == nil {
		return nil, fmt.Errorf("public key cannot be nil")
	}

	// Check that curves match
	privName := privateKey.Curve.Params().Name
	pubName := publicKey.Curve.Params().Name
	if privName != pubName {
		return nil, fmt.Errorf("%w: private key uses %s, public key uses %s",
			ErrCurveMismatch, privName, pubName)
	}

	ecdhPriv, err := ecdsaToECDH(privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to convert private key: %w", err)
	}

	ecdhPub, err := ecdsaPublicToECDH(publicKey)
	if err != nil {
		return nil, fmt.Errorf("failed to convert public key: %w", err)
	}

	// crypto/ecdh returns the X coordinate already padded to the field size
	sharedSecret, err := ecdhPriv.ECDH(ecdhPub)
	if err != nil {
		return nil, fmt.Errorf("ECDH operation failed: %w", err)
	}

	return sharedSecret, nil
}

// GenerateKey generates an ephemeral key pair on curve. A nil reader uses
// the shared default RNG.
func GenerateKey(curve elliptic.Curve, random io.Reader) (*ecdsa.PrivateKey, error) {
	if _, err := curveToECDH(curve); err != nil {
		return nil, err
	}
	priv, err := ecdsa.GenerateKey(curve, rand.ReaderOrDefault(random))
	if err != nil {
		return nil, fmt.Errorf("failed to generate %s key: %w", curve.Params().Name, err)
	}
	return priv, nil
}

// CurveByName returns the curve registered under a JWK "crv" name.
func CurveByName(name string) (elliptic.Curve, error) {
	switch name {
	case P256:
		return elliptic.P256(), nil
	case P384:
		return elliptic.P384(), nil
	case P521:
		return elliptic.P521(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedCurve, name)
	}
}

// FieldSize returns the size in octets of a coordinate on curve.
func FieldSize(curve elliptic.Curve) int {
	return (curve.Params().BitSize + 7) / 8
}

// NewPublicKey builds a public key from big-endian coordinates and verifies
// that the point lies on the curve.
func NewPublicKey(curve elliptic.Curve, x, y []byte) (*ecdsa.PublicKey, error) {
	size := FieldSize(curve)
	if len(x) > size || len(y) > size {
		return nil, fmt.Errorf("%w: coordinate longer than %d bytes", ErrInvalidPoint, size)
	}
	pub := &ecdsa.PublicKey{
		Curve: curve,
		X:     new(big.Int).SetBytes(x),
		Y:     new(big.Int).SetBytes(y),
	}
	if _, err := ecdsaPublicToECDH(pub); err != nil {
		return nil, err
	}
	return pub, nil
}

// NewPrivateKey builds a private key from big-endian coordinates and the
// private scalar d. The public point must match d.
func NewPrivateKey(curve elliptic.Curve, x, y, d []byte) (*ecdsa.PrivateKey, error) {
	pub, err := NewPublicKey(curve, x, y)
	if err != nil {
		return nil, err
	}
	if len(d) == 0 || len(d) > FieldSize(curve) {
		return nil, fmt.Errorf("%w: invalid private scalar length", ErrInvalidPoint)
	}
	priv := &ecdsa.PrivateKey{PublicKey: *pub, D: new(big.Int).SetBytes(d)}

	ecdhPriv, err := ecdsaToECDH(priv)
	if err != nil {
		return nil, err
	}
	ecdhPub, _ := ecdsaPublicToECDH(pub)
	if !ecdhPriv.PublicKey().Equal(ecdhPub) {
		return nil, fmt.Errorf("%w: public point does not match private scalar", ErrInvalidPoint)
	}
	return priv, nil
}

// ecdsaToECDH converts an ECDSA private key to crypto/ecdh private key
func ecdsaToECDH(key *ecdsa.PrivateKey) (*ecdh.PrivateKey, error) {
	curve, err := curveToECDH(key.Curve)
	if err != nil {
		return nil, err
	}

	// Pad to the correct size for the curve
	keyBytes := key.D.FillBytes(make([]byte, FieldSize(key.Curve)))

	priv, err := curve.NewPrivateKey(keyBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPoint, err)
	}
	return priv, nil
}

// ecdsaPublicToECDH converts an ECDSA public key to crypto/ecdh public key
func ecdsaPublicToECDH(key *ecdsa.PublicKey) (*ecdh.PublicKey, error) {
	curve, err := curveToECDH(key.Curve)
	if err != nil {
		return nil, err
	}
	if key.X == nil || key.Y == nil || key.X.Sign() < 0 || key.Y.Sign() < 0 {
		return nil, ErrInvalidPoint
	}

	// Uncompressed SEC 1 encoding: 0x04 || X || Y
	size := FieldSize(key.Curve)
	if key.X.BitLen() > size*8 || key.Y.BitLen() > size*8 {
		return nil, ErrInvalidPoint
	}
	keyBytes := make([]byte, 1+2*size)
	keyBytes[0] = 4
	key.X.FillBytes(keyBytes[1 : 1+size])
	key.Y.FillBytes(keyBytes[1+size:])

	pub, err := curve.NewPublicKey(keyBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPoint, err)
	}
	return pub, nil
}

// curveToECDH maps elliptic.Curve to ecdh.Curve
func curveToECDH(curve elliptic.Curve) (ecdh.Curve, error) {
	if curve == nil {
		return nil, fmt.Errorf("%w: nil curve", ErrUnsupportedCurve)
	}
	switch curve.Params().Name {
	case P256:
		return ecdh.P256(), nil
	case P384:
		return ecdh.P384(), nil
	case P521:
		return ecdh.P521(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCurve, curve.Params().Name)
	}
}
