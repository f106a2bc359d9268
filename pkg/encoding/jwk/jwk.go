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

// Package jwk implements the JSON Web Key model (RFC 7517) consumed by the
// key management algorithms. Keys are treated as read-only values: the
// algorithms decode parameters from them but never modify them.
package jwk

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"github.com/jeremyhahn/go-josekm/pkg/crypto/ecdh"
)

var (
	// ErrInvalidKey is returned when a JWK is missing required parameters or
	// a parameter cannot be decoded.
	ErrInvalidKey = errors.New("jwk: invalid key")

	// ErrUnsupportedKeyType is returned for conversions of key types this
	// package does not handle.
	ErrUnsupportedKeyType = errors.New("jwk: unsupported key type")
)

// JWK represents a JSON Web Key as defined in RFC 7517.
type JWK struct {
	// Common fields (all key types)
	Kty string `json:"kty"`           // Key Type (required)
	Use string `json:"use,omitempty"` // Public Key Use (sig, enc)
	Alg string `json:"alg,omitempty"` // Algorithm
	Kid string `json:"kid,omitempty"` // Key ID

	// RSA public key fields (RFC 7518 Section 6.3.1)
	N string `json:"n,omitempty"` // Modulus (base64url)
	E string `json:"e,omitempty"` // Exponent (base64url)

	// RSA private key fields (RFC 7518 Section 6.3.2); D is shared with EC
	D  string `json:"d,omitempty"`  // Private Exponent
	P  string `json:"p,omitempty"`  // First Prime Factor
	Q  string `json:"q,omitempty"`  // Second Prime Factor
	DP string `json:"dp,omitempty"` // First Factor CRT Exponent
	DQ string `json:"dq,omitempty"` // Second Factor CRT Exponent
	QI string `json:"qi,omitempty"` // First CRT Coefficient

	// EC public key fields (RFC 7518 Section 6.2.1)
	Crv string `json:"crv,omitempty"` // Curve (P-256, P-384, P-521)
	X   string `json:"x,omitempty"`   // X Coordinate (base64url)
	Y   string `json:"y,omitempty"`   // Y Coordinate (base64url)

	// Symmetric key field (RFC 7518 Section 6.4)
	K string `json:"k,omitempty"` // Key Value (base64url)

	// Key Operations (optional)
	KeyOps []string `json:"key_ops,omitempty"`
}

// KeyType represents the key type (kty) parameter values
type KeyType string

const (
	KeyTypeRSA KeyType = "RSA"
	KeyTypeEC  KeyType = "EC"
	KeyTypeOKP KeyType = "OKP"
	KeyTypeOct KeyType = "oct"

	// KeyTypeDir is a legacy alias for an oct key used with "dir".
	KeyTypeDir KeyType = "dir"

	KeyTypeNone KeyType = "none"
)

// Curve represents EC curve names
type Curve string

const (
	CurveP256 Curve = ecdh.P256
	CurveP384 Curve = ecdh.P384
	CurveP521 Curve = ecdh.P521
)

// FromPublicKey creates a JWK from an *rsa.PublicKey or *ecdsa.PublicKey.
func FromPublicKey(pub crypto.PublicKey) (*JWK, error) {
	switch key := pub.(type) {
	case *rsa.PublicKey:
		return fromRSAPublicKey(key), nil
	case *ecdsa.PublicKey:
		return fromECDSAPublicKey(key)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedKeyType, pub)
	}
}

// FromPrivateKey creates a JWK from an *rsa.PrivateKey or
// *ecdsa.PrivateKey. The resulting JWK includes private key parameters.
func FromPrivateKey(priv crypto.PrivateKey) (*JWK, error) {
	switch key := priv.(type) {
	case *rsa.PrivateKey:
		return fromRSAPrivateKey(key), nil
	case *ecdsa.PrivateKey:
		return fromECDSAPrivateKey(key)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedKeyType, priv)
	}
}

// FromSymmetricKey creates an oct JWK from raw key bytes.
func FromSymmetricKey(key []byte, alg string) (*JWK, error) {
	if len(key) == 0 {
		return nil, fmt.Errorf("%w: symmetric key cannot be empty", ErrInvalidKey)
	}

	return &JWK{
		Kty: string(KeyTypeOct),
		K:   encode(key),
		Alg: alg,
	}, nil
}

// FromMap builds a JWK from a generic parameter map, such as the decoded
// "epk" header value.
func FromMap(m map[string]any) (*JWK, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return Unmarshal(data)
}

// ToMap returns the JWK as a generic parameter map. Empty members are
// omitted.
func (jwk *JWK) ToMap() map[string]any {
	data, _ := json.Marshal(jwk)
	m := make(map[string]any)
	_ = json.Unmarshal(data, &m)
	return m
}

// Public returns a copy of the key with every private parameter removed.
// Symmetric keys have no public part and return nil.
func (jwk *JWK) Public() *JWK {
	switch jwk.Kty {
	case string(KeyTypeOct), string(KeyTypeDir), string(KeyTypeNone):
		return nil
	}
	pub := &JWK{
		Kty: jwk.Kty,
		Use: jwk.Use,
		Alg: jwk.Alg,
		Kid: jwk.Kid,
		N:   jwk.N,
		E:   jwk.E,
		Crv: jwk.Crv,
		X:   jwk.X,
		Y:   jwk.Y,
	}
	if len(jwk.KeyOps) > 0 {
		pub.KeyOps = append([]string(nil), jwk.KeyOps...)
	}
	return pub
}

// ToPublicKey converts the JWK to an *rsa.PublicKey or *ecdsa.PublicKey.
func (jwk *JWK) ToPublicKey() (crypto.PublicKey, error) {
	switch jwk.Kty {
	case string(KeyTypeRSA):
		return jwk.toRSAPublicKey()
	case string(KeyTypeEC):
		return jwk.ECDSAPublicKey()
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedKeyType, jwk.Kty)
	}
}

// ToPrivateKey converts the JWK to an *rsa.PrivateKey or *ecdsa.PrivateKey.
// Returns an error if the JWK doesn't contain private key parameters.
func (jwk *JWK) ToPrivateKey() (crypto.PrivateKey, error) {
	switch jwk.Kty {
	case string(KeyTypeRSA):
		if jwk.D == "" {
			return nil, fmt.Errorf("%w: JWK does not contain RSA private key parameters", ErrInvalidKey)
		}
		return jwk.toRSAPrivateKey()
	case string(KeyTypeEC):
		return jwk.ECDSAPrivateKey()
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedKeyType, jwk.Kty)
	}
}

// ToSymmetricKey extracts the symmetric key bytes from an oct (or legacy
// dir) JWK.
func (jwk *JWK) ToSymmetricKey() ([]byte, error) {
	if !jwk.IsSymmetric() {
		return nil, fmt.Errorf("%w: JWK is not a symmetric key (kty=%s)", ErrInvalidKey, jwk.Kty)
	}
	if jwk.K == "" {
		return nil, fmt.Errorf("%w: JWK does not contain symmetric key value", ErrInvalidKey)
	}
	return jwk.Param("k")
}

// Param decodes a base64url-encoded member by its JSON name. Missing
// members decode to nil.
func (jwk *JWK) Param(name string) ([]byte, error) {
	var value string
	switch name {
	case "n":
		value = jwk.N
	case "e":
		value = jwk.E
	case "d":
		value = jwk.D
	case "p":
		value = jwk.P
	case "q":
		value = jwk.Q
	case "dp":
		value = jwk.DP
	case "dq":
		value = jwk.DQ
	case "qi":
		value = jwk.QI
	case "x":
		value = jwk.X
	case "y":
		value = jwk.Y
	case "k":
		value = jwk.K
	default:
		return nil, fmt.Errorf("%w: %q is not a key material parameter", ErrInvalidKey, name)
	}
	if value == "" {
		return nil, nil
	}
	b, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode %q: %v", ErrInvalidKey, name, err)
	}
	return b, nil
}

// Marshal returns the JSON encoding of the JWK.
func (jwk *JWK) Marshal() ([]byte, error) {
	return json.Marshal(jwk)
}

// MarshalIndent returns the indented JSON encoding of the JWK.
func (jwk *JWK) MarshalIndent(prefix, indent string) ([]byte, error) {
	return json.MarshalIndent(jwk, prefix, indent)
}

// Unmarshal parses the JSON-encoded data and stores the result in a JWK.
func Unmarshal(data []byte) (*JWK, error) {
	var jwk JWK
	if err := json.Unmarshal(data, &jwk); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JWK: %w", err)
	}
	if jwk.Kty == "" {
		return nil, fmt.Errorf("%w: missing kty", ErrInvalidKey)
	}
	return &jwk, nil
}

// IsPrivate returns true if the JWK contains private key parameters.
func (jwk *JWK) IsPrivate() bool {
	return jwk.D != "" || jwk.K != ""
}

// IsPublic returns true if the JWK represents a public key.
func (jwk *JWK) IsPublic() bool {
	return !jwk.IsPrivate() && (jwk.N != "" || jwk.X != "" || jwk.Crv != "")
}

// IsSymmetric returns true if the JWK represents a symmetric key.
func (jwk *JWK) IsSymmetric() bool {
	return jwk.Kty == string(KeyTypeOct) || jwk.Kty == string(KeyTypeDir)
}

// HasCRT reports whether all five RSA CRT members are present.
func (jwk *JWK) HasCRT() bool {
	return jwk.P != "" && jwk.Q != "" && jwk.DP != "" && jwk.DQ != "" && jwk.QI != ""
}

func encode(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}

// Helper functions for RSA keys

func fromRSAPublicKey(key *rsa.PublicKey) *JWK {
	return &JWK{
		Kty: string(KeyTypeRSA),
		N:   encode(key.N.Bytes()),
		E:   encode(big.NewInt(int64(key.E)).Bytes()),
	}
}

func fromRSAPrivateKey(key *rsa.PrivateKey) *JWK {
	// Ensure CRT values are precomputed
	if key.Precomputed.Dp == nil {
		key.Precompute()
	}

	jwk := fromRSAPublicKey(&key.PublicKey)
	jwk.D = encode(key.D.Bytes())

	if len(key.Primes) == 2 {
		jwk.P = encode(key.Primes[0].Bytes())
		jwk.Q = encode(key.Primes[1].Bytes())
		if key.Precomputed.Dp != nil {
			jwk.DP = encode(key.Precomputed.Dp.Bytes())
			jwk.DQ = encode(key.Precomputed.Dq.Bytes())
			jwk.QI = encode(key.Precomputed.Qinv.Bytes())
		}
	}

	return jwk
}

func (jwk *JWK) toRSAPublicKey() (*rsa.PublicKey, error) {
	if jwk.N == "" || jwk.E == "" {
		return nil, fmt.Errorf("%w: RSA JWK requires n and e", ErrInvalidKey)
	}

	nBytes, err := jwk.Param("n")
	if err != nil {
		return nil, err
	}
	eBytes, err := jwk.Param("e")
	if err != nil {
		return nil, err
	}

	e := new(big.Int).SetBytes(eBytes)
	if !e.IsInt64() || e.Int64() > 1<<31-1 {
		return nil, fmt.Errorf("%w: RSA exponent too large", ErrInvalidKey)
	}

	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nBytes),
		E: int(e.Int64()),
	}, nil
}

func (jwk *JWK) toRSAPrivateKey() (*rsa.PrivateKey, error) {
	pubKey, err := jwk.toRSAPublicKey()
	if err != nil {
		return nil, err
	}

	dBytes, err := jwk.Param("d")
	if err != nil {
		return nil, err
	}

	privKey := &rsa.PrivateKey{
		PublicKey: *pubKey,
		D:         new(big.Int).SetBytes(dBytes),
	}

	if jwk.P == "" || jwk.Q == "" {
		return nil, fmt.Errorf("%w: crypto/rsa conversion requires p and q", ErrInvalidKey)
	}
	pBytes, err := jwk.Param("p")
	if err != nil {
		return nil, err
	}
	qBytes, err := jwk.Param("q")
	if err != nil {
		return nil, err
	}
	privKey.Primes = []*big.Int{
		new(big.Int).SetBytes(pBytes),
		new(big.Int).SetBytes(qBytes),
	}

	if err := privKey.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	privKey.Precompute()

	return privKey, nil
}

// Helper functions for ECDSA keys

func fromECDSAPublicKey(key *ecdsa.PublicKey) (*JWK, error) {
	crv := key.Curve.Params().Name
	if _, err := ecdh.CurveByName(crv); err != nil {
		return nil, err
	}

	// Coordinates are encoded at the full field width (RFC 7518 6.2.1.2)
	size := ecdh.FieldSize(key.Curve)
	return &JWK{
		Kty: string(KeyTypeEC),
		Crv: crv,
		X:   encode(key.X.FillBytes(make([]byte, size))),
		Y:   encode(key.Y.FillBytes(make([]byte, size))),
	}, nil
}

func fromECDSAPrivateKey(key *ecdsa.PrivateKey) (*JWK, error) {
	jwk, err := fromECDSAPublicKey(&key.PublicKey)
	if err != nil {
		return nil, err
	}

	jwk.D = encode(key.D.FillBytes(make([]byte, ecdh.FieldSize(key.Curve))))
	return jwk, nil
}

// ECDSAPublicKey decodes crv, x and y and validates the point.
func (jwk *JWK) ECDSAPublicKey() (*ecdsa.PublicKey, error) {
	if jwk.Kty != string(KeyTypeEC) {
		return nil, fmt.Errorf("%w: expected kty EC, got %q", ErrInvalidKey, jwk.Kty)
	}
	if jwk.Crv == "" || jwk.X == "" || jwk.Y == "" {
		return nil, fmt.Errorf("%w: EC JWK requires crv, x and y", ErrInvalidKey)
	}

	curve, err := ecdh.CurveByName(jwk.Crv)
	if err != nil {
		return nil, err
	}

	x, err := jwk.Param("x")
	if err != nil {
		return nil, err
	}
	y, err := jwk.Param("y")
	if err != nil {
		return nil, err
	}

	pub, err := ecdh.NewPublicKey(curve, x, y)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return pub, nil
}

// ECDSAPrivateKey decodes an EC private key and checks that d matches the
// public point.
func (jwk *JWK) ECDSAPrivateKey() (*ecdsa.PrivateKey, error) {
	if jwk.D == "" {
		return nil, fmt.Errorf("%w: JWK does not contain EC private key parameters", ErrInvalidKey)
	}
	pub, err := jwk.ECDSAPublicKey()
	if err != nil {
		return nil, err
	}

	d, err := jwk.Param("d")
	if err != nil {
		return nil, err
	}

	priv, err := ecdh.NewPrivateKey(pub.Curve, pub.X.Bytes(), pub.Y.Bytes(), d)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return priv, nil
}
