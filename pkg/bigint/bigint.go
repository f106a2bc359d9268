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

// Package bigint provides an immutable arbitrary-precision integer type used
// by the RSA engine and the prime-factor recovery routine.
//
// Every operation returns a new *Int; receivers and arguments are never
// modified, so values can be shared freely between goroutines.
//
// Example usage:
//
//	n := bigint.FromBytes(modulus)
//	c := m.ModPow(e, n)
//	out, _ := c.FillBytes(n.ByteLen())
package bigint

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"math/big"
)

var (
	// ErrDivisionByZero is returned when dividing or reducing by zero.
	ErrDivisionByZero = errors.New("bigint: division by zero")

	// ErrNotInvertible is returned when a modular inverse does not exist.
	ErrNotInvertible = errors.New("bigint: value is not invertible")

	// ErrOverflow is returned when a value does not fit in the requested size.
	ErrOverflow = errors.New("bigint: value too large for requested size")

	// ErrInvalidEncoding is returned when a base64url value cannot be decoded.
	ErrInvalidEncoding = errors.New("bigint: invalid encoding")
)

// Int is an immutable arbitrary-precision signed integer.
type Int struct {
	v *big.Int
}

var (
	zero = New(0)
	one  = New(1)
	two  = New(2)
)

// Zero returns the integer 0.
func Zero() *Int { return zero }

// One returns the integer 1.
func One() *Int { return one }

// Two returns the integer 2.
func Two() *Int { return two }

// New returns an Int holding x.
func New(x int64) *Int {
	return &Int{v: big.NewInt(x)}
}

// FromBytes interprets b as an unsigned big-endian integer (OS2IP).
func FromBytes(b []byte) *Int {
	return &Int{v: new(big.Int).SetBytes(b)}
}

// FromBigInt returns an Int holding a copy of x.
func FromBigInt(x *big.Int) *Int {
	if x == nil {
		return zero
	}
	return &Int{v: new(big.Int).Set(x)}
}

// FromBase64URL decodes an unpadded base64url unsigned big-endian integer,
// the encoding used by JWK numeric members.
func FromBase64URL(s string) (*Int, error) {
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEncoding, err)
	}
	return FromBytes(b), nil
}

// FromString parses a decimal or 0x-prefixed hexadecimal string.
func FromString(s string) (*Int, error) {
	v, ok := new(big.Int).SetString(s, 0)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidEncoding, s)
	}
	return &Int{v: v}, nil
}

// RandomBelow returns a uniformly random integer in [0, max) read from r.
// If r is nil, crypto/rand.Reader is used.
func RandomBelow(r io.Reader, max *Int) (*Int, error) {
	if max.Sign() <= 0 {
		return nil, fmt.Errorf("bigint: random bound must be positive")
	}
	if r == nil {
		r = rand.Reader
	}
	v, err := rand.Int(r, max.v)
	if err != nil {
		return nil, fmt.Errorf("failed to generate random integer: %w", err)
	}
	return &Int{v: v}, nil
}

// BigInt returns a copy of x as a *big.Int.
func (x *Int) BigInt() *big.Int {
	return new(big.Int).Set(x.v)
}

// Bytes returns the absolute value of x as a minimal big-endian byte slice.
func (x *Int) Bytes() []byte {
	return x.v.Bytes()
}

// FillBytes returns x as a big-endian byte slice of exactly size bytes,
// left-padded with zeros (I2OSP). It fails if x is negative or too large.
func (x *Int) FillBytes(size int) ([]byte, error) {
	if x.v.Sign() < 0 || (x.v.BitLen()+7)/8 > size {
		return nil, ErrOverflow
	}
	return x.v.FillBytes(make([]byte, size)), nil
}

// Base64URL returns the unpadded base64url encoding of Bytes.
func (x *Int) Base64URL() string {
	return base64.RawURLEncoding.EncodeToString(x.v.Bytes())
}

// String returns the decimal representation of x.
func (x *Int) String() string {
	return x.v.String()
}

// Int64 returns x as an int64 and whether the conversion was exact.
func (x *Int) Int64() (int64, bool) {
	return x.v.Int64(), x.v.IsInt64()
}

// Add returns x + y.
func (x *Int) Add(y *Int) *Int {
	return &Int{v: new(big.Int).Add(x.v, y.v)}
}

// Sub returns x - y.
func (x *Int) Sub(y *Int) *Int {
	return &Int{v: new(big.Int).Sub(x.v, y.v)}
}

// Mul returns x * y.
func (x *Int) Mul(y *Int) *Int {
	return &Int{v: new(big.Int).Mul(x.v, y.v)}
}

// Div returns the Euclidean quotient x / y.
func (x *Int) Div(y *Int) (*Int, error) {
	if y.v.Sign() == 0 {
		return nil, ErrDivisionByZero
	}
	return &Int{v: new(big.Int).Div(x.v, y.v)}, nil
}

// Mod returns the Euclidean modulus x mod m, always in [0, |m|).
func (x *Int) Mod(m *Int) (*Int, error) {
	if m.v.Sign() == 0 {
		return nil, ErrDivisionByZero
	}
	return &Int{v: new(big.Int).Mod(x.v, m.v)}, nil
}

// ModPow returns x^e mod m. The exponent must be non-negative and m positive.
func (x *Int) ModPow(e, m *Int) (*Int, error) {
	if m.v.Sign() <= 0 {
		return nil, ErrDivisionByZero
	}
	if e.v.Sign() < 0 {
		return nil, fmt.Errorf("bigint: negative exponent")
	}
	return &Int{v: new(big.Int).Exp(x.v, e.v, m.v)}, nil
}

// ModInverse returns y such that x*y ≡ 1 (mod m).
func (x *Int) ModInverse(m *Int) (*Int, error) {
	if m.v.Sign() <= 0 {
		return nil, ErrDivisionByZero
	}
	v := new(big.Int).ModInverse(x.v, m.v)
	if v == nil {
		return nil, ErrNotInvertible
	}
	return &Int{v: v}, nil
}

// GCD returns the greatest common divisor of |x| and |y|.
func (x *Int) GCD(y *Int) *Int {
	a := new(big.Int).Abs(x.v)
	b := new(big.Int).Abs(y.v)
	return &Int{v: new(big.Int).GCD(nil, nil, a, b)}
}

// Lsh returns x << n.
func (x *Int) Lsh(n uint) *Int {
	return &Int{v: new(big.Int).Lsh(x.v, n)}
}

// Rsh returns x >> n.
func (x *Int) Rsh(n uint) *Int {
	return &Int{v: new(big.Int).Rsh(x.v, n)}
}

// Cmp compares x and y and returns -1, 0 or +1.
func (x *Int) Cmp(y *Int) int {
	return x.v.Cmp(y.v)
}

// Equal reports whether x == y.
func (x *Int) Equal(y *Int) bool {
	return x.v.Cmp(y.v) == 0
}

// Sign returns -1, 0 or +1 depending on the sign of x.
func (x *Int) Sign() int {
	return x.v.Sign()
}

// IsZero reports whether x == 0.
func (x *Int) IsZero() bool {
	return x.v.Sign() == 0
}

// IsOne reports whether x == 1.
func (x *Int) IsOne() bool {
	return x.v.Cmp(one.v) == 0
}

// IsEven reports whether x is even.
func (x *Int) IsEven() bool {
	return x.v.Bit(0) == 0
}

// IsOdd reports whether x is odd.
func (x *Int) IsOdd() bool {
	return x.v.Bit(0) == 1
}

// BitLen returns the length of |x| in bits.
func (x *Int) BitLen() int {
	return x.v.BitLen()
}

// ByteLen returns the length of |x| in bytes.
func (x *Int) ByteLen() int {
	return (x.v.BitLen() + 7) / 8
}

// TrailingZeroBits returns the number of consecutive least significant zero
// bits of |x|.
func (x *Int) TrailingZeroBits() uint {
	return x.v.TrailingZeroBits()
}

// ProbablyPrime runs n rounds of Miller-Rabin plus a Baillie-PSW test.
func (x *Int) ProbablyPrime(n int) bool {
	return x.v.ProbablyPrime(n)
}
