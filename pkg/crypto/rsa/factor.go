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

package rsa

import (
	"fmt"
	"io"

	"github.com/jeremyhahn/go-josekm/pkg/bigint"
	"github.com/jeremyhahn/go-josekm/pkg/crypto/rand"
)

// MaxFactorAttempts bounds the number of random witnesses tried by
// RecoverPrimes. Each witness succeeds with probability at least 1/2.
const MaxFactorAttempts = 100

// RecoverPrimes recovers p and q from (n, e, d) following NIST SP 800-56B
// Appendix C. The returned primes satisfy p > q and p·q = n.
func RecoverPrimes(random io.Reader, n, e, d *bigint.Int) (*bigint.Int, *bigint.Int, error) {
	if n == nil || e == nil || d == nil {
		return nil, nil, fmt.Errorf("%w: n, e and d are required", ErrInvalidKey)
	}
	random = rand.ReaderOrDefault(random)

	one := bigint.One()
	nMinus1 := n.Sub(one)

	// de − 1 = 2^t · r with r odd.
	k := d.Mul(e).Sub(one)
	if k.Sign() <= 0 || k.IsOdd() {
		return nil, nil, ErrFactorizationFailed
	}
	t := k.TrailingZeroBits()
	r := k.Rsh(t)

	for attempt := 0; attempt < MaxFactorAttempts; attempt++ {
		// g in [2, n−1)
		g, err := bigint.RandomBelow(random, n.Sub(bigint.Two()))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to draw witness: %w", err)
		}
		g = g.Add(bigint.Two())

		if gcd := g.GCD(n); !gcd.IsOne() {
			return orderPrimes(n, gcd)
		}

		y, err := g.ModPow(r, n)
		if err != nil {
			return nil, nil, err
		}
		if y.IsOne() || y.Equal(nMinus1) {
			continue
		}

		for i := uint(1); i <= t; i++ {
			x, err := y.ModPow(bigint.Two(), n)
			if err != nil {
				return nil, nil, err
			}
			if x.IsOne() {
				// y is a nontrivial square root of 1.
				return orderPrimes(n, y.Sub(one).GCD(n))
			}
			if x.Equal(nMinus1) {
				break
			}
			y = x
		}
	}

	return nil, nil, ErrFactorizationFailed
}

func orderPrimes(n, p *bigint.Int) (*bigint.Int, *bigint.Int, error) {
	if p.IsOne() || p.Equal(n) {
		return nil, nil, ErrFactorizationFailed
	}
	q, err := n.Div(p)
	if err != nil {
		return nil, nil, ErrFactorizationFailed
	}
	if !p.Mul(q).Equal(n) {
		return nil, nil, ErrFactorizationFailed
	}
	if p.Cmp(q) < 0 {
		p, q = q, p
	}
	return p, q, nil
}
