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

package keymanagement

import (
	"io"

	"github.com/jeremyhahn/go-josekm/pkg/crypto/aead"
	"github.com/jeremyhahn/go-josekm/pkg/crypto/rand"
)

const (
	// DefaultPBES2SaltSize is the default PBES2 salt length in bytes.
	DefaultPBES2SaltSize = 64

	// DefaultPBES2Iterations is the default PBKDF2 iteration count.
	DefaultPBES2Iterations = 4096

	// MinPBES2SaltSize is the smallest salt accepted (RFC 7518 4.8.1.1).
	MinPBES2SaltSize = 8

	// MinPBES2Iterations is the smallest iteration count accepted
	// (RFC 7518 4.8.1.2).
	MinPBES2Iterations = 1000

	// MaxPBES2Iterations bounds the p2c value accepted on unwrap.
	MaxPBES2Iterations = 1000000
)

// Options carries the configuration shared by algorithm constructors.
type Options struct {
	// Random is the source for IVs, salts, padding and ephemeral keys.
	Random io.Reader

	// PBES2SaltSize is the salt length used when wrapping with PBES2.
	PBES2SaltSize int

	// PBES2Iterations is the iteration count used when wrapping with PBES2.
	PBES2Iterations int

	// NonceTracker, when set, rejects AES-GCM key wrap IVs already used
	// with the same key.
	NonceTracker *aead.NonceTracker
}

// Option configures Options.
type Option func(*Options)

// WithRandom sets the random source.
func WithRandom(r io.Reader) Option {
	return func(o *Options) {
		o.Random = r
	}
}

// WithPBES2SaltSize sets the PBES2 salt length in bytes.
func WithPBES2SaltSize(n int) Option {
	return func(o *Options) {
		o.PBES2SaltSize = n
	}
}

// WithPBES2Iterations sets the PBES2 iteration count.
func WithPBES2Iterations(n int) Option {
	return func(o *Options) {
		o.PBES2Iterations = n
	}
}

// WithNonceTracker enables IV reuse detection for AES-GCM key wrapping.
func WithNonceTracker(t *aead.NonceTracker) Option {
	return func(o *Options) {
		o.NonceTracker = t
	}
}

// NewOptions applies opts over the defaults.
func NewOptions(opts ...Option) *Options {
	o := &Options{
		Random:          rand.Default(),
		PBES2SaltSize:   DefaultPBES2SaltSize,
		PBES2Iterations: DefaultPBES2Iterations,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.Random == nil {
		o.Random = rand.Default()
	}
	return o
}
