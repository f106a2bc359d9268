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

// Package rand provides the random number source shared by every key
// management algorithm: AES-GCM initialization vectors, PBES2 salts, OAEP
// seeds, PKCS#1 v1.5 padding strings, ephemeral EC keys and the random
// witnesses used by RSA prime-factor recovery.
//
// # Configuration
//
// Applications configure the RNG once at startup and pass the Resolver to
// the algorithms (it implements io.Reader):
//
//	rng, _ := rand.NewResolver(rand.ModeAuto)
//	iv, _ := rng.Rand(12)
//
// When no resolver is configured the algorithms use Default(), which reads
// from crypto/rand.
//
// # Thread Safety
//
// All Resolver implementations are safe for concurrent use. Independent
// callers never observe correlated output.
package rand

import (
	"crypto/rand"
	"fmt"
	"io"
)

// Mode specifies which RNG source to use.
type Mode string

const (
	// ModeAuto selects the best available RNG. Only the software source
	// is compiled into this module, so auto resolves to software.
	ModeAuto Mode = "auto"

	// ModeSoftware uses crypto/rand (stdlib secure random)
	ModeSoftware Mode = "software"
)

// Config contains RNG configuration.
type Config struct {
	// Mode specifies the RNG source to use.
	// Defaults to ModeAuto if not specified.
	Mode Mode
}

// Resolver provides the main interface for generating random numbers.
// Applications should create a Resolver at startup and reuse it.
//
// Resolver implements io.Reader, making it usable anywhere an io.Reader is
// expected for random number generation.
type Resolver interface {
	io.Reader

	// Rand returns n random bytes from the configured RNG source.
	Rand(n int) ([]byte, error)
}

var defaultResolver Resolver = &SoftwareResolver{}

// Default returns the process-wide software resolver.
func Default() Resolver {
	return defaultResolver
}

// NewResolver creates a new RNG resolver with the given configuration.
// The config may be a Mode, a *Config or nil (auto mode).
func NewResolver(config interface{}) (Resolver, error) {
	cfg := normalizeConfig(config)

	switch cfg.Mode {
	case ModeAuto, ModeSoftware:
		return &SoftwareResolver{}, nil
	default:
		return nil, fmt.Errorf("unknown RNG mode: %s", cfg.Mode)
	}
}

// normalizeConfig converts various config types to *Config.
func normalizeConfig(config interface{}) *Config {
	switch v := config.(type) {
	case Mode:
		if v == "" {
			return &Config{Mode: ModeAuto}
		}
		return &Config{Mode: v}
	case *Config:
		if v == nil || v.Mode == "" {
			return &Config{Mode: ModeAuto}
		}
		return v
	default:
		return &Config{Mode: ModeAuto}
	}
}

// Bytes reads exactly n random bytes from r. A nil reader falls back to
// Default().
func Bytes(r io.Reader, n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("invalid random length: %d", n)
	}
	if r == nil {
		r = defaultResolver
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("failed to read random bytes: %w", err)
	}
	return buf, nil
}

// ReaderOrDefault returns r, or Default() when r is nil.
func ReaderOrDefault(r io.Reader) io.Reader {
	if r == nil {
		return defaultResolver
	}
	return r
}

// SoftwareResolver uses crypto/rand from the Go standard library.
type SoftwareResolver struct{}

var _ Resolver = (*SoftwareResolver)(nil)

func (s *SoftwareResolver) Rand(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("invalid random length: %d", n)
	}
	buf := make([]byte, n)
	_, err := rand.Read(buf)
	return buf, err
}

// Read implements io.Reader for compatibility with crypto/rand.Reader.
func (s *SoftwareResolver) Read(p []byte) (n int, err error) {
	return rand.Read(p)
}
