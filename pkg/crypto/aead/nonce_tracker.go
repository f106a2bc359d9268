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

// Package aead guards AEAD initialization vectors against reuse under the
// same key.
package aead

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
)

// NonceTracker provides thread-safe tracking of used nonces to prevent
// nonce reuse with AES-GCM.
//
// Nonces are tracked per key. Keys are identified by their SHA-256 digest
// so the tracker never holds key material. Memory grows with each
// recorded nonce; the tracker lives as long as the process.
//
// Example usage:
//
//	tracker := aead.NewNonceTracker(true)
//
//	// Before each encryption
//	if err := tracker.CheckAndRecordNonce(kek, iv); err != nil {
//	    return err // Nonce was already used with this key!
//	}
type NonceTracker struct {
	enabled bool
	nonces  map[string]map[string]struct{} // key digest -> set of hex nonces
	mu      sync.RWMutex
}

// NewNonceTracker creates a new nonce tracker.
//
// Parameters:
//   - enabled: If true, nonce tracking is active. If false, all operations are no-ops.
func NewNonceTracker(enabled bool) *NonceTracker {
	return &NonceTracker{
		enabled: enabled,
		nonces:  make(map[string]map[string]struct{}),
	}
}

func keyID(key []byte) string {
	sum := sha256.Sum256(key)
	return hex.EncodeToString(sum[:])
}

// CheckAndRecordNonce checks if nonce has been used with key before and
// records it. Both steps happen under one lock.
//
// Returns:
//   - nil if the nonce is unique for key and has been recorded
//   - ErrNonceReuse if the nonce was previously used with key
func (nt *NonceTracker) CheckAndRecordNonce(key, nonce []byte) error {
	if !nt.IsEnabled() {
		return nil
	}

	id := keyID(key)
	nonceHex := hex.EncodeToString(nonce)

	nt.mu.Lock()
	defer nt.mu.Unlock()

	used, ok := nt.nonces[id]
	if !ok {
		used = make(map[string]struct{})
		nt.nonces[id] = used
	}
	if _, exists := used[nonceHex]; exists {
		return ErrNonceReuse
	}
	used[nonceHex] = struct{}{}
	return nil
}

// Contains reports whether nonce has been recorded for key, without
// recording it. A disabled tracker always returns false.
func (nt *NonceTracker) Contains(key, nonce []byte) bool {
	if !nt.IsEnabled() {
		return false
	}

	id := keyID(key)
	nonceHex := hex.EncodeToString(nonce)

	nt.mu.RLock()
	defer nt.mu.RUnlock()

	_, exists := nt.nonces[id][nonceHex]
	return exists
}

// IsEnabled returns whether nonce tracking is enabled.
func (nt *NonceTracker) IsEnabled() bool {
	return nt.enabled
}
