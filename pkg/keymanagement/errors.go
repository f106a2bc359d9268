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
	"errors"

	"github.com/jeremyhahn/go-josekm/pkg/crypto/ecdh"
	"github.com/jeremyhahn/go-josekm/pkg/crypto/rsa"
)

var (
	// ErrInvalidKey is returned when a key has the wrong type, is missing a
	// required member, or has the wrong size for the algorithm.
	ErrInvalidKey = errors.New("keymanagement: invalid key")

	// ErrInvalidHeader is returned when a required header parameter is
	// missing or malformed.
	ErrInvalidHeader = errors.New("keymanagement: invalid header parameter")

	// ErrCurveMismatch is returned when agreement keys use different curves.
	ErrCurveMismatch = ecdh.ErrCurveMismatch

	// ErrUnsupportedCurve is returned for curves other than P-256, P-384
	// and P-521.
	ErrUnsupportedCurve = ecdh.ErrUnsupportedCurve

	// ErrDecryptionFailed is returned when an encrypted key fails an
	// integrity or padding check. RSA key transport returns it unwrapped so
	// callers cannot tell which check failed.
	ErrDecryptionFailed = errors.New("keymanagement: decryption failed")

	// ErrFactorizationFailed is returned when RSA prime factors cannot be
	// recovered from (n, e, d).
	ErrFactorizationFailed = rsa.ErrFactorizationFailed

	// ErrUnsupportedAlgorithm is returned for algorithm names that are not
	// registered or not enabled.
	ErrUnsupportedAlgorithm = errors.New("keymanagement: unsupported algorithm")

	// ErrHeaderConflict is returned when merging would overwrite an existing
	// header parameter.
	ErrHeaderConflict = errors.New("keymanagement: header parameter conflict")
)
