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

package registry

import (
	"errors"

	"github.com/jeremyhahn/go-josekm/pkg/encoding/jwk"
	"github.com/jeremyhahn/go-josekm/pkg/keymanagement"
	"github.com/jeremyhahn/go-josekm/pkg/logging"
	"github.com/jeremyhahn/go-josekm/pkg/metrics"
)

// ErrorType returns the error_type label for err.
func ErrorType(err error) string {
	switch {
	case errors.Is(err, keymanagement.ErrInvalidKey):
		return "invalid_key"
	case errors.Is(err, keymanagement.ErrInvalidHeader):
		return "invalid_header"
	case errors.Is(err, keymanagement.ErrCurveMismatch):
		return "curve_mismatch"
	case errors.Is(err, keymanagement.ErrUnsupportedCurve):
		return "unsupported_curve"
	case errors.Is(err, keymanagement.ErrDecryptionFailed):
		return "decryption_failed"
	case errors.Is(err, keymanagement.ErrFactorizationFailed):
		return "factorization_failed"
	case errors.Is(err, keymanagement.ErrUnsupportedAlgorithm):
		return "unsupported_algorithm"
	case errors.Is(err, keymanagement.ErrHeaderConflict):
		return "header_conflict"
	default:
		return "internal"
	}
}

type observer struct {
	algorithm string
	logger    *logging.Logger
}

func (r *Registry) observer(name string) observer {
	return observer{algorithm: name, logger: r.logger}
}

// track starts timing operation; the returned func records the outcome.
func (o observer) track(operation string) func(error) {
	timer := metrics.Start(operation, o.algorithm, ErrorType)
	return func(err error) {
		elapsed := timer.Done(err)
		if err != nil {
			o.logger.Warn("key management operation failed",
				"operation", operation,
				"algorithm", o.algorithm,
				"error_type", ErrorType(err),
				"duration", elapsed)
			return
		}
		o.logger.Debug("key management operation",
			"operation", operation,
			"algorithm", o.algorithm,
			"duration", elapsed)
	}
}

type instrumentedDirect struct {
	keymanagement.DirectKeySupplier
	obs observer
}

func (d *instrumentedDirect) CEK(key *jwk.JWK) (cek []byte, err error) {
	defer func(done func(error)) { done(err) }(d.obs.track(metrics.OpDirect))
	return d.DirectKeySupplier.CEK(key)
}

type instrumentedWrapper struct {
	keymanagement.KeyWrapper
	obs observer
}

func (w *instrumentedWrapper) WrapKey(key *jwk.JWK, cek []byte, header keymanagement.Header) (out []byte, extra keymanagement.Header, err error) {
	defer func(done func(error)) { done(err) }(w.obs.track(metrics.OpWrap))
	return w.KeyWrapper.WrapKey(key, cek, header)
}

func (w *instrumentedWrapper) UnwrapKey(key *jwk.JWK, encryptedCEK []byte, header keymanagement.Header) (cek []byte, err error) {
	defer func(done func(error)) { done(err) }(w.obs.track(metrics.OpUnwrap))
	return w.KeyWrapper.UnwrapKey(key, encryptedCEK, header)
}

type instrumentedAgreement struct {
	keymanagement.KeyAgreement
	obs observer
}

func (a *instrumentedAgreement) DeriveKey(length int, algorithmID string, local, peer *jwk.JWK, header keymanagement.Header) (out []byte, extra keymanagement.Header, err error) {
	defer func(done func(error)) { done(err) }(a.obs.track(metrics.OpDerive))
	return a.KeyAgreement.DeriveKey(length, algorithmID, local, peer, header)
}

type instrumentedAgreementWrapper struct {
	keymanagement.KeyAgreementWrapper
	obs observer
}

func (w *instrumentedAgreementWrapper) WrapAgreementKey(peer *jwk.JWK, cek []byte, length int, header keymanagement.Header) (out []byte, extra keymanagement.Header, err error) {
	defer func(done func(error)) { done(err) }(w.obs.track(metrics.OpWrap))
	return w.KeyAgreementWrapper.WrapAgreementKey(peer, cek, length, header)
}

func (w *instrumentedAgreementWrapper) UnwrapAgreementKey(recipient *jwk.JWK, encryptedCEK []byte, length int, header keymanagement.Header) (cek []byte, err error) {
	defer func(done func(error)) { done(err) }(w.obs.track(metrics.OpUnwrap))
	return w.KeyAgreementWrapper.UnwrapAgreementKey(recipient, encryptedCEK, length, header)
}
