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

package metrics

import (
	"time"
)

// ErrorClassifier maps an error to a low-cardinality error_type label.
type ErrorClassifier func(error) string

// Timer measures a single operation and records it when Done is called.
type Timer struct {
	operation string
	algorithm string
	classify  ErrorClassifier
	started   time.Time
}

// Start begins timing an operation.
//
// Example:
//
//	timer := metrics.Start(metrics.OpWrap, "A128KW", classify)
//	out, extra, err := alg.WrapKey(key, cek, header)
//	timer.Done(err)
func Start(operation, algorithm string, classify ErrorClassifier) *Timer {
	return &Timer{
		operation: operation,
		algorithm: algorithm,
		classify:  classify,
		started:   time.Now(),
	}
}

// Done records the operation outcome and returns the elapsed time. A
// non-nil err is counted as an error and classified.
func (t *Timer) Done(err error) time.Duration {
	elapsed := time.Since(t.started)
	if err == nil {
		RecordOperation(t.operation, t.algorithm, StatusSuccess, elapsed.Seconds())
		return elapsed
	}

	RecordOperation(t.operation, t.algorithm, StatusError, elapsed.Seconds())
	errorType := "unknown"
	if t.classify != nil {
		errorType = t.classify(err)
	}
	RecordError(t.operation, t.algorithm, errorType)
	return elapsed
}
