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

// Package metrics provides Prometheus instrumentation for go-josekm.
// It exposes operation counters, latency histograms, error counters and a
// gauge of the algorithms enabled in the registry.
package metrics

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	// Namespace is the Prometheus namespace for all josekm metrics
	Namespace = "josekm"

	// Label names
	LabelOperation = "operation"
	LabelAlgorithm = "algorithm"
	LabelMode      = "mode"
	LabelStatus    = "status"
	LabelErrorType = "error_type"

	// Status values
	StatusSuccess = "success"
	StatusError   = "error"

	// Operation names
	OpWrap   = "wrap"
	OpUnwrap = "unwrap"
	OpDerive = "derive"
	OpDirect = "direct"
)

var (
	// OperationsTotal tracks key management operations by type, algorithm and status.
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "operations_total",
			Help:      "Total number of key management operations by type, algorithm, and status",
		},
		[]string{LabelOperation, LabelAlgorithm, LabelStatus},
	)

	// OperationDuration tracks the duration of key management operations in
	// seconds. PBES2 and RSA factor recovery dominate the upper buckets.
	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "operation_duration_seconds",
			Help:      "Duration of key management operations in seconds",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{LabelOperation, LabelAlgorithm},
	)

	// ErrorsTotal tracks errors by operation, algorithm and error type.
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "errors_total",
			Help:      "Total number of errors by operation, algorithm, and error type",
		},
		[]string{LabelOperation, LabelAlgorithm, LabelErrorType},
	)

	// AlgorithmsEnabled tracks the number of registered algorithms per mode.
	AlgorithmsEnabled = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "algorithms_enabled",
			Help:      "Number of enabled key management algorithms by mode",
		},
		[]string{LabelMode},
	)

	// enabled tracks whether metrics collection is enabled
	enabled atomic.Bool
)

func init() {
	// Metrics are enabled by default
	enabled.Store(true)
}

// RecordOperation records a key management operation with its duration
// and status.
//
// Parameters:
//   - operation: The operation name (use Op* constants)
//   - algorithm: The registered algorithm name (e.g., "A128KW", "ECDH-ES")
//   - status: The operation status (use Status* constants)
//   - duration: The operation duration in seconds
func RecordOperation(operation, algorithm, status string, duration float64) {
	if !enabled.Load() {
		return
	}
	OperationsTotal.WithLabelValues(operation, algorithm, status).Inc()
	OperationDuration.WithLabelValues(operation, algorithm).Observe(duration)
}

// RecordError records an error event.
//
// Example:
//
//	if errors.Is(err, keymanagement.ErrDecryptionFailed) {
//	    RecordError(OpUnwrap, "A256GCMKW", "decryption_failed")
//	}
func RecordError(operation, algorithm, errorType string) {
	if !enabled.Load() {
		return
	}
	ErrorsTotal.WithLabelValues(operation, algorithm, errorType).Inc()
}

// SetAlgorithmsEnabled sets the number of enabled algorithms for a mode.
func SetAlgorithmsEnabled(mode string, count float64) {
	if !enabled.Load() {
		return
	}
	AlgorithmsEnabled.WithLabelValues(mode).Set(count)
}

// Enable enables metrics collection.
func Enable() {
	enabled.Store(true)
}

// Disable disables metrics collection.
// Useful for testing or when metrics are not desired.
func Disable() {
	enabled.Store(false)
}

// IsEnabled returns whether metrics collection is currently enabled.
func IsEnabled() bool {
	return enabled.Load()
}
