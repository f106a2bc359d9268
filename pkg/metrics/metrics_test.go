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
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsEnabled(t *testing.T) {
	// Metrics should be enabled by default
	if !IsEnabled() {
		t.Error("Expected metrics to be enabled by default")
	}

	Disable()
	if IsEnabled() {
		t.Error("Expected metrics to be disabled after Disable()")
	}

	Enable()
	if !IsEnabled() {
		t.Error("Expected metrics to be enabled after Enable()")
	}
}

func TestRecordOperation(t *testing.T) {
	Enable()

	OperationsTotal.Reset()
	OperationDuration.Reset()

	RecordOperation(OpWrap, "A128KW", StatusSuccess, 0.001)

	count := testutil.CollectAndCount(OperationsTotal)
	if count != 1 {
		t.Errorf("Expected 1 operation recorded, got %d", count)
	}

	histCount := testutil.CollectAndCount(OperationDuration)
	if histCount != 1 {
		t.Errorf("Expected 1 histogram sample, got %d", histCount)
	}

	RecordOperation(OpUnwrap, "RSA-OAEP", StatusError, 0.01)

	count = testutil.CollectAndCount(OperationsTotal)
	if count != 2 {
		t.Errorf("Expected 2 operations recorded, got %d", count)
	}

	value := testutil.ToFloat64(OperationsTotal.WithLabelValues(OpWrap, "A128KW", StatusSuccess))
	if value != 1 {
		t.Errorf("Expected counter value 1, got %f", value)
	}
}

func TestRecordOperationWhenDisabled(t *testing.T) {
	Disable()
	defer Enable()

	OperationsTotal.Reset()

	RecordOperation(OpWrap, "A128KW", StatusSuccess, 0.5)

	count := testutil.CollectAndCount(OperationsTotal)
	if count != 0 {
		t.Errorf("Expected 0 operations when disabled, got %d", count)
	}
}

func TestRecordError(t *testing.T) {
	Enable()

	ErrorsTotal.Reset()

	RecordError(OpUnwrap, "A256GCMKW", "decryption_failed")
	count := testutil.CollectAndCount(ErrorsTotal)
	if count != 1 {
		t.Errorf("Expected 1 error recorded, got %d", count)
	}

	RecordError(OpDerive, "ECDH-ES", "curve_mismatch")
	count = testutil.CollectAndCount(ErrorsTotal)
	if count != 2 {
		t.Errorf("Expected 2 errors recorded, got %d", count)
	}
}

func TestRecordErrorWhenDisabled(t *testing.T) {
	Disable()
	defer Enable()

	ErrorsTotal.Reset()
	RecordError(OpUnwrap, "A128KW", "invalid_key")

	count := testutil.CollectAndCount(ErrorsTotal)
	if count != 0 {
		t.Errorf("Expected 0 errors when disabled, got %d", count)
	}
}

func TestSetAlgorithmsEnabled(t *testing.T) {
	Enable()
	AlgorithmsEnabled.Reset()

	SetAlgorithmsEnabled("wrap", 17)
	SetAlgorithmsEnabled("direct", 1)

	if got := testutil.ToFloat64(AlgorithmsEnabled.WithLabelValues("wrap")); got != 17 {
		t.Errorf("Expected 17 wrap algorithms, got %f", got)
	}
	if count := testutil.CollectAndCount(AlgorithmsEnabled); count != 2 {
		t.Errorf("Expected 2 gauge series, got %d", count)
	}
}
