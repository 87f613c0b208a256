// Gridscope - Interactive SQL Data Exploration Grid
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gridscope

package breaker

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/gridscope/internal/metrics"
)

var errBoom = errors.New("boom")

func fail() (string, error) { return "", errBoom }
func succeed() (string, error) { return "ok", nil }

// TestBreaker_OpensAfterConsecutiveFailures verifies the circuit opens at the threshold
func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	b := New[string]("test-opens", Settings{FailureThreshold: 3, Timeout: time.Minute})

	for i := 0; i < 3; i++ {
		if _, err := b.Execute(fail); !errors.Is(err, errBoom) {
			t.Fatalf("call %d: expected errBoom, got %v", i, err)
		}
	}

	if b.State() != "open" {
		t.Fatalf("Expected circuit to be open, got %s", b.State())
	}

	_, err := b.Execute(succeed)
	if !IsRejected(err) {
		t.Errorf("Expected rejection while open, got %v", err)
	}

	if got := testutil.ToFloat64(metrics.CircuitBreakerState.WithLabelValues("test-opens")); got != 2 {
		t.Errorf("state gauge = %v, want 2", got)
	}
	if got := testutil.ToFloat64(metrics.CircuitBreakerRequests.WithLabelValues("test-opens", "rejected")); got != 1 {
		t.Errorf("rejected counter = %v, want 1", got)
	}
}

// TestBreaker_SuccessResetsFailures verifies only consecutive failures count
func TestBreaker_SuccessResetsFailures(t *testing.T) {
	b := New[string]("test-resets", Settings{FailureThreshold: 3, Timeout: time.Minute})

	for i := 0; i < 5; i++ {
		_, _ = b.Execute(fail)
		_, _ = b.Execute(fail)
		if _, err := b.Execute(succeed); err != nil {
			t.Fatalf("Expected success, got %v", err)
		}
	}

	if b.State() != "closed" {
		t.Errorf("Expected circuit to remain closed, got %s", b.State())
	}
}

// TestBreaker_IsSuccessfulErrorsDoNotTrip verifies classified errors are not failures
func TestBreaker_IsSuccessfulErrorsDoNotTrip(t *testing.T) {
	errBadInput := errors.New("bad input")
	b := New[string]("test-classified", Settings{
		FailureThreshold: 2,
		Timeout:          time.Minute,
		IsSuccessful:     func(err error) bool { return errors.Is(err, errBadInput) },
	})

	for i := 0; i < 10; i++ {
		_, err := b.Execute(func() (string, error) { return "", errBadInput })
		if !errors.Is(err, errBadInput) {
			t.Fatalf("Expected the original error to be returned, got %v", err)
		}
	}

	if b.State() != "closed" {
		t.Errorf("Expected circuit to remain closed, got %s", b.State())
	}
}

// TestBreaker_TransitionsToHalfOpen verifies recovery after the timeout
func TestBreaker_TransitionsToHalfOpen(t *testing.T) {
	b := New[string]("test-half-open", Settings{FailureThreshold: 1, Timeout: 50 * time.Millisecond})

	_, _ = b.Execute(fail)
	if b.State() != "open" {
		t.Fatalf("Expected circuit to be open, got %s", b.State())
	}

	time.Sleep(80 * time.Millisecond)

	if b.State() != "half-open" {
		t.Fatalf("Expected circuit to be half-open after timeout, got %s", b.State())
	}

	if _, err := b.Execute(succeed); err != nil {
		t.Fatalf("Expected trial request to succeed, got %v", err)
	}
	if b.State() != "closed" {
		t.Errorf("Expected circuit to close after a successful trial, got %s", b.State())
	}
}

func TestCastResult(t *testing.T) {
	v := 42
	got, err := CastResult[int](&v, nil)
	if err != nil || *got != 42 {
		t.Errorf("CastResult() = %v, %v", got, err)
	}

	if _, err := CastResult[int]("nope", nil); err == nil {
		t.Error("Expected type mismatch error")
	}

	if _, err := CastResult[int](nil, errBoom); !errors.Is(err, errBoom) {
		t.Errorf("Expected errBoom, got %v", err)
	}
}
