// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"bankcrew/pkg/errors"
)

// ErrorMetrics tracks error rates and types for production monitoring.
type ErrorMetrics struct {
	// errorCounter tracks total errors by code and component
	errorCounter metric.Int64Counter

	// recoveryCounter tracks successful recoveries
	recoveryCounter metric.Int64Counter

	mu sync.RWMutex
}

// NewErrorMetrics creates a new error metrics tracker with OTEL meters.
func NewErrorMetrics(ctx context.Context) (*ErrorMetrics, error) {
	meter := otel.Meter("bankcrew/errors")

	errorCounter, err := meter.Int64Counter(
		"bankcrew.errors.total",
		metric.WithDescription("Total errors by code and component"),
	)
	if err != nil {
		return nil, err
	}

	recoveryCounter, err := meter.Int64Counter(
		"bankcrew.errors.recovered",
		metric.WithDescription("Successful error recoveries by code"),
	)
	if err != nil {
		return nil, err
	}

	return &ErrorMetrics{
		errorCounter:    errorCounter,
		recoveryCounter: recoveryCounter,
	}, nil
}

// RecordError increments the error counter for the given error code and component.
func (em *ErrorMetrics) RecordError(ctx context.Context, err error, component string) {
	if em == nil || err == nil {
		return
	}

	em.mu.RLock()
	defer em.mu.RUnlock()

	ce := errors.AsCrewError(err)
	em.errorCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("error_code", string(ce.Code)),
		attribute.String("component", component),
		attribute.String("recoverable", ce.RecoverableString()),
	))
}

// RecordRecovery increments the recovery counter for the given error code.
func (em *ErrorMetrics) RecordRecovery(ctx context.Context, code errors.ErrorCode, component string) {
	if em == nil {
		return
	}

	em.mu.RLock()
	defer em.mu.RUnlock()

	em.recoveryCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("error_code", string(code)),
		attribute.String("component", component),
	))
}

var (
	globalErrorMetrics *ErrorMetrics
	errorMetricsOnce   sync.Once
)

// GlobalErrorMetrics returns the process-wide error metrics tracker,
// creating it on first use. Returns nil if the meter cannot be created.
func GlobalErrorMetrics(ctx context.Context) *ErrorMetrics {
	errorMetricsOnce.Do(func() {
		em, err := NewErrorMetrics(ctx)
		if err == nil {
			globalErrorMetrics = em
		}
	})
	return globalErrorMetrics
}
