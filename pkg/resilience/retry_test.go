// SPDX-License-Identifier: Apache-2.0

package resilience

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"bankcrew/pkg/errors"
)

func TestRetrySucceedsAfterFailures(t *testing.T) {
	rc := DefaultRetryConfig().WithInitialDelay(time.Millisecond)
	attempts := 0
	err := rc.Do(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return errors.New(errors.CodeLLMError, "provider unavailable", nil)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
}

func TestRetryStopsOnUnrecoverable(t *testing.T) {
	rc := DefaultRetryConfig().WithInitialDelay(time.Millisecond)
	attempts := 0
	err := rc.Do(context.Background(), func() error {
		attempts++
		return errors.New(errors.CodeInvalidInput, "bad query", nil)
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if attempts != 1 {
		t.Errorf("expected no retry for unrecoverable error, got %d attempts", attempts)
	}
}

func TestRetryExhaustsAttempts(t *testing.T) {
	rc := DefaultRetryConfig().WithMaxAttempts(2).WithInitialDelay(time.Millisecond)
	attempts := 0
	cause := errors.New(errors.CodeVectorStore, "connection refused", nil)
	err := rc.Do(context.Background(), func() error {
		attempts++
		return cause
	})
	if !stderrors.Is(err, cause) {
		t.Fatalf("expected last error returned, got %v", err)
	}
	if attempts != 2 {
		t.Errorf("expected 2 attempts, got %d", attempts)
	}
}

func TestRetryRespectsContextCancel(t *testing.T) {
	rc := DefaultRetryConfig().WithInitialDelay(time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	err := rc.Do(ctx, func() error {
		attempts++
		return errors.New(errors.CodeLLMError, "unavailable", nil)
	})
	if err == nil {
		t.Fatal("expected context cancellation error")
	}
	ce := errors.AsCrewError(err)
	if ce.Code != errors.CodeTimeout {
		t.Errorf("expected CodeTimeout, got %v", ce.Code)
	}
}

func TestDoWithResult(t *testing.T) {
	rc := DefaultRetryConfig().WithInitialDelay(time.Millisecond)
	attempts := 0
	result, err := rc.DoWithResult(context.Background(), func() (interface{}, error) {
		attempts++
		if attempts < 2 {
			return nil, errors.New(errors.CodeEmbedding, "transient", nil)
		}
		return "vector", nil
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if result != "vector" {
		t.Errorf("expected result to survive retries, got %v", result)
	}
}
