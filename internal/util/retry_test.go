package util

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastConfig(maxRetries int) *RetryConfig {
	return &RetryConfig{
		MaxRetries: maxRetries,
		BaseDelay:  time.Millisecond,
		MaxDelay:   5 * time.Millisecond,
		Multiplier: 2.0,
	}
}

func TestRetry_SuccessOnFirstAttempt(t *testing.T) {
	attempts := 0
	_, result := RetryWithValue(context.Background(), fastConfig(3), func() (struct{}, error) {
		attempts++
		return struct{}{}, nil
	})

	if result.Attempts != 1 || attempts != 1 {
		t.Errorf("expected 1 attempt, got %d (calls %d)", result.Attempts, attempts)
	}
	if result.LastError != nil {
		t.Errorf("expected no error, got %v", result.LastError)
	}
}

func TestRetry_SuccessAfterRetries(t *testing.T) {
	attempts := 0
	_, result := RetryWithValue(context.Background(), fastConfig(5), func() (struct{}, error) {
		attempts++
		if attempts < 3 {
			return struct{}{}, errors.New("temporary error")
		}
		return struct{}{}, nil
	})

	if result.Attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", result.Attempts)
	}
	if result.LastError != nil {
		t.Errorf("expected no error, got %v", result.LastError)
	}
}

func TestRetry_MaxRetriesExceeded(t *testing.T) {
	_, result := RetryWithValue(context.Background(), fastConfig(2), func() (struct{}, error) {
		return struct{}{}, errors.New("always fails")
	})

	if result.Attempts != 3 {
		t.Errorf("expected 3 attempts (1 + 2 retries), got %d", result.Attempts)
	}
	if !errors.Is(result.LastError, ErrMaxRetriesExceeded) {
		t.Errorf("expected ErrMaxRetriesExceeded, got %v", result.LastError)
	}
}

func TestRetry_NonRetryableStopsImmediately(t *testing.T) {
	cfg := fastConfig(5)
	cfg.RetryIf = DefaultRetryIf()

	attempts := 0
	_, result := RetryWithValue(context.Background(), cfg, func() (struct{}, error) {
		attempts++
		return struct{}{}, MarkNonRetryable(errors.New("chain id mismatch"))
	})

	if attempts != 1 {
		t.Errorf("expected 1 attempt, got %d", attempts)
	}
	if !IsNonRetryable(result.LastError) {
		t.Errorf("expected non-retryable error, got %v", result.LastError)
	}
}

func TestRetry_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := fastConfig(-1)
	cfg.BaseDelay = time.Second
	_, result := RetryWithValue(ctx, cfg, func() (struct{}, error) {
		return struct{}{}, errors.New("fails")
	})

	if !errors.Is(result.LastError, ErrContextCanceled) {
		t.Errorf("expected ErrContextCanceled, got %v", result.LastError)
	}
}

func TestRetryWithValue(t *testing.T) {
	calls := 0
	val, result := RetryWithValue(context.Background(), fastConfig(3), func() (int, error) {
		calls++
		if calls == 1 {
			return 0, errors.New("first call fails")
		}
		return 42, nil
	})

	if val != 42 {
		t.Errorf("expected 42, got %d", val)
	}
	if result.Attempts != 2 {
		t.Errorf("expected 2 attempts, got %d", result.Attempts)
	}
}

func TestDefaultRetryIf(t *testing.T) {
	retryIf := DefaultRetryIf()
	if !retryIf(errors.New("dial tcp: connection refused")) {
		t.Error("plain errors should be retried")
	}
	if retryIf(MarkNonRetryable(errors.New("bad"))) {
		t.Error("non-retryable errors should not be retried")
	}
	if retryIf(context.Canceled) {
		t.Error("context cancellation should not be retried")
	}
	if MarkNonRetryable(nil) != nil {
		t.Error("MarkNonRetryable(nil) should be nil")
	}
}

func TestCalculateDelay_ClampsToMax(t *testing.T) {
	cfg := &RetryConfig{BaseDelay: time.Second, MaxDelay: 2 * time.Second, Multiplier: 10}
	if d := calculateDelay(cfg, 5); d != 2*time.Second {
		t.Errorf("expected clamp to 2s, got %s", d)
	}
	if d := calculateDelay(cfg, 1); d != time.Second {
		t.Errorf("expected base delay 1s, got %s", d)
	}
}
