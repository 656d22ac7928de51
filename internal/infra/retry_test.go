package infra_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"voice-assistant/internal/infra"
)

func fastRetry(attempts int) infra.RetryConfig {
	return infra.RetryConfig{
		MaxAttempts:  attempts,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2,
	}
}

func TestWithRetry_RetriesRetryableErrors(t *testing.T) {
	calls := 0
	err := infra.WithRetry(context.Background(), fastRetry(3), func() error {
		calls++
		if calls < 3 {
			return &infra.RetryableError{Err: errors.New("upstream 503")}
		}
		return nil
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls: got %d, want 3", calls)
	}
}

func TestWithRetry_StopsOnPermanentError(t *testing.T) {
	calls := 0
	permanent := errors.New("bad request")
	err := infra.WithRetry(context.Background(), fastRetry(3), func() error {
		calls++
		return permanent
	})

	if !errors.Is(err, permanent) {
		t.Errorf("error: got %v", err)
	}
	if calls != 1 {
		t.Errorf("calls: got %d, want 1", calls)
	}
}

func TestWithRetry_SingleAttempt(t *testing.T) {
	calls := 0
	_ = infra.WithRetry(context.Background(), infra.SingleAttempt(), func() error {
		calls++
		return &infra.RetryableError{Err: errors.New("timeout")}
	})

	if calls != 1 {
		t.Errorf("calls: got %d, want 1", calls)
	}
}
