package client

import (
	"errors"
	"testing"
	"time"
)

func TestDefaultRetryPolicy(t *testing.T) {
	p := DefaultRetryPolicy()

	if p.MaxAttempts != 4 {
		t.Errorf("MaxAttempts = %d, want 4", p.MaxAttempts)
	}
	if p.BaseBackoff != 1*time.Second {
		t.Errorf("BaseBackoff = %v, want 1s", p.BaseBackoff)
	}
	if p.Multiplier != 2.0 {
		t.Errorf("Multiplier = %v, want 2.0", p.Multiplier)
	}

	for _, status := range []int{429, 500, 502, 503, 504} {
		if !p.RetryableStatuses[status] {
			t.Errorf("status %d should be retryable", status)
		}
	}
	for _, status := range []int{400, 401, 403, 404} {
		if p.RetryableStatuses[status] {
			t.Errorf("status %d should not be retryable", status)
		}
	}
}

func TestRetryPolicy_Retryable(t *testing.T) {
	p := DefaultRetryPolicy()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "server error",
			err:  &APIError{StatusCode: 503, Class: ErrorClassServer},
			want: true,
		},
		{
			name: "rate limit",
			err:  &APIError{StatusCode: 429, Class: ErrorClassRateLimit},
			want: true,
		},
		{
			name: "client error",
			err:  &APIError{StatusCode: 403, Class: ErrorClassClient},
			want: false,
		},
		{
			name: "network error",
			err:  &APIError{Class: ErrorClassNetwork},
			want: true,
		},
		{
			name: "plain transport error",
			err:  errors.New("connection reset"),
			want: true,
		},
		{
			name: "decode error",
			err:  &APIError{StatusCode: 200, Class: ErrorClassDecode},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.Retryable(tt.err); got != tt.want {
				t.Errorf("Retryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestRetryPolicy_ShouldRetry_Budget(t *testing.T) {
	p := DefaultRetryPolicy()
	serverErr := &APIError{StatusCode: 503, Class: ErrorClassServer}

	// Attempts 0..2 may retry; attempt 3 is the fourth and last.
	for attempt := 0; attempt < 3; attempt++ {
		if !p.ShouldRetry(attempt, serverErr) {
			t.Errorf("ShouldRetry(%d) = false, want true", attempt)
		}
	}
	if p.ShouldRetry(3, serverErr) {
		t.Error("ShouldRetry(3) = true, want false (budget of 4 attempts)")
	}
}

func TestRetryPolicy_BackoffDuration(t *testing.T) {
	p := DefaultRetryPolicy()

	tests := []struct {
		attemptIndex int
		want         time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{10, 30 * time.Second}, // capped at MaxBackoff
	}

	for _, tt := range tests {
		if got := p.BackoffDuration(tt.attemptIndex); got != tt.want {
			t.Errorf("BackoffDuration(%d) = %v, want %v", tt.attemptIndex, got, tt.want)
		}
	}
}

func TestRetryPolicy_BackoffFor_RetryAfterHint(t *testing.T) {
	p := DefaultRetryPolicy()

	rateLimited := &APIError{
		StatusCode: 429,
		Class:      ErrorClassRateLimit,
		RetryAfter: 12 * time.Second,
	}
	if got := p.BackoffFor(0, rateLimited); got != 12*time.Second {
		t.Errorf("BackoffFor(0, 429 with hint) = %v, want 12s", got)
	}

	// Without a hint the exponential schedule applies.
	noHint := &APIError{StatusCode: 429, Class: ErrorClassRateLimit}
	if got := p.BackoffFor(1, noHint); got != 2*time.Second {
		t.Errorf("BackoffFor(1, 429 no hint) = %v, want 2s", got)
	}

	// Hints on non-rate-limit errors are ignored.
	serverErr := &APIError{StatusCode: 503, Class: ErrorClassServer, RetryAfter: 12 * time.Second}
	if got := p.BackoffFor(0, serverErr); got != 1*time.Second {
		t.Errorf("BackoffFor(0, 503) = %v, want 1s", got)
	}
}

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		status int
		want   ErrorClass
	}{
		{429, ErrorClassRateLimit},
		{400, ErrorClassClient},
		{404, ErrorClassClient},
		{500, ErrorClassServer},
		{503, ErrorClassServer},
		{200, ""},
	}

	for _, tt := range tests {
		if got := ClassifyStatus(tt.status); got != tt.want {
			t.Errorf("ClassifyStatus(%d) = %q, want %q", tt.status, got, tt.want)
		}
	}
}

func TestClassOfAndStatusOf(t *testing.T) {
	apiErr := &APIError{StatusCode: 503, Class: ErrorClassServer}
	if got := ClassOf(apiErr); got != ErrorClassServer {
		t.Errorf("ClassOf = %q, want server", got)
	}
	if got := StatusOf(apiErr); got != 503 {
		t.Errorf("StatusOf = %d, want 503", got)
	}

	plain := errors.New("dial tcp: timeout")
	if got := ClassOf(plain); got != ErrorClassNetwork {
		t.Errorf("ClassOf(plain) = %q, want network", got)
	}
	if got := StatusOf(plain); got != 0 {
		t.Errorf("StatusOf(plain) = %d, want 0", got)
	}
}
