package client

import (
	"errors"
	"math"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for retry decisions.
var (
	retriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "regfetch_retries_total",
		Help: "Total number of retry attempts by error class",
	}, []string{"error_class"})

	retryBackoffSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "regfetch_retry_backoff_seconds",
		Help:    "Backoff duration for retries by error class",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"error_class"})

	retryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "regfetch_retry_exhausted_total",
		Help: "Total number of times retry attempts were exhausted by error class",
	}, []string{"error_class"})
)

// RetryPolicy decides retry eligibility and backoff duration. It holds no
// mutable state; the pagination controller owns the attempt loop.
type RetryPolicy struct {
	// MaxAttempts is the total attempt budget including the initial request.
	MaxAttempts int

	// BaseBackoff is the delay before the first retry.
	BaseBackoff time.Duration

	// MaxBackoff caps the computed delay.
	MaxBackoff time.Duration

	// Multiplier is the exponential backoff factor.
	Multiplier float64

	// RetryableStatuses are the HTTP statuses worth retrying.
	RetryableStatuses map[int]bool
}

// DefaultRetryPolicy returns the default policy: one initial attempt plus
// three retries with 1s/2s/4s backoff.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 4,
		BaseBackoff: 1 * time.Second,
		MaxBackoff:  30 * time.Second,
		Multiplier:  2.0,
		RetryableStatuses: map[int]bool{
			429: true,
			500: true,
			502: true,
			503: true,
			504: true,
		},
	}
}

// Retryable reports whether err is worth retrying at all, ignoring the
// attempt budget. Network errors always are; HTTP errors only when their
// status is in the retryable set.
func (p RetryPolicy) Retryable(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		// Unclassified errors are treated as transport failures.
		return true
	}

	switch apiErr.Class {
	case ErrorClassNetwork:
		return true
	case ErrorClassDecode:
		return false
	default:
		return p.RetryableStatuses[apiErr.StatusCode]
	}
}

// ShouldRetry reports whether the attempt at attemptIndex (0-based) that
// failed with err should be retried.
func (p RetryPolicy) ShouldRetry(attemptIndex int, err error) bool {
	if attemptIndex+1 >= p.MaxAttempts {
		return false
	}
	return p.Retryable(err)
}

// BackoffDuration computes the delay before retry number attemptIndex
// (0-based, so the first retry waits BaseBackoff).
func (p RetryPolicy) BackoffDuration(attemptIndex int) time.Duration {
	backoff := time.Duration(float64(p.BaseBackoff) * math.Pow(p.Multiplier, float64(attemptIndex)))
	if p.MaxBackoff > 0 && backoff > p.MaxBackoff {
		backoff = p.MaxBackoff
	}
	return backoff
}

// BackoffFor computes the delay before the retry following a failure at
// attemptIndex, honoring a server-provided Retry-After hint when present.
func (p RetryPolicy) BackoffFor(attemptIndex int, err error) time.Duration {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Class == ErrorClassRateLimit && apiErr.RetryAfter > 0 {
		return apiErr.RetryAfter
	}
	return p.BackoffDuration(attemptIndex)
}

// ObserveRetry records metrics for a scheduled retry.
func ObserveRetry(class ErrorClass, backoff time.Duration) {
	retriesTotal.WithLabelValues(string(class)).Inc()
	retryBackoffSeconds.WithLabelValues(string(class)).Observe(backoff.Seconds())
}

// ObserveRetryExhausted records metrics for an exhausted attempt budget.
func ObserveRetryExhausted(class ErrorClass) {
	retryExhaustedTotal.WithLabelValues(string(class)).Inc()
}
