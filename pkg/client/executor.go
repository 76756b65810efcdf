// Package client provides the single-attempt HTTP request executor and the
// retry policy that wraps it.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for request execution.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "regfetch_requests_total",
		Help: "Total upstream requests by endpoint and status",
	}, []string{"endpoint", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "regfetch_request_duration_seconds",
		Help:    "Upstream request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "regfetch_errors_total",
		Help: "Total upstream errors by class",
	}, []string{"class"})
)

// Request describes a single page request. Params are merged into the URL
// query; Headers are added verbatim.
type Request struct {
	URL     string
	Params  url.Values
	Headers http.Header
}

// Response is the outcome of one successful request attempt.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Config holds the executor configuration.
type Config struct {
	// UserAgent sent with every request.
	UserAgent string

	// Timeout for a single attempt.
	Timeout time.Duration
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(userAgent string) Config {
	return Config{
		UserAgent: userAgent,
		Timeout:   10 * time.Second,
	}
}

// Executor performs exactly one network attempt per Execute call. It never
// sleeps and never loops; retry behavior belongs to the caller.
type Executor struct {
	http   *resty.Client
	logger zerolog.Logger
}

// NewExecutor creates an executor with its own connection pool. The pool is
// shared by sequential fetches and, in async mode, by interleaved fetches.
func NewExecutor(cfg Config) (*Executor, error) {
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	rc := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("User-Agent", cfg.UserAgent).
		SetHeader("Accept", "application/json").
		SetRetryCount(0)

	return &Executor{
		http:   rc,
		logger: log.With().Str("component", "executor").Logger(),
	}, nil
}

// Execute performs one GET attempt. Any status >= 400 is returned as an
// *APIError carrying the classified status; transport failures are returned
// as network-class APIErrors. A 2xx response whose body is not valid JSON is
// a decode error.
func (e *Executor) Execute(ctx context.Context, req Request) (*Response, error) {
	endpoint := endpointLabel(req.URL)

	start := time.Now()
	defer func() {
		requestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	}()

	r := e.http.R().SetContext(ctx)
	for key, values := range req.Headers {
		for _, value := range values {
			r.Header.Add(key, value)
		}
	}
	if len(req.Params) > 0 {
		r.SetQueryParamsFromValues(req.Params)
	}

	resp, err := r.Get(req.URL)
	if err != nil {
		e.logger.Error().Err(err).Str("endpoint", endpoint).Msg("Request failed")
		errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		requestsTotal.WithLabelValues(endpoint, "network_error").Inc()
		return nil, &APIError{
			Class:   ErrorClassNetwork,
			Message: "transport failure",
			Err:     err,
		}
	}

	status := resp.StatusCode()
	requestsTotal.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()

	if status >= 400 {
		class := ClassifyStatus(status)
		errorsTotal.WithLabelValues(string(class)).Inc()

		e.logger.Warn().
			Str("endpoint", endpoint).
			Int("status", status).
			Str("error_class", string(class)).
			Msg("Upstream request error")

		return nil, &APIError{
			StatusCode: status,
			Class:      class,
			Message:    resp.Status(),
			RetryAfter: retryAfterHint(resp.Header()),
		}
	}

	body := resp.Body()
	if !json.Valid(body) {
		errorsTotal.WithLabelValues(string(ErrorClassDecode)).Inc()
		e.logger.Error().Str("endpoint", endpoint).Msg("Response body is not valid JSON")
		return nil, &APIError{
			StatusCode: status,
			Class:      ErrorClassDecode,
			Message:    "response body is not valid JSON",
		}
	}

	e.logger.Debug().
		Str("endpoint", endpoint).
		Int("status", status).
		Int("bytes", len(body)).
		Msg("Request complete")

	return &Response{
		StatusCode: status,
		Header:     resp.Header(),
		Body:       body,
	}, nil
}

// retryAfterHint parses a Retry-After header expressed in seconds.
// HTTP-date values are ignored; the retry policy falls back to its own
// backoff schedule.
func retryAfterHint(header http.Header) time.Duration {
	value := header.Get("Retry-After")
	if value == "" {
		return 0
	}
	seconds, err := strconv.Atoi(value)
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

// endpointLabel reduces a request URL to its path for metric labels,
// keeping cardinality bounded.
func endpointLabel(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Path == "" {
		return rawURL
	}
	return u.Path
}
