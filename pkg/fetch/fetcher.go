package fetch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/insightsgpt/regfetch/pkg/client"
)

// Config holds the fetcher wiring. Executor and Sink are required; the rest
// have working defaults.
type Config struct {
	// Executor performs single request attempts.
	Executor Executor

	// RetryPolicy decides retry eligibility and backoff.
	RetryPolicy RetryPolicy

	// Validator checks page payloads when a spec carries a schema path.
	// Nil disables validation.
	Validator Validator

	// Cache memoizes successful responses (sync mode only). Nil disables
	// caching regardless of Spec.UseCache.
	Cache ResponseCache

	// CacheTTL is how long cached responses stay fresh (default 1h).
	CacheTTL time.Duration

	// Sink persists pages and combined artifacts.
	Sink Sink

	// Decoder extracts items and cursors from page payloads
	// (default DocumentDecoder).
	Decoder PageDecoder

	// MaxConcurrentFetches bounds FetchMany (default 5).
	MaxConcurrentFetches int
}

// RetryPolicy re-exports the client retry policy so callers wiring a Fetcher
// configure everything through one package.
type RetryPolicy = client.RetryPolicy

// Fetcher executes fetch specs. One Fetcher owns its executor's connection
// pool and cache handle for its whole lifetime; sync fetches must be issued
// sequentially, async fetches may interleave.
type Fetcher struct {
	ctrl                 *controller
	maxConcurrentFetches int
}

// New creates a Fetcher.
func New(cfg Config) (*Fetcher, error) {
	if cfg.Executor == nil {
		return nil, fmt.Errorf("executor is required")
	}
	if cfg.Sink == nil {
		return nil, fmt.Errorf("sink is required")
	}
	if cfg.RetryPolicy.MaxAttempts <= 0 {
		return nil, fmt.Errorf("retry policy max attempts must be positive (got %d)", cfg.RetryPolicy.MaxAttempts)
	}
	if cfg.Decoder == nil {
		cfg.Decoder = DocumentDecoder()
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = time.Hour
	}
	if cfg.MaxConcurrentFetches <= 0 {
		cfg.MaxConcurrentFetches = 5
	}

	return &Fetcher{
		ctrl: &controller{
			exec:      cfg.Executor,
			policy:    cfg.RetryPolicy,
			validator: cfg.Validator,
			cache:     cfg.Cache,
			sink:      cfg.Sink,
			decoder:   cfg.Decoder,
			cacheTTL:  cfg.CacheTTL,
			logger:    log.With().Str("component", "fetch").Logger(),
			now:       time.Now,
		},
		maxConcurrentFetches: cfg.MaxConcurrentFetches,
	}, nil
}

// Fetch walks the paginated resource described by spec and returns whatever
// was retrieved. The error is non-nil only for retries-exhausted, terminal
// client errors, and cancellation; every other termination returns a fully
// populated Result and a nil error.
func (f *Fetcher) Fetch(ctx context.Context, spec Spec) (*Result, error) {
	if spec.BaseEndpoint == "" {
		return nil, fmt.Errorf("base endpoint is required")
	}
	return f.ctrl.run(ctx, spec, schedulerFor(spec.Mode))
}

// FetchMany runs independent specs concurrently on the shared connection
// pool, bounded by MaxConcurrentFetches. Cross-fetch parallelism is an
// async-mode capability, so every spec is forced to ModeAsync. Results keep
// spec order; failed slots keep their partial Result and contribute to the
// joined error.
func (f *Fetcher) FetchMany(ctx context.Context, specs []Spec) ([]*Result, error) {
	results := make([]*Result, len(specs))
	errs := make([]error, len(specs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.maxConcurrentFetches)

	for i, spec := range specs {
		spec.Mode = ModeAsync
		g.Go(func() error {
			res, err := f.Fetch(gctx, spec)
			results[i] = res
			errs[i] = err
			// Errors are collected per slot so sibling fetches finish.
			return nil
		})
	}

	// The group never returns an error itself; Wait just joins the fetches.
	_ = g.Wait()

	return results, errors.Join(errs...)
}
