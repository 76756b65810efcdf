package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/insightsgpt/regfetch/pkg/cache"
	"github.com/insightsgpt/regfetch/pkg/client"
)

// Prometheus metrics for pagination.
var (
	pagesFetchedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "regfetch_pages_fetched_total",
		Help: "Total pages fetched by scheduling mode",
	}, []string{"mode"})

	fetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "regfetch_fetches_total",
		Help: "Total fetch invocations by termination reason",
	}, []string{"reason"})
)

// Executor performs exactly one request attempt. *client.Executor satisfies
// it; tests substitute scripted fakes.
type Executor interface {
	Execute(ctx context.Context, req client.Request) (*client.Response, error)
}

// Validator checks a page payload against a schema document.
// *schema.Validator satisfies it.
type Validator interface {
	Validate(payload []byte, schemaPath string) bool
}

// ResponseCache memoizes successful page responses. *cache.Manager
// satisfies it.
type ResponseCache interface {
	Get(ctx context.Context, sig cache.Signature) (*cache.Entry, error)
	Set(ctx context.Context, sig cache.Signature, entry *cache.Entry) error
}

// Sink persists each page as it arrives and the combined artifact once
// pagination ends.
type Sink interface {
	WritePage(ctx context.Context, spec Spec, page *Page) error
	WriteCombined(ctx context.Context, spec Spec, result *Result, partial bool) error
}

// errEndOfData signals normal pagination end discovered via a 404 past the
// first page. It never escapes the controller.
var errEndOfData = errors.New("end of data")

// controller drives the page-by-page loop. The same algorithm serves both
// scheduling models; only the scheduler differs.
type controller struct {
	exec      Executor
	policy    client.RetryPolicy
	validator Validator
	cache     ResponseCache
	sink      Sink
	decoder   PageDecoder
	cacheTTL  time.Duration
	logger    zerolog.Logger
	now       func() time.Time
}

// run executes one fetch. The returned error is non-nil only for
// retries-exhausted, terminal client errors, and cancellation; the Result is
// always populated with whatever was retrieved.
func (c *controller) run(ctx context.Context, spec Spec, sched scheduler) (*Result, error) {
	result := &Result{Mode: sched.Mode()}

	var (
		fetchErr error
		reason   TerminationReason
	)

	pageNum := 1
	cursor := ""

	for {
		// Deadlines are honored only at loop boundaries; a page in flight
		// is never preempted.
		if err := ctx.Err(); err != nil {
			fetchErr = fmt.Errorf("%w: %v", client.ErrContextCancelled, err)
			reason = ReasonCancelled
			break
		}

		resp, err := c.fetchPage(ctx, spec, sched, pageNum, cursor, result)
		if err != nil {
			if errors.Is(err, errEndOfData) {
				reason = ReasonNoNextCursor
				break
			}
			if errors.Is(err, client.ErrRetryExhausted) {
				reason = ReasonRetriesExhausted
			} else if errors.Is(err, client.ErrContextCancelled) {
				reason = ReasonCancelled
			} else {
				reason = ReasonTerminalError
			}
			fetchErr = err
			break
		}

		items, nextCursor, derr := c.decoder.DecodePage(resp.Body)
		if derr != nil {
			fetchErr = &client.APIError{
				StatusCode: resp.StatusCode,
				Class:      client.ErrorClassDecode,
				Message:    "undecodable page payload",
				Err:        derr,
			}
			reason = ReasonTerminalError
			break
		}

		page := Page{
			PageNumber:  pageNum,
			Items:       items,
			ItemCount:   len(items),
			NextCursor:  nextCursor,
			RawBody:     resp.Body,
			RetrievedAt: c.now(),
			Validated:   true,
		}

		if spec.SchemaPath != "" && c.validator != nil {
			page.Validated = c.validator.Validate(resp.Body, spec.SchemaPath)
			if !page.Validated {
				result.ValidationFailures++
			}
		}

		// Persist before requesting the next page, so a later failure never
		// loses already-fetched pages.
		if err := c.sink.WritePage(ctx, spec, &page); err != nil {
			result.PersistenceErrors++
			c.logger.Error().Err(err).Int("page", pageNum).Msg("Page persistence failed")
		}

		result.Aggregate = append(result.Aggregate, page.Items...)
		page.Items = nil
		page.RawBody = nil
		result.Pages = append(result.Pages, page)
		pagesFetchedTotal.WithLabelValues(string(sched.Mode())).Inc()

		c.logger.Debug().
			Int("page", pageNum).
			Int("items", page.ItemCount).
			Bool("has_cursor", page.NextCursor != "").
			Msg("Page complete")

		// Termination policy, in priority order.
		switch {
		case page.ItemCount == 0:
			reason = ReasonExhausted
		case page.NextCursor == "":
			reason = ReasonNoNextCursor
		case !spec.FetchAll:
			reason = ReasonSinglePageMode
		case spec.MaxPages > 0 && len(result.Pages) >= spec.MaxPages:
			reason = ReasonTruncatedByMaxPages
		default:
			cursor = page.NextCursor
			pageNum++
			continue
		}
		break
	}

	result.Reason = reason
	fetchesTotal.WithLabelValues(string(reason)).Inc()

	// The combined artifact is written on every exit path; on failure it
	// holds the successfully retrieved pages and is marked partial.
	if err := c.sink.WriteCombined(ctx, spec, result, fetchErr != nil); err != nil {
		result.PersistenceErrors++
		c.logger.Error().Err(err).Msg("Combined artifact persistence failed")
	}

	if fetchErr != nil {
		c.logger.Warn().
			Int("pages", len(result.Pages)).
			Str("reason", string(reason)).
			Err(fetchErr).
			Msg("Fetch aborted")
		return result, fmt.Errorf("fetch aborted after %d pages: %w", len(result.Pages), fetchErr)
	}

	c.logger.Info().
		Int("pages", len(result.Pages)).
		Int("items", result.TotalItems()).
		Int("cache_hits", result.CacheHits).
		Str("reason", string(reason)).
		Msg("Fetch complete")

	return result, nil
}

// fetchPage retrieves one page through the retry policy. It returns
// errEndOfData for a 404 past the first page, an ErrRetryExhausted-wrapped
// error when the attempt budget runs out, and the terminal error otherwise.
func (c *controller) fetchPage(ctx context.Context, spec Spec, sched scheduler, pageNum int, cursor string, result *Result) (*client.Response, error) {
	st := RetryState{}

	for {
		resp, err := c.attempt(ctx, spec, sched.Mode(), pageNum, cursor, result)
		if err == nil {
			if st.AttemptIndex > 0 {
				c.logger.Info().
					Int("page", pageNum).
					Int("attempt", st.AttemptIndex+1).
					Msg("Page succeeded after retry")
			}
			return resp, nil
		}

		// A 404 past the first page means the API ran out of pages. It is
		// never passed to the retry policy.
		if client.StatusOf(err) == http.StatusNotFound {
			if pageNum > 1 {
				return nil, errEndOfData
			}
			return nil, err
		}

		st.LastError = err
		class := client.ClassOf(err)

		if !c.policy.ShouldRetry(st.AttemptIndex, err) {
			if c.policy.Retryable(err) {
				client.ObserveRetryExhausted(class)
				return nil, fmt.Errorf("%w after %d attempts: %v",
					client.ErrRetryExhausted, st.AttemptIndex+1, err)
			}
			return nil, err
		}

		backoff := c.policy.BackoffFor(st.AttemptIndex, err)
		client.ObserveRetry(class, backoff)

		c.logger.Debug().
			Int("page", pageNum).
			Int("attempt", st.AttemptIndex+1).
			Str("error_class", string(class)).
			Dur("backoff", backoff).
			Msg("Retrying page after backoff")

		if werr := sched.Wait(ctx, backoff); werr != nil {
			return nil, werr
		}
		st.AttemptIndex++
	}
}

// attempt performs one request, consulting the response cache first when the
// sync scheduler is in use.
func (c *controller) attempt(ctx context.Context, spec Spec, mode Mode, pageNum int, cursor string, result *Result) (*client.Response, error) {
	req := buildRequest(spec, pageNum, cursor)
	result.Requests++

	useCache := spec.UseCache && mode == ModeSync && c.cache != nil

	var sig cache.Signature
	if useCache {
		sig = cache.Signature{Method: http.MethodGet, URL: req.URL, Params: req.Params}

		entry, err := c.cache.Get(ctx, sig)
		if err == nil {
			result.CacheHits++
			c.logger.Debug().Int("page", pageNum).Msg("Page served from cache")
			return &client.Response{
				StatusCode: entry.StatusCode,
				Header:     entry.Header,
				Body:       entry.Body,
			}, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			c.logger.Warn().Err(err).Int("page", pageNum).Msg("Cache get error")
		}
	}

	resp, err := c.exec.Execute(ctx, req)
	if err != nil {
		return nil, err
	}

	// Only successful responses are memoized.
	if useCache {
		if err := c.cache.Set(ctx, sig, cache.NewEntry(resp.Body, resp.StatusCode, c.cacheTTL)); err != nil {
			c.logger.Warn().Err(err).Int("page", pageNum).Msg("Cache set error")
		}
	}

	return resp, nil
}

// buildRequest merges the spec's endpoint and params with the pagination
// position. A cursor always wins over page-number math; cursors that are
// full URLs replace the request URL outright.
func buildRequest(spec Spec, pageNum int, cursor string) client.Request {
	params := url.Values{}
	for key, values := range spec.QueryParams {
		for _, value := range values {
			params.Add(key, value)
		}
	}
	if spec.PageSize > 0 {
		params.Set(spec.pageSizeParam(), strconv.Itoa(spec.PageSize))
	}

	reqURL := spec.BaseEndpoint
	switch {
	case cursor == "":
		if pageNum > 1 {
			params.Set(spec.pageParam(), strconv.Itoa(pageNum))
		}
	case strings.HasPrefix(cursor, "http://"), strings.HasPrefix(cursor, "https://"):
		// next_page_url style cursors carry their own query string.
		reqURL = cursor
		params = url.Values{}
	default:
		params.Set(spec.cursorParam(), cursor)
	}

	return client.Request{URL: reqURL, Params: params, Headers: spec.Headers}
}
