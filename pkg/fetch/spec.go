package fetch

import (
	"encoding/json"
	"net/http"
	"net/url"
	"time"
)

// Mode selects the scheduling model for one fetch invocation.
type Mode string

const (
	// ModeSync runs the fetch on a single blocking call stack; backoff is a
	// blocking sleep.
	ModeSync Mode = "sync"

	// ModeAsync makes network calls and backoff delays cooperative
	// suspension points, so independent fetches can interleave on one
	// shared connection pool.
	ModeAsync Mode = "async"
)

// IdentityPair is one ordered key/value used for artifact naming. The
// identity never influences control flow.
type IdentityPair struct {
	Key   string
	Value string
}

// Identity is the ordered list of naming pairs for a fetch. Its MarshalJSON
// emits a JSON object preserving pair order, so artifact metadata is
// deterministic.
type Identity []IdentityPair

// MarshalJSON implements json.Marshaler.
func (id Identity) MarshalJSON() ([]byte, error) {
	buf := []byte{'{'}
	for i, pair := range id {
		if i > 0 {
			buf = append(buf, ',')
		}
		key, err := json.Marshal(pair.Key)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(pair.Value)
		if err != nil {
			return nil, err
		}
		buf = append(buf, key...)
		buf = append(buf, ':')
		buf = append(buf, value...)
	}
	return append(buf, '}'), nil
}

// Spec is the immutable, caller-constructed description of one fetch. The
// controller never mutates it.
type Spec struct {
	// BaseEndpoint is the absolute URL of the paginated resource.
	BaseEndpoint string

	// QueryParams are the caller's filter conditions. Keys may carry
	// multiple values.
	QueryParams url.Values

	// Headers are added to every page request (e.g. X-Api-Key).
	Headers http.Header

	// PageSize is the number of records requested per page; 0 leaves the
	// server default in place.
	PageSize int

	// MaxPages caps the number of pages fetched; 0 means unlimited.
	MaxPages int

	// FetchAll enables pagination past the first page.
	FetchAll bool

	// UseCache enables the response cache (sync mode only).
	UseCache bool

	// SchemaPath is an optional JSON Schema document to validate each page
	// payload against.
	SchemaPath string

	// Mode selects the scheduling model.
	Mode Mode

	// Identity names persisted artifacts.
	Identity Identity

	// PageParam is the query parameter carrying the page number
	// (default "page").
	PageParam string

	// PageSizeParam is the query parameter carrying the page size
	// (default "per_page").
	PageSizeParam string

	// CursorParam, when set, carries an opaque continuation token
	// (e.g. "page[after]"). Cursors that are full URLs replace the request
	// URL instead.
	CursorParam string
}

// pageParam returns the configured or default page-number parameter.
func (s Spec) pageParam() string {
	if s.PageParam != "" {
		return s.PageParam
	}
	return "page"
}

// pageSizeParam returns the configured or default page-size parameter.
func (s Spec) pageSizeParam() string {
	if s.PageSizeParam != "" {
		return s.PageSizeParam
	}
	return "per_page"
}

// cursorParam returns the configured or default continuation-token
// parameter.
func (s Spec) cursorParam() string {
	if s.CursorParam != "" {
		return s.CursorParam
	}
	return "cursor"
}

// Page is one response unit of a paginated result set. After the page is
// persisted its Items are moved into the result aggregate and RawBody is
// released; Page then carries bookkeeping only.
type Page struct {
	// PageNumber is 1-based and strictly increasing within one fetch.
	PageNumber int

	// Items are the records of this page, in response order.
	Items []json.RawMessage

	// ItemCount survives the handoff of Items to the aggregate.
	ItemCount int

	// NextCursor is the continuation token reported by the server, empty on
	// the last page.
	NextCursor string

	// RawBody is the unmodified page payload, handed to the sink.
	RawBody []byte

	// RetrievedAt is when the page was received.
	RetrievedAt time.Time

	// Validated records the schema validation outcome. Informational only.
	Validated bool
}

// RetryState is the ephemeral per-page-attempt retry bookkeeping.
type RetryState struct {
	// AttemptIndex is 0-based.
	AttemptIndex int

	// LastError is the most recent attempt failure.
	LastError error
}

// TerminationReason explains why pagination stopped.
type TerminationReason string

const (
	// ReasonExhausted: the server returned an empty page.
	ReasonExhausted TerminationReason = "exhausted"

	// ReasonNoNextCursor: the response carried no continuation cursor, or a
	// 404 past the first page signalled end of data.
	ReasonNoNextCursor TerminationReason = "no-next-cursor"

	// ReasonTruncatedByMaxPages: the MaxPages cap was reached. Not an error.
	ReasonTruncatedByMaxPages TerminationReason = "truncated-by-max-pages"

	// ReasonSinglePageMode: FetchAll was false, so exactly one page was
	// requested.
	ReasonSinglePageMode TerminationReason = "single-page-mode"

	// ReasonRetriesExhausted: some page failed through the whole attempt
	// budget. Pages before it remain persisted.
	ReasonRetriesExhausted TerminationReason = "retries-exhausted"

	// ReasonTerminalError: a non-retryable client error aborted the fetch.
	ReasonTerminalError TerminationReason = "terminal-client-error"

	// ReasonCancelled: the caller's context expired at a loop boundary.
	// Already-persisted pages and the partial combined artifact remain
	// valid.
	ReasonCancelled TerminationReason = "cancelled"
)

// Result is the outcome of one fetch invocation.
type Result struct {
	// Pages are the pages actually retrieved, in order, with payloads
	// released after persistence.
	Pages []Page

	// Aggregate is the flattened, order-preserving concatenation of every
	// page's items.
	Aggregate []json.RawMessage

	// Reason explains why pagination stopped.
	Reason TerminationReason

	// Mode is the scheduling model that produced this result.
	Mode Mode

	// Requests counts HTTP attempts, including retries and cache hits.
	Requests int

	// CacheHits counts pages served from the response cache.
	CacheHits int

	// ValidationFailures counts pages with Validated == false while a
	// schema was configured.
	ValidationFailures int

	// PersistenceErrors counts sink write failures, which never abort the
	// fetch.
	PersistenceErrors int
}

// TotalItems returns the number of aggregated records.
func (r *Result) TotalItems() int {
	return len(r.Aggregate)
}
