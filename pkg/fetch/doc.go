// Package fetch walks cursor/offset-paginated REST APIs, retrying transient
// failures with exponential backoff and persisting every page immediately so
// partial progress survives a later failure.
//
// The same pagination algorithm runs under two scheduling models selected
// per Spec: sync (blocking sleeps, one fetch per call stack) and async
// (cooperative waits, many fetches interleaved on one connection pool).
// Pages within one fetch are always requested strictly sequentially because
// page N+1 may depend on the cursor returned by page N.
//
// Example usage:
//
//	exec, _ := client.NewExecutor(client.DefaultConfig("InsightsGPT/1.0"))
//	fileSink, _ := sink.NewFileSink("data")
//	fetcher, _ := fetch.New(fetch.Config{
//		Executor:    exec,
//		RetryPolicy: client.DefaultRetryPolicy(),
//		Sink:        fileSink,
//	})
//	result, err := fetcher.Fetch(ctx, fetch.Spec{
//		BaseEndpoint: "https://www.federalregister.gov/api/v1/documents.json",
//		QueryParams:  url.Values{"conditions[term]": {"climate"}},
//		PageSize:     100,
//		FetchAll:     true,
//		Identity:     fetch.Identity{{Key: "term", Value: "climate"}},
//	})
//
// The fetch stops when the server returns an empty page, when a response
// carries no continuation cursor, after the first page when FetchAll is
// false, or at the MaxPages cap. None of those are errors; only an
// exhausted retry budget or a non-retryable client error surfaces as one.
package fetch
