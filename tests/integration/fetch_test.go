package integration

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/insightsgpt/regfetch/internal/testutil"
	"github.com/insightsgpt/regfetch/pkg/cache"
	"github.com/insightsgpt/regfetch/pkg/client"
	"github.com/insightsgpt/regfetch/pkg/fetch"
	"github.com/insightsgpt/regfetch/pkg/sink"
)

// setupRedis creates a Redis container, or skips when Docker is unavailable.
func setupRedis(t *testing.T) *redis.Client {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("Failed to start Redis container: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: host + ":" + port.Port(),
	})

	t.Cleanup(func() {
		redisClient.Close()
		container.Terminate(ctx)
	})

	return redisClient
}

func newFetcher(t *testing.T, dataDir string, responseCache fetch.ResponseCache) *fetch.Fetcher {
	t.Helper()

	exec, err := client.NewExecutor(client.DefaultConfig("regfetch-integration/1.0"))
	if err != nil {
		t.Fatalf("Failed to create executor: %v", err)
	}

	fileSink, err := sink.NewFileSink(dataDir)
	if err != nil {
		t.Fatalf("Failed to create sink: %v", err)
	}

	f, err := fetch.New(fetch.Config{
		Executor:    exec,
		RetryPolicy: client.DefaultRetryPolicy(),
		Cache:       responseCache,
		CacheTTL:    time.Hour,
		Sink:        fileSink,
	})
	if err != nil {
		t.Fatalf("Failed to create fetcher: %v", err)
	}
	return f
}

// TestFullPaginatedFetch walks a three page resource end to end: HTTP client,
// pagination, and file persistence.
func TestFullPaginatedFetch(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()

	mock.ServeDocumentPages("/api/v1/documents.json", [][]string{
		{testutil.DocRecord("2025-00001"), testutil.DocRecord("2025-00002")},
		{testutil.DocRecord("2025-00003"), testutil.DocRecord("2025-00004")},
		{testutil.DocRecord("2025-00005")},
	})

	dataDir := t.TempDir()
	f := newFetcher(t, dataDir, nil)

	result, err := f.Fetch(context.Background(), fetch.Spec{
		BaseEndpoint: mock.URL() + "/api/v1/documents.json",
		FetchAll:     true,
		Identity:     fetch.Identity{{Key: "prefix", Value: "documents_search"}},
	})
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	if got := result.TotalItems(); got != 5 {
		t.Errorf("TotalItems = %d, want 5", got)
	}
	if len(result.Pages) != 3 {
		t.Errorf("Pages = %d, want 3", len(result.Pages))
	}
	if result.Reason != fetch.ReasonNoNextCursor {
		t.Errorf("Reason = %q, want %q", result.Reason, fetch.ReasonNoNextCursor)
	}
	if mock.RequestCount != 3 {
		t.Errorf("Upstream requests = %d, want 3", mock.RequestCount)
	}

	// One artifact per page plus the combined artifact.
	entries, err := os.ReadDir(dataDir)
	if err != nil {
		t.Fatal(err)
	}
	var pageFiles, combinedFiles int
	for _, entry := range entries {
		switch {
		case strings.Contains(entry.Name(), "_page_"):
			pageFiles++
		case strings.Contains(entry.Name(), "_combined_"):
			combinedFiles++
		}
	}
	if pageFiles != 3 || combinedFiles != 1 {
		t.Errorf("Artifacts: %d page files and %d combined, want 3 and 1", pageFiles, combinedFiles)
	}

	// The combined artifact carries the full ordered aggregate.
	for _, entry := range entries {
		if !strings.Contains(entry.Name(), "_combined_") {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(dataDir, entry.Name()))
		if err != nil {
			t.Fatal(err)
		}
		var artifact struct {
			Data []struct {
				DocumentNumber string `json:"document_number"`
			} `json:"data"`
			Meta struct {
				TotalDocumentsRetrieved int    `json:"total_documents_retrieved"`
				TerminationReason       string `json:"termination_reason"`
			} `json:"meta"`
		}
		if err := json.Unmarshal(raw, &artifact); err != nil {
			t.Fatalf("Combined artifact is not valid JSON: %v", err)
		}
		if artifact.Meta.TotalDocumentsRetrieved != 5 {
			t.Errorf("total_documents_retrieved = %d, want 5", artifact.Meta.TotalDocumentsRetrieved)
		}
		if artifact.Data[0].DocumentNumber != "2025-00001" {
			t.Errorf("First document = %q, want 2025-00001", artifact.Data[0].DocumentNumber)
		}
	}
}

// TestRetryRecovery exercises the retry path against a flaky upstream.
func TestRetryRecovery(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping retry backoff test in short mode")
	}

	mock := testutil.NewMockAPI()
	defer mock.Close()

	mock.FailTimes("/api/v1/documents.json", 2, 503, testutil.MockResponse{
		StatusCode: 200,
		Body:       `{"results": [` + testutil.DocRecord("2025-00001") + `]}`,
	})

	f := newFetcher(t, t.TempDir(), nil)

	start := time.Now()
	result, err := f.Fetch(context.Background(), fetch.Spec{
		BaseEndpoint: mock.URL() + "/api/v1/documents.json",
		FetchAll:     true,
	})
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	if got := result.TotalItems(); got != 1 {
		t.Errorf("TotalItems = %d, want 1", got)
	}
	if mock.RequestCount != 3 {
		t.Errorf("Upstream requests = %d, want 3 (2 failures + success)", mock.RequestCount)
	}

	// Two backoffs: 1s then 2s.
	if elapsed := time.Since(start); elapsed < 3*time.Second {
		t.Errorf("Fetch finished in %v, want >= 3s of backoff", elapsed)
	}
}

// TestCachedFetch verifies that a repeated sync fetch is served from Redis
// without touching the upstream.
func TestCachedFetch(t *testing.T) {
	redisClient := setupRedis(t)

	mock := testutil.NewMockAPI()
	defer mock.Close()

	mock.SetResponse("/api/v1/agencies", testutil.MockResponse{
		StatusCode: 200,
		Body:       `{"results": [{"name": "Environmental Protection Agency"}]}`,
	})

	f := newFetcher(t, t.TempDir(), cache.NewManager(redisClient))

	spec := fetch.Spec{
		BaseEndpoint: mock.URL() + "/api/v1/agencies",
		UseCache:     true,
		Mode:         fetch.ModeSync,
	}

	ctx := context.Background()

	result1, err := f.Fetch(ctx, spec)
	if err != nil {
		t.Fatalf("First fetch failed: %v", err)
	}
	if result1.CacheHits != 0 {
		t.Errorf("First fetch cache hits = %d, want 0", result1.CacheHits)
	}
	if mock.RequestCount != 1 {
		t.Errorf("Upstream requests = %d, want 1", mock.RequestCount)
	}

	result2, err := f.Fetch(ctx, spec)
	if err != nil {
		t.Fatalf("Second fetch failed: %v", err)
	}
	if result2.CacheHits != 1 {
		t.Errorf("Second fetch cache hits = %d, want 1", result2.CacheHits)
	}
	if mock.RequestCount != 1 {
		t.Errorf("Upstream requests = %d, want 1 (served from cache)", mock.RequestCount)
	}
	if result2.TotalItems() != result1.TotalItems() {
		t.Errorf("Cached result differs: %d vs %d items", result2.TotalItems(), result1.TotalItems())
	}
}
