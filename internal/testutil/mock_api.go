// Package testutil provides testing utilities for regfetch.
package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"
)

// MockResponse defines the behavior for a mock endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockAPI is a configurable mock paginated API server for testing.
type MockAPI struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]http.HandlerFunc

	// Tracking
	RequestCount int
	Requests     []string
}

// NewMockAPI creates a new mock API server.
func NewMockAPI() *MockAPI {
	mock := &MockAPI{
		handlers: make(map[string]http.HandlerFunc),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.Requests = append(mock.Requests, r.URL.String())
		mock.mu.Unlock()

		mock.mu.RLock()
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.RUnlock()

		if exists {
			handler(w, r)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error": "not found"}`)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockAPI) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockAPI) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockAPI) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.Requests = nil
}

// SetHandler sets a custom handler for a specific path.
func (m *MockAPI) SetHandler(path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a fixed response for a path.
func (m *MockAPI) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}

		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		if w.Header().Get("Content-Type") == "" {
			w.Header().Set("Content-Type", "application/json")
		}

		w.WriteHeader(resp.StatusCode)
		fmt.Fprint(w, resp.Body)
	})
}

// ServeDocumentPages serves a sequence of cursor-linked list pages at path.
// Each page is a slice of raw JSON records; every page except the last
// advertises the next one via next_page_url. Requests beyond the last page
// return 404.
func (m *MockAPI) ServeDocumentPages(path string, pages [][]string) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		pageNum := 1
		if raw := r.URL.Query().Get("page"); raw != "" {
			if n, err := strconv.Atoi(raw); err == nil {
				pageNum = n
			}
		}

		w.Header().Set("Content-Type", "application/json")

		if pageNum < 1 || pageNum > len(pages) {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"error": "page out of range"}`)
			return
		}

		body := fmt.Sprintf(`{"results": [%s]`, strings.Join(pages[pageNum-1], ","))
		if pageNum < len(pages) {
			body += fmt.Sprintf(`, "next_page_url": "%s%s?page=%d"`, m.server.URL, path, pageNum+1)
		}
		body += "}"

		fmt.Fprint(w, body)
	})
}

// FailTimes makes path fail with status for the first n requests, then serve
// resp. Attempt counting is per configured path, not global.
func (m *MockAPI) FailTimes(path string, n int, status int, resp MockResponse) {
	var mu sync.Mutex
	attempts := 0

	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		attempts++
		failing := attempts <= n
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")

		if failing {
			w.WriteHeader(status)
			fmt.Fprintf(w, `{"error": "injected failure %d"}`, attempts)
			return
		}

		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		w.WriteHeader(resp.StatusCode)
		fmt.Fprint(w, resp.Body)
	})
}

// DocRecord builds a minimal Federal Register style document record.
func DocRecord(docNumber string) string {
	return fmt.Sprintf(`{"document_number": "%s", "title": "Document %s"}`, docNumber, docNumber)
}
