package cache

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Signature identifies a cached response by normalized request shape.
type Signature struct {
	// Method is the HTTP method ("GET" is the only cached method).
	Method string

	// URL is the request URL without query string.
	URL string

	// Params are the query parameters.
	Params url.Values
}

// String generates a deterministic cache key string.
// Format: regfetch:METHOD:url:param1=val1:param2=val2
//
// Parameters are sorted by key, and repeated values within a key keep their
// original order, so identical requests always map to the same key.
func (s Signature) String() string {
	parts := []string{"regfetch", strings.ToUpper(s.Method), strings.TrimRight(s.URL, "/")}

	if len(s.Params) > 0 {
		keys := make([]string, 0, len(s.Params))
		for key := range s.Params {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		for _, key := range keys {
			for _, value := range s.Params[key] {
				parts = append(parts, fmt.Sprintf("%s=%s", key, value))
			}
		}
	}

	return strings.Join(parts, ":")
}
