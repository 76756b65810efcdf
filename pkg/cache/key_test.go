package cache

import (
	"net/url"
	"testing"
)

func TestSignatureString(t *testing.T) {
	tests := []struct {
		name string
		sig  Signature
		want string
	}{
		{
			name: "no params",
			sig: Signature{
				Method: "GET",
				URL:    "https://www.federalregister.gov/api/v1/documents.json",
			},
			want: "regfetch:GET:https://www.federalregister.gov/api/v1/documents.json",
		},
		{
			name: "params sorted by key",
			sig: Signature{
				Method: "GET",
				URL:    "https://api.test/documents.json",
				Params: url.Values{
					"per_page": {"100"},
					"page":     {"2"},
				},
			},
			want: "regfetch:GET:https://api.test/documents.json:page=2:per_page=100",
		},
		{
			name: "repeated values keep order",
			sig: Signature{
				Method: "GET",
				URL:    "https://api.test/documents.json",
				Params: url.Values{
					"conditions[agencies][]": {"epa", "fda"},
				},
			},
			want: "regfetch:GET:https://api.test/documents.json:conditions[agencies][]=epa:conditions[agencies][]=fda",
		},
		{
			name: "method uppercased and trailing slash trimmed",
			sig: Signature{
				Method: "get",
				URL:    "https://api.test/documents/",
			},
			want: "regfetch:GET:https://api.test/documents",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.sig.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSignatureString_Deterministic(t *testing.T) {
	sig := Signature{
		Method: "GET",
		URL:    "https://api.test/documents.json",
		Params: url.Values{
			"conditions[term]": {"climate"},
			"per_page":         {"50"},
			"order":            {"newest"},
		},
	}

	// Map iteration order must never leak into the key.
	first := sig.String()
	for i := 0; i < 100; i++ {
		if got := sig.String(); got != first {
			t.Fatalf("Key changed between calls: %q vs %q", first, got)
		}
	}
}
