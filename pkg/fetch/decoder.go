package fetch

import (
	"encoding/json"
	"fmt"
)

// PageDecoder extracts the records and continuation cursor from a raw page
// payload. Implementations must not retain the body.
type PageDecoder interface {
	DecodePage(body []byte) (items []json.RawMessage, nextCursor string, err error)
}

// DecoderFunc adapts a function to the PageDecoder interface.
type DecoderFunc func(body []byte) ([]json.RawMessage, string, error)

// DecodePage implements PageDecoder.
func (f DecoderFunc) DecodePage(body []byte) ([]json.RawMessage, string, error) {
	return f(body)
}

// documentList covers the two list-response shapes of the target APIs:
// Federal Register ("results" plus "next_page_url") and Regulations.gov
// JSON:API ("data" plus meta.nextPageToken / links.next).
type documentList struct {
	Results []json.RawMessage `json:"results"`
	Data    []json.RawMessage `json:"data"`

	NextPageURL string `json:"next_page_url"`

	Meta struct {
		NextPageToken string `json:"nextPageToken"`
	} `json:"meta"`

	Links struct {
		Next string `json:"next"`
	} `json:"links"`
}

// DocumentDecoder decodes Federal Register and Regulations.gov list
// responses. A payload carrying neither a "results" nor a "data" array is a
// decode error.
func DocumentDecoder() PageDecoder {
	return DecoderFunc(func(body []byte) ([]json.RawMessage, string, error) {
		var list documentList
		if err := json.Unmarshal(body, &list); err != nil {
			return nil, "", fmt.Errorf("decode page payload: %w", err)
		}

		items := list.Results
		if items == nil {
			items = list.Data
		}
		if items == nil {
			return nil, "", fmt.Errorf("decode page payload: no results or data array")
		}

		cursor := list.NextPageURL
		if cursor == "" {
			cursor = list.Meta.NextPageToken
		}
		if cursor == "" {
			cursor = list.Links.Next
		}

		return items, cursor, nil
	})
}
