package main

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/insightsgpt/regfetch/pkg/fetch"
)

// newDocumentsSearchCmd searches published Federal Register documents
// (/documents.json).
func newDocumentsSearchCmd(opts *rootOptions) *cobra.Command {
	var (
		term        string
		pubDateYear string
		pubDateGte  string
		pubDateLte  string
		order       string
		agencySlugs []string
		docTypes    []string
	)

	cmd := &cobra.Command{
		Use:   "documents-search",
		Short: "Search published Federal Register documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			params := url.Values{}
			identity := fetch.Identity{{Key: "prefix", Value: "documents_search"}}

			if term != "" {
				params.Set("conditions[term]", term)
				identity = append(identity, fetch.IdentityPair{Key: "term", Value: term})
			}
			if pubDateYear != "" {
				params.Set("conditions[publication_date][year]", pubDateYear)
				identity = append(identity, fetch.IdentityPair{Key: "year", Value: pubDateYear})
			}
			if pubDateGte != "" {
				params.Set("conditions[publication_date][gte]", pubDateGte)
			}
			if pubDateLte != "" {
				params.Set("conditions[publication_date][lte]", pubDateLte)
			}
			if order != "" {
				params.Set("order", order)
			}
			for _, slug := range agencySlugs {
				params.Add("conditions[agencies][]", slug)
				identity = append(identity, fetch.IdentityPair{Key: "agency", Value: slug})
			}
			for _, docType := range docTypes {
				params.Add("conditions[type][]", docType)
				identity = append(identity, fetch.IdentityPair{Key: "type", Value: docType})
			}

			return runFetch(cmd, opts, fetch.Spec{
				BaseEndpoint:  getEnv("REGFETCH_API_BASE", defaultFedRegBase) + "/documents.json",
				QueryParams:   params,
				Identity:      identity,
				PageParam:     "page",
				PageSizeParam: "per_page",
			})
		},
	}

	cmd.Flags().StringVar(&term, "term", "", "full text search term")
	cmd.Flags().StringVar(&pubDateYear, "pub-date-year", "", "conditions[publication_date][year]")
	cmd.Flags().StringVar(&pubDateGte, "pub-date-gte", "", "conditions[publication_date][gte]")
	cmd.Flags().StringVar(&pubDateLte, "pub-date-lte", "", "conditions[publication_date][lte]")
	cmd.Flags().StringVar(&order, "order", "", "relevance, newest, oldest or executive_order_number")
	cmd.Flags().StringSliceVar(&agencySlugs, "agency-slug", nil, "conditions[agencies][] (may be repeated)")
	cmd.Flags().StringSliceVar(&docTypes, "doc-type", nil, "conditions[type][] (RULE, PRORULE, NOTICE, PRESDOCU)")

	return cmd
}

// newAgenciesCmd fetches the Federal Register agency list. The endpoint is
// not paginated, so the fetch runs in single-page mode.
func newAgenciesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "agencies",
		Short: "Fetch the list of all Federal Register agencies",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFetch(cmd, opts, fetch.Spec{
				BaseEndpoint: getEnv("REGFETCH_API_BASE", defaultFedRegBase) + "/agencies",
				Identity:     fetch.Identity{{Key: "prefix", Value: "agencies"}},
			})
		},
	}
}

// newRegsDocumentsCmd fetches documents from the Regulations.gov API.
func newRegsDocumentsCmd(opts *rootOptions) *cobra.Command {
	var (
		searchTerm  string
		docketID    string
		titleFilter string
	)

	cmd := &cobra.Command{
		Use:   "regs-documents",
		Short: "Fetch documents from Regulations.gov",
		RunE: func(cmd *cobra.Command, args []string) error {
			apiKey := opts.resolveAPIKey()
			if apiKey == "" && !opts.dryRun {
				return fmt.Errorf("a Regulations.gov API key is required (--api-key or REGFETCH_API_KEY)")
			}

			params := url.Values{}
			identity := fetch.Identity{{Key: "prefix", Value: "documents_list"}}
			addFilter(params, &identity, "searchTerm", "filter[searchTerm]", searchTerm)
			addFilter(params, &identity, "docketId", "filter[docketId]", docketID)
			addFilter(params, &identity, "title", "filter[title]", titleFilter)

			return runFetch(cmd, opts, fetch.Spec{
				BaseEndpoint:  getEnv("REGFETCH_REGS_API_BASE", defaultRegsBase) + "/documents",
				QueryParams:   params,
				Headers:       regsHeaders(apiKey),
				Identity:      identity,
				PageParam:     "page[number]",
				PageSizeParam: "page[size]",
				CursorParam:   "page[after]",
			})
		},
	}

	cmd.Flags().StringVar(&searchTerm, "search-term", "", "filter[searchTerm]")
	cmd.Flags().StringVar(&docketID, "docket-id", "", "filter[docketId]")
	cmd.Flags().StringVar(&titleFilter, "title-filter", "", "filter[title]")

	return cmd
}

// newRegsDocketsCmd fetches dockets from the Regulations.gov API.
func newRegsDocketsCmd(opts *rootOptions) *cobra.Command {
	var searchTerm string

	cmd := &cobra.Command{
		Use:   "regs-dockets",
		Short: "Fetch dockets from Regulations.gov",
		RunE: func(cmd *cobra.Command, args []string) error {
			apiKey := opts.resolveAPIKey()
			if apiKey == "" && !opts.dryRun {
				return fmt.Errorf("a Regulations.gov API key is required (--api-key or REGFETCH_API_KEY)")
			}

			params := url.Values{}
			identity := fetch.Identity{{Key: "prefix", Value: "dockets_list"}}
			addFilter(params, &identity, "searchTerm", "filter[searchTerm]", searchTerm)

			return runFetch(cmd, opts, fetch.Spec{
				BaseEndpoint:  getEnv("REGFETCH_REGS_API_BASE", defaultRegsBase) + "/dockets",
				QueryParams:   params,
				Headers:       regsHeaders(apiKey),
				Identity:      identity,
				PageParam:     "page[number]",
				PageSizeParam: "page[size]",
				CursorParam:   "page[after]",
			})
		},
	}

	cmd.Flags().StringVar(&searchTerm, "search-term", "", "filter[searchTerm]")

	return cmd
}

// newRegsCommentsCmd fetches comments from the Regulations.gov API. Comments
// paginate with an opaque page[after] cursor.
func newRegsCommentsCmd(opts *rootOptions) *cobra.Command {
	var (
		searchTerm string
		docketID   string
	)

	cmd := &cobra.Command{
		Use:   "regs-comments",
		Short: "Fetch comments from Regulations.gov",
		RunE: func(cmd *cobra.Command, args []string) error {
			apiKey := opts.resolveAPIKey()
			if apiKey == "" && !opts.dryRun {
				return fmt.Errorf("a Regulations.gov API key is required (--api-key or REGFETCH_API_KEY)")
			}

			params := url.Values{}
			identity := fetch.Identity{{Key: "prefix", Value: "comments_list"}}
			addFilter(params, &identity, "searchTerm", "filter[searchTerm]", searchTerm)
			addFilter(params, &identity, "docketId", "filter[docketId]", docketID)

			return runFetch(cmd, opts, fetch.Spec{
				BaseEndpoint:  getEnv("REGFETCH_REGS_API_BASE", defaultRegsBase) + "/comments",
				QueryParams:   params,
				Headers:       regsHeaders(apiKey),
				Identity:      identity,
				PageParam:     "page[number]",
				PageSizeParam: "page[size]",
				CursorParam:   "page[after]",
			})
		},
	}

	cmd.Flags().StringVar(&searchTerm, "search-term", "", "filter[searchTerm]")
	cmd.Flags().StringVar(&docketID, "docket-id", "", "filter[docketId]")

	return cmd
}
