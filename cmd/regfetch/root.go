package main

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/insightsgpt/regfetch/pkg/cache"
	"github.com/insightsgpt/regfetch/pkg/client"
	"github.com/insightsgpt/regfetch/pkg/fetch"
	"github.com/insightsgpt/regfetch/pkg/schema"
	"github.com/insightsgpt/regfetch/pkg/sink"
)

const (
	defaultFedRegBase = "https://www.federalregister.gov/api/v1"
	defaultRegsBase   = "https://api.regulations.gov/v4"
	userAgent         = "regfetch/1.0 (insightsgpt)"
)

// rootOptions are the flags shared by every fetch subcommand.
type rootOptions struct {
	dataDir   string
	pageSize  int
	maxPages  int
	fetchAll  bool
	useCache  bool
	schemaRef string
	mode      string
	apiKey    string
	timeout   time.Duration
	dryRun    bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "regfetch",
		Short:         "Fetch paginated data from the Federal Register and Regulations.gov APIs",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.dataDir, "data-dir", getEnv("REGFETCH_DATA_DIR", "data"), "directory for persisted artifacts")
	flags.IntVar(&opts.pageSize, "page-size", 0, "records per page (0 = server default)")
	flags.IntVar(&opts.maxPages, "max-pages", 0, "page cap (0 = unlimited)")
	flags.BoolVar(&opts.fetchAll, "fetch-all", false, "paginate past the first page")
	flags.BoolVar(&opts.useCache, "use-cache", false, "enable the response cache (sync mode, needs REDIS_URL)")
	flags.StringVar(&opts.schemaRef, "schema", "", "JSON Schema file to validate each page against")
	flags.StringVar(&opts.mode, "mode", "sync", "scheduling model: sync or async")
	flags.StringVar(&opts.apiKey, "api-key", "", "Regulations.gov API key (overrides REGFETCH_API_KEY)")
	flags.DurationVar(&opts.timeout, "timeout", 10*time.Second, "per-request timeout")
	flags.BoolVar(&opts.dryRun, "dry-run", false, "render the first request without fetching")

	root.AddCommand(
		newDocumentsSearchCmd(opts),
		newAgenciesCmd(opts),
		newRegsDocumentsCmd(opts),
		newRegsDocketsCmd(opts),
		newRegsCommentsCmd(opts),
	)

	return root
}

// resolveAPIKey prefers the flag over the environment.
func (o *rootOptions) resolveAPIKey() string {
	if o.apiKey != "" {
		return o.apiKey
	}
	return os.Getenv("REGFETCH_API_KEY")
}

// runFetch renders a dry run or wires up the fetcher and executes the spec.
func runFetch(cmd *cobra.Command, opts *rootOptions, spec fetch.Spec) error {
	spec.PageSize = opts.pageSize
	spec.MaxPages = opts.maxPages
	spec.FetchAll = opts.fetchAll
	spec.UseCache = opts.useCache
	spec.SchemaPath = opts.schemaRef
	spec.Mode = fetch.Mode(opts.mode)

	if opts.dryRun {
		renderDryRun(cmd, spec)
		return nil
	}

	exec, err := client.NewExecutor(client.Config{
		UserAgent: userAgent,
		Timeout:   opts.timeout,
	})
	if err != nil {
		return err
	}

	fileSink, err := sink.NewFileSink(opts.dataDir)
	if err != nil {
		return err
	}

	cfg := fetch.Config{
		Executor:    exec,
		RetryPolicy: client.DefaultRetryPolicy(),
		Validator:   schema.NewValidator(),
		Sink:        fileSink,
	}

	if opts.useCache {
		redisURL := getEnv("REDIS_URL", "localhost:6379")
		cfg.Cache = cache.NewManager(redis.NewClient(&redis.Options{Addr: redisURL}))
	}

	fetcher, err := fetch.New(cfg)
	if err != nil {
		return err
	}

	result, err := fetcher.Fetch(cmd.Context(), spec)
	if err != nil {
		if result != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "fetch failed after %d pages (%d items persisted): %v\n",
				len(result.Pages), result.TotalItems(), err)
		}
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "fetched %d pages, %d items (%s)\n",
		len(result.Pages), result.TotalItems(), result.Reason)
	return nil
}

// renderDryRun prints the would-be first request and exits without touching
// the network. API keys are redacted.
func renderDryRun(cmd *cobra.Command, spec fetch.Spec) {
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "GET %s\n", spec.BaseEndpoint)

	keys := make([]string, 0, len(spec.QueryParams))
	for key := range spec.QueryParams {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		for _, value := range spec.QueryParams[key] {
			fmt.Fprintf(out, "  param %s=%s\n", key, value)
		}
	}
	if spec.PageSize > 0 {
		fmt.Fprintf(out, "  param per_page=%s\n", strconv.Itoa(spec.PageSize))
	}

	for key, values := range spec.Headers {
		for range values {
			value := spec.Headers.Get(key)
			if strings.EqualFold(key, "X-Api-Key") {
				value = "<redacted>"
			}
			fmt.Fprintf(out, "  header %s: %s\n", key, value)
		}
	}
	fmt.Fprintln(out, "dry run: no request sent")
}

// regsHeaders builds the Regulations.gov JSON:API headers.
func regsHeaders(apiKey string) http.Header {
	h := http.Header{}
	h.Set("X-Api-Key", apiKey)
	h.Set("Accept", "application/vnd.api+json")
	return h
}

// addFilter sets a Regulations.gov filter[...] condition when value is
// non-empty and records it in the identity list.
func addFilter(params url.Values, identity *fetch.Identity, name, key, value string) {
	if value == "" {
		return
	}
	params.Set(key, value)
	*identity = append(*identity, fetch.IdentityPair{Key: name, Value: value})
}
