// Package sink persists fetched pages and combined artifacts as JSON files.
package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/insightsgpt/regfetch/pkg/fetch"
)

// FileSink writes one file per page plus one combined artifact per fetch
// under a data directory. Filenames are derived from the spec's ordered
// identity list, so identical specs always produce identical names.
type FileSink struct {
	dir    string
	logger zerolog.Logger

	// now stamps filenames with the fetch date; injectable for tests.
	now func() time.Time
}

// NewFileSink creates a sink rooted at dir, creating it if needed.
func NewFileSink(dir string) (*FileSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &FileSink{
		dir:    dir,
		logger: log.With().Str("component", "sink").Logger(),
		now:    time.Now,
	}, nil
}

// WritePage persists the raw payload of one page.
func (s *FileSink) WritePage(ctx context.Context, spec fetch.Spec, page *fetch.Page) error {
	name := fmt.Sprintf("%s_page_%d_%s.json", s.stem(spec), page.PageNumber, modeSuffix(spec.Mode))
	path := filepath.Join(s.dir, name)

	if err := os.WriteFile(path, page.RawBody, 0o644); err != nil {
		return fmt.Errorf("write page artifact: %w", err)
	}

	s.logger.Debug().Str("path", path).Int("page", page.PageNumber).Msg("Page persisted")
	return nil
}

// combinedMeta is the metadata block of a combined artifact.
type combinedMeta struct {
	TotalDocumentsRetrieved int               `json:"total_documents_retrieved"`
	TerminationReason       string            `json:"termination_reason"`
	Identity                fetch.Identity    `json:"identity"`
	Partial                 bool              `json:"partial,omitempty"`
}

// combinedArtifact is the on-disk shape of a combined artifact.
type combinedArtifact struct {
	Data []json.RawMessage `json:"data"`
	Meta combinedMeta      `json:"meta"`
}

// WriteCombined persists the flattened aggregate once pagination has ended.
// Partial results (aborted fetches) are marked so downstream consumers can
// tell them apart.
func (s *FileSink) WriteCombined(ctx context.Context, spec fetch.Spec, result *fetch.Result, partial bool) error {
	artifact := combinedArtifact{
		Data: result.Aggregate,
		Meta: combinedMeta{
			TotalDocumentsRetrieved: result.TotalItems(),
			TerminationReason:       string(result.Reason),
			Identity:                spec.Identity,
			Partial:                 partial,
		},
	}
	if artifact.Data == nil {
		artifact.Data = []json.RawMessage{}
	}

	payload, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal combined artifact: %w", err)
	}

	name := fmt.Sprintf("%s_combined_%s.json", s.stem(spec), modeSuffix(spec.Mode))
	path := filepath.Join(s.dir, name)

	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return fmt.Errorf("write combined artifact: %w", err)
	}

	s.logger.Info().
		Str("path", path).
		Int("items", result.TotalItems()).
		Bool("partial", partial).
		Msg("Combined artifact persisted")
	return nil
}

// stem builds the shared filename prefix: date plus sanitized identity
// parts, "no_params" when the identity list is empty.
func (s *FileSink) stem(spec fetch.Spec) string {
	parts := make([]string, 0, len(spec.Identity)+1)
	parts = append(parts, s.now().Format("2006-01-02"))

	if len(spec.Identity) == 0 {
		parts = append(parts, "no_params")
	}
	for _, pair := range spec.Identity {
		if pair.Value == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s_%s", sanitize(pair.Key), sanitize(pair.Value)))
	}

	return strings.Join(parts, "_")
}

// sanitize makes an identity fragment filename-safe.
func sanitize(value string) string {
	replacer := strings.NewReplacer(" ", "_", "/", "_", "\\", "_")
	return replacer.Replace(value)
}

// modeSuffix tags artifacts with the scheduling model that produced them.
func modeSuffix(mode fetch.Mode) string {
	if mode == fetch.ModeAsync {
		return "async"
	}
	return "sync"
}
