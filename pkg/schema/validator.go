// Package schema provides optional structural validation of page payloads
// against JSON Schema documents. A validation failure is advisory: it is
// logged and recorded, never turned into a fetch abort.
package schema

import (
	"bytes"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

var validationFailures = promauto.NewCounter(prometheus.CounterOpts{
	Name: "regfetch_validation_failures_total",
	Help: "Total number of page payloads that failed schema validation",
})

// Validator compiles schema documents once per path and validates page
// payloads against them.
type Validator struct {
	mu       sync.Mutex
	compiled map[string]*jsonschema.Schema
	logger   zerolog.Logger
}

// NewValidator creates a validator with an empty schema cache.
func NewValidator() *Validator {
	return &Validator{
		compiled: make(map[string]*jsonschema.Schema),
		logger:   log.With().Str("component", "schema").Logger(),
	}
}

// Validate reports whether payload conforms to the schema at schemaPath.
// An empty schemaPath skips validation and reports true. An unreadable or
// uncompilable schema, an undecodable payload, and a conformance failure
// all report false; every false result is logged as a warning.
func (v *Validator) Validate(payload []byte, schemaPath string) bool {
	if schemaPath == "" {
		return true
	}

	sch, err := v.schemaFor(schemaPath)
	if err != nil {
		validationFailures.Inc()
		v.logger.Warn().Err(err).Str("schema", schemaPath).Msg("Schema unavailable")
		return false
	}

	instance, err := jsonschema.UnmarshalJSON(bytes.NewReader(payload))
	if err != nil {
		validationFailures.Inc()
		v.logger.Warn().Err(err).Str("schema", schemaPath).Msg("Payload is not decodable for validation")
		return false
	}

	if err := sch.Validate(instance); err != nil {
		validationFailures.Inc()
		v.logger.Warn().Err(err).Str("schema", schemaPath).Msg("Payload failed schema validation")
		return false
	}

	v.logger.Debug().Str("schema", schemaPath).Msg("Payload validated")
	return true
}

// schemaFor returns the compiled schema for path, compiling and caching it
// on first use.
func (v *Validator) schemaFor(path string) (*jsonschema.Schema, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if sch, ok := v.compiled[path]; ok {
		return sch, nil
	}

	compiler := jsonschema.NewCompiler()
	sch, err := compiler.Compile(path)
	if err != nil {
		return nil, err
	}

	v.compiled[path] = sch
	return sch, nil
}
