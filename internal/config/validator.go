package config

import (
	"fmt"
	"regexp"
	"strings"
)

// collectionNamePattern restricts collection names to a portable
// alphabet accepted by every supported backend.
var collectionNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ValidationError describes a single structural violation in a
// resolved BackendConfig.
type ValidationError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// ValidationErrors aggregates every violation found in one pass so the
// caller can present a complete diagnostic instead of fixing errors
// one at a time.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i, v := range e {
		msgs[i] = v.Error()
	}
	return "invalid backend config: " + strings.Join(msgs, "; ")
}

// Validate checks the structural invariants of a resolved config and
// returns nil or a ValidationErrors listing every violation.
//
// Fallback-substituted configs are already in-memory and skip the
// variant-specific checks; the collection name format is checked
// unconditionally, independent of backend type.
func Validate(cfg BackendConfig) error {
	var errs ValidationErrors

	if cfg.CollectionName == "" {
		errs = append(errs, ValidationError{Field: "collectionName", Reason: "must not be empty"})
	} else if !collectionNamePattern.MatchString(cfg.CollectionName) {
		errs = append(errs, ValidationError{
			Field:  "collectionName",
			Reason: fmt.Sprintf("%q contains characters outside [A-Za-z0-9_-]", cfg.CollectionName),
		})
	}

	if !cfg.IsFallback() {
		errs = append(errs, validateVariant(cfg)...)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// validateVariant applies the per-type required-field table.
func validateVariant(cfg BackendConfig) ValidationErrors {
	var errs ValidationErrors

	if cfg.Dimension <= 0 {
		errs = append(errs, ValidationError{Field: "dimension", Reason: "must be a positive integer"})
	}

	switch cfg.Type {
	case BackendQdrant, BackendMilvus, BackendChroma:
		if cfg.URL == "" && cfg.Host == "" {
			errs = append(errs, ValidationError{
				Field:  "host",
				Reason: fmt.Sprintf("%s requires url or host", cfg.Type),
			})
		}
		if cfg.URL == "" && (cfg.Port <= 0 || cfg.Port > 65535) {
			errs = append(errs, ValidationError{
				Field:  "port",
				Reason: fmt.Sprintf("invalid port %d", cfg.Port),
			})
		}

	case BackendPinecone:
		if cfg.APIKey == "" {
			errs = append(errs, ValidationError{Field: "apiKey", Reason: "pinecone requires an api key"})
		}

	case BackendInMemory:
		if cfg.MaxVectors <= 0 {
			errs = append(errs, ValidationError{Field: "maxVectors", Reason: "must be a positive integer"})
		}

	default:
		errs = append(errs, ValidationError{
			Field:  "type",
			Reason: fmt.Sprintf("unknown backend type %q", cfg.Type),
		})
	}

	return errs
}
