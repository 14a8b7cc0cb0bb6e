package services

import (
	"strconv"
	"strings"

	"github.com/fathomworks/memvault/internal/config"
)

// Key builds the canonical cache key for a multi-collection request.
// Field order is fixed and absent optionals contribute explicit empty
// strings, so semantically identical requests collide and different
// ones do not. Free-form fields are quoted before joining: a delimiter
// inside a credential or URL must not shift field alignment and make
// two different configs collide. Credentials participate in the key
// (two requests for the same host with different keys are different
// services) but are never logged.
func Key(knowledge config.BackendConfig, reflection string, workspaceEnabled bool, workspace config.BackendConfig) string {
	parts := make([]string, 0, 4)
	parts = append(parts, configKey(knowledge))
	parts = append(parts, strconv.Quote(reflection))
	if workspaceEnabled {
		parts = append(parts, "ws", configKey(workspace))
	} else {
		parts = append(parts, "", "")
	}
	return strings.Join(parts, "||")
}

// configKey flattens one backend config into a stable string.
func configKey(cfg config.BackendConfig) string {
	return strings.Join([]string{
		string(cfg.Type),
		strconv.Quote(cfg.CollectionName),
		strconv.Itoa(cfg.Dimension),
		string(cfg.Distance),
		strconv.Quote(cfg.URL),
		strconv.Quote(cfg.Host),
		strconv.Itoa(cfg.Port),
		strconv.Quote(cfg.Username),
		strconv.Quote(cfg.Password),
		strconv.Quote(cfg.APIKey),
		strconv.Quote(cfg.Namespace),
		strconv.Quote(cfg.Metric),
		strconv.Itoa(cfg.MaxVectors),
		strconv.FormatBool(cfg.OnDisk),
		string(cfg.FallbackFrom),
	}, "|")
}
