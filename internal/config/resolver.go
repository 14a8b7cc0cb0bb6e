package config

import (
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// Environment keys consumed by the resolver. The workspace entry point
// doubles each key with the WORKSPACE_ prefix and falls back to the
// unprefixed key field by field.
const (
	KeyType       = "VECTOR_STORE_TYPE"
	KeyHost       = "VECTOR_STORE_HOST"
	KeyPort       = "VECTOR_STORE_PORT"
	KeyURL        = "VECTOR_STORE_URL"
	KeyAPIKey     = "VECTOR_STORE_API_KEY"
	KeyCollection = "VECTOR_STORE_COLLECTION"
	KeyDimension  = "VECTOR_STORE_DIMENSION"
	KeyDistance   = "VECTOR_STORE_DISTANCE"
	KeyOnDisk     = "VECTOR_STORE_ON_DISK"
	KeyMaxVectors = "VECTOR_STORE_MAX_VECTORS"
	KeyUsername   = "VECTOR_STORE_USERNAME"
	KeyPassword   = "VECTOR_STORE_PASSWORD"

	KeyPineconeNamespace = "PINECONE_NAMESPACE"
	KeyPineconeMetric    = "PINECONE_METRIC"

	KeyReflectionCollection = "REFLECTION_VECTOR_STORE_COLLECTION"
	KeyUseWorkspaceMemory   = "USE_WORKSPACE_MEMORY"

	workspacePrefix = "WORKSPACE_"
)

// ResolveOption adjusts a single resolution call.
type ResolveOption func(*resolveOptions)

type resolveOptions struct {
	dimensionOverride int
}

// WithDimensionOverride forces the resolved dimension, typically from
// the embedding pipeline's reported output size. Non-positive values
// are ignored and resolution proceeds from the source.
func WithDimensionOverride(dim int) ResolveOption {
	return func(o *resolveOptions) {
		o.dimensionOverride = dim
	}
}

// Resolver maps a Source into validated backend configurations.
// Resolution is pure given an identical source; the only side effect
// is diagnostic logging.
type Resolver struct {
	logger *zap.Logger
}

// NewResolver creates a Resolver. A nil logger disables diagnostics.
func NewResolver(logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{logger: logger.Named("config")}
}

// Resolve reads the default-scoped variable set and returns a fully
// typed BackendConfig. It never returns an error: a remote backend
// without sufficient connection information is substituted with an
// in-memory config tagged with the originally requested type.
func (r *Resolver) Resolve(src Source, opts ...ResolveOption) BackendConfig {
	return r.resolve(reader{src: src}, DefaultCollection, opts)
}

// ResolveWorkspace repeats the resolution algorithm for the workspace
// collection: every key is read first with the WORKSPACE_ prefix,
// falling back to the unprefixed key, then to hard defaults. Each
// field falls back independently, so a workspace-specific host with a
// default-scoped port is valid.
func (r *Resolver) ResolveWorkspace(src Source, opts ...ResolveOption) BackendConfig {
	return r.resolve(reader{src: src, prefix: workspacePrefix}, DefaultWorkspaceCollection, opts)
}

func (r *Resolver) resolve(rd reader, defaultCollection string, opts []ResolveOption) BackendConfig {
	var o resolveOptions
	for _, opt := range opts {
		opt(&o)
	}

	requested := ParseBackendType(normalizeKeyword(rd.getString(KeyType, "")))

	cfg := BackendConfig{
		Type:           requested,
		CollectionName: rd.getString(KeyCollection, defaultCollection),
		Dimension:      r.resolveDimension(rd, o.dimensionOverride),
		Distance:       ParseDistance(rd.getString(KeyDistance, "")),
	}

	switch requested {
	case BackendQdrant, BackendMilvus, BackendChroma:
		cfg.URL = rd.getString(KeyURL, "")
		cfg.Host = rd.getString(KeyHost, "")
		cfg.Port = rd.getInt(KeyPort, defaultPort(requested))
		cfg.Username = rd.getString(KeyUsername, "")
		cfg.Password = rd.getString(KeyPassword, "")
		cfg.OnDisk = rd.getBool(KeyOnDisk, false)
		if cfg.URL == "" && cfg.Host == "" {
			return r.fallback(rd, cfg, "no host or url configured")
		}

	case BackendPinecone:
		cfg.APIKey = rd.getString(KeyAPIKey, "")
		cfg.Namespace = rd.getString(KeyPineconeNamespace, "")
		cfg.Metric = normalizeKeyword(rd.getString(KeyPineconeMetric, ""))
		if cfg.APIKey == "" {
			return r.fallback(rd, cfg, "no api key configured")
		}

	case BackendInMemory:
		cfg.MaxVectors = rd.getPositiveInt(KeyMaxVectors, DefaultMaxVectors)
		cfg.OnDisk = rd.getBool(KeyOnDisk, false)
	}

	return cfg
}

// resolveDimension picks the vector dimension: an external positive
// override wins, then a valid positive source value, then the default.
func (r *Resolver) resolveDimension(rd reader, override int) int {
	if override > 0 {
		return override
	}
	return rd.getPositiveInt(KeyDimension, DefaultDimension)
}

// fallback substitutes an in-memory config for an unreachable remote
// backend, preserving the requested type as the origin tag. This is a
// degradation, not an error.
func (r *Resolver) fallback(rd reader, requested BackendConfig, reason string) BackendConfig {
	r.logger.Warn("falling back to in-memory vector store",
		zap.String("requested", string(requested.Type)),
		zap.String("reason", reason),
	)
	return BackendConfig{
		Type:           BackendInMemory,
		CollectionName: requested.CollectionName,
		Dimension:      requested.Dimension,
		Distance:       requested.Distance,
		MaxVectors:     rd.getPositiveInt(KeyMaxVectors, DefaultMaxVectors),
		FallbackFrom:   requested.Type,
	}
}

// ReflectionCollection returns the configured reflection collection
// name, or "" when the reflection collection is disabled. The value is
// trimmed before the blank check.
func ReflectionCollection(src Source) string {
	if v, ok := src.Lookup(KeyReflectionCollection); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

// WorkspaceEnabled reports whether workspace memory is switched on.
func WorkspaceEnabled(src Source) bool {
	return (reader{src: src}).getBool(KeyUseWorkspaceMemory, false)
}

func defaultPort(t BackendType) int {
	switch t {
	case BackendQdrant:
		return DefaultQdrantPort
	case BackendMilvus:
		return DefaultMilvusPort
	case BackendChroma:
		return DefaultChromaPort
	default:
		return 0
	}
}

// reader reads trimmed, typed values from a Source, consulting the
// prefixed key first when a prefix is set. Absent and blank values are
// treated identically: trim-then-check, applied uniformly.
type reader struct {
	src    Source
	prefix string
}

func (r reader) lookup(key string) (string, bool) {
	if r.prefix != "" {
		if v, ok := r.src.Lookup(r.prefix + key); ok {
			if trimmed := strings.TrimSpace(v); trimmed != "" {
				return trimmed, true
			}
		}
	}
	if v, ok := r.src.Lookup(key); ok {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed, true
		}
	}
	return "", false
}

func (r reader) getString(key, def string) string {
	if v, ok := r.lookup(key); ok {
		return v
	}
	return def
}

func (r reader) getInt(key string, def int) int {
	if v, ok := r.lookup(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// getPositiveInt is getInt restricted to positive values; zero,
// negative, and non-numeric source values yield the default.
func (r reader) getPositiveInt(key string, def int) int {
	if n := r.getInt(key, 0); n > 0 {
		return n
	}
	return def
}

func (r reader) getBool(key string, def bool) bool {
	if v, ok := r.lookup(key); ok {
		switch normalizeKeyword(v) {
		case "yes", "on":
			return true
		case "no", "off":
			return false
		}
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}
