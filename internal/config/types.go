// Package config resolves vector store backend configuration.
//
// Configuration is read from an environment-like key/value Source and
// resolved into a fully-typed BackendConfig. Resolution never fails:
// remote backends that lack sufficient connection information degrade
// to the in-memory backend with a fallback-origin tag instead of
// returning an error.
package config

import "fmt"

// BackendType identifies a storage engine variant.
type BackendType string

const (
	// BackendInMemory is the embedded in-memory engine (chromem-go).
	BackendInMemory BackendType = "in-memory"
	// BackendQdrant is an external Qdrant server (gRPC).
	BackendQdrant BackendType = "qdrant"
	// BackendMilvus is an external Milvus server.
	BackendMilvus BackendType = "milvus"
	// BackendChroma is an external Chroma server (HTTP).
	BackendChroma BackendType = "chroma"
	// BackendPinecone is the Pinecone managed service.
	BackendPinecone BackendType = "pinecone"
)

// ParseBackendType maps a raw type string to a BackendType.
// Unknown or empty values resolve to BackendInMemory.
func ParseBackendType(s string) BackendType {
	switch BackendType(s) {
	case BackendQdrant, BackendMilvus, BackendChroma, BackendPinecone:
		return BackendType(s)
	case BackendInMemory, "memory", "inmemory":
		return BackendInMemory
	default:
		return BackendInMemory
	}
}

// Distance is a normalized similarity metric.
type Distance string

const (
	DistanceCosine    Distance = "cosine"
	DistanceEuclidean Distance = "euclidean"
	DistanceDot       Distance = "dot"
)

// ParseDistance normalizes a distance metric name case-insensitively.
// "l2" maps to euclidean, "ip" to dot. Unrecognized values default to
// cosine.
func ParseDistance(s string) Distance {
	switch normalizeKeyword(s) {
	case "cosine", "":
		return DistanceCosine
	case "l2", "euclidean":
		return DistanceEuclidean
	case "ip", "dot", "dotproduct":
		return DistanceDot
	default:
		return DistanceCosine
	}
}

// Defaults applied during resolution.
const (
	DefaultDimension           = 1536
	DefaultMaxVectors          = 10000
	DefaultCollection          = "memory"
	DefaultWorkspaceCollection = "workspace_memory"
	DefaultQdrantPort          = 6334
	DefaultMilvusPort          = 19530
	DefaultChromaPort          = 8000
)

// BackendConfig is the discriminated backend configuration. The Type
// tag determines which variant fields are meaningful:
//
//	qdrant, milvus, chroma: URL or Host/Port, optional Username/Password
//	pinecone:               APIKey, optional Namespace/Metric
//	in-memory:              MaxVectors, OnDisk
//
// FallbackFrom is set only when a remote backend was requested but
// lacked connection information and the resolver substituted the
// in-memory engine. It never changes runtime behavior; it exists so
// the substitution stays observable.
type BackendConfig struct {
	Type           BackendType `json:"type"`
	CollectionName string      `json:"collectionName"`
	Dimension      int         `json:"dimension"`
	Distance       Distance    `json:"distance"`

	// Remote server variants (qdrant, milvus, chroma).
	URL      string `json:"url,omitempty"`
	Host     string `json:"host,omitempty"`
	Port     int    `json:"port,omitempty"`
	Username string `json:"username,omitempty"`
	Password string `json:"-"`

	// Pinecone variant.
	APIKey    string `json:"-"`
	Namespace string `json:"namespace,omitempty"`
	Metric    string `json:"metric,omitempty"`

	// In-memory variant.
	MaxVectors int  `json:"maxVectors,omitempty"`
	OnDisk     bool `json:"onDisk,omitempty"`

	FallbackFrom BackendType `json:"_fallbackFrom,omitempty"`
}

// IsFallback reports whether this config was substituted for an
// unreachable remote backend.
func (c BackendConfig) IsFallback() bool {
	return c.FallbackFrom != ""
}

// Addr returns the effective remote address: URL when set, otherwise
// host:port.
func (c BackendConfig) Addr() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
