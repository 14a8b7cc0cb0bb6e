package config

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const maxConfigFileSize = 1024 * 1024 // 1MB

// Source is a read-only key/value lookup the resolver reads from.
// Keys are the VECTOR_STORE_* names (and their WORKSPACE_ prefixed
// doubles); values are raw strings as an environment would hold them.
type Source interface {
	// Lookup returns the raw value for key and whether it was present.
	Lookup(key string) (string, bool)
}

// EnvSource reads from the process environment.
type EnvSource struct{}

// Lookup implements Source.
func (EnvSource) Lookup(key string) (string, bool) {
	return os.LookupEnv(key)
}

// MapSource is a fixed in-memory Source, used by tests and embedders.
type MapSource map[string]string

// Lookup implements Source.
func (m MapSource) Lookup(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

// FileSource is a Source backed by a YAML config file merged with
// environment variable overrides.
//
// Precedence (highest to lowest):
//  1. Environment variables (VECTOR_STORE_HOST, ...)
//  2. YAML config file keys (vector_store_host, ...)
//
// YAML keys are lowercase forms of the environment names, so a config
// file reads naturally:
//
//	vector_store_type: qdrant
//	vector_store_host: qdrant.internal
//	workspace_vector_store_collection: scratch
type FileSource struct {
	k *koanf.Koanf
}

// NewFileSource loads path (if it exists) and layers environment
// variables on top. A missing file is not an error; the source then
// behaves like EnvSource.
func NewFileSource(path string) (*FileSource, error) {
	k := koanf.New(".")

	if path != "" {
		if info, err := os.Stat(path); err == nil {
			if info.Size() > maxConfigFileSize {
				return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
			}
			f, err := os.Open(path)
			if err != nil {
				return nil, fmt.Errorf("opening config file: %w", err)
			}
			content, err := io.ReadAll(f)
			_ = f.Close()
			if err != nil {
				return nil, fmt.Errorf("reading config file: %w", err)
			}
			if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("parsing config file %s: %w", path, err)
			}
		}
	}

	// Environment overrides the file. Keys are kept flat; lookups use
	// the lowercase environment name directly.
	if err := k.Load(env.Provider("", ".", strings.ToLower), nil); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	return &FileSource{k: k}, nil
}

// Lookup implements Source.
func (s *FileSource) Lookup(key string) (string, bool) {
	lower := strings.ToLower(key)
	if !s.k.Exists(lower) {
		return "", false
	}
	return s.k.String(lower), true
}

// normalizeKeyword lowercases and trims a keyword-style value.
func normalizeKeyword(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
