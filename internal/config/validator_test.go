package config_test

import (
	"testing"

	"github.com/fathomworks/memvault/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validQdrant() config.BackendConfig {
	return config.BackendConfig{
		Type:           config.BackendQdrant,
		CollectionName: "knowledge",
		Dimension:      1536,
		Host:           "localhost",
		Port:           6334,
	}
}

func TestValidate_ValidConfigs(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.BackendConfig
	}{
		{name: "qdrant with host", cfg: validQdrant()},
		{
			name: "qdrant with url only",
			cfg: config.BackendConfig{
				Type:           config.BackendQdrant,
				CollectionName: "knowledge",
				Dimension:      1536,
				URL:            "http://qdrant:6334",
			},
		},
		{
			name: "pinecone with api key",
			cfg: config.BackendConfig{
				Type:           config.BackendPinecone,
				CollectionName: "knowledge",
				Dimension:      1536,
				APIKey:         "pc-secret",
			},
		},
		{
			name: "in-memory",
			cfg: config.BackendConfig{
				Type:           config.BackendInMemory,
				CollectionName: "knowledge",
				Dimension:      1536,
				MaxVectors:     10000,
			},
		},
		{
			name: "single character collection name",
			cfg: config.BackendConfig{
				Type:           config.BackendInMemory,
				CollectionName: "k",
				Dimension:      1536,
				MaxVectors:     10000,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NoError(t, config.Validate(tt.cfg))
		})
	}
}

func TestValidate_CollectionNameFormat(t *testing.T) {
	tests := []struct {
		name  string
		value string
		valid bool
	}{
		{name: "alphanumeric", value: "Knowledge_v2", valid: true},
		{name: "with hyphen", value: "agent-memory", valid: true},
		{name: "empty", value: "", valid: false},
		{name: "with space", value: "my collection", valid: false},
		{name: "with slash", value: "a/b", valid: false},
		{name: "with dot", value: "a.b", valid: false},
		{name: "unicode", value: "mémoire", valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validQdrant()
			cfg.CollectionName = tt.value
			err := config.Validate(cfg)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidate_ReportsEveryViolation(t *testing.T) {
	cfg := config.BackendConfig{
		Type:           config.BackendQdrant,
		CollectionName: "bad name!",
		Dimension:      0,
	}

	err := config.Validate(cfg)
	require.Error(t, err)

	var errs config.ValidationErrors
	require.ErrorAs(t, err, &errs)
	// name format, dimension, missing host, invalid port
	assert.Len(t, errs, 4)
}

func TestValidate_PineconeRequiresAPIKey(t *testing.T) {
	cfg := config.BackendConfig{
		Type:           config.BackendPinecone,
		CollectionName: "knowledge",
		Dimension:      1536,
	}

	err := config.Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api key")
}

func TestValidate_FallbackConfigSkipsVariantChecks(t *testing.T) {
	// A fallback-substituted config is in-memory and trivially valid,
	// even though resolution zeroed the remote fields.
	cfg := config.BackendConfig{
		Type:           config.BackendInMemory,
		CollectionName: "knowledge",
		Dimension:      1536,
		MaxVectors:     10000,
		FallbackFrom:   config.BackendQdrant,
	}

	assert.NoError(t, config.Validate(cfg))
}

func TestValidate_FallbackConfigStillChecksName(t *testing.T) {
	cfg := config.BackendConfig{
		Type:           config.BackendInMemory,
		CollectionName: "bad name",
		FallbackFrom:   config.BackendQdrant,
	}

	assert.Error(t, config.Validate(cfg))
}

func TestValidate_InMemoryMaxVectors(t *testing.T) {
	cfg := config.BackendConfig{
		Type:           config.BackendInMemory,
		CollectionName: "knowledge",
		Dimension:      1536,
		MaxVectors:     0,
	}

	err := config.Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "maxVectors")
}
