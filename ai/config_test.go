package ai

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, BackendOpenAI, cfg.Backend)
	assert.Equal(t, "http://localhost:11434/v1", cfg.Host)
	assert.Equal(t, 10, cfg.EmbeddingBatchSize)
	assert.Equal(t, 0.1, cfg.Temperature)
	assert.NoError(t, cfg.Validate())
}

func TestNewConfig_Options(t *testing.T) {
	cfg := NewConfig(
		WithBackend(BackendGoogleAI),
		WithAPIKey("secret"),
		WithEmbeddingModel("gemini-embedding-001"),
		WithGenerationModel("gemini-2.5-flash"),
		WithTemperature(0.3),
		WithEmbeddingBatchSize(25),
		WithRequestTimeout(10*time.Second),
	)

	assert.Equal(t, BackendGoogleAI, cfg.Backend)
	assert.Equal(t, "secret", cfg.APIKey)
	assert.Equal(t, "gemini-embedding-001", cfg.EmbeddingModel)
	assert.Equal(t, "gemini-2.5-flash", cfg.GenerationModel)
	assert.Equal(t, 0.3, cfg.Temperature)
	assert.Equal(t, 25, cfg.EmbeddingBatchSize)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
	assert.NoError(t, cfg.Validate())
}

func TestConfig_Normalize(t *testing.T) {
	t.Run("appends v1 suffix", func(t *testing.T) {
		cfg := NewConfig(WithHost("http://localhost:11434"))
		cfg.Normalize()
		assert.Equal(t, "http://localhost:11434/v1", cfg.Host)
	})

	t.Run("strips trailing slash first", func(t *testing.T) {
		cfg := NewConfig(WithHost("http://localhost:11434/"))
		cfg.Normalize()
		assert.Equal(t, "http://localhost:11434/v1", cfg.Host)
	})

	t.Run("leaves v1 host untouched", func(t *testing.T) {
		cfg := NewConfig(WithHost("http://example.com/v1"))
		cfg.Normalize()
		assert.Equal(t, "http://example.com/v1", cfg.Host)
	})

	t.Run("googleai host is not rewritten", func(t *testing.T) {
		cfg := NewConfig(WithBackend(BackendGoogleAI), WithHost("http://example.com"))
		cfg.Normalize()
		assert.Equal(t, "http://example.com", cfg.Host)
	})
}

func TestConfig_Validate(t *testing.T) {
	cases := []struct {
		name   string
		mutate ConfigOption
	}{
		{"unknown backend", WithBackend("azure")},
		{"missing host", WithHost("")},
		{"missing embedding model", WithEmbeddingModel("")},
		{"missing generation model", WithGenerationModel("")},
		{"temperature too high", WithTemperature(3)},
		{"temperature negative", WithTemperature(-0.5)},
		{"batch size zero", WithEmbeddingBatchSize(0)},
		{"timeout zero", WithRequestTimeout(0)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := NewConfig(tc.mutate)
			require.Error(t, cfg.Validate())
		})
	}

	t.Run("googleai requires api key", func(t *testing.T) {
		cfg := NewConfig(WithBackend(BackendGoogleAI), WithAPIKey(""))
		require.Error(t, cfg.Validate())
	})
}
