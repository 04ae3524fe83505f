package config

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Provider:     ProviderGoogleAI,
		ModelName:    "gemini-2.5-flash",
		VariantCount: 3,
		Addr:         "127.0.0.1:3600",
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{
			name:   "valid googleai",
			mutate: func(*Config) {},
		},
		{
			name: "valid ollama",
			mutate: func(c *Config) {
				c.Provider = ProviderOllama
				c.ModelName = "gemma3:4b"
			},
		},
		{
			name:    "unknown provider",
			mutate:  func(c *Config) { c.Provider = "openrouter" },
			wantErr: ErrInvalidProvider,
		},
		{
			name:    "empty model name",
			mutate:  func(c *Config) { c.ModelName = "  " },
			wantErr: ErrInvalidModelName,
		},
		{
			name:    "variant count too low",
			mutate:  func(c *Config) { c.VariantCount = 0 },
			wantErr: ErrInvalidVariantCount,
		},
		{
			name:    "variant count too high",
			mutate:  func(c *Config) { c.VariantCount = MaxVariants + 1 },
			wantErr: ErrInvalidVariantCount,
		},
		{
			name:    "addr without port separator",
			mutate:  func(c *Config) { c.Addr = "localhost" },
			wantErr: ErrInvalidAddr,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	// Not parallel: Load reads the process environment and working
	// directory.
	t.Setenv("DRAFTLY_PROVIDER", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ProviderGoogleAI, cfg.Provider)
	assert.Equal(t, "gemini-2.5-flash", cfg.ModelName)
	assert.Equal(t, 3, cfg.VariantCount)
	assert.Equal(t, "127.0.0.1:3600", cfg.Addr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.Tracing.Enabled)
	assert.Len(t, cfg.FallbackStyles, 3)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DRAFTLY_PROVIDER", "ollama")
	t.Setenv("DRAFTLY_MODEL_NAME", "gemma3:4b")
	t.Setenv("DRAFTLY_VARIANT_COUNT", "5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ProviderOllama, cfg.Provider)
	assert.Equal(t, "gemma3:4b", cfg.ModelName)
	assert.Equal(t, 5, cfg.VariantCount)
}

func TestLoad_InvalidEnvRejected(t *testing.T) {
	t.Setenv("DRAFTLY_PROVIDER", "not-a-provider")

	_, err := Load()
	assert.ErrorIs(t, err, ErrInvalidProvider)
}

func TestQualifiedModel(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	assert.Equal(t, "googleai/gemini-2.5-flash", cfg.QualifiedModel())

	cfg.Provider = ProviderOllama
	cfg.ModelName = "gemma3:4b"
	assert.Equal(t, "ollama/gemma3:4b", cfg.QualifiedModel())
}

func TestSlogLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		cfg := &Config{LogLevel: tt.level}
		assert.Equal(t, tt.want, cfg.SlogLevel(), "level %q", tt.level)
	}
}
