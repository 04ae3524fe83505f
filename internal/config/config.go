// Package config provides application configuration with multi-source
// priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (DRAFTLY_ prefix, runtime override)
//  2. Config file (~/.draftly/config.yaml, or ./config.yaml)
//  3. Default values
//
// Error handling uses sentinel errors for errors.Is checks, wrapped with
// context via fmt.Errorf("%w: ...").
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

var (
	// ErrInvalidProvider indicates the AI provider is not supported.
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrInvalidModelName indicates the model name is empty or malformed.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidVariantCount indicates the per-session variant count is
	// out of range.
	ErrInvalidVariantCount = errors.New("invalid variant count")

	// ErrInvalidAddr indicates the server listen address is malformed.
	ErrInvalidAddr = errors.New("invalid listen address")
)

// AI provider identifiers used in Config.Provider.
const (
	ProviderGoogleAI = "googleai"
	ProviderOllama   = "ollama"
)

// Variant count bounds. More than eight concurrent streams per submission
// is a configuration mistake, not a use case.
const (
	MinVariants = 1
	MaxVariants = 8
)

// Config stores application configuration.
type Config struct {
	// AI provider and model
	Provider   string `mapstructure:"provider" json:"provider"`       // "googleai" (default) or "ollama"
	ModelName  string `mapstructure:"model_name" json:"model_name"`   // e.g. "gemini-2.5-flash"
	OllamaHost string `mapstructure:"ollama_host" json:"ollama_host"` // only used when provider is "ollama"

	// Generation pipeline
	VariantCount   int      `mapstructure:"variant_count" json:"variant_count"`
	FallbackStyles []string `mapstructure:"fallback_styles" json:"fallback_styles"`
	StyleTags      []string `mapstructure:"style_tags" json:"style_tags"`

	// HTTP server
	Addr string `mapstructure:"addr" json:"addr"`

	// Logging
	LogLevel string `mapstructure:"log_level" json:"log_level"` // debug, info, warn, error
	LogJSON  bool   `mapstructure:"log_json" json:"log_json"`

	// Tracing (OTLP exporter on genkit's TracerProvider)
	Tracing TracingConfig `mapstructure:"tracing" json:"tracing"`
}

// TracingConfig holds OTLP trace export settings. Disabled by default.
type TracingConfig struct {
	Enabled     bool   `mapstructure:"enabled" json:"enabled"`
	AgentHost   string `mapstructure:"agent_host" json:"agent_host"` // OTLP HTTP endpoint, default localhost:4318
	ServiceName string `mapstructure:"service_name" json:"service_name"`
	Environment string `mapstructure:"environment" json:"environment"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > defaults.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}
	configDir := filepath.Join(home, ".draftly")

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)
	v.AddConfigPath(".")

	setDefaults(v)

	v.SetEnvPrefix("DRAFTLY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is not an error; defaults apply.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using defaults",
			"search_paths", []string{configDir, "."})
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("provider", ProviderGoogleAI)
	v.SetDefault("model_name", "gemini-2.5-flash")
	v.SetDefault("ollama_host", "http://localhost:11434")
	v.SetDefault("variant_count", 3)
	v.SetDefault("fallback_styles", []string{"Minimal & Clean", "Bold & Expressive", "Soft & Rounded"})
	v.SetDefault("style_tags", []string{})
	v.SetDefault("addr", "127.0.0.1:3600")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_json", false)
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.agent_host", "localhost:4318")
	v.SetDefault("tracing.service_name", "draftly")
	v.SetDefault("tracing.environment", "dev")
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderGoogleAI, ProviderOllama:
	default:
		return fmt.Errorf("%w: %q (expected %q or %q)",
			ErrInvalidProvider, c.Provider, ProviderGoogleAI, ProviderOllama)
	}
	if strings.TrimSpace(c.ModelName) == "" {
		return fmt.Errorf("%w: empty", ErrInvalidModelName)
	}
	if c.VariantCount < MinVariants || c.VariantCount > MaxVariants {
		return fmt.Errorf("%w: %d (expected %d-%d)",
			ErrInvalidVariantCount, c.VariantCount, MinVariants, MaxVariants)
	}
	if !strings.Contains(c.Addr, ":") {
		return fmt.Errorf("%w: %q", ErrInvalidAddr, c.Addr)
	}
	return nil
}

// QualifiedModel returns the provider-qualified model name genkit expects,
// e.g. "googleai/gemini-2.5-flash".
func (c *Config) QualifiedModel() string {
	return c.Provider + "/" + c.ModelName
}

// SlogLevel maps the configured log level string to a slog.Level.
// Unknown values fall back to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
