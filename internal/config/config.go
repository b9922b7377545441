// Package config handles configuration loading for earningsai.
// It supports YAML config files, a local .env file and environment
// variable overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Default models per LLM provider, used when llm.model is unset.
const (
	DefaultOpenAIModel    = "gpt-4o"
	DefaultAnthropicModel = "claude-sonnet-4-20250514"
)

// EnvPrefix prefixes every environment override, e.g. EARNINGSAI_LLM_OPENAI_KEY.
const EnvPrefix = "EARNINGSAI"

// Config represents the complete application configuration.
type Config struct {
	LLM      LLMConfig      `mapstructure:"llm"      yaml:"llm"`
	Provider ProviderConfig `mapstructure:"provider" yaml:"provider"`
	Snapshot SnapshotConfig `mapstructure:"snapshot" yaml:"snapshot"`
	API      APIConfig      `mapstructure:"api"      yaml:"api"`
	Logging  LoggingConfig  `mapstructure:"logging"  yaml:"logging"`
}

// LLMConfig holds LLM provider configuration.
type LLMConfig struct {
	Primary      string        `mapstructure:"primary"       yaml:"primary"       validate:"oneof=openai anthropic"`
	OpenAIKey    string        `mapstructure:"openai_key"    yaml:"openai_key"`
	AnthropicKey string        `mapstructure:"anthropic_key" yaml:"anthropic_key"`
	BaseURL      string        `mapstructure:"base_url"      yaml:"base_url"      validate:"omitempty,url"`
	Model        string        `mapstructure:"model"         yaml:"model"         validate:"required"`
	Temperature  float64       `mapstructure:"temperature"   yaml:"temperature"   validate:"gte=0,lte=2"`
	TopP         float64       `mapstructure:"top_p"         yaml:"top_p"         validate:"gt=0,lte=1"`
	MaxTokens    int           `mapstructure:"max_tokens"    yaml:"max_tokens"    validate:"gte=0"`
	Timeout      time.Duration `mapstructure:"timeout"       yaml:"timeout"       validate:"gte=0"`
}

// APIKey returns the key for the primary provider.
func (c LLMConfig) APIKey() string {
	if c.Primary == "anthropic" {
		return c.AnthropicKey
	}
	return c.OpenAIKey
}

// ProviderConfig holds financial-data provider settings.
type ProviderConfig struct {
	FMPKey    string        `mapstructure:"fmp_key"    yaml:"fmp_key"`
	BaseURL   string        `mapstructure:"base_url"   yaml:"base_url"   validate:"required,url"`
	Period    string        `mapstructure:"period"     yaml:"period"     validate:"eq=annual"`
	Limit     int           `mapstructure:"limit"      yaml:"limit"      validate:"gte=0"`
	RateLimit int           `mapstructure:"rate_limit" yaml:"rate_limit"` // requests per second, <= 0 disables
	Timeout   time.Duration `mapstructure:"timeout"    yaml:"timeout"    validate:"gte=0"`
}

// SnapshotConfig controls the raw-statement CSV snapshots.
type SnapshotConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Dir     string `mapstructure:"dir"     yaml:"dir"     validate:"required_if=Enabled true"`
}

// APIConfig holds HTTP API server settings.
type APIConfig struct {
	Host           string        `mapstructure:"host"            yaml:"host"`
	Port           int           `mapstructure:"port"            yaml:"port"            validate:"gte=1,lte=65535"`
	CORSOrigins    []string      `mapstructure:"cors_origins"    yaml:"cors_origins"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout" validate:"gte=0"`
}

// Addr returns host:port for the listener.
func (c APIConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"  validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" yaml:"format" validate:"oneof=text json"`
}

// Load reads the configuration from file and environment variables.
// Config file search order:
//  1. ./config/config.yaml (project root)
//  2. ~/.earningsai/config.yaml (home directory)
//  3. /etc/earningsai/config.yaml (system)
//
// A .env file in the working directory is loaded first if present; real
// environment variables win over it. Environment variables override config
// file values.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".earningsai"))
	v.AddConfigPath("/etc/earningsai")

	// Read config file (not required to exist)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}
	return decode(v)
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}
	return decode(v)
}

// Validate checks field constraints. An Anthropic primary must name a
// Claude model.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.LLM.Primary == "anthropic" && !strings.HasPrefix(c.LLM.Model, "claude") {
		return fmt.Errorf("invalid config: llm.model %q is not an Anthropic model", c.LLM.Model)
	}
	return nil
}

// DefaultModel returns the model used for primary when llm.model is unset.
func DefaultModel(primary string) string {
	if primary == "anthropic" {
		return DefaultAnthropicModel
	}
	return DefaultOpenAIModel
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	overrideFromEnv(&cfg)
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = DefaultModel(cfg.LLM.Primary)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults sets sensible defaults for all config values. Every key is
// listed so AutomaticEnv can override it.
func setDefaults(v *viper.Viper) {
	// LLM defaults: deterministic sampling
	v.SetDefault("llm.primary", "openai")
	v.SetDefault("llm.openai_key", "")
	v.SetDefault("llm.anthropic_key", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.model", "") // per-provider, see DefaultModel
	v.SetDefault("llm.temperature", 0.0)
	v.SetDefault("llm.top_p", 1.0)
	v.SetDefault("llm.max_tokens", 0)
	v.SetDefault("llm.timeout", 120*time.Second)

	// Provider defaults
	v.SetDefault("provider.fmp_key", "")
	v.SetDefault("provider.base_url", "https://financialmodelingprep.com/api/v3")
	v.SetDefault("provider.period", "annual")
	v.SetDefault("provider.limit", 0)
	v.SetDefault("provider.rate_limit", 5)
	v.SetDefault("provider.timeout", 30*time.Second)

	// Snapshot defaults
	v.SetDefault("snapshot.enabled", false)
	v.SetDefault("snapshot.dir", "data")

	// API defaults
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8000)
	v.SetDefault("api.cors_origins", []string{"*"})
	v.SetDefault("api.request_timeout", 180*time.Second)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// overrideFromEnv explicitly reads sensitive keys from environment variables.
// The short unprefixed names are accepted as a fallback.
func overrideFromEnv(cfg *Config) {
	if key := firstEnv(EnvOpenAIKey, "OPENAI_API_KEY"); key != "" {
		cfg.LLM.OpenAIKey = key
	}
	if key := firstEnv(EnvAnthropicKey, "ANTHROPIC_API_KEY"); key != "" {
		cfg.LLM.AnthropicKey = key
	}
	if key := firstEnv(EnvFMPKey, "FMP_API_KEY"); key != "" {
		cfg.Provider.FMPKey = key
	}
}

func firstEnv(names ...string) string {
	for _, n := range names {
		if v := os.Getenv(n); v != "" {
			return v
		}
	}
	return ""
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
