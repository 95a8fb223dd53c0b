// Package config provides configuration loading and validation for the synergy service.
//
// Configuration comes from an optional JSON file plus environment overrides.
// GetConfig returns the config by value so callers cannot mutate shared state;
// all loading goes through Load once at startup.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// Provider identifiers for the LLM backend.
const (
	ProviderGoogle    = "google"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Default model per provider.
const (
	DefaultGoogleModel    = "gemini-2.5-flash"
	DefaultOpenAIModel    = "gpt-4o-mini"
	DefaultAnthropicModel = "claude-3-5-haiku-latest"
)

// Config represents the service configuration.
type Config struct {
	ProjectName      string        `json:"project_name"`
	AppEnv           string        `json:"app_env"`
	ListenAddr       string        `json:"listen_addr"`
	Provider         string        `json:"provider"`
	Model            string        `json:"model"`
	GoogleAPIKey     string        `json:"google_api_key"`
	OpenAIAPIKey     string        `json:"openai_api_key"`
	AnthropicAPIKey  string        `json:"anthropic_api_key"`
	DBPath           string        `json:"db_path"`
	TracePath        string        `json:"trace_path"`
	RequestTimeout   time.Duration `json:"request_timeout"`
	MaxContextTokens int           `json:"max_context_tokens"`
}

//nolint:gochecknoglobals // single config instance loaded at startup
var (
	current *Config
	mu      sync.RWMutex
)

// Default returns the built-in defaults before file and env overrides.
func Default() Config {
	return Config{
		ProjectName:      "Synergy AI Platform",
		AppEnv:           "development",
		ListenAddr:       ":8000",
		Provider:         ProviderGoogle,
		Model:            DefaultGoogleModel,
		DBPath:           "synergy.db",
		TracePath:        "data/agent_traces.jsonl",
		RequestTimeout:   120 * time.Second,
		MaxContextTokens: 32000,
	}
}

// Load reads configuration from an optional JSON file, applies environment
// overrides, validates, and installs the result as the process config.
// Pass an empty path to skip the file and use defaults plus environment.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := json.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if cfg.Model == "" {
		cfg.Model = defaultModelFor(cfg.Provider)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	mu.Lock()
	current = &cfg
	mu.Unlock()

	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("APP_ENV"); v != "" {
		cfg.AppEnv = v
	}
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("LLM_PROVIDER"); v != "" {
		cfg.Provider = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.Model = v
	}
	if v := os.Getenv("GOOGLE_API_KEY"); v != "" {
		cfg.GoogleAPIKey = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.OpenAIAPIKey = v
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		cfg.AnthropicAPIKey = v
	}
	if v := os.Getenv("DATABASE_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("TRACE_PATH"); v != "" {
		cfg.TracePath = v
	}
}

func defaultModelFor(provider string) string {
	switch provider {
	case ProviderOpenAI:
		return DefaultOpenAIModel
	case ProviderAnthropic:
		return DefaultAnthropicModel
	default:
		return DefaultGoogleModel
	}
}

// APIKey returns the key configured for the active provider.
func (c *Config) APIKey() string {
	switch c.Provider {
	case ProviderOpenAI:
		return c.OpenAIAPIKey
	case ProviderAnthropic:
		return c.AnthropicAPIKey
	default:
		return c.GoogleAPIKey
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderGoogle, ProviderOpenAI, ProviderAnthropic:
	default:
		return fmt.Errorf("unknown provider %q", c.Provider)
	}
	if c.ListenAddr == "" {
		return fmt.Errorf("listen address cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("database path cannot be empty")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive")
	}
	if c.MaxContextTokens <= 0 {
		return fmt.Errorf("max context tokens must be positive")
	}
	return nil
}

// GetConfig returns a copy of the installed config.
func GetConfig() (Config, error) {
	mu.RLock()
	defer mu.RUnlock()

	if current == nil {
		return Config{}, fmt.Errorf("config not loaded")
	}
	return *current, nil
}
