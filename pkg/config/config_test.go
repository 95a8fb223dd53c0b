package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg := Default()

	if cfg.ListenAddr != ":8000" {
		t.Errorf("expected :8000, got %s", cfg.ListenAddr)
	}
	if cfg.Provider != ProviderGoogle {
		t.Errorf("expected google default provider, got %s", cfg.Provider)
	}
	if cfg.TracePath == "" {
		t.Error("expected a default trace path")
	}
	if cfg.RequestTimeout <= 0 {
		t.Error("expected a positive request timeout")
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	fileCfg := map[string]any{
		"app_env":        "production",
		"listen_addr":    ":9000",
		"provider":       "openai",
		"openai_api_key": "sk-test",
	}
	data, err := json.Marshal(fileCfg)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.AppEnv != "production" {
		t.Errorf("expected production, got %s", cfg.AppEnv)
	}
	if cfg.ListenAddr != ":9000" {
		t.Errorf("expected :9000, got %s", cfg.ListenAddr)
	}
	if cfg.Model != DefaultOpenAIModel {
		t.Errorf("expected model defaulted for provider, got %s", cfg.Model)
	}
	if cfg.APIKey() != "sk-test" {
		t.Errorf("expected provider key, got %q", cfg.APIKey())
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "staging")
	t.Setenv("LLM_PROVIDER", "anthropic")
	t.Setenv("ANTHROPIC_API_KEY", "ak-test")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.AppEnv != "staging" {
		t.Errorf("expected staging, got %s", cfg.AppEnv)
	}
	if cfg.Provider != ProviderAnthropic {
		t.Errorf("expected anthropic, got %s", cfg.Provider)
	}
	if cfg.Model != DefaultAnthropicModel {
		t.Errorf("expected anthropic default model, got %s", cfg.Model)
	}
	if cfg.APIKey() != "ak-test" {
		t.Errorf("expected anthropic key, got %q", cfg.APIKey())
	}
}

func TestValidateRejectsUnknownProvider(t *testing.T) {
	cfg := Default()
	cfg.Provider = "mystery"

	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for unknown provider")
	}
}

func TestValidateRejectsMissingListenAddr(t *testing.T) {
	cfg := Default()
	cfg.ListenAddr = ""

	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for empty listen address")
	}
}

func TestGetConfigReturnsCopy(t *testing.T) {
	if _, err := Load(""); err != nil {
		t.Fatalf("load failed: %v", err)
	}

	cfg1, err := GetConfig()
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	cfg1.ListenAddr = ":1"

	cfg2, err := GetConfig()
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if cfg2.ListenAddr == ":1" {
		t.Error("mutating the returned config must not affect the shared state")
	}
}

func TestLoadMissingFileFails(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Error("expected error for missing config file")
	}
}
