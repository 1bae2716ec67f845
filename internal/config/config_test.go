package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.ServerAddr != "0.0.0.0:8373" {
		t.Errorf("ServerAddr = %q", cfg.ServerAddr)
	}
	if cfg.LLMProvider != "openai" {
		t.Errorf("LLMProvider = %q", cfg.LLMProvider)
	}
	if !cfg.EmailOptOut {
		t.Error("EmailOptOut should default to true")
	}
}

func TestDataDirEnvOverride(t *testing.T) {
	t.Setenv("AI_REVIEWER_DATA_DIR", "/tmp/reviewer-test")
	if got := DataDir(); got != "/tmp/reviewer-test" {
		t.Errorf("DataDir = %q", got)
	}
}

func TestLoadFromMissingFile(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("LoadFrom should not fail on a missing file: %v", err)
	}
	if cfg.ServerAddr != DefaultConfig().ServerAddr {
		t.Error("missing file should yield defaults")
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
server_addr = "127.0.0.1:9999"
bitbucket_url = "https://git.example.com"
bitbucket_token = "tok"
llm_provider = "local_ollama"
llm_model = "codellama"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}
	if cfg.ServerAddr != "127.0.0.1:9999" {
		t.Errorf("ServerAddr = %q", cfg.ServerAddr)
	}
	if cfg.LLMProvider != "local_ollama" {
		t.Errorf("LLMProvider = %q", cfg.LLMProvider)
	}
	// Unset keys keep their defaults
	if cfg.OllamaHost != "http://localhost:11434" {
		t.Errorf("OllamaHost = %q", cfg.OllamaHost)
	}
}

func TestLoadFromInvalidTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("server_addr = [broken"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFrom(path); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("AI_REVIEWER_BITBUCKET_TOKEN", "env-token")
	t.Setenv("AI_REVIEWER_LLM_PROVIDER", "anthropic")
	t.Setenv("AI_REVIEWER_EMAIL_OPTOUT", "false")

	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}
	if cfg.BitbucketToken != "env-token" {
		t.Errorf("BitbucketToken = %q", cfg.BitbucketToken)
	}
	if cfg.LLMProvider != "anthropic" {
		t.Errorf("LLMProvider = %q", cfg.LLMProvider)
	}
	if cfg.EmailOptOut {
		t.Error("EmailOptOut should be overridden to false")
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := DefaultConfig()
		cfg.BitbucketToken = "tok"
		cfg.LLMAPIKey = "key"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"missing token", func(c *Config) { c.BitbucketToken = "" }, "bitbucket_token"},
		{"missing api key", func(c *Config) { c.LLMAPIKey = "" }, "llm_api_key"},
		{"ollama needs no key", func(c *Config) { c.LLMProvider = "local_ollama"; c.LLMAPIKey = "" }, ""},
		{"unknown provider", func(c *Config) { c.LLMProvider = "bard" }, "llm_provider"},
		{"email enabled without url", func(c *Config) { c.EmailOptOut = false }, "email_webhook_url"},
		{"guidelines without file", func(c *Config) { c.GuidelinesEnabled = true }, "guidelines_file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate failed: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate = %v, want error mentioning %q", err, tt.wantErr)
			}
		})
	}
}
