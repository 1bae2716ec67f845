package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config holds the daemon configuration.
type Config struct {
	ServerAddr string `toml:"server_addr"`
	DBPath     string `toml:"db_path"`

	// Bitbucket Server
	BitbucketURL     string `toml:"bitbucket_url"`
	BitbucketToken   string `toml:"bitbucket_token"`
	BitbucketTimeout int    `toml:"bitbucket_timeout_seconds"`
	WebhookSecret    string `toml:"webhook_secret"`

	// LLM provider: "openai", "local_ollama", or "anthropic"
	LLMProvider string `toml:"llm_provider"`
	LLMAPIKey   string `toml:"llm_api_key"`
	LLMEndpoint string `toml:"llm_endpoint"`
	LLMModel    string `toml:"llm_model"`
	OllamaHost  string `toml:"ollama_host"`
	LLMTimeout  int    `toml:"llm_timeout_seconds"`

	// Email relay (HTTP trigger endpoint)
	EmailWebhookURL string `toml:"email_webhook_url"`
	EmailFrom       string `toml:"email_from"`
	EmailOptOut     bool   `toml:"email_optout"`
	EmailTimeout    int    `toml:"email_timeout_seconds"`

	// Coding guidelines injected into the review prompt
	GuidelinesEnabled bool   `toml:"guidelines_enabled"`
	GuidelinesFile    string `toml:"guidelines_file"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		ServerAddr:       "0.0.0.0:8373",
		DBPath:           DefaultDBPath(),
		BitbucketURL:     "https://your-bitbucket-server.example.com",
		BitbucketTimeout: 30,
		LLMProvider:      "openai",
		LLMEndpoint:      "https://api.openai.com/v1/chat/completions",
		LLMModel:         "gpt-4o",
		OllamaHost:       "http://localhost:11434",
		LLMTimeout:       120,
		EmailFrom:        "code-reviewer@example.com",
		EmailOptOut:      true,
		EmailTimeout:     30,
	}
}

// DataDir returns the reviewer data directory.
// Uses AI_REVIEWER_DATA_DIR env var if set, otherwise ~/.ai-code-reviewer
func DataDir() string {
	if dir := os.Getenv("AI_REVIEWER_DATA_DIR"); dir != "" {
		return dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".ai-code-reviewer")
}

// DefaultDBPath returns the default database path
func DefaultDBPath() string {
	return filepath.Join(DataDir(), "reviews.db")
}

// DefaultConfigPath returns the path to the config file
func DefaultConfigPath() string {
	return filepath.Join(DataDir(), "config.toml")
}

// Load loads the configuration from the default path
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigPath())
}

// LoadFrom loads the configuration from a specific path. A missing
// file is not an error; defaults plus env overrides are returned.
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("decode config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// applyEnv overlays AI_REVIEWER_* environment variables. Secrets are
// normally supplied this way rather than written into the config file.
func (c *Config) applyEnv() {
	setStr := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setStr(&c.ServerAddr, "AI_REVIEWER_ADDR")
	setStr(&c.DBPath, "AI_REVIEWER_DB_PATH")
	setStr(&c.BitbucketURL, "AI_REVIEWER_BITBUCKET_URL")
	setStr(&c.BitbucketToken, "AI_REVIEWER_BITBUCKET_TOKEN")
	setStr(&c.WebhookSecret, "AI_REVIEWER_WEBHOOK_SECRET")
	setStr(&c.LLMProvider, "AI_REVIEWER_LLM_PROVIDER")
	setStr(&c.LLMAPIKey, "AI_REVIEWER_LLM_API_KEY")
	setStr(&c.LLMEndpoint, "AI_REVIEWER_LLM_ENDPOINT")
	setStr(&c.LLMModel, "AI_REVIEWER_LLM_MODEL")
	setStr(&c.OllamaHost, "AI_REVIEWER_OLLAMA_HOST")
	setStr(&c.EmailWebhookURL, "AI_REVIEWER_EMAIL_WEBHOOK_URL")
	setStr(&c.EmailFrom, "AI_REVIEWER_EMAIL_FROM")
	setStr(&c.GuidelinesFile, "AI_REVIEWER_GUIDELINES_FILE")

	setBool := func(dst *bool, key string) {
		if v := os.Getenv(key); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				*dst = b
			}
		}
	}
	setBool(&c.EmailOptOut, "AI_REVIEWER_EMAIL_OPTOUT")
	setBool(&c.GuidelinesEnabled, "AI_REVIEWER_GUIDELINES_ENABLED")
}

// Validate checks that required configuration is present
func (c *Config) Validate() error {
	var errs []string

	if c.BitbucketToken == "" {
		errs = append(errs, "bitbucket_token is required")
	}
	switch c.LLMProvider {
	case "openai", "anthropic":
		if c.LLMAPIKey == "" {
			errs = append(errs, fmt.Sprintf("llm_api_key is required for the %s provider", c.LLMProvider))
		}
	case "local_ollama":
	default:
		errs = append(errs, fmt.Sprintf("unknown llm_provider %q", c.LLMProvider))
	}
	if !c.EmailOptOut && c.EmailWebhookURL == "" {
		errs = append(errs, "email_webhook_url is required when email_optout is false")
	}
	if c.GuidelinesEnabled && c.GuidelinesFile == "" {
		errs = append(errs, "guidelines_file is required when guidelines_enabled is true")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, ", "))
	}
	return nil
}

// Save writes the configuration to the default path
func Save(cfg *Config) error {
	path := DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}
