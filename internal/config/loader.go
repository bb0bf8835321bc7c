package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidChatProviders lists the chat backends the server can construct.
var ValidChatProviders = []string{"gemini", "openai", "anthropic", "ollama"}

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader] and
// [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	if cfg.Chat.Provider != "" && !slices.Contains(ValidChatProviders, cfg.Chat.Provider) {
		errs = append(errs, fmt.Errorf("chat.provider %q is invalid; valid values: %v", cfg.Chat.Provider, ValidChatProviders))
	}

	if cfg.Media.VideoPollSeconds < 0 {
		errs = append(errs, fmt.Errorf("media.video_poll_seconds %d must not be negative", cfg.Media.VideoPollSeconds))
	}

	if cfg.Voice.RecordDir != "" {
		if info, err := os.Stat(cfg.Voice.RecordDir); err != nil || !info.IsDir() {
			errs = append(errs, fmt.Errorf("voice.record_dir %q is not an existing directory", cfg.Voice.RecordDir))
		}
	}

	if cfg.APIKey() == "" {
		slog.Warn("no API key configured; set api.key or the GEMINI_API_KEY environment variable")
	}
	if cfg.Storage.PostgresDSN == "" {
		slog.Warn("storage.postgres_dsn is empty; transcripts will not be persisted")
	}

	return errors.Join(errs...)
}

// APIKey returns the configured Gemini API key, falling back to the
// GEMINI_API_KEY environment variable.
func (c *Config) APIKey() string {
	if c.API.Key != "" {
		return c.API.Key
	}
	return os.Getenv("GEMINI_API_KEY")
}
