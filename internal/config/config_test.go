package config_test

import (
	"strings"
	"testing"

	"github.com/thierryishimwe250/quintet/internal/config"
)

const fullConfig = `
server:
  listen_addr: ":8080"
  log_level: debug
api:
  key: test-key
voice:
  model: gemini-2.5-flash-native-audio-preview-09-2025
  voice: Zephyr
  instructions: Be concise.
  transcribe_input: true
  transcribe_output: true
chat:
  provider: gemini
  model: gemini-3-flash-preview
  system_prompt: You are a helpful assistant.
media:
  video_poll_seconds: 8
storage:
  postgres_dsn: postgres://localhost/quintet
`

func TestLoadFromReader_FullConfig(t *testing.T) {
	cfg, err := config.LoadFromReader(strings.NewReader(fullConfig))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.Server.ListenAddr != ":8080" {
		t.Errorf("ListenAddr = %q", cfg.Server.ListenAddr)
	}
	if cfg.Server.LogLevel != config.LogDebug {
		t.Errorf("LogLevel = %q", cfg.Server.LogLevel)
	}
	if cfg.Voice.Voice != "Zephyr" || !cfg.Voice.TranscribeInput {
		t.Errorf("Voice = %+v", cfg.Voice)
	}
	if cfg.Chat.Provider != "gemini" {
		t.Errorf("Chat.Provider = %q", cfg.Chat.Provider)
	}
	if cfg.APIKey() != "test-key" {
		t.Errorf("APIKey() = %q", cfg.APIKey())
	}
	if cfg.Media.VideoPollSeconds != 8 {
		t.Errorf("VideoPollSeconds = %d", cfg.Media.VideoPollSeconds)
	}
}

func TestLoadFromReader_UnknownFieldRejected(t *testing.T) {
	_, err := config.LoadFromReader(strings.NewReader("server:\n  listne_addr: ':8080'\n"))
	if err == nil {
		t.Fatal("misspelled key accepted")
	}
}

func TestLoadFromReader_InvalidLogLevel(t *testing.T) {
	_, err := config.LoadFromReader(strings.NewReader("server:\n  log_level: loud\n"))
	if err == nil || !strings.Contains(err.Error(), "log_level") {
		t.Fatalf("err = %v, want log_level validation failure", err)
	}
}

func TestLoadFromReader_InvalidChatProvider(t *testing.T) {
	_, err := config.LoadFromReader(strings.NewReader("chat:\n  provider: watson\n"))
	if err == nil || !strings.Contains(err.Error(), "chat.provider") {
		t.Fatalf("err = %v, want chat.provider validation failure", err)
	}
}

func TestLoadFromReader_NegativePollInterval(t *testing.T) {
	_, err := config.LoadFromReader(strings.NewReader("media:\n  video_poll_seconds: -1\n"))
	if err == nil || !strings.Contains(err.Error(), "video_poll_seconds") {
		t.Fatalf("err = %v, want video_poll_seconds validation failure", err)
	}
}

func TestAPIKey_EnvFallback(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "env-key")
	cfg, err := config.LoadFromReader(strings.NewReader("server:\n  listen_addr: ':0'\n"))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.APIKey() != "env-key" {
		t.Errorf("APIKey() = %q, want env-key", cfg.APIKey())
	}
}

func TestValidate_RecordDirMustExist(t *testing.T) {
	cfg := &config.Config{}
	cfg.Voice.RecordDir = "/nonexistent/quintet-recordings"
	if err := config.Validate(cfg); err == nil {
		t.Fatal("missing record_dir accepted")
	}

	cfg.Voice.RecordDir = t.TempDir()
	if err := config.Validate(cfg); err != nil {
		t.Fatalf("Validate with existing dir: %v", err)
	}
}
