// Package config provides the configuration schema and loader for the
// quintet server.
package config

// LogLevel controls log verbosity for the server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration structure. It is typically loaded from a
// YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	API     APIConfig     `yaml:"api"`
	Voice   VoiceConfig   `yaml:"voice"`
	Chat    ChatConfig    `yaml:"chat"`
	Media   MediaConfig   `yaml:"media"`
	Storage StorageConfig `yaml:"storage"`
}

// ServerConfig holds network and logging settings.
type ServerConfig struct {
	// ListenAddr is the TCP address the server listens on (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`
}

// APIConfig holds Gemini API credentials and endpoint overrides.
type APIConfig struct {
	// Key is the Gemini API key. When empty, the GEMINI_API_KEY
	// environment variable is used.
	Key string `yaml:"key"`

	// LiveEndpoint overrides the realtime websocket endpoint. Empty means
	// the production endpoint.
	LiveEndpoint string `yaml:"live_endpoint"`
}

// VoiceConfig configures the realtime voice conversation mode.
type VoiceConfig struct {
	// Model is the native-audio model used for live conversations.
	// Empty means the provider default.
	Model string `yaml:"model"`

	// Voice selects the prebuilt speech voice (e.g., "Zephyr").
	Voice string `yaml:"voice"`

	// Instructions is the system instruction sent at session setup.
	Instructions string `yaml:"instructions"`

	// TranscribeInput enables transcription of the user's speech.
	TranscribeInput bool `yaml:"transcribe_input"`

	// TranscribeOutput enables transcription of the model's speech.
	TranscribeOutput bool `yaml:"transcribe_output"`

	// RecordDir, when set, writes a WAV recording of each conversation's
	// playback audio into this directory.
	RecordDir string `yaml:"record_dir"`
}

// ChatConfig configures the text chat mode.
type ChatConfig struct {
	// Provider selects the chat backend: gemini, openai, anthropic, ollama.
	Provider string `yaml:"provider"`

	// Model is the chat model name.
	Model string `yaml:"model"`

	// SystemPrompt is injected ahead of every conversation.
	SystemPrompt string `yaml:"system_prompt"`
}

// MediaConfig configures image, search and video generation.
type MediaConfig struct {
	// ImageModel overrides the image generation model.
	ImageModel string `yaml:"image_model"`

	// SearchModel overrides the search-grounding model.
	SearchModel string `yaml:"search_model"`

	// VideoModel overrides the video generation model.
	VideoModel string `yaml:"video_model"`

	// VideoPollSeconds is the fixed interval between video operation polls.
	// Zero means the default (8 seconds).
	VideoPollSeconds int `yaml:"video_poll_seconds"`
}

// StorageConfig configures optional transcript persistence.
type StorageConfig struct {
	// PostgresDSN enables transcript persistence when non-empty.
	PostgresDSN string `yaml:"postgres_dsn"`
}
