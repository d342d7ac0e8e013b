package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config stores runtime configuration for the backend.
type Config struct {
	OpenAI    OpenAIConfig
	Deepgram  DeepgramConfig
	Action    ActionConfig
	Sanitizer SanitizerConfig
}

type OpenAIConfig struct {
	APIKey      string
	APIBaseURL  string
	Model       string
	Temperature float64
}

type DeepgramConfig struct {
	APIKey      string
	APIBaseURL  string
	Model       string
	Language    string
	SampleRate  int
	Channels    int
	Encoding    string
	SmartFormat bool
}

type ActionConfig struct {
	AttemptTimeout     time.Duration
	Retries            int
	BackoffBase        time.Duration
	LongInputThreshold int
	FixSystemPrompt    string
	PolishSystemPrompt string
	DictationGrace     time.Duration
}

type SanitizerConfig struct {
	RulesPath string
}

const defaultFixPrompt = "You are a careful copy editor. Correct spelling, grammar, " +
	"and punctuation in the text you receive. Preserve the author's voice, meaning, " +
	"and formatting. Reply with the corrected text only."

const defaultPolishPrompt = "You are a skilled writing assistant. Rewrite the text " +
	"you receive to improve clarity, flow, and word choice while preserving its " +
	"meaning and tone. Reply with the rewritten text only."

// Load resolves configuration from environment variables and sensible defaults.
func Load() (Config, error) {
	cfg := Config{
		OpenAI: OpenAIConfig{
			APIKey:      strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
			APIBaseURL:  envOrDefault("OPENAI_API_BASE", "https://api.openai.com/v1"),
			Model:       envOrDefault("FLOWPASTE_MODEL", "gpt-4o-mini"),
			Temperature: envOrDefaultFloat("FLOWPASTE_TEMPERATURE", 0.3),
		},
		Deepgram: DeepgramConfig{
			APIKey:      strings.TrimSpace(os.Getenv("DEEPGRAM_API_KEY")),
			APIBaseURL:  envOrDefault("DEEPGRAM_API_BASE", "https://api.deepgram.com/v1"),
			Model:       envOrDefault("DEEPGRAM_MODEL", "nova-2"),
			Language:    strings.TrimSpace(os.Getenv("DEEPGRAM_LANGUAGE")),
			SampleRate:  envOrDefaultInt("FLOWPASTE_SAMPLE_RATE", 48000),
			Channels:    envOrDefaultInt("FLOWPASTE_CHANNELS", 1),
			Encoding:    envOrDefault("FLOWPASTE_AUDIO_ENCODING", "opus"),
			SmartFormat: envOrDefaultBool("DEEPGRAM_SMART_FORMAT", true),
		},
		Action: ActionConfig{
			AttemptTimeout:     time.Duration(envOrDefaultInt("FLOWPASTE_REQUEST_TIMEOUT_MS", 30000)) * time.Millisecond,
			Retries:            envOrDefaultInt("FLOWPASTE_REQUEST_RETRIES", 2),
			BackoffBase:        time.Duration(envOrDefaultInt("FLOWPASTE_BACKOFF_BASE_MS", 800)) * time.Millisecond,
			LongInputThreshold: envOrDefaultInt("FLOWPASTE_LONG_INPUT_THRESHOLD", 8000),
			FixSystemPrompt:    envOrDefault("FLOWPASTE_FIX_PROMPT", defaultFixPrompt),
			PolishSystemPrompt: envOrDefault("FLOWPASTE_POLISH_PROMPT", defaultPolishPrompt),
			DictationGrace:     time.Duration(envOrDefaultInt("FLOWPASTE_DICTATION_GRACE_MS", 1000)) * time.Millisecond,
		},
		Sanitizer: SanitizerConfig{
			RulesPath: strings.TrimSpace(os.Getenv("FLOWPASTE_SANITIZER_RULES")),
		},
	}

	if cfg.Action.AttemptTimeout <= 0 {
		cfg.Action.AttemptTimeout = 30 * time.Second
	}
	if cfg.Action.Retries < 0 {
		cfg.Action.Retries = 0
	}
	if cfg.Action.BackoffBase <= 0 {
		cfg.Action.BackoffBase = 800 * time.Millisecond
	}
	if cfg.Action.LongInputThreshold <= 0 {
		cfg.Action.LongInputThreshold = 8000
	}
	if cfg.Deepgram.SampleRate <= 0 {
		cfg.Deepgram.SampleRate = 48000
	}
	if cfg.Deepgram.Channels <= 0 {
		cfg.Deepgram.Channels = 1
	}

	return cfg, nil
}

func envOrDefault(key string, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envOrDefaultInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envOrDefaultFloat(key string, fallback float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func envOrDefaultBool(key string, fallback bool) bool {
	value := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	switch value {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
