package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config aggregates every tunable for the relay backend.
type Config struct {
	Server     ServerConfig
	OpenAI     OpenAIConfig
	Transcribe TranscribeConfig
	Translate  TranslateConfig
	Recap      RecapConfig
	Realtime   RealtimeConfig
	Session    SessionConfig
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr string
}

// OpenAIConfig holds provider credentials and outbound client behaviour.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	// Timeout bounds outbound provider calls, in seconds. Zero leaves the
	// HTTP client unbounded.
	Timeout int
}

// Enabled reports whether provider calls can be authenticated. A missing key
// is a startup warning, not a hard failure: requests fail upstream instead.
func (c OpenAIConfig) Enabled() bool {
	return c.APIKey != ""
}

// TranscribeConfig selects the ASR models and default language hint.
type TranscribeConfig struct {
	PrimaryModel  string
	FallbackModel string
	// Language is the default ASR hint; "auto" lets the model detect it.
	Language string
}

// TranslateConfig selects the per-chunk translation model and default target.
type TranslateConfig struct {
	Model             string
	DefaultOutputLang string
}

// RecapConfig selects the recap models and the trailing history window.
type RecapConfig struct {
	Model         string
	FallbackModel string
	// MaxChars bounds how much transcript history feeds each recap,
	// counted from the end.
	MaxChars int
}

// RealtimeConfig is surfaced to the browser so it can dial the realtime API
// directly; this backend never opens that connection itself.
type RealtimeConfig struct {
	Model string
	Voice string
}

// SessionConfig controls the in-memory session store lifecycle.
type SessionConfig struct {
	// IdleTTL evicts sessions untouched for this long. Zero disables
	// eviction and sessions live for the process lifetime.
	IdleTTL time.Duration
}

// Load reads the full configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	openai, err := loadOpenAIConfig()
	if err != nil {
		return nil, err
	}

	recap, err := loadRecapConfig()
	if err != nil {
		return nil, err
	}

	session, err := loadSessionConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server: server,
		OpenAI: openai,
		Transcribe: TranscribeConfig{
			PrimaryModel:  firstEnvOrDefault("gpt-4o-mini-transcribe", "TRANSCRIBE_PRIMARY_MODEL", "TRANSCRIBE_MODEL"),
			FallbackModel: getEnvOrDefault("TRANSCRIBE_FALLBACK_MODEL", "gpt-4o-transcribe"),
			Language:      getEnvOrDefault("TRANSCRIBE_LANGUAGE", "auto"),
		},
		Translate: TranslateConfig{
			Model:             firstEnvOrDefault("gpt-5-nano", "SEGMENT_MODEL", "EN_SEGMENT_MODEL"),
			DefaultOutputLang: strings.ToLower(getEnvOrDefault("OUTPUT_LANG", "ja")),
		},
		Recap: recap,
		Realtime: RealtimeConfig{
			Model: getEnvOrDefault("REALTIME_MODEL", "gpt-realtime-mini"),
			Voice: getEnvOrDefault("REALTIME_VOICE", "alloy"),
		},
		Session: session,
	}, nil
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "3000"
	}

	if strings.Contains(port, ":") {
		// Accept ":3000" or "127.0.0.1:3000" verbatim.
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

func loadOpenAIConfig() (OpenAIConfig, error) {
	timeout, err := parseOptionalIntEnv("OPENAI_TIMEOUT")
	if err != nil {
		return OpenAIConfig{}, err
	}
	timeoutSeconds := 0
	if timeout != nil {
		if *timeout < 0 {
			return OpenAIConfig{}, fmt.Errorf("OPENAI_TIMEOUT must not be negative, got %d", *timeout)
		}
		timeoutSeconds = *timeout
	}

	return OpenAIConfig{
		APIKey:  strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
		BaseURL: strings.TrimRight(getEnvOrDefault("OPENAI_BASE_URL", "https://api.openai.com"), "/"),
		Timeout: timeoutSeconds,
	}, nil
}

func loadRecapConfig() (RecapConfig, error) {
	maxChars := 4000
	if override, err := parseOptionalIntEnv("RECAP_MAX_CHARS"); err != nil {
		return RecapConfig{}, err
	} else if override != nil {
		if *override < 1 {
			return RecapConfig{}, fmt.Errorf("RECAP_MAX_CHARS must be positive, got %d", *override)
		}
		maxChars = *override
	}

	model := getEnvOrDefault("RECAP_MODEL", "gpt-5-nano")

	return RecapConfig{
		Model:         model,
		FallbackModel: getEnvOrDefault("RECAP_FALLBACK_MODEL", model),
		MaxChars:      maxChars,
	}, nil
}

func loadSessionConfig() (SessionConfig, error) {
	raw := strings.TrimSpace(os.Getenv("SESSION_IDLE_TTL"))
	if raw == "" {
		return SessionConfig{}, nil
	}

	ttl, err := time.ParseDuration(raw)
	if err != nil {
		return SessionConfig{}, fmt.Errorf("invalid SESSION_IDLE_TTL value %q: %w", raw, err)
	}
	if ttl < 0 {
		return SessionConfig{}, fmt.Errorf("SESSION_IDLE_TTL must not be negative, got %s", ttl)
	}

	return SessionConfig{IdleTTL: ttl}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

// firstEnvOrDefault returns the first non-empty variable among keys; later
// keys exist for compatibility with older deployments.
func firstEnvOrDefault(defaultValue string, keys ...string) string {
	for _, key := range keys {
		if value := strings.TrimSpace(os.Getenv(key)); value != "" {
			return value
		}
	}
	return defaultValue
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
