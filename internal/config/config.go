package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port        string `yaml:"port"`
	Environment string `yaml:"environment"`
	DatabaseURL string `yaml:"database_url"` // empty = in-memory store
	TablePrefix string `yaml:"table_prefix"`
	CORSOrigins string `yaml:"cors_origins"`
	JWKSURL     string `yaml:"jwks_url"` // empty = bearer token is the user id (dev/test only)
	LogDir      string `yaml:"log_dir"`
	// Completion
	CompletionProvider string `yaml:"completion_provider"` // anthropic | openai | lorem
	CompletionModel    string `yaml:"completion_model"`
	AnthropicAPIKey    string `yaml:"-"`
	OpenAIAPIKey       string `yaml:"-"`
	OpenAIBaseURL      string `yaml:"openai_base_url"`
	// Branches
	BranchUndoWindow time.Duration `yaml:"branch_undo_window"`
	// Realtime
	TypingWindow      time.Duration `yaml:"typing_window"`
	WSSendBuffer      int           `yaml:"ws_send_buffer"`
	WSEventsPerSecond float64       `yaml:"ws_events_per_second"`
	// Debug flags
	Debug bool `yaml:"debug"`
}

// Load builds the configuration from defaults, then the optional YAML file
// named by CONFIG_FILE, then environment variables. Later sources win.
func Load() (*Config, error) {
	env := getEnv("ENVIRONMENT", "dev")

	cfg := &Config{
		Port:               "8080",
		Environment:        env,
		TablePrefix:        getTablePrefix(env),
		CORSOrigins:        "http://localhost:3000",
		CompletionProvider: "lorem",
		CompletionModel:    "claude-haiku-4-5-20251001",
		BranchUndoWindow:   5 * time.Second,
		TypingWindow:       2 * time.Second,
		WSSendBuffer:       32,
		WSEventsPerSecond:  5,
		Debug:              env != "prod",
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.Environment = getEnv("ENVIRONMENT", cfg.Environment)
	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	cfg.TablePrefix = getEnv("TABLE_PREFIX", cfg.TablePrefix)
	cfg.CORSOrigins = getEnv("CORS_ORIGINS", cfg.CORSOrigins)
	cfg.JWKSURL = getEnv("JWKS_URL", cfg.JWKSURL)
	cfg.LogDir = getEnv("LOG_DIR", cfg.LogDir)
	cfg.CompletionProvider = getEnv("COMPLETION_PROVIDER", cfg.CompletionProvider)
	cfg.CompletionModel = getEnv("COMPLETION_MODEL", cfg.CompletionModel)
	cfg.AnthropicAPIKey = getEnv("ANTHROPIC_API_KEY", "")
	cfg.OpenAIAPIKey = getEnv("OPENAI_API_KEY", "")
	cfg.OpenAIBaseURL = getEnv("OPENAI_BASE_URL", cfg.OpenAIBaseURL)
	cfg.Debug = getEnv("DEBUG", strconv.FormatBool(cfg.Debug)) == "true"

	var err error
	if cfg.BranchUndoWindow, err = getDuration("BRANCH_UNDO_WINDOW", cfg.BranchUndoWindow); err != nil {
		return nil, err
	}
	if cfg.TypingWindow, err = getDuration("TYPING_WINDOW", cfg.TypingWindow); err != nil {
		return nil, err
	}
	if cfg.WSSendBuffer, err = getInt("WS_SEND_BUFFER", cfg.WSSendBuffer); err != nil {
		return nil, err
	}
	if cfg.WSEventsPerSecond, err = getFloat("WS_EVENTS_PER_SECOND", cfg.WSEventsPerSecond); err != nil {
		return nil, err
	}

	if cfg.JWKSURL == "" && cfg.Environment == "prod" {
		return nil, fmt.Errorf("JWKS_URL is required in prod")
	}

	return cfg, nil
}

// UsesMemoryStore reports whether repositories run in-process
func (c *Config) UsesMemoryStore() bool {
	return c.DatabaseURL == ""
}

// getTablePrefix returns the table prefix based on environment
func getTablePrefix(env string) string {
	switch env {
	case "prod":
		return "prod_"
	case "test":
		return "test_"
	default:
		return "dev_"
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func getInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getFloat(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}
