// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package config provides configuration management for the PEG comparison
// server. It handles loading and parsing a YAML configuration file,
// layering environment variable overrides on top (spec.md §6's
// "Environment-driven configuration"), and validating the result before
// the server starts.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/traylinx/pegcompare/internal/errs"
)

// Config is the application's configuration, loaded from a YAML file and
// overlaid with environment variables. Every knob has a default; Validate
// checks only the server port, the store pool size, the prompt-size limit
// against the truncate buffer, and the timezone offset.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	LLM      LLMConfig      `yaml:"llm"`
	Store    StoreConfig    `yaml:"store"`
	Prompt   PromptConfig   `yaml:"prompt"`
	Logging  LoggingConfig  `yaml:"logging"`
	Backend  BackendConfig  `yaml:"backend"`
	Timezone TimezoneConfig `yaml:"timezone"`
}

// ServerConfig controls the HTTP entrypoint (cmd/server).
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DatabaseConfig supplies default relational-store connection parameters,
// overridable per request via the inbound "db" field.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	DBName   string `yaml:"dbname"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

// LLMConfig supplies LLMClient defaults.
type LLMConfig struct {
	Endpoints      []string `yaml:"endpoints"`
	Model          string   `yaml:"model"`
	Temperature    float64  `yaml:"temperature"`
	MaxTokens      int      `yaml:"max_tokens"`
	TimeoutSeconds int      `yaml:"timeout_seconds"`
	MaxRetries     int      `yaml:"max_retries"`
	BackoffBase    float64  `yaml:"backoff_base"`
	MaxPromptChars int      `yaml:"max_prompt_chars"`
	TruncateBuffer int      `yaml:"truncate_buffer"`
}

// StoreConfig supplies PEGStore pool/retry defaults.
type StoreConfig struct {
	PoolSize         int `yaml:"pool_size"`
	MaxRetries       int `yaml:"max_retries"`
	RetryDelayMillis int `yaml:"retry_delay_ms"`
	MaxRows          int `yaml:"max_rows"`
}

// PromptConfig locates the prompt template document.
type PromptConfig struct {
	TemplatePath    string `yaml:"template_path"`
	PreviewRows     int    `yaml:"preview_rows"`
	WatchForChanges bool   `yaml:"watch_for_changes"`
}

// LoggingConfig controls logrus/lumberjack output.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	ToFile     bool   `yaml:"to_file"`
	FilePath   string `yaml:"file_path"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// BackendConfig locates the downstream persistence collaborator.
type BackendConfig struct {
	URL            string `yaml:"url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// TimezoneConfig supplies the TimeRangeParser's default offset.
type TimezoneConfig struct {
	DefaultOffset string `yaml:"default_offset"`
}

func defaults() Config {
	return Config{
		Server: ServerConfig{Host: "", Port: 8080},
		Database: DatabaseConfig{
			Port: 5432,
		},
		LLM: LLMConfig{
			Endpoints:      []string{"http://localhost:11434", "http://localhost:1234"},
			Model:          "default",
			Temperature:    0.2,
			MaxTokens:      4096,
			TimeoutSeconds: 180,
			MaxRetries:     3,
			BackoffBase:    1.0,
			MaxPromptChars: 80_000,
			TruncateBuffer: 200,
		},
		Store: StoreConfig{
			PoolSize:         10,
			MaxRetries:       2,
			RetryDelayMillis: 100,
			MaxRows:          1_000_000,
		},
		Prompt: PromptConfig{
			TemplatePath:    "config/prompts/v1.yaml",
			PreviewRows:     200,
			WatchForChanges: true,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			MaxSizeMB:  100,
			MaxBackups: 5,
			MaxAgeDays: 28,
		},
		Backend: BackendConfig{
			TimeoutSeconds: 30,
		},
		Timezone: TimezoneConfig{
			DefaultOffset: "+09:00",
		},
	}
}

// LoadConfig reads YAML from configFile, applying defaults before the
// unmarshal (so absent keys keep their defaults), then layers environment
// variable overrides via applyEnvOverrides.
func LoadConfig(configFile string) (*Config, error) {
	return LoadConfigOptional(configFile, false)
}

// LoadConfigOptional reads YAML from configFile. If optional is true and
// the file is missing, it returns the default config instead of failing —
// useful for deployments that configure entirely through the environment.
func LoadConfigOptional(configFile string, optional bool) (*Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(configFile)
	if err != nil {
		if optional && os.IsNotExist(err) {
			applyEnvOverrides(&cfg)
			return &cfg, cfg.Validate()
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		if optional {
			applyEnvOverrides(&cfg)
			return &cfg, cfg.Validate()
		}
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyEnvOverrides(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnvOverrides layers environment variables over cfg, loading a
// local .env file first via joho/godotenv if one is present (a no-op when
// absent).
func applyEnvOverrides(cfg *Config) {
	_ = godotenv.Load()

	if v := os.Getenv("PEG_SERVER_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = n
		}
	}
	if v := os.Getenv("PEG_DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("PEG_DB_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Database.Port = n
		}
	}
	if v := os.Getenv("PEG_DB_NAME"); v != "" {
		cfg.Database.DBName = v
	}
	if v := os.Getenv("PEG_DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("PEG_DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("PEG_LLM_ENDPOINTS"); v != "" {
		cfg.LLM.Endpoints = strings.Split(v, ",")
	}
	if v := os.Getenv("PEG_LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("DEFAULT_TZ_OFFSET"); v != "" {
		cfg.Timezone.DefaultOffset = v
	}
	if v := os.Getenv("PEG_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("PEG_PROMPT_CONFIG_PATH"); v != "" {
		cfg.Prompt.TemplatePath = v
	}
	if v := os.Getenv("PEG_BACKEND_URL"); v != "" {
		cfg.Backend.URL = v
	}
}

// Validate checks invariants that defaults/overrides cannot guarantee.
func (cfg *Config) Validate() error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return errors.New("config: server.port must be between 1 and 65535")
	}
	if cfg.Store.PoolSize <= 0 {
		return errors.New("config: store.pool_size must be positive")
	}
	if cfg.LLM.MaxPromptChars <= cfg.LLM.TruncateBuffer {
		return errors.New("config: llm.max_prompt_chars must exceed llm.truncate_buffer")
	}
	if _, err := ParseOffset(cfg.Timezone.DefaultOffset); err != nil {
		return fmt.Errorf("config: timezone.default_offset: %w", err)
	}
	return nil
}

// ParseOffset parses a "+HH:MM" / "-HH:MM" string into a duration. Unlike
// the original analyzer's DEFAULT_TZ_OFFSET handling, which silently
// falls back to UTC on a malformed value, this returns an error so
// startup validation can catch a typo instead of analyzing data in the
// wrong timezone.
func ParseOffset(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	sign := time.Duration(1)
	switch raw[0] {
	case '+':
		raw = raw[1:]
	case '-':
		sign = -1
		raw = raw[1:]
	default:
		return 0, errs.Newf(errs.Internal, "offset %q must start with + or -", raw)
	}
	parts := strings.SplitN(raw, ":", 2)
	if len(parts) != 2 {
		return 0, errs.Newf(errs.Internal, "offset %q must be HH:MM", raw)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, errs.Newf(errs.Internal, "invalid offset hours %q", parts[0])
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, errs.Newf(errs.Internal, "invalid offset minutes %q", parts[1])
	}
	return sign * (time.Duration(h)*time.Hour + time.Duration(m)*time.Minute), nil
}
