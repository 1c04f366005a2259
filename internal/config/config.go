// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"

	"github.com/jeranaias/rolechat/internal/archive"
	"github.com/jeranaias/rolechat/internal/llm"
)

// DefaultAPIURL is the relay base URL the client uses when nothing else is
// configured. Override at build time with
// -ldflags "-X github.com/jeranaias/rolechat/internal/config.DefaultAPIURL=...".
var DefaultAPIURL = "http://localhost:5001"

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config is the complete rolechat configuration.
type Config struct {
	Server  ServerConfig  `toml:"server" json:"server"`
	LLM     LLMConfig     `toml:"llm" json:"llm"`
	Client  ClientConfig  `toml:"client" json:"client"`
	Archive ArchiveConfig `toml:"archive" json:"archive"`
	Log     LogConfig     `toml:"log" json:"log"`
}

// ServerConfig configures the relay server.
type ServerConfig struct {
	Host               string   `toml:"host" json:"host" env:"ROLECHAT_HOST"`
	Port               int      `toml:"port" json:"port" env:"PORT"`
	RelayTimeoutSecs   int      `toml:"relay_timeout_secs" json:"relay_timeout_secs" env:"ROLECHAT_RELAY_TIMEOUT"`
	RateLimitPerMinute int      `toml:"rate_limit_per_minute" json:"rate_limit_per_minute" env:"ROLECHAT_RATE_LIMIT"`
	RateLimitBurst     int      `toml:"rate_limit_burst" json:"rate_limit_burst"`
	CORSOrigins        []string `toml:"cors_origins" json:"cors_origins" env:"ROLECHAT_CORS_ORIGINS" envSeparator:","`
}

// LLMConfig selects and configures the generation provider.
type LLMConfig struct {
	Provider         string `toml:"provider" json:"provider" env:"ROLECHAT_PROVIDER"`
	APIKey           string `toml:"api_key" json:"api_key" env:"ROLECHAT_API_KEY"`
	GeminiAPIKey     string `toml:"-" json:"-" env:"GEMINI_API_KEY"`
	BaseURL          string `toml:"base_url" json:"base_url" env:"ROLECHAT_BASE_URL"`
	Model            string `toml:"model" json:"model" env:"ROLECHAT_MODEL"`
	YandexOAuthToken string `toml:"yandex_oauth_token" json:"yandex_oauth_token" env:"YANDEX_OAUTH_TOKEN"`
	YandexFolderID   string `toml:"yandex_folder_id" json:"yandex_folder_id" env:"YANDEX_FOLDER_ID"`
}

// ClientConfig configures the terminal client.
type ClientConfig struct {
	APIURL      string `toml:"api_url" json:"api_url" env:"ROLECHAT_API_URL"`
	TimeoutSecs int    `toml:"timeout_secs" json:"timeout_secs" env:"ROLECHAT_CLIENT_TIMEOUT"`
	ExportDir   string `toml:"export_dir" json:"export_dir" env:"ROLECHAT_EXPORT_DIR"`
	LogFile     string `toml:"log_file" json:"log_file" env:"ROLECHAT_CLIENT_LOG"`
}

// ArchiveConfig selects the archive backend.
type ArchiveConfig struct {
	Backend string `toml:"backend" json:"backend" env:"ROLECHAT_ARCHIVE_BACKEND"`
	Path    string `toml:"path" json:"path" env:"ROLECHAT_ARCHIVE_PATH"`
}

// LogConfig configures slog output.
type LogConfig struct {
	Level    string `toml:"level" json:"level" env:"ROLECHAT_LOG_LEVEL"`
	Format   string `toml:"format" json:"format" env:"ROLECHAT_LOG_FORMAT"`
	Output   string `toml:"output" json:"output" env:"ROLECHAT_LOG_OUTPUT"`
	FilePath string `toml:"file_path" json:"file_path" env:"ROLECHAT_LOG_FILE"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:               "",
			Port:               5001,
			RelayTimeoutSecs:   60,
			RateLimitPerMinute: 30,
			RateLimitBurst:     10,
		},
		LLM: LLMConfig{
			Provider: llm.ProviderOpenAI,
			BaseURL:  llm.DefaultOpenAIBaseURL,
			Model:    llm.DefaultOpenAIModel,
		},
		Client: ClientConfig{
			APIURL:      DefaultAPIURL,
			TimeoutSecs: 90,
			ExportDir:   ".",
		},
		Archive: ArchiveConfig{
			Backend: archive.BackendSQLite,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
	}
}

// RelayTimeout is the per-request generation deadline.
func (s ServerConfig) RelayTimeout() time.Duration {
	return time.Duration(s.RelayTimeoutSecs) * time.Second
}

// Timeout is the client's HTTP deadline.
func (c ClientConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// Credential returns the generation API key, preferring ROLECHAT_API_KEY or
// the config file over GEMINI_API_KEY.
func (l LLMConfig) Credential() string {
	if l.APIKey != "" {
		return l.APIKey
	}
	return l.GeminiAPIKey
}

// LLMOptions converts the section into provider options.
func (c *Config) LLMOptions() llm.Options {
	return llm.Options{
		Provider:         c.LLM.Provider,
		APIKey:           c.LLM.Credential(),
		BaseURL:          c.LLM.BaseURL,
		Model:            c.LLM.Model,
		YandexOAuthToken: c.LLM.YandexOAuthToken,
		YandexFolderID:   c.LLM.YandexFolderID,
		Timeout:          c.Server.RelayTimeout(),
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// Dir returns the rolechat configuration directory path.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".rolechat"), nil
}

// DefaultPath returns the default TOML config path.
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// =============================================================================
// LOAD
// =============================================================================

// Load reads .env, the TOML file at path (the default path when empty) and
// the environment, then fills defaults and validates. A missing file is not
// an error.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Default()
	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err == nil {
			path = p
		}
	}
	if path != "" {
		if err := LoadTOML(cfg, path); err != nil {
			if explicit || !errors.Is(err, fs.ErrNotExist) {
				return nil, err
			}
		}
	}

	if err := cfg.ApplyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := cfg.SetDefaults(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes the file at path over cfg.
func LoadTOML(cfg *Config, path string) error {
	if _, err := os.Stat(path); err != nil {
		return err
	}
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to decode TOML file %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return ValidationError{Field: keys[0], Message: "unknown key in " + path + ": " + strings.Join(keys, ", ")}
	}
	return nil
}

// ApplyEnvOverrides copies set environment variables over cfg.
func (c *Config) ApplyEnvOverrides() error {
	if err := env.Parse(c); err != nil {
		return fmt.Errorf("failed to parse environment: %w", err)
	}
	return nil
}

// SetDefaults fills values that depend on other settings.
func (c *Config) SetDefaults() error {
	if c.Archive.Path == "" && c.Archive.Backend != archive.BackendMemory {
		dir, err := Dir()
		if err != nil {
			return err
		}
		switch c.Archive.Backend {
		case archive.BackendDir:
			c.Archive.Path = filepath.Join(dir, "archive")
		default:
			c.Archive.Path = filepath.Join(dir, "archive.db")
		}
	}
	if c.Client.LogFile == "" {
		dir, err := Dir()
		if err != nil {
			return err
		}
		c.Client.LogFile = filepath.Join(dir, "client.log")
	}
	if c.Client.APIURL == "" {
		c.Client.APIURL = DefaultAPIURL
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError is a single invalid setting.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

var (
	logLevels  = []string{"debug", "info", "warn", "error"}
	logFormats = []string{"text", "json"}
	logOutputs = []string{"stdout", "stderr", "file"}
)

// Validate checks every section and returns ValidateErrors when anything is
// wrong.
func (c *Config) Validate() error {
	var errs ValidateErrors
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		add("server.port", "must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.RelayTimeoutSecs <= 0 {
		add("server.relay_timeout_secs", "must be positive")
	}
	if c.Server.RateLimitPerMinute < 0 {
		add("server.rate_limit_per_minute", "must not be negative")
	}
	if c.Server.RateLimitPerMinute > 0 && c.Server.RateLimitBurst <= 0 {
		add("server.rate_limit_burst", "must be positive when rate limiting is on")
	}

	if !slices.Contains(llm.Providers, c.LLM.Provider) {
		add("llm.provider", "invalid provider '%s', must be one of: %s", c.LLM.Provider, strings.Join(llm.Providers, ", "))
	}
	if c.LLM.BaseURL != "" {
		if u, err := url.Parse(c.LLM.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			add("llm.base_url", "invalid URL '%s'", c.LLM.BaseURL)
		}
	}

	if u, err := url.Parse(c.Client.APIURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		add("client.api_url", "must be an http(s) URL, got '%s'", c.Client.APIURL)
	}
	if c.Client.TimeoutSecs <= 0 {
		add("client.timeout_secs", "must be positive")
	}

	if !slices.Contains(archive.Backends, c.Archive.Backend) {
		add("archive.backend", "invalid backend '%s', must be one of: %s", c.Archive.Backend, strings.Join(archive.Backends, ", "))
	}

	if !slices.Contains(logLevels, strings.ToLower(c.Log.Level)) {
		add("log.level", "invalid level '%s', must be one of: %s", c.Log.Level, strings.Join(logLevels, ", "))
	}
	if !slices.Contains(logFormats, c.Log.Format) {
		add("log.format", "invalid format '%s', must be one of: %s", c.Log.Format, strings.Join(logFormats, ", "))
	}
	if !slices.Contains(logOutputs, c.Log.Output) {
		add("log.output", "invalid output '%s', must be one of: %s", c.Log.Output, strings.Join(logOutputs, ", "))
	}
	if c.Log.Output == "file" && c.Log.FilePath == "" {
		add("log.file_path", "required when output is 'file'")
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// DISPLAY
// =============================================================================

// String renders the config as JSON with credentials redacted.
func (c *Config) String() string {
	safe := *c
	safe.Server.CORSOrigins = slices.Clone(c.Server.CORSOrigins)
	for _, key := range []*string{&safe.LLM.APIKey, &safe.LLM.YandexOAuthToken} {
		if *key != "" {
			*key = "[REDACTED]"
		}
	}
	data, _ := json.MarshalIndent(safe, "", "  ")
	return string(data)
}
