package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"FiftySentinel/internal/model"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultChecks is the check list used when none is configured.
var DefaultChecks = []string{"signal:weekly", "signal:monthly", "direction:weekly", "direction:monthly"}

// Config holds all application configuration.
type Config struct {
	DataSource struct {
		Provider          string  `yaml:"provider"` // yahoo | rest
		BaseURL           string  `yaml:"base_url"`
		APIKey            string  `yaml:"api_key"`
		TimeoutSeconds    int     `yaml:"timeout_seconds"`
		RequestsPerSecond float64 `yaml:"requests_per_second"`
		MaxRetries        *int    `yaml:"max_retries"`
	} `yaml:"data_source"`
	Breaker struct {
		ConsecutiveFailures uint32 `yaml:"consecutive_failures"`
		OpenSeconds         int    `yaml:"open_seconds"`
	} `yaml:"breaker"`
	History struct {
		DailyDays   int `yaml:"daily_days"`
		WeeklyDays  int `yaml:"weekly_days"`
		MonthlyDays int `yaml:"monthly_days"`
	} `yaml:"history"`
	Scan struct {
		Concurrency int      `yaml:"concurrency"`
		Checks      []string `yaml:"checks"`
	} `yaml:"scan"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Schedule struct {
		Cron string `yaml:"cron"`
	} `yaml:"schedule"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"` // console | json
	} `yaml:"log"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, loads a .env file when present, then applies
// environment variable overrides and defaults. A missing config file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// .env never overrides variables already set in the environment.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("DATA_PROVIDER"); v != "" {
		c.DataSource.Provider = v
	}
	if v := os.Getenv("DATA_BASE_URL"); v != "" {
		c.DataSource.BaseURL = v
	}
	if v := os.Getenv("DATA_API_KEY"); v != "" {
		c.DataSource.APIKey = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		c.Proxy = v
	}
	if v := os.Getenv("SCAN_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SCAN_CONCURRENCY: %w", err)
		}
		c.Scan.Concurrency = n
	}
	if v := os.Getenv("SCAN_CHECKS"); v != "" {
		c.Scan.Checks = splitList(v)
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		c.Telegram.ChatID = v
	}
	if v := os.Getenv("SCAN_CRON"); v != "" {
		c.Schedule.Cron = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.DataSource.Provider == "" {
		c.DataSource.Provider = "yahoo"
	}
	if c.DataSource.TimeoutSeconds == 0 {
		c.DataSource.TimeoutSeconds = 15
	}
	if c.DataSource.RequestsPerSecond == 0 {
		c.DataSource.RequestsPerSecond = 5
	}
	if c.DataSource.MaxRetries == nil {
		n := 2
		c.DataSource.MaxRetries = &n
	}
	if c.Breaker.ConsecutiveFailures == 0 {
		c.Breaker.ConsecutiveFailures = 5
	}
	if c.Breaker.OpenSeconds == 0 {
		c.Breaker.OpenSeconds = 30
	}
	if c.History.DailyDays == 0 {
		c.History.DailyDays = 45
	}
	if c.History.WeeklyDays == 0 {
		c.History.WeeklyDays = 120
	}
	if c.History.MonthlyDays == 0 {
		c.History.MonthlyDays = 400
	}
	if c.Scan.Concurrency == 0 {
		c.Scan.Concurrency = 8
	}
	if len(c.Scan.Checks) == 0 {
		c.Scan.Checks = append([]string(nil), DefaultChecks...)
	}
	if c.Schedule.Cron == "" {
		c.Schedule.Cron = "0 30 22 * * 1-5"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
}

// Validate checks that all fields are usable.
func (c *Config) Validate() error {
	switch c.DataSource.Provider {
	case "yahoo":
	case "rest":
		if c.DataSource.BaseURL == "" {
			return fmt.Errorf("data_source.base_url is required for the rest provider")
		}
	default:
		return fmt.Errorf("data_source.provider must be yahoo or rest, got %q", c.DataSource.Provider)
	}
	if c.DataSource.TimeoutSeconds < 0 {
		return fmt.Errorf("data_source.timeout_seconds must not be negative")
	}
	if c.DataSource.RequestsPerSecond < 0 {
		return fmt.Errorf("data_source.requests_per_second must not be negative")
	}
	if *c.DataSource.MaxRetries < 0 {
		return fmt.Errorf("data_source.max_retries must not be negative")
	}
	if c.Scan.Concurrency < 1 {
		return fmt.Errorf("scan.concurrency must be positive")
	}
	if c.History.DailyDays < 1 || c.History.WeeklyDays < 14 || c.History.MonthlyDays < 62 {
		return fmt.Errorf("history lookback too short to hold two periods")
	}
	if _, err := c.ParseChecks(); err != nil {
		return err
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("log.format must be console or json, got %q", c.Log.Format)
	}
	return nil
}

// ParseChecks parses and validates scan.checks.
func (c *Config) ParseChecks() ([]model.Check, error) {
	checks := make([]model.Check, 0, len(c.Scan.Checks))
	for _, s := range c.Scan.Checks {
		ch, err := model.ParseCheck(s)
		if err != nil {
			return nil, fmt.Errorf("scan.checks: %w", err)
		}
		if err := ch.Validate(); err != nil {
			return nil, fmt.Errorf("scan.checks %q: %w", s, err)
		}
		checks = append(checks, ch)
	}
	return checks, nil
}

// TelegramEnabled reports whether report delivery is configured.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}

// Timeout returns the per-attempt provider timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.DataSource.TimeoutSeconds) * time.Second
}

// BreakerOpen returns how long the circuit breaker stays open.
func (c *Config) BreakerOpen() time.Duration {
	return time.Duration(c.Breaker.OpenSeconds) * time.Second
}

// Lookback returns the history window per granularity.
func (c *Config) Lookback() map[model.Granularity]time.Duration {
	day := 24 * time.Hour
	return map[model.Granularity]time.Duration{
		model.Daily:   time.Duration(c.History.DailyDays) * day,
		model.Weekly:  time.Duration(c.History.WeeklyDays) * day,
		model.Monthly: time.Duration(c.History.MonthlyDays) * day,
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
