// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Port        string
	FrontendURL string
	DBPath      string
	FallbackDir string
	PosterDir   string
	SessionTTL  time.Duration
	Cooldown    time.Duration
	Email       EmailConfig
}

// EmailConfig holds the outbound mail settings. Sender, Password and Receiver
// are secrets supplied via the environment and may be absent; delivery then
// short-circuits without a network attempt.
type EmailConfig struct {
	Sender      string
	Password    string
	Receiver    string
	SMTPHost    string
	SMTPPort    int
	SendTimeout time.Duration
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", ""),
		DBPath:      getEnv("DB_PATH", "./data/guestbook.db"),
		FallbackDir: getEnv("FALLBACK_DIR", "./data/fallback"),
		PosterDir:   getEnv("POSTER_DIR", "./images"),
		SessionTTL:  getEnvDuration("SESSION_TTL", 12*time.Hour),
		Cooldown:    getEnvDuration("SUBMIT_COOLDOWN", 8*time.Second),
		Email: EmailConfig{
			Sender:      getEnv("EMAIL_SENDER", ""),
			Password:    getEnv("EMAIL_PASSWORD", ""),
			Receiver:    getEnv("EMAIL_RECEIVER", ""),
			SMTPHost:    getEnv("SMTP_HOST", "smtp.gmail.com"),
			SMTPPort:    getEnvInt("SMTP_PORT", 465),
			SendTimeout: getEnvDuration("SEND_TIMEOUT", 15*time.Second),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set. The email
// secrets are intentionally not required here: their absence is handled at
// delivery time, not at startup.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.FallbackDir == "" {
		return fmt.Errorf("FALLBACK_DIR cannot be empty")
	}
	if c.Cooldown <= 0 {
		return fmt.Errorf("SUBMIT_COOLDOWN must be > 0")
	}
	if c.Email.SMTPPort <= 0 || c.Email.SMTPPort > 65535 {
		return fmt.Errorf("SMTP_PORT must be a valid port number")
	}
	return nil
}

// EmailConfigured reports whether every secret needed for delivery is present.
func (c *Config) EmailConfigured() bool {
	return c.Email.Sender != "" && c.Email.Password != "" && c.Email.Receiver != ""
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}
