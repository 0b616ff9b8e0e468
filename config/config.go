// Package config loads the monitoring configuration from config.json
// with environment variable overrides.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// Config is the full service configuration. Credentials live only in the
// Ring section and are never exposed by the query API.
type Config struct {
	Ring       Ring       `json:"ring"`
	Monitoring Monitoring `json:"monitoring"`
	Server     Server     `json:"server"`
	Notify     Notify     `json:"notify"`
}

// Ring holds vendor API access settings.
type Ring struct {
	APIToken string `json:"api_token"` // Pre-acquired bearer token; empty selects the mock source
	BaseURL  string `json:"base_url"`  // Defaults to the public API host
}

// Monitoring holds the term sets and poll cadence.
type Monitoring struct {
	Keywords            []string `json:"keywords"`
	Emojis              []string `json:"emojis"`
	PollIntervalSeconds int      `json:"poll_interval_seconds"`
}

// Server holds the HTTP listener settings.
type Server struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// Notify holds optional delivery targets beyond the dashboard push channel.
type Notify struct {
	WebhookURL string `json:"webhook_url"`
	Email      Email  `json:"email"`
}

// Email configures the alert email target. An empty To disables it.
type Email struct {
	To string `json:"to"`
}

// utf8BOM is stripped before decoding; config files edited on Windows
// often carry one.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Load reads and validates the configuration file at path.
func Load(path string, logger *slog.Logger) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}

	cfg.applyEnvOverrides()
	cfg.normalize(logger)

	return &cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("RING_API_TOKEN"); v != "" {
		c.Ring.APIToken = v
	}
	if v := os.Getenv("RING_BASE_URL"); v != "" {
		c.Ring.BaseURL = v
	}
}

// normalize trims configured terms and drops empties, so the matcher
// never sees whitespace-padded terms.
func (c *Config) normalize(logger *slog.Logger) {
	c.Monitoring.Keywords = cleanTerms(c.Monitoring.Keywords)
	c.Monitoring.Emojis = cleanTerms(c.Monitoring.Emojis)

	if len(c.Monitoring.Keywords) == 0 && len(c.Monitoring.Emojis) == 0 {
		// Valid but useless: no post will ever match.
		logger.Warn("No keywords or emojis configured, nothing will ever match")
	}

	if c.Monitoring.PollIntervalSeconds <= 0 {
		c.Monitoring.PollIntervalSeconds = 60
	}
	if c.Server.Host == "" {
		c.Server.Host = "127.0.0.1"
	}
	if c.Server.Port <= 0 {
		c.Server.Port = 8080
	}
}

func cleanTerms(terms []string) []string {
	out := terms[:0]
	for _, t := range terms {
		t = strings.TrimSpace(t)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}
