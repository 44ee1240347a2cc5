// Package config loads negotiator configuration from config.yaml and
// NEGO_-prefixed environment variables. Policy tables (tactic
// effectiveness, decision margins, conversation budgets) live here so
// they can be tuned and tested independently of the control flow.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Storage  StorageConfig  `koanf:"storage"`
	Composer ComposerConfig `koanf:"composer"`
	Scraper  ScraperConfig  `koanf:"scraper"`
	Policy   PolicyConfig   `koanf:"policy"`
}

type ServerConfig struct {
	Port int `koanf:"port"`
}

type StorageConfig struct {
	Type   string       `koanf:"type"` // sqlite, memory
	SQLite SQLiteConfig `koanf:"sqlite"`
}

type SQLiteConfig struct {
	Path string `koanf:"path"`
}

type ComposerConfig struct {
	Timeout time.Duration `koanf:"timeout"`
}

type ScraperConfig struct {
	BaseURL string        `koanf:"base_url"`
	Timeout time.Duration `koanf:"timeout"`
}

// PolicyConfig holds the tunable negotiation policy tables.
type PolicyConfig struct {
	// CounterMargin is how far below the seller's quoted price a
	// counter offer must stay, in rupees.
	CounterMargin int `koanf:"counter_margin"`

	// MessageBudget ends a session as seller_unresponsive once the
	// message count exceeds it.
	MessageBudget int `koanf:"message_budget"`

	// DeadlockMessageCount and DeadlockWindow control the intervention
	// deadlock scan: with more than DeadlockMessageCount messages and
	// identical extracted prices across the last DeadlockWindow
	// messages, a human takes over.
	DeadlockMessageCount int `koanf:"deadlock_message_count"`
	DeadlockWindow       int `koanf:"deadlock_window"`

	// OutcomeLogCap bounds the analytics learning log.
	OutcomeLogCap int `koanf:"outcome_log_cap"`

	// Effectiveness overrides entries of the tactic-effectiveness
	// table. Tactics or personalities not listed keep their defaults.
	Effectiveness []EffectivenessConfig `koanf:"effectiveness"`
}

// EffectivenessConfig overrides one tactic's per-personality scores.
type EffectivenessConfig struct {
	Tactic string             `koanf:"tactic"`
	Scores map[string]float64 `koanf:"scores"`
}

// Load reads config.yaml (if present) with NEGO_ env overrides, then
// applies defaults for anything unset.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path == "" {
		path = "config.yaml"
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	}

	if err := k.Load(env.Provider("NEGO_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "NEGO_")), "__", ".", -1)
	}), nil); err != nil {
		return nil, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Storage.Type == "" {
		c.Storage.Type = "sqlite"
	}
	if c.Storage.SQLite.Path == "" {
		c.Storage.SQLite.Path = "./data/negotiator.db"
	}
	if c.Composer.Timeout == 0 {
		c.Composer.Timeout = 10 * time.Second
	}
	if c.Scraper.Timeout == 0 {
		c.Scraper.Timeout = 30 * time.Second
	}
	if c.Policy.CounterMargin == 0 {
		c.Policy.CounterMargin = 1000
	}
	if c.Policy.MessageBudget == 0 {
		c.Policy.MessageBudget = 20
	}
	if c.Policy.DeadlockMessageCount == 0 {
		c.Policy.DeadlockMessageCount = 12
	}
	if c.Policy.DeadlockWindow == 0 {
		c.Policy.DeadlockWindow = 6
	}
	if c.Policy.OutcomeLogCap == 0 {
		c.Policy.OutcomeLogCap = 1000
	}
}
