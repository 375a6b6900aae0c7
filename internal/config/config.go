// Package config loads the funnel configuration from an optional YAML
// file with environment variable overrides for the common knobs.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Network is one downstream CPA network webhook target.
type Network struct {
	Name    string            `yaml:"name"`
	URL     string            `yaml:"url"`
	APIKey  string            `yaml:"api_key"`
	Headers map[string]string `yaml:"headers"`
}

// Telegram holds the owner-notification bot credentials. Empty values
// disable notifications.
type Telegram struct {
	BotToken string `yaml:"bot_token"`
	ChatID   string `yaml:"chat_id"`
}

// Config is the full runtime configuration.
type Config struct {
	Port        int       `yaml:"port"`
	DBPath      string    `yaml:"db_path"`
	PublicURL   string    `yaml:"public_url"`
	RedirectURL string    `yaml:"redirect_url"` // post-submit redirect, optional
	Networks    []Network `yaml:"networks"`
	Telegram    Telegram  `yaml:"telegram"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Port:   8080,
		DBPath: "./quotefunnel.db",
	}
}

// Load reads the YAML file at path, falling back to defaults when the
// path is empty or the file does not exist, then applies QF_* env
// overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnv(cfg)

	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid port %d", cfg.Port)
	}
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("db_path must not be empty")
	}

	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("QF_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Port = port
		}
	}
	if v := os.Getenv("QF_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("QF_PUBLIC_URL"); v != "" {
		cfg.PublicURL = v
	}
	if v := os.Getenv("QF_REDIRECT_URL"); v != "" {
		cfg.RedirectURL = v
	}
	if v := os.Getenv("QF_TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("QF_TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
}
