package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"` // text or json
	} `yaml:"log"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	SQLite struct {
		Path string `yaml:"path"`
	} `yaml:"sqlite"`
	Store struct {
		// Backend is one of memory, sqlite, redis, postgres.
		Backend string `yaml:"backend"`
	} `yaml:"store"`
	Bank struct {
		// Source is embedded or postgres.
		Source string `yaml:"source"`
		TTL    string `yaml:"ttl"`
	} `yaml:"bank"`
	Provider struct {
		BaseURL        string `yaml:"baseUrl"`
		MinInterval    string `yaml:"minInterval"`
		Timeout        string `yaml:"timeout"`
		MaxAttempts    int    `yaml:"maxAttempts"`
		BaseDelay      string `yaml:"baseDelay"`
		RateLimitDelay string `yaml:"rateLimitDelay"`
	} `yaml:"provider"`
	Quiz struct {
		Count            int    `yaml:"count"`
		TimeLimitSeconds int    `yaml:"timeLimitSeconds"`
		Difficulty       string `yaml:"difficulty"`
		Source           string `yaml:"source"`
	} `yaml:"quiz"`
}

// Load reads YAML config from path. A missing file yields defaults.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return withDefaults(cfg), nil
		}
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return withDefaults(cfg), nil
}

func withDefaults(cfg Config) Config {
	if cfg.Store.Backend == "" {
		cfg.Store.Backend = "sqlite"
	}
	if cfg.SQLite.Path == "" {
		cfg.SQLite.Path = "trivia.db"
	}
	if cfg.Bank.Source == "" {
		cfg.Bank.Source = "embedded"
	}
	if cfg.Provider.BaseURL == "" {
		cfg.Provider.BaseURL = "https://opentdb.com"
	}
	if cfg.Provider.MaxAttempts <= 0 {
		cfg.Provider.MaxAttempts = 3
	}
	if cfg.Quiz.Count <= 0 {
		cfg.Quiz.Count = 10
	}
	if cfg.Quiz.TimeLimitSeconds <= 0 {
		cfg.Quiz.TimeLimitSeconds = 30
	}
	if cfg.Quiz.Source == "" {
		cfg.Quiz.Source = "remote"
	}
	return cfg
}

// Duration parses a duration string or returns the fallback if empty or malformed.
func Duration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
