// Package config loads and validates the mineb YAML configuration.
// It applies defaults so the daemon can rely on fully populated values.
package config

import (
	"errors"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// TLSConfig holds TLS certificate paths.
type TLSConfig struct {
	CertPath string `yaml:"cert_path"`
	KeyPath  string `yaml:"key_path"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// DBConfig holds database settings.
type DBConfig struct {
	Path string `yaml:"path"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Bind string    `yaml:"bind"`
	Port int       `yaml:"port"`
	TLS  TLSConfig `yaml:"tls"`
}

// SessionConfig holds session lifetime and sweep settings.
type SessionConfig struct {
	TTLHours         int `yaml:"ttl_hours"`
	SweepIntervalMin int `yaml:"sweep_interval_min"`
}

// MiningConfig bounds the reward and progress draws per tick.
type MiningConfig struct {
	RewardMin   int `yaml:"reward_min"`
	RewardMax   int `yaml:"reward_max"`
	ProgressMin int `yaml:"progress_min"`
	ProgressMax int `yaml:"progress_max"`
}

// RateLimitConfig bounds per-caller request rates on /mine and /login.
type RateLimitConfig struct {
	PerSecond int `yaml:"per_second"`
	Burst     int `yaml:"burst"`
}

// AccountConfig holds registration policy.
type AccountConfig struct {
	MinPasswordLen int `yaml:"min_password_len"`
}

// Config mirrors the mineb.yaml schema.
type Config struct {
	Log       LogConfig       `yaml:"log"`
	DB        DBConfig        `yaml:"db"`
	HTTP      HTTPConfig      `yaml:"http"`
	Session   SessionConfig   `yaml:"session"`
	Mining    MiningConfig    `yaml:"mining"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Account   AccountConfig   `yaml:"account"`
}

// Load reads a YAML config file, applies defaults, and validates it.
// It returns a fully populated Config or a descriptive error.
func Load(path string) (Config, error) {
	var c Config
	if path == "" {
		return c, errors.New("config path is required")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return c, err
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return c, err
	}
	ApplyDefaults(&c)
	if err := Validate(&c); err != nil {
		return Config{}, err
	}
	c.DB.Path = strings.TrimSpace(c.DB.Path)
	c.HTTP.TLS.CertPath = strings.TrimSpace(c.HTTP.TLS.CertPath)
	c.HTTP.TLS.KeyPath = strings.TrimSpace(c.HTTP.TLS.KeyPath)
	return c, nil
}

// ApplyDefaults populates zero-values with sane defaults.
func ApplyDefaults(c *Config) {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.DB.Path == "" {
		c.DB.Path = "./data/mineb.db"
	}
	if c.HTTP.Bind == "" {
		c.HTTP.Bind = "127.0.0.1"
	}
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 5000
	}
	if c.Session.TTLHours == 0 {
		c.Session.TTLHours = 12
	}
	if c.Session.SweepIntervalMin == 0 {
		c.Session.SweepIntervalMin = 15
	}
	if c.Mining.RewardMin == 0 {
		c.Mining.RewardMin = 1
	}
	if c.Mining.RewardMax == 0 {
		c.Mining.RewardMax = 5
	}
	if c.Mining.ProgressMin == 0 {
		c.Mining.ProgressMin = 5
	}
	if c.Mining.ProgressMax == 0 {
		c.Mining.ProgressMax = 20
	}
	if c.RateLimit.PerSecond == 0 {
		c.RateLimit.PerSecond = 5
	}
	if c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = 10
	}
	if c.Account.MinPasswordLen == 0 {
		c.Account.MinPasswordLen = 6
	}
}

// Validate performs basic sanity checks for required fields and ranges.
// It does not mutate the config.
func Validate(c *Config) error {
	if strings.TrimSpace(c.Log.Level) == "" {
		return errors.New("log.level is required")
	}
	if c.DB.Path == "" {
		return errors.New("db.path is required")
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return errors.New("http.port is invalid")
	}
	if (c.HTTP.TLS.CertPath == "") != (c.HTTP.TLS.KeyPath == "") {
		return errors.New("http.tls.cert_path and http.tls.key_path must be set together")
	}
	if c.Session.TTLHours < 1 {
		return errors.New("session.ttl_hours is invalid")
	}
	if c.Session.SweepIntervalMin < 1 {
		return errors.New("session.sweep_interval_min is invalid")
	}
	if c.Mining.RewardMin < 1 || c.Mining.RewardMax < c.Mining.RewardMin {
		return errors.New("mining reward bounds are invalid")
	}
	if c.Mining.ProgressMin < 1 || c.Mining.ProgressMax < c.Mining.ProgressMin {
		return errors.New("mining progress bounds are invalid")
	}
	if c.Mining.ProgressMax >= 100 {
		return errors.New("mining.progress_max must be below 100")
	}
	if c.RateLimit.PerSecond < 1 || c.RateLimit.Burst < 1 {
		return errors.New("rate limit settings are invalid")
	}
	if c.Account.MinPasswordLen < 1 {
		return errors.New("account.min_password_len is invalid")
	}
	return nil
}
