// Package config loads the service configuration from an optional YAML file
// overlaid with environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/govalues/money"
	"gopkg.in/yaml.v3"
)

// Config is the top-level compta.yaml configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Log      LogConfig      `yaml:"log"`
	Book     BookConfig     `yaml:"book"`
	Auth     AuthConfig     `yaml:"auth"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig selects the store. An empty URL runs on the memory store.
type DatabaseConfig struct {
	URL string `yaml:"url"`
}

// LogConfig sets the slog level (debug|info|warn|error) and format (json|text).
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// BookConfig describes the single book the service keeps.
type BookConfig struct {
	Name     string `yaml:"name"`
	Currency string `yaml:"currency"`
	// TopN is the default product count of fiscal year summaries.
	TopN    int  `yaml:"top_n"`
	DevSeed bool `yaml:"dev_seed"`
}

// AuthConfig enables HS256 bearer tokens when JWTSecret is set.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
	Issuer    string `yaml:"issuer"`
	Audience  string `yaml:"audience"`
}

// Default returns a Config that serves a EUR book from memory on :8080.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     5 * time.Second,
			WriteTimeout:    10 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Log:  LogConfig{Level: "info", Format: "json"},
		Book: BookConfig{Name: "compta", Currency: "EUR", TopN: 10},
	}
}

// Load reads path over the defaults, then applies environment overrides.
// An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg as YAML.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	str("ADDR", &c.Server.Addr)
	str("DATABASE_URL", &c.Database.URL)
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)
	str("BOOK_CURRENCY", &c.Book.Currency)
	str("JWT_HS256_SECRET", &c.Auth.JWTSecret)
	str("JWT_ISSUER", &c.Auth.Issuer)
	str("JWT_AUDIENCE", &c.Auth.Audience)
	if v, ok := lookup("DEV_SEED"); ok && strings.TrimSpace(v) != "" {
		seed, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("DEV_SEED: %w", err)
		}
		c.Book.DevSeed = seed
	}
	return nil
}

// Validate checks the settings the service cannot start without.
func (c *Config) Validate() error {
	var problems []error
	if strings.TrimSpace(c.Server.Addr) == "" {
		problems = append(problems, errors.New("server.addr is required"))
	}
	for name, d := range map[string]time.Duration{
		"read_timeout":     c.Server.ReadTimeout,
		"write_timeout":    c.Server.WriteTimeout,
		"idle_timeout":     c.Server.IdleTimeout,
		"shutdown_timeout": c.Server.ShutdownTimeout,
	} {
		if d <= 0 {
			problems = append(problems, fmt.Errorf("server.%s must be positive", name))
		}
	}
	if _, err := money.ParseCurr(c.Book.Currency); err != nil {
		problems = append(problems, fmt.Errorf("book.currency %q: %w", c.Book.Currency, err))
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		problems = append(problems, fmt.Errorf("log.format %q must be json or text", c.Log.Format))
	}
	return errors.Join(problems...)
}
