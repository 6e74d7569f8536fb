// Package config handles configuration for the server, layered as
// defaults, an optional JSON file, the environment (and a .env file), and
// finally command-line flags.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dmitrijs2005/divkeeper/internal/common"
	"github.com/dmitrijs2005/divkeeper/internal/flagx"
)

// Config holds runtime settings for the portfolio server.
//
// DatabaseURL selects PostgreSQL when it is a postgres:// or postgresql://
// URL; otherwise the SQLite file at SQLitePath is used. WorkDir receives
// scratch files during export and import.
type Config struct {
	HTTPAddr    string
	DatabaseURL string
	SQLitePath  string
	WorkDir     string

	SecretKey  string
	SessionTTL time.Duration

	AdminEmail          string
	AdminPassword       string
	LegacyOwnerEmail    string
	LegacyOwnerPassword string

	PriceBaseURL string
	PriceTimeout time.Duration

	LogLevel string
}

// LoadDefaults populates Config with development defaults.
// NOTE: the secret and reserved passwords must be overridden in production.
func (c *Config) LoadDefaults() {
	c.HTTPAddr = ":5000"
	c.DatabaseURL = ""
	c.SQLitePath = "stocks.db"
	c.WorkDir = "tmp"
	c.SecretKey = "secretKey"
	c.SessionTTL = 24 * time.Hour
	c.AdminEmail = "admin@portfolio.local"
	c.AdminPassword = "admin1234"
	c.LegacyOwnerEmail = "owner@portfolio.local"
	c.LegacyOwnerPassword = "owner1234"
	c.PriceBaseURL = "https://m.stock.naver.com/api/stock"
	c.PriceTimeout = 8 * time.Second
	c.LogLevel = "info"
}

// Load builds a Config from args (without the program name), the process
// environment and an optional .env file in the working directory.
func Load(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseJSON(cfg, flagx.ConfigPath(args)); err != nil {
		return nil, err
	}
	if err := parseEnv(cfg, ".env"); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfig is Load over os.Args.
func LoadConfig() (*Config, error) {
	return Load(os.Args[1:])
}

func (c *Config) normalize() {
	c.DatabaseURL = strings.TrimSpace(c.DatabaseURL)
	if rest, ok := strings.CutPrefix(c.DatabaseURL, "postgres://"); ok {
		c.DatabaseURL = "postgresql://" + rest
	}
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	switch {
	case c.HTTPAddr == "":
		return fmt.Errorf("%w: empty http address", common.ErrValidation)
	case c.DatabaseURL == "" && c.SQLitePath == "":
		return fmt.Errorf("%w: neither database url nor sqlite path set", common.ErrValidation)
	case c.SecretKey == "":
		return fmt.Errorf("%w: empty secret key", common.ErrValidation)
	case c.SessionTTL <= 0:
		return fmt.Errorf("%w: session ttl must be positive", common.ErrValidation)
	case c.PriceTimeout <= 0:
		return fmt.Errorf("%w: price timeout must be positive", common.ErrValidation)
	case strings.EqualFold(strings.TrimSpace(c.AdminEmail), strings.TrimSpace(c.LegacyOwnerEmail)):
		return fmt.Errorf("%w: admin and legacy owner emails must differ", common.ErrValidation)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("%w: unknown log level %q", common.ErrValidation, c.LogLevel)
	}
	return nil
}
