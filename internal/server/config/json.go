package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/divkeeper/internal/timex"
)

// JsonConfig is the on-disk form of Config. Durations accept "8s" style
// strings or integer nanoseconds. Absent keys leave the current value.
type JsonConfig struct {
	HTTPAddr            string         `json:"http_addr"`
	DatabaseURL         string         `json:"database_url"`
	SQLitePath          string         `json:"sqlite_path"`
	WorkDir             string         `json:"work_dir"`
	SecretKey           string         `json:"secret_key"`
	SessionTTL          timex.Duration `json:"session_ttl"`
	AdminEmail          string         `json:"admin_email"`
	AdminPassword       string         `json:"admin_password"`
	LegacyOwnerEmail    string         `json:"legacy_owner_email"`
	LegacyOwnerPassword string         `json:"legacy_owner_password"`
	PriceBaseURL        string         `json:"price_base_url"`
	PriceTimeout        timex.Duration `json:"price_timeout"`
	LogLevel            string         `json:"log_level"`
}

// parseJSON overlays the file at path onto config. An empty path loads
// nothing.
func parseJSON(config *Config, path string) error {
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	setString(&config.HTTPAddr, c.HTTPAddr)
	setString(&config.DatabaseURL, c.DatabaseURL)
	setString(&config.SQLitePath, c.SQLitePath)
	setString(&config.WorkDir, c.WorkDir)
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.AdminEmail, c.AdminEmail)
	setString(&config.AdminPassword, c.AdminPassword)
	setString(&config.LegacyOwnerEmail, c.LegacyOwnerEmail)
	setString(&config.LegacyOwnerPassword, c.LegacyOwnerPassword)
	setString(&config.PriceBaseURL, c.PriceBaseURL)
	setString(&config.LogLevel, c.LogLevel)
	if c.SessionTTL.Duration != 0 {
		config.SessionTTL = c.SessionTTL.Duration
	}
	if c.PriceTimeout.Duration != 0 {
		config.PriceTimeout = c.PriceTimeout.Duration
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
