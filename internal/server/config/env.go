package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// parseEnv overlays environment variables onto config. Variables may also
// come from envFile in dotenv format; real environment variables win over
// the file. A missing file is not an error.
func parseEnv(config *Config, envFile string) error {
	v := viper.New()
	v.AutomaticEnv()

	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			v.SetConfigFile(envFile)
			v.SetConfigType("env")
			if err := v.ReadInConfig(); err != nil {
				return fmt.Errorf("read %s: %w", envFile, err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("stat %s: %w", envFile, err)
		}
	}

	if v.IsSet("PORT") {
		config.HTTPAddr = portAddr(v.GetString("PORT"))
	}

	for key, dst := range map[string]*string{
		"DATABASE_URL":          &config.DatabaseURL,
		"SQLITE_PATH":           &config.SQLitePath,
		"WORK_DIR":              &config.WorkDir,
		"SECRET_KEY":            &config.SecretKey,
		"ADMIN_EMAIL":           &config.AdminEmail,
		"ADMIN_PASSWORD":        &config.AdminPassword,
		"LEGACY_OWNER_EMAIL":    &config.LegacyOwnerEmail,
		"LEGACY_OWNER_PASSWORD": &config.LegacyOwnerPassword,
		"PRICE_BASE_URL":        &config.PriceBaseURL,
		"LOG_LEVEL":             &config.LogLevel,
	} {
		if v.IsSet(key) {
			*dst = v.GetString(key)
		}
	}

	for key, dst := range map[string]*time.Duration{
		"SESSION_TTL":   &config.SessionTTL,
		"PRICE_TIMEOUT": &config.PriceTimeout,
	} {
		if !v.IsSet(key) {
			continue
		}
		d, err := time.ParseDuration(strings.TrimSpace(v.GetString(key)))
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = d
	}
	return nil
}

// portAddr turns a bare port into a listen address.
func portAddr(port string) string {
	port = strings.TrimSpace(port)
	if strings.Contains(port, ":") {
		return port
	}
	return ":" + port
}
