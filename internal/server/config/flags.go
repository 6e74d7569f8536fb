package config

import (
	"flag"
	"io"
	"time"

	"github.com/dmitrijs2005/divkeeper/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP listen address (e.g. ":5000")
//	-d string   database URL (postgres://...); empty selects SQLite
//	-f string   SQLite file path
//	-w string   scratch directory for export/import
//	-s string   JWT HMAC secret key
//	-t int      session validity, minutes
//	-l string   log level (debug, info, warn, error)
//
// Arguments owned by other parsers (such as -c) are filtered out first.
func parseFlags(config *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-a", "-d", "-f", "-w", "-s", "-t", "-l"})

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "address and port to run server")
	fs.StringVar(&config.DatabaseURL, "d", config.DatabaseURL, "database URL")
	fs.StringVar(&config.SQLitePath, "f", config.SQLitePath, "SQLite file path")
	fs.StringVar(&config.WorkDir, "w", config.WorkDir, "scratch directory")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	sessionTTL := fs.Int("t", int(config.SessionTTL.Minutes()), "session validity (in minutes)")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		return err
	}

	fs.Visit(func(f *flag.Flag) {
		if f.Name == "t" {
			config.SessionTTL = time.Duration(*sessionTTL) * time.Minute
		}
	})
	return nil
}
