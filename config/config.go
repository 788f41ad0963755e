/*
Package config loads server settings from LOANBOOK_* environment variables.

VARIABLES:
  LOANBOOK_PORT             HTTP port (8080)
  LOANBOOK_DB_PATH          SQLite file, or ":memory:" (loanbook.db)
  LOANBOOK_LOG_LEVEL        debug, info, warn, error (info)
  LOANBOOK_LOG_FORMAT       console or json (console)
  LOANBOOK_CURRENCY_SYMBOL  Display symbol (₹)
  LOANBOOK_LOCALE           Number grouping locale (en-IN)
  LOANBOOK_TIMEZONE         IANA zone for calendar days (Asia/Kolkata)
  LOANBOOK_ACCOUNT_ID       Stamped on every event (default)
  LOANBOOK_ACTOR            Stamped on every event (owner)
  LOANBOOK_ALLOWED_ORIGINS  Comma-separated CORS origins
  LOANBOOK_REPORT_INTERVAL  Daily report period, 0 disables (0)

Command-line flags in cmd/server override the port and database path.
*/
package config

import (
	"errors"
	"fmt"
	"time"
	_ "time/tzdata"

	"github.com/caarlos0/env/v11"
)

// EnvPrefix is prepended to every variable name.
const EnvPrefix = "LOANBOOK_"

type Config struct {
	Port           int           `env:"PORT" envDefault:"8080"`
	DBPath         string        `env:"DB_PATH" envDefault:"loanbook.db"`
	LogLevel       string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat      string        `env:"LOG_FORMAT" envDefault:"console"`
	CurrencySymbol string        `env:"CURRENCY_SYMBOL" envDefault:"₹"`
	Locale         string        `env:"LOCALE" envDefault:"en-IN"`
	Timezone       string        `env:"TIMEZONE" envDefault:"Asia/Kolkata"`
	AccountID      string        `env:"ACCOUNT_ID" envDefault:"default"`
	Actor          string        `env:"ACTOR" envDefault:"owner"`
	AllowedOrigins []string      `env:"ALLOWED_ORIGINS" envSeparator:","`
	ReportInterval time.Duration `env:"REPORT_INTERVAL" envDefault:"0s"`
}

var (
	ErrInvalidPort      = errors.New("port must be between 1 and 65535")
	ErrInvalidLogFormat = errors.New("log format must be console or json")
	ErrEmptyDBPath      = errors.New("db path can't be empty")
)

// Load parses the environment and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return ErrInvalidPort
	}
	if c.DBPath == "" {
		return ErrEmptyDBPath
	}
	if c.LogFormat != "console" && c.LogFormat != "json" {
		return ErrInvalidLogFormat
	}
	if c.ReportInterval < 0 {
		return fmt.Errorf("report interval %s is negative", c.ReportInterval)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves Timezone. Calendar-day filters and "paid today" are
// evaluated in this zone.
func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}
