package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultHTTPAddr       = ":8080"
	DefaultLogLevel       = "info"
	DefaultDateFormat     = "M/D/YYYY"
	DefaultMigrationsPath = "db/migrations"
)

// Config holds all configuration for the docstage server.
type Config struct {
	// Server configuration
	HTTPAddr string
	LogLevel string

	// Database configuration
	Database DatabaseConfig

	// Site configuration
	SiteDateFormat string // display format code for rendered dates
	MigrationsPath string

	// External collaborators
	OCRVendorURL    string
	OCRVendorAPIKey string
	LicenseURL      string
	AccountID       string

	// Inbox watcher
	InboxDir string
}

// DatabaseConfig holds database-related configuration.
type DatabaseConfig struct {
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// Load reads configuration from flags and DOCSTAGE_* environment variables,
// flags taking precedence.
func Load(args []string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("DOCSTAGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("http-addr", DefaultHTTPAddr)
	v.SetDefault("log-level", DefaultLogLevel)
	v.SetDefault("date-format", DefaultDateFormat)
	v.SetDefault("migrations-path", DefaultMigrationsPath)
	v.SetDefault("db-max-conns", 20)
	v.SetDefault("db-min-conns", 5)
	v.SetDefault("db-max-conn-lifetime", 30*time.Minute)
	v.SetDefault("db-max-conn-idle-time", 5*time.Minute)
	v.SetDefault("db-dial-timeout", 3*time.Second)
	v.SetDefault("db-statement-timeout", time.Duration(0))

	fs := pflag.NewFlagSet("docstage", pflag.ContinueOnError)
	fs.String("http-addr", DefaultHTTPAddr, "HTTP listen address")
	fs.String("log-level", DefaultLogLevel, "log level (debug|info|warn|error)")
	fs.String("db-url", "", "postgres DSN")
	fs.String("date-format", DefaultDateFormat, "site date display format code")
	fs.String("migrations-path", DefaultMigrationsPath, "path to SQL migrations")
	fs.String("ocr-url", "", "OCR vendor endpoint")
	fs.String("ocr-api-key", "", "OCR vendor API key")
	fs.String("license-url", "", "license service endpoint")
	fs.String("account-id", "", "licensed account identifier")
	fs.String("inbox-dir", "", "inbox directory for the watcher")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if err := v.BindPFlags(fs); err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:       v.GetString("http-addr"),
		LogLevel:       v.GetString("log-level"),
		SiteDateFormat: v.GetString("date-format"),
		MigrationsPath: v.GetString("migrations-path"),
		Database: DatabaseConfig{
			DSN:              v.GetString("db-url"),
			MaxConns:         v.GetInt32("db-max-conns"),
			MinConns:         v.GetInt32("db-min-conns"),
			MaxConnLifetime:  v.GetDuration("db-max-conn-lifetime"),
			MaxConnIdleTime:  v.GetDuration("db-max-conn-idle-time"),
			DialTimeout:      v.GetDuration("db-dial-timeout"),
			StatementTimeout: v.GetDuration("db-statement-timeout"),
		},
		OCRVendorURL:    v.GetString("ocr-url"),
		OCRVendorAPIKey: v.GetString("ocr-api-key"),
		LicenseURL:      v.GetString("license-url"),
		AccountID:       v.GetString("account-id"),
		InboxDir:        v.GetString("inbox-dir"),
	}
	return cfg, nil
}

// Validate checks the loaded configuration.
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return errors.New("DOCSTAGE_DB_URL is required")
	}
	if c.HTTPAddr == "" {
		return errors.New("http-addr must not be empty")
	}
	return nil
}
