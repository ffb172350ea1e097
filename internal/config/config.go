// Package config provides centralized configuration management for the pipeline.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"net"
	"net/url"
	"path/filepath"
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Database DatabaseConfig
	Source   SourceConfig
	Load     LoadConfig
	Report   ReportConfig
	Logging  LoggingConfig
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// URL is a full PostgreSQL connection string. When set it takes precedence
	// over the individual Host/Port/Name/User/Password settings.
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// Host is the database server host (default: localhost)
	Host string `env:"DB_HOST" default:"localhost"`

	// Port is the database server port (default: 5432)
	Port int `env:"DB_PORT" default:"5432"`

	// Name is the database name (default: gametracker)
	Name string `env:"DB_NAME" default:"gametracker"`

	// User is the login role (default: postgres)
	User string `env:"DB_USER" default:"postgres"`

	// Password for User. Never logged.
	Password string `env:"DB_PASSWORD"`

	// ConnectMaxAttempts bounds connection acquisition (default: 30)
	ConnectMaxAttempts int `env:"DB_CONNECT_MAX_ATTEMPTS" default:"30"`

	// ConnectDelay is the sleep between failed attempts (default: 2s)
	ConnectDelay time.Duration `env:"DB_CONNECT_DELAY" default:"2s"`

	// ConnectTimeout is the dial timeout of a single attempt (default: 5s)
	ConnectTimeout time.Duration `env:"DB_CONNECT_TIMEOUT" default:"5s"`

	// BootstrapSchema creates the players/scores tables if missing (default: true)
	BootstrapSchema bool `env:"DB_BOOTSTRAP_SCHEMA" default:"true"`
}

// SourceConfig holds the location of the input extracts.
type SourceConfig struct {
	// Dir is the directory holding the CSV extracts (default: data)
	Dir string `env:"DATA_DIR" default:"data"`

	// PlayersFile is the player extract file name (default: Players.csv)
	PlayersFile string `env:"PLAYERS_FILE" default:"Players.csv"`

	// ScoresFile is the score extract file name (default: Scores.csv)
	ScoresFile string `env:"SCORES_FILE" default:"Scores.csv"`
}

// LoadConfig holds write-side tuning.
type LoadConfig struct {
	// CopyThreshold is the batch size at which upserts stage rows with COPY
	// instead of a single parameterized statement; 0 disables COPY (default: 1000)
	CopyThreshold int `env:"LOAD_COPY_THRESHOLD" default:"1000"`
}

// ReportConfig holds report output settings.
type ReportConfig struct {
	// Path is the report artifact, overwritten on every run (default: output/rapport.txt)
	Path string `env:"REPORT_PATH" default:"output/rapport.txt"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// ConnString returns the PostgreSQL connection string.
// DATABASE_URL wins; otherwise a postgres:// URL is assembled from the parts.
func (c *DatabaseConfig) ConnString() string {
	if c.URL != "" {
		return c.URL
	}

	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:   "/" + c.Name,
	}
	if c.Password != "" {
		u.User = url.UserPassword(c.User, c.Password)
	} else if c.User != "" {
		u.User = url.User(c.User)
	}
	if c.ConnectTimeout > 0 {
		// connect_timeout has whole-second resolution; 0 would mean "wait forever".
		secs := int(c.ConnectTimeout / time.Second)
		if secs < 1 {
			secs = 1
		}
		q := url.Values{}
		q.Set("connect_timeout", strconv.Itoa(secs))
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// PlayersPath returns the full path of the player extract.
func (c *SourceConfig) PlayersPath() string {
	return filepath.Join(c.Dir, c.PlayersFile)
}

// ScoresPath returns the full path of the score extract.
func (c *SourceConfig) ScoresPath() string {
	return filepath.Join(c.Dir, c.ScoresFile)
}
