package config

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application level configuration loaded from environment and flags.
type Config struct {
	RunAddress         string
	DatabaseURI        string
	LabPassword        string
	SessionSecret      string
	AppEnv             string
	ShutdownTimeout    time.Duration
	FeedRetryInterval  time.Duration
	ViewIdleTimeout    time.Duration
	ColumnsDir         string
	DefaultPageSize    int
	CORSAllowedOrigins []string
}

// Production reports whether cookies must be marked Secure.
func (c *Config) Production() bool {
	return c.AppEnv == "production"
}

const (
	defaultRunAddress        = ":8080"
	defaultSessionSecret     = "change-me-in-production"
	defaultAppEnv            = "development"
	defaultShutdownTimeout   = 10 * time.Second
	defaultFeedRetryInterval = 5 * time.Second
	defaultViewIdleTimeout   = 30 * time.Minute
	defaultPageSize          = 50
	dotenvFile               = ".env"
)

// Load parses configuration from flags and environment variables. Values
// missing from the process environment fall back to a .env file in the
// working directory.
func Load() (*Config, error) {
	return load(os.Args[1:], withDotenv(os.LookupEnv, dotenvFile))
}

type envLookup func(string) (string, bool)

// withDotenv returns a lookup that consults primary first and the parsed
// dotenv file second. A missing or unreadable file leaves primary as is.
func withDotenv(primary envLookup, path string) envLookup {
	values, err := godotenv.Read(path)
	if err != nil {
		return primary
	}
	return func(key string) (string, bool) {
		if v, ok := primary(key); ok {
			return v, ok
		}
		v, ok := values[key]
		return v, ok
	}
}

func load(args []string, lookup envLookup) (*Config, error) {
	cfg := &Config{
		RunAddress:        getString(lookup, "RUN_ADDRESS", defaultRunAddress),
		DatabaseURI:       getString(lookup, "DATABASE_URI", ""),
		LabPassword:       getString(lookup, "LAB_PASSWORD", ""),
		SessionSecret:     getString(lookup, "SESSION_SECRET", defaultSessionSecret),
		AppEnv:            getString(lookup, "APP_ENV", defaultAppEnv),
		ShutdownTimeout:   getDuration(lookup, "SHUTDOWN_TIMEOUT", defaultShutdownTimeout),
		FeedRetryInterval: getDuration(lookup, "FEED_RETRY_INTERVAL", defaultFeedRetryInterval),
		ViewIdleTimeout:   getDuration(lookup, "VIEW_IDLE_TIMEOUT", defaultViewIdleTimeout),
		ColumnsDir:        getString(lookup, "COLUMNS_DIR", ""),
		DefaultPageSize:   getInt(lookup, "DEFAULT_PAGE_SIZE", defaultPageSize),
	}

	fs := flag.NewFlagSet("labtracker", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		shutdownTimeoutStr = cfg.ShutdownTimeout.String()
		feedRetryStr       = cfg.FeedRetryInterval.String()
		viewIdleStr        = cfg.ViewIdleTimeout.String()
		corsOrigins        = getString(lookup, "CORS_ALLOWED_ORIGINS", "")
	)

	fs.StringVar(&cfg.RunAddress, "a", cfg.RunAddress, "HTTP server listen address")
	fs.StringVar(&cfg.DatabaseURI, "d", cfg.DatabaseURI, "PostgreSQL DSN")
	fs.StringVar(&cfg.SessionSecret, "session-secret", cfg.SessionSecret, "Secret for signing the session cookie")
	fs.StringVar(&cfg.AppEnv, "env", cfg.AppEnv, "Deployment environment")
	fs.StringVar(&shutdownTimeoutStr, "shutdown-timeout", shutdownTimeoutStr, "Graceful shutdown timeout")
	fs.StringVar(&feedRetryStr, "feed-retry", feedRetryStr, "Delay before resubscribing to the change feed")
	fs.StringVar(&viewIdleStr, "view-idle", viewIdleStr, "Idle time after which a browser view is dropped")
	fs.StringVar(&cfg.ColumnsDir, "columns-dir", cfg.ColumnsDir, "Directory for persisted column layouts")
	fs.IntVar(&cfg.DefaultPageSize, "page-size", cfg.DefaultPageSize, "Default page size")
	fs.StringVar(&corsOrigins, "cors-origins", corsOrigins, "Comma separated list of allowed CORS origins")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	var err error

	if cfg.ShutdownTimeout, err = time.ParseDuration(shutdownTimeoutStr); err != nil {
		return nil, fmt.Errorf("invalid shutdown timeout: %w", err)
	}

	if cfg.FeedRetryInterval, err = time.ParseDuration(feedRetryStr); err != nil {
		return nil, fmt.Errorf("invalid feed retry interval: %w", err)
	}

	if cfg.ViewIdleTimeout, err = time.ParseDuration(viewIdleStr); err != nil {
		return nil, fmt.Errorf("invalid view idle timeout: %w", err)
	}

	if passwordFile, ok := lookup("LAB_PASSWORD_FILE"); ok && passwordFile != "" {
		content, err := os.ReadFile(passwordFile)
		if err != nil {
			return nil, fmt.Errorf("read lab password file: %w", err)
		}
		cfg.LabPassword = strings.TrimRight(string(content), "\r\n")
	}

	cfg.CORSAllowedOrigins = splitList(corsOrigins)

	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}

	if cfg.FeedRetryInterval <= 0 {
		cfg.FeedRetryInterval = defaultFeedRetryInterval
	}

	if cfg.ViewIdleTimeout <= 0 {
		cfg.ViewIdleTimeout = defaultViewIdleTimeout
	}

	if cfg.DefaultPageSize <= 0 {
		cfg.DefaultPageSize = defaultPageSize
	}

	if cfg.DatabaseURI == "" {
		return nil, fmt.Errorf("database URI must be provided")
	}

	if cfg.LabPassword == "" {
		return nil, fmt.Errorf("lab password must be provided")
	}

	return cfg, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getString(lookup envLookup, key, def string) string {
	if v, ok := lookup(key); ok && v != "" {
		return v
	}
	return def
}

func getInt(lookup envLookup, key string, def int) int {
	if v, ok := lookup(key); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getDuration(lookup envLookup, key string, def time.Duration) time.Duration {
	if v, ok := lookup(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
