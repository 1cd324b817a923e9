// Package config holds the dedidash settings: the roster, the store, the
// scraper and the report windows. Load layers a YAML file and DEDIDASH_
// environment variables over the defaults from New.
package config

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Supported database backends.
const (
	BackendSQLite   = "sqlite"
	BackendMySQL    = "mysql"
	BackendPostgres = "postgres"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat is "text" or "json".
	LogFormat string `koanf:"log_format"`
	// Addr configures the HTTP listen address, e.g. ":8501".
	Addr string `koanf:"addr"`
	// Roster lists the Dedimania logins the dashboard tracks.
	Roster []string `koanf:"roster"`
	// RivalryExcluded lists logins left out of rivalry pairs.
	RivalryExcluded []string `koanf:"rivalry_excluded"`

	Database DatabaseConfig `koanf:"database"`
	Scraper  ScraperConfig  `koanf:"scraper"`
	Server   ServerConfig   `koanf:"server"`
	Report   ReportConfig   `koanf:"report"`
}

// DatabaseConfig selects and configures the record store.
type DatabaseConfig struct {
	// Backend is one of sqlite, mysql, postgres.
	Backend string `koanf:"backend"`
	// DSN is a file path for sqlite or a connection string otherwise.
	DSN string `koanf:"dsn"`
	// AutoMigrate applies pending migrations when the store opens.
	AutoMigrate bool `koanf:"auto_migrate"`
}

// ScraperConfig controls how Dedimania is queried.
type ScraperConfig struct {
	BaseURL   string `koanf:"base_url"`
	Game      string `koanf:"game"`
	UserAgent string `koanf:"user_agent"`
	// Limit is the number of records requested per player page.
	Limit int `koanf:"limit"`
	// RequestDelay is the pause between two requests from one worker.
	RequestDelay time.Duration `koanf:"request_delay"`
	Timeout      time.Duration `koanf:"timeout"`
	// Workers is the number of concurrent player fetches.
	Workers int `koanf:"workers"`
	// ChallengeInfo enables per-track lookups of the total record count.
	ChallengeInfo bool `koanf:"challenge_info"`
	// ServerLookup enables per-record lookups of the server name.
	ServerLookup bool `koanf:"server_lookup"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	// AllowIngest exposes POST /api/ingest.
	AllowIngest bool `koanf:"allow_ingest"`
}

// ReportConfig tunes report windows and thresholds.
type ReportConfig struct {
	// Timezone is the IANA zone used for week boundaries.
	Timezone string `koanf:"timezone"`
	// LeaderboardWeekStart is the weekday the leaderboard week starts on.
	LeaderboardWeekStart string `koanf:"leaderboard_week_start"`
	// WeeklyWeekStart is the weekday the weekly report week starts on.
	WeeklyWeekStart string `koanf:"weekly_week_start"`
	// ServerLookbackDays bounds the server preference analysis.
	ServerLookbackDays int `koanf:"server_lookback_days"`
	// ServerMinRecords hides players with fewer records from server reports.
	ServerMinRecords int `koanf:"server_min_records"`
	// ChampionServer names the server of the weekly server champion award.
	// Empty disables it.
	ChampionServer string `koanf:"champion_server"`
}

// New creates a Config populated with defaults.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:  "info",
		LogFormat: "text",
		Addr:      ":8501",
		Database: DatabaseConfig{
			Backend:     BackendSQLite,
			DSN:         "dedimania_history_master.db",
			AutoMigrate: true,
		},
		Scraper: ScraperConfig{
			BaseURL:       "http://dedimania.net/tmstats/",
			Game:          "TMU",
			UserAgent:     "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36",
			Limit:         100,
			RequestDelay:  time.Second,
			Timeout:       15 * time.Second,
			Workers:       1,
			ChallengeInfo: true,
			ServerLookup:  false,
		},
		Server: ServerConfig{
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Report: ReportConfig{
			Timezone:             "UTC",
			LeaderboardWeekStart: "sunday",
			WeeklyWeekStart:      "thursday",
			ServerLookbackDays:   60,
			ServerMinRecords:     5,
			ChampionServer:       "MiniLol FreeZone",
		},
	}
}

// Location resolves the configured report timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Report.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrUnknownTimezone, c.Report.Timezone, err)
	}
	return loc, nil
}

// Validate checks the loaded configuration.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Addr) == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	switch c.Database.Backend {
	case BackendSQLite, BackendMySQL, BackendPostgres:
	default:
		return fmt.Errorf("%w %q", ErrUnknownBackend, c.Database.Backend)
	}
	if c.Database.Backend != BackendSQLite && c.Database.DSN == "" {
		return fmt.Errorf("%w: database.dsn is required for %s", ErrInvalidConfig, c.Database.Backend)
	}
	if u, err := url.Parse(c.Scraper.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: scraper.base_url %q is not an absolute URL", ErrInvalidConfig, c.Scraper.BaseURL)
	}
	if c.Scraper.Workers < 1 {
		return fmt.Errorf("%w: scraper.workers must be at least 1", ErrInvalidConfig)
	}
	if c.Scraper.Limit < 1 {
		return fmt.Errorf("%w: scraper.limit must be at least 1", ErrInvalidConfig)
	}
	if c.Scraper.RequestDelay < 0 {
		return fmt.Errorf("%w: scraper.request_delay must not be negative", ErrInvalidConfig)
	}
	if _, err := ParseWeekday(c.Report.LeaderboardWeekStart); err != nil {
		return err
	}
	if _, err := ParseWeekday(c.Report.WeeklyWeekStart); err != nil {
		return err
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// ParseWeekday turns an English weekday name into a time.Weekday.
func ParseWeekday(name string) (time.Weekday, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.ToLower(d.String()) == n {
			return d, nil
		}
	}
	return time.Sunday, fmt.Errorf("%w %q", ErrUnknownWeekday, name)
}
