// Command dedidash scrapes Dedimania records for a roster of TrackMania
// players, stores them and serves the leaderboard and reports.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/okian/dedidash/internal/adapters/dedimania"
	"github.com/okian/dedidash/internal/adapters/repository"
	service "github.com/okian/dedidash/internal/app"
	"github.com/okian/dedidash/internal/config"
	"github.com/okian/dedidash/internal/domain/roster"
	"github.com/okian/dedidash/pkg/logger"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// Default Go collectors live on the global registry; ours is custom.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

// cli carries what the subcommands share: the loaded config and the flags
// that override it.
type cli struct {
	configPath string
	logLevel   string
	logJSON    bool
	backend    string
	dsn        string
	roster     []string

	cfg *config.Config
	log logger.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:           "dedidash",
		Short:         "TrackMania Dedimania leaderboard for a roster of players",
		Long:          "dedidash scrapes Dedimania player records for a configured roster, keeps their history in SQL and reports leaderboards, weekly deltas and player analytics.",
		Version:       version,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.setup(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&c.configPath, "config", "c", "", "Path to a YAML config file (defaults to $"+config.EnvConfig+")")
	flags.StringVar(&c.logLevel, "log-level", "", "Log level: debug, info, warn or error")
	flags.BoolVar(&c.logJSON, "log-json", false, "Write logs as JSON lines")
	flags.StringVar(&c.backend, "db-backend", "", "Store backend: sqlite, mysql or postgres")
	flags.StringVar(&c.dsn, "db-dsn", "", "Database file or connection string")
	flags.StringSliceVar(&c.roster, "roster", nil, "Comma separated roster logins")

	root.AddCommand(
		newServeCmd(c),
		newFetchCmd(c),
		newLeaderboardCmd(c),
		newWeeklyCmd(c),
		newPlayerCmd(c),
		newServersCmd(c),
		newStatusCmd(c),
		newExportCmd(c),
		newMigrateCmd(c),
		newMCPCmd(c),
	)
	return root
}

// setup loads configuration, applies flag overrides and initialises the
// logger. Logs go to stderr so stdout stays clean for reports and MCP.
func (c *cli) setup(cmd *cobra.Command) error {
	ctx := cmd.Context()
	cfg, err := config.Load(ctx, c.configPath)
	if err != nil {
		return err
	}
	if c.logLevel != "" {
		cfg.LogLevel = c.logLevel
	}
	if c.logJSON {
		cfg.LogFormat = "json"
	}
	if c.backend != "" {
		cfg.Database.Backend = c.backend
	}
	if c.dsn != "" {
		cfg.Database.DSN = c.dsn
	}
	if len(c.roster) > 0 {
		cfg.Roster = config.NormalizeList(c.roster)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := logger.Init(logger.WithWriter(os.Stderr), logger.WithJSON(cfg.LogFormat == "json")); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	c.log = logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		c.log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	c.cfg = cfg
	return nil
}

// openStore connects to the configured database.
func (c *cli) openStore(ctx context.Context, autoMigrate bool, metricsInterval time.Duration) (*repository.SQLStore, error) {
	backend, err := repository.ParseBackend(c.cfg.Database.Backend)
	if err != nil {
		return nil, err
	}
	return repository.NewSQLStore(ctx, backend, c.cfg.Database.DSN,
		repository.WithAutoMigrate(autoMigrate),
		repository.WithMetricsUpdateInterval(metricsInterval),
		repository.WithLogger(c.log.Named("store")),
	)
}

// newService builds the service over store with every configured setting.
func (c *cli) newService(store repository.Store) (*service.Service, error) {
	cfg := c.cfg
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	leaderboardWeek, err := config.ParseWeekday(cfg.Report.LeaderboardWeekStart)
	if err != nil {
		return nil, err
	}
	weeklyWeek, err := config.ParseWeekday(cfg.Report.WeeklyWeekStart)
	if err != nil {
		return nil, err
	}

	client := dedimania.NewClient(
		dedimania.WithBaseURL(cfg.Scraper.BaseURL),
		dedimania.WithGame(cfg.Scraper.Game),
		dedimania.WithUserAgent(cfg.Scraper.UserAgent),
		dedimania.WithLimit(cfg.Scraper.Limit),
		dedimania.WithTimeout(cfg.Scraper.Timeout),
		dedimania.WithLookupDelay(cfg.Scraper.RequestDelay),
		dedimania.WithLocation(loc),
		dedimania.WithLogger(c.log.Named("dedimania")),
	)

	return service.New(store,
		service.WithScraper(client),
		service.WithRoster(roster.New(cfg.Roster...)),
		service.WithRivalryExcluded(roster.New(cfg.RivalryExcluded...)),
		service.WithWorkerCount(cfg.Scraper.Workers),
		service.WithRequestDelay(cfg.Scraper.RequestDelay),
		service.WithChallengeInfo(cfg.Scraper.ChallengeInfo),
		service.WithServerLookup(cfg.Scraper.ServerLookup),
		service.WithLocation(loc),
		service.WithWeekStarts(leaderboardWeek, weeklyWeek),
		service.WithServerDefaults(cfg.Report.ServerLookbackDays, cfg.Report.ServerMinRecords),
		service.WithChampionServer(cfg.Report.ChampionServer),
		service.WithLogger(c.log.Named("service")),
	), nil
}

// withService opens the store, builds the service and closes the store when
// fn returns.
func (c *cli) withService(ctx context.Context, fn func(*service.Service) error) error {
	store, err := c.openStore(ctx, c.cfg.Database.AutoMigrate, 0)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			c.log.Error(ctx, "close store failed", logger.Error(err))
		}
	}()

	svc, err := c.newService(store)
	if err != nil {
		return err
	}
	return fn(svc)
}
