package main

import (
	"context"
	"errors"
	"net/http"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/dedidash/internal/adapters/http/api"
	"github.com/okian/dedidash/internal/adapters/http/site"
	"github.com/okian/dedidash/internal/adapters/http/swagger"
	service "github.com/okian/dedidash/internal/app"
	"github.com/okian/dedidash/pkg/logger"
	"github.com/okian/dedidash/pkg/metrics"
)

const (
	readHeaderTimeout         = 5 * time.Second
	systemMetricsInterval     = 10 * time.Second
	storeMetricsInterval      = 30 * time.Second
	nanosecondsPerMillisecond = 1e6
)

type serveFlags struct {
	addr        string
	allowIngest bool
	ingestEvery time.Duration
	title       string
}

func newServeCmd(c *cli) *cobra.Command {
	f := &serveFlags{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard, JSON API and API docs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("addr") {
				c.cfg.Addr = f.addr
			}
			if cmd.Flags().Changed("allow-ingest") {
				c.cfg.Server.AllowIngest = f.allowIngest
			}
			return c.serve(cmd.Context(), f)
		},
	}
	cmd.Flags().StringVar(&f.addr, "addr", "", "Listen address (overrides config addr)")
	cmd.Flags().BoolVar(&f.allowIngest, "allow-ingest", false, "Expose POST /api/ingest")
	cmd.Flags().DurationVar(&f.ingestEvery, "ingest-every", 0, "Scrape the roster on this interval while serving (0 disables)")
	cmd.Flags().StringVar(&f.title, "title", "dedidash", "Name shown in the page header")
	return cmd
}

func (c *cli) serve(ctx context.Context, f *serveFlags) error {
	store, err := c.openStore(ctx, c.cfg.Database.AutoMigrate, storeMetricsInterval)
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

	go startSystemMetricsUpdater(ctx)
	if f.ingestEvery > 0 {
		go c.ingestLoop(ctx, svc, f.ingestEvery)
	}

	handler, err := c.routes(ctx, svc, f.title)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              c.cfg.Addr,
		Handler:           handler,
		ReadTimeout:       c.cfg.Server.ReadTimeout,
		WriteTimeout:      c.cfg.Server.WriteTimeout,
		IdleTimeout:       c.cfg.Server.IdleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		c.log.Info(ctx, "starting HTTP server",
			logger.String("addr", c.cfg.Addr),
			logger.String("backend", c.cfg.Database.Backend),
			logger.Int("roster", svc.Roster().Len()),
			logger.Bool("allow_ingest", c.cfg.Server.AllowIngest))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}
	c.log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		c.log.Error(ctx, "server shutdown failed", logger.Error(err))
		return err
	}
	c.log.Info(ctx, "server stopped")
	return nil
}

// routes registers the API, pages and docs on one mux. Pages and API share
// a coalescer so a page view and an API call for the same report run once.
func (c *cli) routes(ctx context.Context, svc *service.Service, title string) (http.Handler, error) {
	mux := http.NewServeMux()
	coalescer := api.NewCoalescer()

	swagger.Register(ctx, mux)

	api.NewServer(svc,
		api.WithAllowIngest(c.cfg.Server.AllowIngest),
		api.WithCoalescer(coalescer),
		api.WithLogger(c.log.Named("api")),
	).Register(ctx, mux)

	pages, err := site.New(svc,
		site.WithCoalescer(coalescer),
		site.WithLocation(svc.Location()),
		site.WithTitle(title),
		site.WithLogger(c.log.Named("site")),
	)
	if err != nil {
		return nil, err
	}
	pages.Register(ctx, mux)

	return api.RecoverMiddleware(mux, c.log.Named("http")), nil
}

// ingestLoop scrapes the roster every interval until ctx ends. A run that is
// still going when the next tick fires makes that tick a no-op.
func (c *cli) ingestLoop(ctx context.Context, svc *service.Service, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			run, err := svc.Ingest(ctx, svc.Roster())
			switch {
			case errors.Is(err, service.ErrIngestRunning):
				c.log.Debug(ctx, "previous ingestion still running; skipping tick")
			case err != nil:
				c.log.Error(ctx, "scheduled ingestion failed", logger.Error(err))
			default:
				c.log.Info(ctx, "scheduled ingestion finished",
					logger.String("run_id", run.ID),
					logger.String("status", run.Status),
					logger.Int("written", run.Written))
			}
		}
	}
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}
