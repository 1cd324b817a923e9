// Package service ties the scraper, the record store and the report
// computations together. It is what the HTTP API, the CLI and the MCP
// server call.
package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/okian/dedidash/internal/adapters/repository"
	"github.com/okian/dedidash/internal/domain/roster"
	"github.com/okian/dedidash/internal/domain/scoring"
	"github.com/okian/dedidash/internal/domain/types"
	"github.com/okian/dedidash/pkg/logger"
)

// Default service configuration constants.
const (
	defaultWorkerCount = 1
	defaultQueueSize   = 1024
	defaultDedupeSize  = 50000
	defaultLookback    = 60
	defaultMinRecords  = 5
)

// Scraper is the part of the Dedimania client an ingestion run needs.
type Scraper interface {
	PlayerRecords(ctx context.Context, login string) ([]types.Record, error)
	ChallengeUID(ctx context.Context, name string) (string, error)
	ChallengeRecordCount(ctx context.Context, uid string) (int, error)
	RecordServer(ctx context.Context, login, uid string) (string, error)
}

// Service implements the operations behind every presentation surface.
type Service struct {
	store   repository.Store
	scraper Scraper
	scorer  *scoring.Scorer

	// Configuration
	roster          roster.Roster
	rivalryExcluded roster.Roster
	workerCount     int
	queueSize       int
	dedupeSize      int
	requestDelay    time.Duration
	challengeInfo   bool
	serverLookup    bool
	loc             *time.Location
	leaderboardWeek time.Weekday
	weeklyWeek      time.Weekday
	lookbackDays    int
	minRecords      int
	championServer  string
	now             func() time.Time

	// ingestMu allows one ingestion run at a time.
	ingestMu sync.Mutex

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithScraper sets the Dedimania client used by Ingest.
func WithScraper(sc Scraper) Option {
	return func(s *Service) {
		s.scraper = sc
	}
}

// WithRoster sets the players reports are computed for.
func WithRoster(r roster.Roster) Option {
	return func(s *Service) {
		s.roster = r
	}
}

// WithRivalryExcluded sets logins left out of rivalry pairs.
func WithRivalryExcluded(r roster.Roster) Option {
	return func(s *Service) {
		s.rivalryExcluded = r
	}
}

// WithScorer replaces the default leaderboard scorer.
func WithScorer(sc *scoring.Scorer) Option {
	return func(s *Service) {
		if sc != nil {
			s.scorer = sc
		}
	}
}

// WithWorkerCount sets the number of concurrent player fetches.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the fetch job queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many row keys one run remembers.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithRequestDelay sets the pause between two player fetches of a worker.
func WithRequestDelay(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.requestDelay = d
		}
	}
}

// WithChallengeInfo enables challenge metadata lookups for new tracks.
func WithChallengeInfo(enabled bool) Option {
	return func(s *Service) {
		s.challengeInfo = enabled
	}
}

// WithServerLookup enables per-record server lookups.
func WithServerLookup(enabled bool) Option {
	return func(s *Service) {
		s.serverLookup = enabled
	}
}

// WithLocation sets the zone for calendar days and week boundaries.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithWeekStarts sets the first weekday of leaderboard and weekly report
// weeks.
func WithWeekStarts(leaderboard, weekly time.Weekday) Option {
	return func(s *Service) {
		s.leaderboardWeek = leaderboard
		s.weeklyWeek = weekly
	}
}

// WithServerDefaults sets the lookback and record threshold of server
// reports.
func WithServerDefaults(lookbackDays, minRecords int) Option {
	return func(s *Service) {
		if lookbackDays > 0 {
			s.lookbackDays = lookbackDays
		}
		if minRecords >= 0 {
			s.minRecords = minRecords
		}
	}
}

// WithChampionServer names the server whose tracks earn the weekly server
// champion highlight. An empty name turns the award off.
func WithChampionServer(name string) Option {
	return func(s *Service) {
		s.championServer = strings.TrimSpace(name)
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service over store.
func New(store repository.Store, opts ...Option) *Service {
	s := &Service{
		store:           store,
		scorer:          scoring.New(),
		workerCount:     defaultWorkerCount,
		queueSize:       defaultQueueSize,
		dedupeSize:      defaultDedupeSize,
		requestDelay:    time.Second,
		challengeInfo:   true,
		loc:             time.UTC,
		leaderboardWeek: time.Sunday,
		weeklyWeek:      time.Thursday,
		lookbackDays:    defaultLookback,
		minRecords:      defaultMinRecords,
		now:             time.Now,
		logger:          logger.GetOr(logger.NewNop()).Named("service"),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Roster is the configured roster.
func (s *Service) Roster() roster.Roster { return s.roster }

// Location is the zone reports use for calendar days.
func (s *Service) Location() *time.Location { return s.loc }

// Now is the service clock.
func (s *Service) Now() time.Time { return s.now() }

// Backend names the store backend.
func (s *Service) Backend() string { return string(s.store.Backend()) }

// ServerDefaults returns the configured lookback days and record threshold.
func (s *Service) ServerDefaults() (lookbackDays, minRecords int) {
	return s.lookbackDays, s.minRecords
}

// GetStats returns service settings for monitoring.
func (s *Service) GetStats() map[string]any {
	return map[string]any{
		"backend":        s.Backend(),
		"roster":         s.roster.Len(),
		"workerCount":    s.workerCount,
		"queueSize":      s.queueSize,
		"dedupeSize":     s.dedupeSize,
		"challengeInfo":  s.challengeInfo,
		"serverLookup":   s.serverLookup,
		"ingestEnabled":  s.scraper != nil,
		"timezone":       s.loc.String(),
		"requestDelayMs": s.requestDelay.Milliseconds(),
	}
}
