package service

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/dedidash/internal/domain/roster"
	"github.com/okian/dedidash/internal/domain/stats"
	"github.com/okian/dedidash/internal/domain/types"
	"github.com/okian/dedidash/internal/domain/window"
	"github.com/okian/dedidash/pkg/metrics"
)

// Report names used in metrics and caches.
const (
	ReportLeaderboard = "leaderboard"
	ReportWeekly      = "weekly"
	ReportPlayer      = "player"
	ReportServers     = "servers"
	ReportServer      = "server"
	ReportStatus      = "status"
)

func (s *Service) resolve(q window.Query, weekStart time.Weekday) (window.Window, error) {
	return q.Resolve(s.now(), weekStart, s.loc)
}

// LeaderboardWindow resolves q against the leaderboard week.
func (s *Service) LeaderboardWindow(q window.Query) (window.Window, error) {
	return s.resolve(q, s.leaderboardWeek)
}

// WeeklyWindow resolves q against the weekly report week.
func (s *Service) WeeklyWindow(q window.Query) (window.Window, error) {
	return s.resolve(q, s.weeklyWeek)
}

// AnalyticsWindow resolves q for player analytics; no bounds means all time.
func (s *Service) AnalyticsWindow(q window.Query) (window.Window, error) {
	if q.IsZero() {
		return window.All(), nil
	}
	return s.resolve(q, s.leaderboardWeek)
}

// snapshot reads the store once for a report and times the computation.
func (s *Service) snapshot(ctx context.Context, report string) (stats.Snapshot, func(), error) {
	start := time.Now()
	snap, err := s.store.Snapshot(ctx)
	if err != nil {
		metrics.RecordErrorByComponent("service", report)
		return stats.Snapshot{}, nil, fmt.Errorf("%s: read snapshot: %w", report, err)
	}
	done := func() {
		metrics.RecordReport(report, float64(time.Since(start).Milliseconds()))
	}
	return snap, done, nil
}

// GenerateLeaderboard ranks the roster over w. Players outside r never
// appear. Trends compare a leaderboard week with the whole week before it.
func (s *Service) GenerateLeaderboard(ctx context.Context, r roster.Roster, w window.Window) (types.Leaderboard, error) {
	snap, done, err := s.snapshot(ctx, ReportLeaderboard)
	if err != nil {
		return types.Leaderboard{}, err
	}
	defer done()

	lb := stats.LeaderboardAgainst(snap, r, w, w.PriorWeek(s.leaderboardWeek, s.loc), s.scorer)
	lb.GeneratedAt = s.now().UTC()
	return lb, nil
}

// GenerateWeeklyReport compares w with the window of equal length before it.
func (s *Service) GenerateWeeklyReport(ctx context.Context, r roster.Roster, w window.Window) (types.WeeklyReport, error) {
	snap, done, err := s.snapshot(ctx, ReportWeekly)
	if err != nil {
		return types.WeeklyReport{}, err
	}
	defer done()

	report := stats.Weekly(snap, r, w, stats.WeeklyOptions{
		RivalryExcluded: s.rivalryExcluded,
		Location:        s.loc,
		ChampionServer:  s.championServer,
	})
	report.GeneratedAt = s.now().UTC()
	return report, nil
}

// PlayerAnalytics summarises one player over w. Unknown players get an
// all-zero result.
func (s *Service) PlayerAnalytics(ctx context.Context, player string, w window.Window) (types.PlayerAnalytics, error) {
	snap, done, err := s.snapshot(ctx, ReportPlayer)
	if err != nil {
		return types.PlayerAnalytics{}, err
	}
	defer done()

	return stats.PlayerAnalytics(snap, player, w, s.loc), nil
}

// ServerPreferences breaks down where roster players drove over the last
// lookbackDays days. Non-positive arguments fall back to configured
// defaults.
func (s *Service) ServerPreferences(ctx context.Context, r roster.Roster, lookbackDays, minRecords int) (types.ServerPreferences, error) {
	lookbackDays, minRecords = s.serverArgs(lookbackDays, minRecords)
	snap, done, err := s.snapshot(ctx, ReportServers)
	if err != nil {
		return types.ServerPreferences{}, err
	}
	defer done()

	w := window.LastDays(s.now(), lookbackDays, s.loc)
	return stats.ServerPreferences(snap, r, w, minRecords, s.loc), nil
}

// ServerActivity lists who drove on server over the last lookbackDays days.
func (s *Service) ServerActivity(ctx context.Context, server string, lookbackDays, minRecords int) (types.ServerActivity, error) {
	lookbackDays, minRecords = s.serverArgs(lookbackDays, minRecords)
	snap, done, err := s.snapshot(ctx, ReportServer)
	if err != nil {
		return types.ServerActivity{}, err
	}
	defer done()

	w := window.LastDays(s.now(), lookbackDays, s.loc)
	return stats.ServerActivity(snap, server, w, minRecords, s.loc), nil
}

func (s *Service) serverArgs(lookbackDays, minRecords int) (int, int) {
	if lookbackDays <= 0 {
		lookbackDays = s.lookbackDays
	}
	if minRecords <= 0 {
		minRecords = s.minRecords
	}
	return lookbackDays, minRecords
}

// DatabaseStatus summarises what the store holds.
func (s *Service) DatabaseStatus(ctx context.Context) (types.DatabaseStatus, error) {
	start := time.Now()
	st, err := s.store.Status(ctx)
	if err != nil {
		metrics.RecordErrorByComponent("service", ReportStatus)
		return st, fmt.Errorf("%s: %w", ReportStatus, err)
	}
	metrics.RecordReport(ReportStatus, float64(time.Since(start).Milliseconds()))
	return st, nil
}

// Records returns the captured history inside w, restricted to r unless r
// is empty.
func (s *Service) Records(ctx context.Context, r roster.Roster, w window.Window) ([]types.Record, error) {
	snap, err := s.store.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("records: read snapshot: %w", err)
	}
	recs := stats.InWindow(snap.History, w)
	if !r.Empty() {
		recs = r.Filter(recs)
	}
	return recs, nil
}
