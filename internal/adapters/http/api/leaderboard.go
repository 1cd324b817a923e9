// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"

	service "github.com/okian/dedidash/internal/app"
	"github.com/okian/dedidash/internal/domain/types"
)

// LeaderboardHandler handles leaderboard and weekly report requests.
type LeaderboardHandler struct {
	deps      ReportDependencies
	coalescer *Coalescer
}

// NewLeaderboardHandler creates a new leaderboard handler.
func NewLeaderboardHandler(deps ReportDependencies, c *Coalescer) *LeaderboardHandler {
	return &LeaderboardHandler{deps: deps, coalescer: c}
}

// HandleGetLeaderboard handles GET /api/leaderboard requests.
func (h *LeaderboardHandler) HandleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_leaderboard"
	q, err := ParseWindowQuery(r.URL.Query())
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	win, err := h.deps.LeaderboardWindow(q)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	lb, err := Coalesce(r.Context(), h.coalescer, service.ReportLeaderboard, win.String(),
		func(ctx context.Context) (types.Leaderboard, error) {
			return h.deps.GenerateLeaderboard(ctx, h.deps.Roster(), win)
		})
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, lb)
}

// HandleGetWeekly handles GET /api/weekly requests.
func (h *LeaderboardHandler) HandleGetWeekly(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_weekly"
	q, err := ParseWindowQuery(r.URL.Query())
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	win, err := h.deps.WeeklyWindow(q)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	report, err := Coalesce(r.Context(), h.coalescer, service.ReportWeekly, win.String(),
		func(ctx context.Context) (types.WeeklyReport, error) {
			return h.deps.GenerateWeeklyReport(ctx, h.deps.Roster(), win)
		})
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
