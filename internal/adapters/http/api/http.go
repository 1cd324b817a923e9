// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/goccy/go-json"

	service "github.com/okian/dedidash/internal/app"
	"github.com/okian/dedidash/internal/domain/roster"
	"github.com/okian/dedidash/internal/domain/types"
	"github.com/okian/dedidash/internal/domain/window"
	"github.com/okian/dedidash/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	ReportDependencies
	PlayerDependencies
	ServerDependencies
	StatusDependencies
	IngestDependencies
	StatsProvider
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	leaderboardHandler *LeaderboardHandler
	playerHandler      *PlayerHandler
	serverHandler      *ServerHandler
	statusHandler      *StatusHandler
	ingestHandler      *IngestHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	cfg := options{
		coalescer: NewCoalescer(),
		logger:    logger.GetOr(logger.NewNop()).Named("api"),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(deps),
		leaderboardHandler: NewLeaderboardHandler(deps, cfg.coalescer),
		playerHandler:      NewPlayerHandler(deps, cfg.coalescer),
		serverHandler:      NewServerHandler(deps, cfg.coalescer),
		statusHandler:      NewStatusHandler(deps),
		ingestHandler:      NewIngestHandler(deps, cfg.allowIngest, cfg.logger),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /metrics", MetricsMiddleware(s.healthHandler.HandleHealth, "metrics"))
	mux.HandleFunc("GET /api/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("GET /api/leaderboard", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard"))
	mux.HandleFunc("GET /api/weekly", MetricsMiddleware(s.leaderboardHandler.HandleGetWeekly, "weekly"))
	mux.HandleFunc("GET /api/players/{login}", MetricsMiddleware(s.playerHandler.HandleGetPlayer, "player"))
	mux.HandleFunc("GET /api/servers", MetricsMiddleware(s.serverHandler.HandleGetServers, "servers"))
	mux.HandleFunc("GET /api/servers/{server}", MetricsMiddleware(s.serverHandler.HandleGetServer, "server"))
	mux.HandleFunc("GET /api/status", MetricsMiddleware(s.statusHandler.HandleGetStatus, "status"))
	mux.HandleFunc("POST /api/ingest", MetricsMiddleware(s.ingestHandler.HandlePostIngest, "ingest"))
}

// ReportDependencies produce the roster reports.
type ReportDependencies interface {
	Roster() roster.Roster
	LeaderboardWindow(q window.Query) (window.Window, error)
	WeeklyWindow(q window.Query) (window.Window, error)
	GenerateLeaderboard(ctx context.Context, r roster.Roster, w window.Window) (types.Leaderboard, error)
	GenerateWeeklyReport(ctx context.Context, r roster.Roster, w window.Window) (types.WeeklyReport, error)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeFailure maps an operation error to its HTTP status and error code.
func writeFailure(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrBadRequest), errors.Is(err, window.ErrInvalidWindow):
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
	case errors.Is(err, ErrIngestDisabled), errors.Is(err, service.ErrNoScraper):
		writeError(w, http.StatusForbidden, "ingest_disabled", Wrap(op, err))
	case errors.Is(err, service.ErrIngestRunning):
		writeError(w, http.StatusConflict, "ingest_running", Wrap(op, err))
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "unavailable", Wrap(op, err))
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
	}
}
