package api

import (
	"context"
	"net/http"
	"strings"

	service "github.com/okian/dedidash/internal/app"
	"github.com/okian/dedidash/internal/domain/types"
	"github.com/okian/dedidash/internal/domain/window"
)

// PlayerDependencies defines the interface for player analytics.
type PlayerDependencies interface {
	AnalyticsWindow(q window.Query) (window.Window, error)
	PlayerAnalytics(ctx context.Context, player string, w window.Window) (types.PlayerAnalytics, error)
}

// PlayerHandler handles player analytics requests.
type PlayerHandler struct {
	deps      PlayerDependencies
	coalescer *Coalescer
}

// NewPlayerHandler creates a new player handler.
func NewPlayerHandler(deps PlayerDependencies, c *Coalescer) *PlayerHandler {
	return &PlayerHandler{deps: deps, coalescer: c}
}

// HandleGetPlayer handles GET /api/players/{login} requests. Unknown
// players get an all-zero body, not a 404.
func (h *PlayerHandler) HandleGetPlayer(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_player"
	login := strings.ToLower(strings.TrimSpace(r.PathValue("login")))
	if login == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	q, err := ParseWindowQuery(r.URL.Query())
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	win, err := h.deps.AnalyticsWindow(q)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	pa, err := Coalesce(r.Context(), h.coalescer, service.ReportPlayer, login+"|"+win.String(),
		func(ctx context.Context) (types.PlayerAnalytics, error) {
			return h.deps.PlayerAnalytics(ctx, login, win)
		})
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, pa)
}
