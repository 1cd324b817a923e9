package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	service "github.com/okian/dedidash/internal/app"
	"github.com/okian/dedidash/internal/domain/roster"
	"github.com/okian/dedidash/internal/domain/types"
)

// ServerDependencies defines the interface for server reports.
type ServerDependencies interface {
	Roster() roster.Roster
	ServerPreferences(ctx context.Context, r roster.Roster, lookbackDays, minRecords int) (types.ServerPreferences, error)
	ServerActivity(ctx context.Context, server string, lookbackDays, minRecords int) (types.ServerActivity, error)
}

// ServerHandler handles server report requests.
type ServerHandler struct {
	deps      ServerDependencies
	coalescer *Coalescer
}

// NewServerHandler creates a new server handler.
func NewServerHandler(deps ServerDependencies, c *Coalescer) *ServerHandler {
	return &ServerHandler{deps: deps, coalescer: c}
}

// HandleGetServers handles GET /api/servers?days=N&min_records=M requests.
func (h *ServerHandler) HandleGetServers(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_servers"
	days, minRecords, err := ParseServerArgs(r.URL.Query())
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	key := fmt.Sprintf("%d|%d", days, minRecords)
	prefs, err := Coalesce(r.Context(), h.coalescer, service.ReportServers, key,
		func(ctx context.Context) (types.ServerPreferences, error) {
			return h.deps.ServerPreferences(ctx, h.deps.Roster(), days, minRecords)
		})
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, prefs)
}

// HandleGetServer handles GET /api/servers/{server} requests.
func (h *ServerHandler) HandleGetServer(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_server"
	server := strings.TrimSpace(r.PathValue("server"))
	if server == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	days, minRecords, err := ParseServerArgs(r.URL.Query())
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	key := fmt.Sprintf("%s|%d|%d", strings.ToLower(server), days, minRecords)
	act, err := Coalesce(r.Context(), h.coalescer, service.ReportServer, key,
		func(ctx context.Context) (types.ServerActivity, error) {
			return h.deps.ServerActivity(ctx, server, days, minRecords)
		})
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, act)
}
