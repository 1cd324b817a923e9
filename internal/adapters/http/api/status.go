package api

import (
	"context"
	"net/http"

	"github.com/okian/dedidash/internal/domain/types"
)

// StatusDependencies defines the interface for the database status.
type StatusDependencies interface {
	DatabaseStatus(ctx context.Context) (types.DatabaseStatus, error)
}

// StatusHandler handles database status requests.
type StatusHandler struct {
	deps StatusDependencies
}

// NewStatusHandler creates a new status handler.
func NewStatusHandler(deps StatusDependencies) *StatusHandler {
	return &StatusHandler{deps: deps}
}

// HandleGetStatus handles GET /api/status requests.
func (h *StatusHandler) HandleGetStatus(w http.ResponseWriter, r *http.Request) {
	st, err := h.deps.DatabaseStatus(r.Context())
	if err != nil {
		writeFailure(w, "api.get_status", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}
