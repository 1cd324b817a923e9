package api

import (
	"context"
	"net/http"
	"time"

	"github.com/okian/dedidash/internal/domain/roster"
	"github.com/okian/dedidash/internal/domain/types"
	"github.com/okian/dedidash/pkg/logger"
)

// IngestDependencies defines the interface for triggering an ingestion run.
type IngestDependencies interface {
	Roster() roster.Roster
	Ingest(ctx context.Context, r roster.Roster) (types.IngestRun, error)
}

// IngestHandler handles ingestion requests.
type IngestHandler struct {
	deps    IngestDependencies
	allowed bool
	logger  logger.Logger
}

// NewIngestHandler creates a new ingest handler. A disabled handler answers
// 403 to every request.
func NewIngestHandler(deps IngestDependencies, allowed bool, l logger.Logger) *IngestHandler {
	return &IngestHandler{deps: deps, allowed: allowed, logger: l}
}

// HandlePostIngest handles POST /api/ingest requests. The run is
// synchronous; the response carries its summary.
func (h *IngestHandler) HandlePostIngest(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_ingest"
	if !h.allowed {
		writeFailure(w, op, ErrIngestDisabled)
		return
	}
	// A run over a large roster outlasts the server write timeout.
	if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil {
		h.logger.Debug(r.Context(), "cannot lift write deadline", logger.Error(err))
	}

	run, err := h.deps.Ingest(r.Context(), h.deps.Roster())
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	h.logger.Info(r.Context(), "ingestion triggered over HTTP",
		logger.String("run_id", run.ID), logger.String("status", run.Status))
	writeJSON(w, http.StatusOK, run)
}
