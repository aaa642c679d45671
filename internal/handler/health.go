package handler

import (
	"net/http"
	"time"

	contentSvc "gavelogy/internal/domain/services/content"
	"gavelogy/internal/httputil"
)

// HealthHandler reports liveness and whether unsaved structural changes exist
type HealthHandler struct {
	ledger contentSvc.ChangeLedger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(ledger contentSvc.ChangeLedger) *HealthHandler {
	return &HealthHandler{ledger: ledger}
}

// HealthCheck returns service status
// GET /health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"status":          "ok",
		"time":            time.Now(),
		"pending_changes": h.ledger.HasChanges(),
	})
}
