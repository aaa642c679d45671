package handler

import (
	"log/slog"
	"net/http"

	models "gavelogy/internal/domain/models/content"
	contentSvc "gavelogy/internal/domain/services/content"
	"gavelogy/internal/httputil"
)

// ChangesHandler exposes the pending change ledger
type ChangesHandler struct {
	ledger contentSvc.ChangeLedger
	logger *slog.Logger
}

// NewChangesHandler creates a new changes handler
func NewChangesHandler(ledger contentSvc.ChangeLedger, logger *slog.Logger) *ChangesHandler {
	return &ChangesHandler{
		ledger: ledger,
		logger: logger,
	}
}

type changesResponse struct {
	Changes    []models.PendingChange `json:"changes"`
	HasChanges bool                   `json:"has_changes"`
}

func (h *ChangesHandler) respondChanges(w http.ResponseWriter, status int) {
	changes := h.ledger.Changes()
	httputil.RespondJSON(w, status, changesResponse{
		Changes:    changes,
		HasChanges: len(changes) > 0,
	})
}

// ListChanges returns pending changes in call order
// GET /api/changes
func (h *ChangesHandler) ListChanges(w http.ResponseWriter, r *http.Request) {
	h.respondChanges(w, http.StatusOK)
}

// AddChange records a change for any registered entity type
// POST /api/changes
func (h *ChangesHandler) AddChange(w http.ResponseWriter, r *http.Request) {
	var req contentSvc.AddChangeRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondParseError(w, err)
		return
	}

	if err := h.ledger.AddChange(req.Action, req.EntityType, req.EntityID, req.Data, req.OriginalData); err != nil {
		handleError(w, err)
		return
	}

	h.respondChanges(w, http.StatusAccepted)
}

// Commit flushes the ledger
// POST /api/changes/commit
func (h *ChangesHandler) Commit(w http.ResponseWriter, r *http.Request) {
	if err := h.ledger.Commit(r.Context()); err != nil {
		handleError(w, err)
		return
	}

	h.respondChanges(w, http.StatusOK)
}

// Discard drops every pending change
// POST /api/changes/discard
func (h *ChangesHandler) Discard(w http.ResponseWriter, r *http.Request) {
	h.ledger.Discard()
	h.respondChanges(w, http.StatusOK)
}
