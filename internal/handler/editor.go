package handler

import (
	"log/slog"
	"net/http"

	contentSvc "gavelogy/internal/domain/services/content"
	"gavelogy/internal/httputil"
)

// EditorHandler drives the draft/publish lifecycle of the selected document.
// Every action answers with the current editor view.
type EditorHandler struct {
	drafts contentSvc.DraftService
	logger *slog.Logger
}

// NewEditorHandler creates a new editor handler
func NewEditorHandler(drafts contentSvc.DraftService, logger *slog.Logger) *EditorHandler {
	return &EditorHandler{
		drafts: drafts,
		logger: logger,
	}
}

type selectRequest struct {
	DocumentID string `json:"document_id"`
}

type contentRequest struct {
	Content string `json:"content"`
}

func (h *EditorHandler) respondView(w http.ResponseWriter) {
	httputil.RespondJSON(w, http.StatusOK, h.drafts.View())
}

// GetView returns the editor read model
// GET /api/editor
func (h *EditorHandler) GetView(w http.ResponseWriter, r *http.Request) {
	h.respondView(w)
}

// Select loads a document into the editor
// POST /api/editor/select
func (h *EditorHandler) Select(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondParseError(w, err)
		return
	}

	if err := h.drafts.Select(r.Context(), req.DocumentID); err != nil {
		handleError(w, err)
		return
	}
	h.respondView(w)
}

// UpdateContent replaces the editor buffer
// PUT /api/editor/content
func (h *EditorHandler) UpdateContent(w http.ResponseWriter, r *http.Request) {
	var req contentRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondParseError(w, err)
		return
	}

	if err := h.drafts.Edit(req.Content); err != nil {
		handleError(w, err)
		return
	}
	h.respondView(w)
}

// SaveDraft persists the editor buffer as a draft
// POST /api/editor/save-draft
func (h *EditorHandler) SaveDraft(w http.ResponseWriter, r *http.Request) {
	if err := h.drafts.SaveDraft(r.Context()); err != nil {
		handleError(w, err)
		return
	}
	h.respondView(w)
}

// Publish promotes the draft
// POST /api/editor/publish
func (h *EditorHandler) Publish(w http.ResponseWriter, r *http.Request) {
	if err := h.drafts.Publish(r.Context()); err != nil {
		handleError(w, err)
		return
	}
	h.respondView(w)
}

// DiscardDraft reverts the editor to published content
// POST /api/editor/discard
func (h *EditorHandler) DiscardDraft(w http.ResponseWriter, r *http.Request) {
	if err := h.drafts.DiscardDraft(r.Context()); err != nil {
		handleError(w, err)
		return
	}
	h.respondView(w)
}
