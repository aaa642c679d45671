package handler

import (
	"log/slog"
	"net/http"

	models "gavelogy/internal/domain/models/content"
	contentSvc "gavelogy/internal/domain/services/content"
	"gavelogy/internal/httputil"
)

// StructureHandler handles HTTP requests for course structure trees
type StructureHandler struct {
	structure contentSvc.StructureService
	logger    *slog.Logger
}

// NewStructureHandler creates a new structure handler
func NewStructureHandler(structure contentSvc.StructureService, logger *slog.Logger) *StructureHandler {
	return &StructureHandler{
		structure: structure,
		logger:    logger,
	}
}

// GetTree returns the projected structure of a course, pending changes included
// GET /api/courses/{id}/structure
func (h *StructureHandler) GetTree(w http.ResponseWriter, r *http.Request) {
	courseID := r.PathValue("id")
	if courseID == "" {
		httputil.RespondError(w, http.StatusBadRequest, "Course ID is required")
		return
	}

	tree, err := h.structure.Tree(r.Context(), courseID)
	if err != nil {
		handleError(w, err)
		return
	}
	if tree == nil {
		tree = []*models.StructureItem{}
	}

	httputil.RespondJSON(w, http.StatusOK, tree)
}

// CreateItem buffers a new folder or file
// POST /api/courses/{id}/structure/items
func (h *StructureHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var req contentSvc.CreateItemRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondParseError(w, err)
		return
	}
	req.CourseID = r.PathValue("id")

	item, err := h.structure.CreateItem(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, item)
}

// updateItemDTO is the transport shape of an item PATCH.
// parent_id distinguishes absent (keep) from null (move to root).
type updateItemDTO struct {
	Title      *string                 `json:"title"`
	ParentID   httputil.OptionalString `json:"parent_id"`
	OrderIndex *int                    `json:"order_index"`
}

// UpdateItem buffers a rename and/or move
// PATCH /api/structure/items/{id}
func (h *StructureHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		httputil.RespondError(w, http.StatusBadRequest, "Item ID is required")
		return
	}

	var dto updateItemDTO
	if err := httputil.ParseJSON(w, r, &dto); err != nil {
		httputil.RespondParseError(w, err)
		return
	}

	req := &contentSvc.UpdateItemRequest{
		Title:      dto.Title,
		ParentID:   contentSvc.OptionalParent{Present: dto.ParentID.Present, Value: dto.ParentID.Value},
		OrderIndex: dto.OrderIndex,
	}

	item, err := h.structure.UpdateItem(r.Context(), id, req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, item)
}

// ReorderChildren assigns sibling order
// POST /api/courses/{id}/structure/reorder
func (h *StructureHandler) ReorderChildren(w http.ResponseWriter, r *http.Request) {
	var req contentSvc.ReorderRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondParseError(w, err)
		return
	}
	req.CourseID = r.PathValue("id")

	if err := h.structure.ReorderChildren(r.Context(), &req); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// DeleteItem buffers deletes for an item and its descendants
// DELETE /api/structure/items/{id}
func (h *StructureHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		httputil.RespondError(w, http.StatusBadRequest, "Item ID is required")
		return
	}

	ids, err := h.structure.DeleteItem(r.Context(), id)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"deleted_ids": ids,
	})
}
