package handler

import "net/http"

// Handlers groups the HTTP handlers mounted by RegisterRoutes
type Handlers struct {
	Health    *HealthHandler
	Structure *StructureHandler
	Changes   *ChangesHandler
	Editor    *EditorHandler
}

// RegisterRoutes mounts every route on mux (Go 1.22+ enhanced patterns)
func RegisterRoutes(mux *http.ServeMux, h Handlers) {
	// Health check
	mux.HandleFunc("GET /health", h.Health.HealthCheck)

	// Structure routes
	mux.HandleFunc("GET /api/courses/{id}/structure", h.Structure.GetTree)
	mux.HandleFunc("POST /api/courses/{id}/structure/items", h.Structure.CreateItem)
	mux.HandleFunc("POST /api/courses/{id}/structure/reorder", h.Structure.ReorderChildren)
	mux.HandleFunc("PATCH /api/structure/items/{id}", h.Structure.UpdateItem)
	mux.HandleFunc("DELETE /api/structure/items/{id}", h.Structure.DeleteItem)

	// Pending change routes
	mux.HandleFunc("GET /api/changes", h.Changes.ListChanges)
	mux.HandleFunc("POST /api/changes", h.Changes.AddChange)
	mux.HandleFunc("POST /api/changes/commit", h.Changes.Commit)
	mux.HandleFunc("POST /api/changes/discard", h.Changes.Discard)

	// Editor routes
	mux.HandleFunc("GET /api/editor", h.Editor.GetView)
	mux.HandleFunc("POST /api/editor/select", h.Editor.Select)
	mux.HandleFunc("PUT /api/editor/content", h.Editor.UpdateContent)
	mux.HandleFunc("POST /api/editor/save-draft", h.Editor.SaveDraft)
	mux.HandleFunc("POST /api/editor/publish", h.Editor.Publish)
	mux.HandleFunc("POST /api/editor/discard", h.Editor.DiscardDraft)
}
