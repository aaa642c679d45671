package content

import (
	"context"

	"gavelogy/internal/domain/models/content"
)

// DraftService is the editor-side lifecycle of the selected document
type DraftService interface {
	// Select makes documentID current and loads it. Results of superseded
	// selections are discarded.
	Select(ctx context.Context, documentID string) error

	// Edit replaces the editor buffer of the current document
	Edit(body string) error

	// SaveDraft persists the editor buffer as the draft
	SaveDraft(ctx context.Context) error

	// Publish promotes the draft to published content
	Publish(ctx context.Context) error

	// DiscardDraft drops the draft and reverts the editor to published content
	DiscardDraft(ctx context.Context) error

	// View returns the read model for the presentation layer
	View() content.DocumentView

	// Close flushes pending recovery snapshots and stops timers
	Close()
}
