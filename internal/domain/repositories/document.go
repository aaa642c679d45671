package repositories

import (
	"context"

	"gavelogy/internal/domain/models/content"
)

// DocumentStore reads and writes the persisted snapshots of a document:
// the published body and the explicitly saved draft.
type DocumentStore interface {
	// Fetch returns the published body and the draft, if any
	Fetch(ctx context.Context, documentID string) (*content.DocumentContent, error)

	// UpsertDraft creates or replaces the draft
	UpsertDraft(ctx context.Context, documentID, body string) error

	// Publish overwrites the published body and removes the draft
	Publish(ctx context.Context, documentID, body string) error

	// DeleteDraft removes the draft; a missing draft is not an error
	DeleteDraft(ctx context.Context, documentID string) error
}
