package repositories

import "context"

// RecoveryStore shadows unsaved editor buffers so an accidental document
// switch does not lose keystrokes. Entries are keyed by document ID.
type RecoveryStore interface {
	// Get returns the stored content and whether an entry exists
	Get(ctx context.Context, documentID string) (string, bool, error)

	// Put replaces the entry for documentID
	Put(ctx context.Context, documentID, content string) error

	// Delete removes the entry; deleting a missing entry is not an error
	Delete(ctx context.Context, documentID string) error
}
