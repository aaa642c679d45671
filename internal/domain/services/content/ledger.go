package content

import (
	"context"

	"gavelogy/internal/domain/models/content"
)

// ChangeLedger buffers mutations across entity types until an explicit commit
type ChangeLedger interface {
	// AddChange inserts or merges the pending change for (entityType, entityID)
	AddChange(action content.ChangeAction, entityType content.EntityType, entityID string, data, originalData content.Fields) error

	// ChangeForEntity returns the pending change for an entity id, if any
	ChangeForEntity(entityID string) (content.PendingChange, bool)

	// Changes returns a copy of all pending changes in call order
	Changes() []content.PendingChange

	// HasChanges reports whether anything is waiting to be committed
	HasChanges() bool

	// Commit flushes deletes, then creates, then updates. Not transactional.
	Commit(ctx context.Context) error

	// Discard drops every pending change without persistence side effects
	Discard()

	// Subscribe registers a callback run after each successful commit
	Subscribe(fn CommitListener)
}

// CommitListener receives the changes a successful commit persisted
type CommitListener func(committed []content.PendingChange)

// AddChangeRequest is the transport shape of AddChange
type AddChangeRequest struct {
	Action       content.ChangeAction `json:"action"`
	EntityType   content.EntityType   `json:"entity_type"`
	EntityID     string               `json:"entity_id"`
	Data         content.Fields       `json:"data"`
	OriginalData content.Fields       `json:"original_data,omitempty"`
}
