package content

import (
	"time"
)

// ChangeAction is the kind of mutation a pending change carries
type ChangeAction string

const (
	ActionCreate  ChangeAction = "create"
	ActionUpdate  ChangeAction = "update"
	ActionDelete  ChangeAction = "delete"
	ActionReorder ChangeAction = "reorder"
)

// EntityType identifies which kind of record a change targets.
// The table behind each type is resolved by the entity registry.
type EntityType string

const (
	EntityCourse        EntityType = "course"
	EntityStructureItem EntityType = "structure_item"
	EntityQuiz          EntityType = "quiz"
	EntityQuizQuestion  EntityType = "quiz_question"
)

// Fields is a partial record: column name to value
type Fields map[string]interface{}

// Clone returns a shallow copy (nil stays nil)
func (f Fields) Clone() Fields {
	if f == nil {
		return nil
	}
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Merge returns the shallow union of f and other; keys in other win.
func (f Fields) Merge(other Fields) Fields {
	out := make(Fields, len(f)+len(other))
	for k, v := range f {
		out[k] = v
	}
	for k, v := range other {
		out[k] = v
	}
	return out
}

// PendingChange is a buffered, not-yet-persisted mutation
type PendingChange struct {
	ID           string       `json:"id"`
	Action       ChangeAction `json:"action"`
	EntityType   EntityType   `json:"entity_type"`
	EntityID     string       `json:"entity_id"`
	Data         Fields       `json:"data"`
	OriginalData Fields       `json:"original_data,omitempty"`
	Timestamp    time.Time    `json:"timestamp"`
}

// Clone copies the change including its field maps
func (c PendingChange) Clone() PendingChange {
	c.Data = c.Data.Clone()
	c.OriginalData = c.OriginalData.Clone()
	return c
}
