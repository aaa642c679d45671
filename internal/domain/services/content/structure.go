package content

import (
	"context"

	"gavelogy/internal/domain/models/content"
)

// StructureService renders course structure trees and turns structural
// edits into pending changes
type StructureService interface {
	// Tree returns the projected tree for a course, loading persisted items on first use
	Tree(ctx context.Context, courseID string) ([]*content.StructureItem, error)

	// CreateItem buffers a new item; it is visible in Tree before commit
	CreateItem(ctx context.Context, req *CreateItemRequest) (*content.StructureItem, error)

	// UpdateItem buffers a rename and/or move
	UpdateItem(ctx context.Context, id string, req *UpdateItemRequest) (*content.StructureItem, error)

	// ReorderChildren assigns order indexes following the given id order
	ReorderChildren(ctx context.Context, req *ReorderRequest) error

	// DeleteItem buffers deletes for the item and every descendant.
	// Returns the ids marked for deletion.
	DeleteItem(ctx context.Context, id string) ([]string, error)

	// Invalidate drops the cached persisted items of a course
	Invalidate(courseID string)
}

// CreateItemRequest represents an item creation request
type CreateItemRequest struct {
	CourseID string           `json:"course_id"`
	ParentID *string          `json:"parent_id,omitempty"` // null for root
	ItemType content.ItemType `json:"item_type"`
	Title    string           `json:"title"`
}

// OptionalParent tracks tri-state semantics for parent updates.
// Transport-agnostic: the handler maps it from httputil.OptionalString.
//   - Present=false: don't move
//   - Present=true, Value=nil: move to root
//   - Present=true, Value=&id: move under id
type OptionalParent struct {
	Present bool
	Value   *string
}

// UpdateItemRequest represents a rename and/or move
type UpdateItemRequest struct {
	Title      *string        `json:"title,omitempty"`
	ParentID   OptionalParent `json:"-"` // mapped from handler DTO
	OrderIndex *int           `json:"order_index,omitempty"`
}

// ReorderRequest lists sibling ids in their new order
type ReorderRequest struct {
	CourseID   string   `json:"course_id"`
	ParentID   *string  `json:"parent_id,omitempty"`
	OrderedIDs []string `json:"ordered_ids"`
}
