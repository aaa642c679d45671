package content

import (
	models "gavelogy/internal/domain/models/content"
)

// Arena is a flat, id-keyed view of structure items. Children are derived
// from parent ids on demand, so there are no child slices to keep in sync.
type Arena struct {
	items map[string]*models.StructureItem
	order []string
}

// NewArena indexes items by id, keeping their flat order
func NewArena(items []models.StructureItem) *Arena {
	a := &Arena{items: make(map[string]*models.StructureItem, len(items))}
	for i := range items {
		item := items[i]
		item.Children = nil
		if _, dup := a.items[item.ID]; !dup {
			a.order = append(a.order, item.ID)
		}
		a.items[item.ID] = &item
	}
	return a
}

// Get returns the item with the given id
func (a *Arena) Get(id string) (*models.StructureItem, bool) {
	item, ok := a.items[id]
	return item, ok
}

// Len returns the number of items
func (a *Arena) Len() int {
	return len(a.order)
}

// Children returns direct children of parentID (nil for roots) in flat order
func (a *Arena) Children(parentID *string) []*models.StructureItem {
	var out []*models.StructureItem
	for _, id := range a.order {
		item := a.items[id]
		if sameParent(item.ParentID, parentID) {
			out = append(out, item)
		}
	}
	return out
}

// Descendants returns every id below id, breadth first. Cycles are tolerated.
func (a *Arena) Descendants(id string) []string {
	children := a.childIndex()
	visited := map[string]bool{id: true}
	var out []string
	queue := []string{id}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, child := range children[current] {
			if visited[child] {
				continue
			}
			visited[child] = true
			out = append(out, child)
			queue = append(queue, child)
		}
	}
	return out
}

// IsAncestor reports whether ancestorID appears on the parent chain of id
func (a *Arena) IsAncestor(ancestorID, id string) bool {
	visited := make(map[string]bool)
	current, ok := a.items[id]
	for ok && current.ParentID != nil {
		parent := *current.ParentID
		if parent == ancestorID {
			return true
		}
		if visited[parent] {
			return false
		}
		visited[parent] = true
		current, ok = a.items[parent]
	}
	return false
}

// CanMove reports whether id may be placed under newParentID without
// becoming its own ancestor
func (a *Arena) CanMove(id string, newParentID *string) bool {
	if newParentID == nil {
		return true
	}
	if *newParentID == id {
		return false
	}
	return !a.IsAncestor(id, *newParentID)
}

// NextOrderIndex returns the index that appends after the last child of parentID
func (a *Arena) NextOrderIndex(parentID *string) int {
	next := 0
	for _, child := range a.Children(parentID) {
		if child.OrderIndex >= next {
			next = child.OrderIndex + 1
		}
	}
	return next
}

func (a *Arena) childIndex() map[string][]string {
	index := make(map[string][]string)
	for _, id := range a.order {
		if parent := a.items[id].ParentID; parent != nil {
			index[*parent] = append(index[*parent], id)
		}
	}
	return index
}

func sameParent(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
