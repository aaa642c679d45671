package content

import (
	"sort"

	models "gavelogy/internal/domain/models/content"
)

// Project overlays pending changes on persisted items and builds the tree the
// editor should render. Neither input is modified.
//
// scope restricts the result to one course; empty means all courses.
// An item whose parent is missing from the result is shown at the root.
// An item below a deleted item is removed with it.
// A parent cycle is broken at the first item revisited while walking up.
func Project(items []models.StructureItem, changes []models.PendingChange, scope string) []*models.StructureItem {
	flat := make([]models.StructureItem, 0, len(items))
	index := make(map[string]int, len(items))
	for _, item := range items {
		if scope != "" && item.CourseID != scope {
			continue
		}
		if _, dup := index[item.ID]; dup {
			continue
		}
		item.Children = nil
		index[item.ID] = len(flat)
		flat = append(flat, item)
	}

	deleted := make(map[string]bool)
	for _, change := range changes {
		if change.EntityType != models.EntityStructureItem {
			continue
		}
		fields := withoutID(change.Data)

		switch change.Action {
		case models.ActionDelete:
			deleted[change.EntityID] = true
		case models.ActionCreate:
			if i, ok := index[change.EntityID]; ok {
				flat[i].ApplyFields(fields)
				continue
			}
			item := models.StructureItemFromFields(fields)
			item.ID = change.EntityID
			index[item.ID] = len(flat)
			flat = append(flat, item)
		case models.ActionUpdate, models.ActionReorder:
			if i, ok := index[change.EntityID]; ok {
				flat[i].ApplyFields(fields)
			}
		}
	}

	arena := NewArena(flat)
	removed := make(map[string]bool, len(deleted))
	for id := range deleted {
		removed[id] = true
		for _, descendant := range arena.Descendants(id) {
			removed[descendant] = true
		}
	}

	var kept []string
	for _, item := range flat {
		if removed[item.ID] {
			continue
		}
		// A create or update can move an item out of the scope
		if scope != "" && item.CourseID != scope {
			continue
		}
		kept = append(kept, item.ID)
	}

	present := make(map[string]bool, len(kept))
	for _, id := range kept {
		present[id] = true
	}

	parents := make(map[string]string, len(kept))
	for _, id := range kept {
		item, _ := arena.Get(id)
		if item.ParentID != nil && present[*item.ParentID] {
			parents[id] = *item.ParentID
		}
	}
	breakCycles(kept, parents)

	nodes := make(map[string]*models.StructureItem, len(kept))
	for _, id := range kept {
		item, _ := arena.Get(id)
		node := *item
		node.ParentID = nil
		if parent, ok := parents[id]; ok {
			p := parent
			node.ParentID = &p
		}
		nodes[id] = &node
	}

	var roots []*models.StructureItem
	for _, id := range kept {
		node := nodes[id]
		if node.ParentID == nil {
			roots = append(roots, node)
			continue
		}
		parent := nodes[*node.ParentID]
		parent.Children = append(parent.Children, node)
	}

	sortSiblings(roots)
	return roots
}

// breakCycles walks each parent chain once. When a walk reaches an item
// already on its own path, that item is detached.
func breakCycles(order []string, parents map[string]string) {
	settled := make(map[string]bool, len(order))
	for _, start := range order {
		onPath := make(map[string]bool)
		var path []string
		current := start
		for !settled[current] {
			if onPath[current] {
				delete(parents, current)
				break
			}
			onPath[current] = true
			path = append(path, current)
			parent, ok := parents[current]
			if !ok {
				break
			}
			current = parent
		}
		for _, id := range path {
			settled[id] = true
		}
	}
}

func sortSiblings(nodes []*models.StructureItem) {
	sort.SliceStable(nodes, func(i, j int) bool {
		return nodes[i].OrderIndex < nodes[j].OrderIndex
	})
	for _, node := range nodes {
		sortSiblings(node.Children)
	}
}

// Flatten lists a projected tree depth first
func Flatten(roots []*models.StructureItem) []models.StructureItem {
	var out []models.StructureItem
	var walk func(nodes []*models.StructureItem)
	walk = func(nodes []*models.StructureItem) {
		for _, node := range nodes {
			item := *node
			item.Children = nil
			out = append(out, item)
			walk(node.Children)
		}
	}
	walk(roots)
	return out
}

func withoutID(fields models.Fields) models.Fields {
	if _, ok := fields[models.ColumnID]; !ok {
		return fields
	}
	out := fields.Clone()
	delete(out, models.ColumnID)
	return out
}
