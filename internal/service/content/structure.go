package content

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"gavelogy/internal/config"
	"gavelogy/internal/domain"
	models "gavelogy/internal/domain/models/content"
	"gavelogy/internal/domain/repositories"
	contentSvc "gavelogy/internal/domain/services/content"
	"gavelogy/internal/entities"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
)

// structureService implements the StructureService interface
type structureService struct {
	gateway repositories.Gateway
	ledger  contentSvc.ChangeLedger
	table   string
	logger  *slog.Logger

	mu    sync.Mutex
	cache map[string][]models.StructureItem // course id -> persisted items
}

// NewStructureService creates a structure service and subscribes it to ledger
// commits so its cache follows persisted state without refetching
func NewStructureService(
	gateway repositories.Gateway,
	ledger contentSvc.ChangeLedger,
	registry *entities.Registry,
	logger *slog.Logger,
) (contentSvc.StructureService, error) {
	table, err := registry.TableFor(models.EntityStructureItem)
	if err != nil {
		return nil, err
	}
	s := &structureService{
		gateway: gateway,
		ledger:  ledger,
		table:   table,
		logger:  logger,
		cache:   make(map[string][]models.StructureItem),
	}
	ledger.Subscribe(s.applyCommitted)
	return s, nil
}

// Tree returns the projected tree for a course
func (s *structureService) Tree(ctx context.Context, courseID string) ([]*models.StructureItem, error) {
	if courseID == "" {
		return nil, &domain.ValidationError{Message: "course_id is required"}
	}
	items, err := s.persisted(ctx, courseID)
	if err != nil {
		return nil, err
	}
	return Project(items, s.ledger.Changes(), courseID), nil
}

// CreateItem buffers a new item appended after its future siblings
func (s *structureService) CreateItem(ctx context.Context, req *contentSvc.CreateItemRequest) (*models.StructureItem, error) {
	if err := s.validateCreateRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	// Normalize empty string parent_id to nil for root-level items
	if req.ParentID != nil && *req.ParentID == "" {
		req.ParentID = nil
	}

	arena, err := s.projectedArena(ctx, req.CourseID)
	if err != nil {
		return nil, err
	}
	if req.ParentID != nil {
		if err := requireFolder(arena, *req.ParentID); err != nil {
			return nil, err
		}
	}

	item := &models.StructureItem{
		ID:         uuid.New().String(),
		CourseID:   req.CourseID,
		ParentID:   req.ParentID,
		ItemType:   req.ItemType,
		Title:      req.Title,
		OrderIndex: arena.NextOrderIndex(req.ParentID),
	}

	data := item.Fields()
	delete(data, models.ColumnID)
	if err := s.ledger.AddChange(models.ActionCreate, models.EntityStructureItem, item.ID, data, nil); err != nil {
		return nil, err
	}

	s.logger.Info("structure item created",
		"id", item.ID,
		"course_id", item.CourseID,
		"parent_id", item.ParentID,
		"item_type", item.ItemType,
	)
	return item, nil
}

func (s *structureService) validateCreateRequest(req *contentSvc.CreateItemRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.CourseID, validation.Required),
		validation.Field(&req.ItemType,
			validation.Required,
			validation.In(models.ItemFolder, models.ItemFile),
		),
		validation.Field(&req.Title,
			validation.Required,
			validation.Length(1, config.MaxTitleLength),
		),
	)
}

// UpdateItem buffers a rename, a move, or an explicit order index
func (s *structureService) UpdateItem(ctx context.Context, id string, req *contentSvc.UpdateItemRequest) (*models.StructureItem, error) {
	if err := s.validateUpdateRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	courseID, err := s.locate(ctx, id)
	if err != nil {
		return nil, err
	}
	arena, err := s.projectedArena(ctx, courseID)
	if err != nil {
		return nil, err
	}
	current, ok := arena.Get(id)
	if !ok {
		return nil, &domain.NotFoundError{Message: fmt.Sprintf("structure item not found: %s", id)}
	}

	data := models.Fields{}
	original := models.Fields{}

	if req.Title != nil && *req.Title != current.Title {
		data[models.ColumnTitle] = *req.Title
		original[models.ColumnTitle] = current.Title
	}

	if req.ParentID.Present {
		newParent := req.ParentID.Value
		if newParent != nil && *newParent == "" {
			newParent = nil
		}
		if !sameParent(newParent, current.ParentID) {
			if newParent != nil {
				if err := requireFolder(arena, *newParent); err != nil {
					return nil, err
				}
			}
			if !arena.CanMove(id, newParent) {
				return nil, &domain.ValidationError{
					Message: "cannot move an item into itself or one of its descendants",
				}
			}
			if newParent != nil {
				data[models.ColumnParentID] = *newParent
			} else {
				data[models.ColumnParentID] = nil
			}
			original[models.ColumnParentID] = current.Fields()[models.ColumnParentID]
			data[models.ColumnOrderIndex] = arena.NextOrderIndex(newParent)
			original[models.ColumnOrderIndex] = current.OrderIndex
		}
	}

	if req.OrderIndex != nil {
		data[models.ColumnOrderIndex] = *req.OrderIndex
		original[models.ColumnOrderIndex] = current.OrderIndex
	}

	updated := *current
	if len(data) == 0 {
		return &updated, nil
	}

	if err := s.ledger.AddChange(models.ActionUpdate, models.EntityStructureItem, id, data, original); err != nil {
		return nil, err
	}
	updated.ApplyFields(data)

	s.logger.Debug("structure item updated", "id", id, "fields", len(data))
	return &updated, nil
}

func (s *structureService) validateUpdateRequest(req *contentSvc.UpdateItemRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.Title,
			validation.NilOrNotEmpty,
			validation.Length(1, config.MaxTitleLength),
		),
		validation.Field(&req.OrderIndex, validation.Min(0)),
	)
}

// ReorderChildren gives the listed siblings consecutive order indexes.
// Siblings left out of the list keep their relative order after the listed ones.
func (s *structureService) ReorderChildren(ctx context.Context, req *contentSvc.ReorderRequest) error {
	if err := validation.ValidateStruct(req,
		validation.Field(&req.CourseID, validation.Required),
		validation.Field(&req.OrderedIDs, validation.Required),
	); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	if req.ParentID != nil && *req.ParentID == "" {
		req.ParentID = nil
	}

	arena, err := s.projectedArena(ctx, req.CourseID)
	if err != nil {
		return err
	}

	siblings := arena.Children(req.ParentID)
	byID := make(map[string]*models.StructureItem, len(siblings))
	for _, sibling := range siblings {
		byID[sibling.ID] = sibling
	}

	listed := make(map[string]bool, len(req.OrderedIDs))
	ordered := make([]*models.StructureItem, 0, len(siblings))
	for _, id := range req.OrderedIDs {
		item, ok := byID[id]
		if !ok {
			return &domain.ValidationError{Message: fmt.Sprintf("item %s is not a child of the given parent", id)}
		}
		if listed[id] {
			return &domain.ValidationError{Message: fmt.Sprintf("item %s is listed twice", id)}
		}
		listed[id] = true
		ordered = append(ordered, item)
	}
	// arena children come in flat order; keep the projected sibling order for the rest
	rest := make([]*models.StructureItem, 0, len(siblings))
	for _, sibling := range siblings {
		if !listed[sibling.ID] {
			rest = append(rest, sibling)
		}
	}
	sortSiblings(rest)
	ordered = append(ordered, rest...)

	changed := 0
	for i, item := range ordered {
		if item.OrderIndex == i {
			continue
		}
		if err := s.ledger.AddChange(models.ActionReorder, models.EntityStructureItem, item.ID,
			models.Fields{models.ColumnOrderIndex: i},
			models.Fields{models.ColumnOrderIndex: item.OrderIndex},
		); err != nil {
			return err
		}
		changed++
	}

	s.logger.Debug("structure items reordered", "course_id", req.CourseID, "parent_id", req.ParentID, "changed", changed)
	return nil
}

// DeleteItem marks the item and every projected descendant for deletion
func (s *structureService) DeleteItem(ctx context.Context, id string) ([]string, error) {
	courseID, err := s.locate(ctx, id)
	if err != nil {
		return nil, err
	}
	arena, err := s.projectedArena(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if _, ok := arena.Get(id); !ok {
		return nil, &domain.NotFoundError{Message: fmt.Sprintf("structure item not found: %s", id)}
	}

	ids := append([]string{id}, arena.Descendants(id)...)
	for _, target := range ids {
		item, _ := arena.Get(target)
		if err := s.ledger.AddChange(models.ActionDelete, models.EntityStructureItem, target, nil, item.Fields()); err != nil {
			return nil, err
		}
	}

	s.logger.Info("structure item deleted", "id", id, "course_id", courseID, "cascade", len(ids)-1)
	return ids, nil
}

// Invalidate drops the cached persisted items of a course
func (s *structureService) Invalidate(courseID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cache, courseID)
}

// persisted returns the cached persisted items of a course, loading them once
func (s *structureService) persisted(ctx context.Context, courseID string) ([]models.StructureItem, error) {
	s.mu.Lock()
	items, ok := s.cache[courseID]
	s.mu.Unlock()
	if ok {
		return items, nil
	}

	rows, err := s.gateway.SelectWhere(ctx, s.table,
		repositories.Where(repositories.Eq(models.ColumnCourseID, courseID)),
		repositories.Asc(models.ColumnOrderIndex),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load structure for course %s: %w", courseID, err)
	}

	loaded := make([]models.StructureItem, 0, len(rows))
	for _, row := range rows {
		loaded = append(loaded, models.StructureItemFromFields(models.Fields(row)))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if cached, ok := s.cache[courseID]; ok {
		return cached, nil
	}
	s.cache[courseID] = loaded
	s.logger.Debug("structure loaded", "course_id", courseID, "items", len(loaded))
	return loaded, nil
}

func (s *structureService) projectedArena(ctx context.Context, courseID string) (*Arena, error) {
	tree, err := s.Tree(ctx, courseID)
	if err != nil {
		return nil, err
	}
	return NewArena(Flatten(tree)), nil
}

// locate finds the course an item belongs to: pending create, then cache, then gateway
func (s *structureService) locate(ctx context.Context, id string) (string, error) {
	if id == "" {
		return "", &domain.ValidationError{Message: "item id is required"}
	}
	notFound := &domain.NotFoundError{Message: fmt.Sprintf("structure item not found: %s", id)}

	if change, ok := s.ledger.ChangeForEntity(id); ok && change.EntityType == models.EntityStructureItem {
		if change.Action == models.ActionDelete {
			return "", notFound
		}
		if courseID, ok := change.Data[models.ColumnCourseID].(string); ok && courseID != "" {
			return courseID, nil
		}
	}

	s.mu.Lock()
	for courseID, items := range s.cache {
		for _, item := range items {
			if item.ID == id {
				s.mu.Unlock()
				return courseID, nil
			}
		}
	}
	s.mu.Unlock()

	row, err := s.gateway.SelectOne(ctx, s.table, repositories.Where(repositories.Eq(models.ColumnID, id)))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", notFound
		}
		return "", fmt.Errorf("failed to look up structure item %s: %w", id, err)
	}
	item := models.StructureItemFromFields(models.Fields(row))
	return item.CourseID, nil
}

// applyCommitted merges persisted changes into cached course lists in place
func (s *structureService) applyCommitted(committed []models.PendingChange) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, change := range committed {
		if change.EntityType != models.EntityStructureItem {
			continue
		}
		switch change.Action {
		case models.ActionDelete:
			for courseID, items := range s.cache {
				s.cache[courseID] = removeItem(items, change.EntityID)
			}
		case models.ActionCreate:
			item := models.StructureItemFromFields(withoutID(change.Data))
			item.ID = change.EntityID
			if items, ok := s.cache[item.CourseID]; ok {
				s.cache[item.CourseID] = append(removeItem(items, item.ID), item)
			}
		default:
			s.mergeUpdate(change)
		}
	}
}

func (s *structureService) mergeUpdate(change models.PendingChange) {
	for courseID, items := range s.cache {
		for i := range items {
			if items[i].ID != change.EntityID {
				continue
			}
			updated := items[i]
			updated.ApplyFields(withoutID(change.Data))
			if updated.CourseID == courseID {
				next := make([]models.StructureItem, len(items))
				copy(next, items)
				next[i] = updated
				s.cache[courseID] = next
				return
			}
			s.cache[courseID] = removeItem(items, change.EntityID)
			if target, ok := s.cache[updated.CourseID]; ok {
				s.cache[updated.CourseID] = append(target, updated)
			}
			return
		}
	}
}

// removeItem returns items without id. The input slice is never modified
// because callers may still hold it.
func removeItem(items []models.StructureItem, id string) []models.StructureItem {
	out := make([]models.StructureItem, 0, len(items))
	for _, item := range items {
		if item.ID != id {
			out = append(out, item)
		}
	}
	return out
}

func requireFolder(arena *Arena, id string) error {
	parent, ok := arena.Get(id)
	if !ok {
		return &domain.NotFoundError{Message: fmt.Sprintf("parent item not found: %s", id)}
	}
	if parent.ItemType != models.ItemFolder {
		return &domain.ValidationError{Message: fmt.Sprintf("parent item %s is not a folder", id)}
	}
	return nil
}
