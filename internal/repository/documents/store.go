// Package documents reads and writes published and draft content through the
// persistence gateway.
package documents

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gavelogy/internal/domain"
	"gavelogy/internal/domain/models/content"
	"gavelogy/internal/domain/repositories"
	"gavelogy/internal/entities"
)

// Store implements repositories.DocumentStore.
// Published content lives on the structure item row; the draft is a separate
// row keyed by the same id in the draft table.
type Store struct {
	gateway    repositories.Gateway
	itemTable  string
	draftTable string
	now        func() time.Time
	logger     *slog.Logger
}

var _ repositories.DocumentStore = (*Store)(nil)

// NewStore resolves tables from the registry
func NewStore(gateway repositories.Gateway, registry *entities.Registry, logger *slog.Logger) (*Store, error) {
	entity, err := registry.Get(content.EntityStructureItem)
	if err != nil {
		return nil, err
	}
	if entity.DraftTable == "" {
		return nil, fmt.Errorf("entity %s has no draft table", entity.Type)
	}
	return &Store{
		gateway:    gateway,
		itemTable:  entity.Table,
		draftTable: entity.DraftTable,
		now:        time.Now,
		logger:     logger,
	}, nil
}

// Fetch loads the published content and the draft for a document
func (s *Store) Fetch(ctx context.Context, documentID string) (*content.DocumentContent, error) {
	item, err := s.gateway.SelectOne(ctx, s.itemTable, repositories.Where(repositories.Eq(content.ColumnID, documentID)))
	if err != nil {
		return nil, fmt.Errorf("fetch document %s: %w", documentID, err)
	}

	doc := &content.DocumentContent{DocumentID: documentID}
	if body, ok := item[content.ColumnContent].(string); ok {
		doc.Published = body
		doc.HasPublished = true
	}

	draftRow, err := s.gateway.SelectOne(ctx, s.draftTable, repositories.Where(repositories.Eq(content.ColumnID, documentID)))
	switch {
	case errors.Is(err, domain.ErrNotFound):
		// no draft
	case err != nil:
		return nil, fmt.Errorf("fetch draft %s: %w", documentID, err)
	default:
		draft := &content.Draft{DocumentID: documentID}
		draft.Content, _ = draftRow[content.ColumnContent].(string)
		draft.UpdatedAt, _ = draftRow[content.ColumnUpdatedAt].(time.Time)
		doc.Draft = draft
	}

	return doc, nil
}

// UpsertDraft writes the draft row, inserting it on first save
func (s *Store) UpsertDraft(ctx context.Context, documentID, body string) error {
	fields := repositories.Row{
		content.ColumnContent:   body,
		content.ColumnUpdatedAt: s.now().UTC(),
	}

	_, err := s.gateway.SelectOne(ctx, s.draftTable, repositories.Where(repositories.Eq(content.ColumnID, documentID)))
	switch {
	case errors.Is(err, domain.ErrNotFound):
		row := repositories.Row{content.ColumnID: documentID}
		for k, v := range fields {
			row[k] = v
		}
		err = s.gateway.InsertMany(ctx, s.draftTable, []repositories.Row{row})
		if !errors.Is(err, domain.ErrConflict) {
			if err != nil {
				return fmt.Errorf("insert draft %s: %w", documentID, err)
			}
			return nil
		}
		// lost a race with another writer; fall through to update
		s.logger.Debug("draft appeared concurrently, updating instead", "document_id", documentID)
	case err != nil:
		return fmt.Errorf("lookup draft %s: %w", documentID, err)
	}

	if err := s.gateway.UpdateByID(ctx, s.draftTable, documentID, fields); err != nil {
		return fmt.Errorf("update draft %s: %w", documentID, err)
	}
	return nil
}

// Publish overwrites the published content, then removes the draft.
// If the delete fails the published content is already updated.
func (s *Store) Publish(ctx context.Context, documentID, body string) error {
	err := s.gateway.UpdateByID(ctx, s.itemTable, documentID, repositories.Row{
		content.ColumnContent:   body,
		content.ColumnUpdatedAt: s.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("publish document %s: %w", documentID, err)
	}

	if err := s.gateway.DeleteByIDs(ctx, s.draftTable, []string{documentID}); err != nil {
		return fmt.Errorf("remove published draft %s: %w", documentID, err)
	}
	return nil
}

// DeleteDraft removes the draft row if present
func (s *Store) DeleteDraft(ctx context.Context, documentID string) error {
	if err := s.gateway.DeleteByIDs(ctx, s.draftTable, []string{documentID}); err != nil {
		return fmt.Errorf("delete draft %s: %w", documentID, err)
	}
	return nil
}
