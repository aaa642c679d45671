package content

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gavelogy/internal/config"
	"gavelogy/internal/domain"
	models "gavelogy/internal/domain/models/content"
	"gavelogy/internal/domain/repositories"
	contentSvc "gavelogy/internal/domain/services/content"
	"gavelogy/internal/entities"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/oklog/ulid/v2"
)

type changeKey struct {
	entityType models.EntityType
	entityID   string
}

type ledgerEntry struct {
	change   models.PendingChange
	revision uint64 // bumped on every merge; used to detect edits during a flush
}

// Ledger buffers pending changes keyed by (entity type, entity id) and flushes
// them to the gateway on Commit
type Ledger struct {
	gateway  repositories.Gateway
	registry *entities.Registry
	logger   *slog.Logger
	now      func() time.Time

	mu         sync.Mutex
	order      []changeKey
	entries    map[changeKey]*ledgerEntry
	revision   uint64
	committing bool
	listeners  []contentSvc.CommitListener
}

var _ contentSvc.ChangeLedger = (*Ledger)(nil)

// NewLedger creates an empty change ledger
func NewLedger(gateway repositories.Gateway, registry *entities.Registry, logger *slog.Logger) *Ledger {
	return &Ledger{
		gateway:  gateway,
		registry: registry,
		logger:   logger,
		now:      time.Now,
		entries:  make(map[changeKey]*ledgerEntry),
	}
}

// AddChange inserts a pending change or merges it into the existing one.
//
// Merge rules:
//   - the existing action is kept unless the new action is delete
//   - data is a shallow union, new fields overwrite old ones
//   - originalData keeps the earliest non-nil snapshot
//   - once an entity is marked for deletion, later changes to it are ignored
func (l *Ledger) AddChange(
	action models.ChangeAction,
	entityType models.EntityType,
	entityID string,
	data, originalData models.Fields,
) error {
	req := &contentSvc.AddChangeRequest{
		Action:       action,
		EntityType:   entityType,
		EntityID:     entityID,
		Data:         data,
		OriginalData: originalData,
	}
	if err := l.validateAddChange(req); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	key := changeKey{entityType: entityType, entityID: entityID}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.revision++
	existing, ok := l.entries[key]
	if !ok {
		change := models.PendingChange{
			ID:           ulid.Make().String(),
			Action:       action,
			EntityType:   entityType,
			EntityID:     entityID,
			Data:         data.Clone(),
			OriginalData: originalData.Clone(),
			Timestamp:    l.now(),
		}
		if change.Data == nil {
			change.Data = models.Fields{}
		}
		l.entries[key] = &ledgerEntry{change: change, revision: l.revision}
		l.order = append(l.order, key)
		return nil
	}

	if existing.change.Action == models.ActionDelete {
		l.logger.Debug("ignoring change to entity marked for deletion",
			"entity_type", entityType,
			"entity_id", entityID,
			"action", action,
		)
		return nil
	}

	if action == models.ActionDelete {
		existing.change.Action = models.ActionDelete
	}
	existing.change.Data = existing.change.Data.Merge(data)
	if existing.change.OriginalData == nil && originalData != nil {
		existing.change.OriginalData = originalData.Clone()
	}
	existing.change.Timestamp = l.now()
	existing.revision = l.revision
	return nil
}

func (l *Ledger) validateAddChange(req *contentSvc.AddChangeRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.Action,
			validation.Required,
			validation.In(models.ActionCreate, models.ActionUpdate, models.ActionDelete, models.ActionReorder),
		),
		validation.Field(&req.EntityType,
			validation.Required,
			validation.By(func(interface{}) error {
				_, err := l.registry.Get(req.EntityType)
				return err
			}),
		),
		validation.Field(&req.EntityID,
			validation.Required,
			validation.Length(1, config.MaxEntityIDLength),
		),
		validation.Field(&req.Data,
			validation.By(func(interface{}) error {
				return l.registry.ValidateFields(req.EntityType, req.Data)
			}),
		),
	)
}

// ChangeForEntity returns the pending change for an entity id, whatever its type
func (l *Ledger) ChangeForEntity(entityID string) (models.PendingChange, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, key := range l.order {
		if key.entityID == entityID {
			return l.entries[key].change.Clone(), true
		}
	}
	return models.PendingChange{}, false
}

// ChangeFor returns the pending change for (entityType, entityID)
func (l *Ledger) ChangeFor(entityType models.EntityType, entityID string) (models.PendingChange, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[changeKey{entityType: entityType, entityID: entityID}]
	if !ok {
		return models.PendingChange{}, false
	}
	return entry.change.Clone(), true
}

// Changes returns a copy of the pending changes in call order
func (l *Ledger) Changes() []models.PendingChange {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]models.PendingChange, 0, len(l.order))
	for _, key := range l.order {
		out = append(out, l.entries[key].change.Clone())
	}
	return out
}

// HasChanges reports whether the ledger holds anything
func (l *Ledger) HasChanges() bool {
	return l.Len() > 0
}

// Len returns the number of pending changes
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.order)
}

// IsPlaceholder reports whether a structure item exists only as a pending create
func (l *Ledger) IsPlaceholder(itemID string) bool {
	change, ok := l.ChangeFor(models.EntityStructureItem, itemID)
	return ok && change.Action == models.ActionCreate
}

// Discard drops every pending change without touching the gateway
func (l *Ledger) Discard() {
	l.mu.Lock()
	n := len(l.order)
	l.order = nil
	l.entries = make(map[changeKey]*ledgerEntry)
	l.mu.Unlock()

	l.logger.Info("pending changes discarded", "count", n)
}

// Subscribe registers a listener notified after each successful commit
func (l *Ledger) Subscribe(fn contentSvc.CommitListener) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.listeners = append(l.listeners, fn)
}

type snapshotEntry struct {
	key      changeKey
	change   models.PendingChange
	revision uint64
	table    string
}

// tableBatch groups entity ids of one phase by table, keeping first-seen table order
type tableBatch struct {
	table   string
	entries []snapshotEntry
}

// Commit flushes pending changes in the order deletes, creates, then updates
// and reorders. Deletes and creates are batched per table; updates go one row
// at a time so partial fields never clobber unrelated columns.
//
// The flush is not transactional. On failure a *domain.CommitError describes
// the failing step and which changes already reached the gateway. Every change
// stays pending so the caller can retry or discard; creates that were already
// inserted are retried as updates.
func (l *Ledger) Commit(ctx context.Context) error {
	l.mu.Lock()
	if l.committing {
		l.mu.Unlock()
		return domain.ErrCommitInProgress
	}
	if len(l.order) == 0 {
		l.mu.Unlock()
		return nil
	}
	l.committing = true
	snapshot := make([]snapshotEntry, 0, len(l.order))
	for _, key := range l.order {
		entry := l.entries[key]
		snapshot = append(snapshot, snapshotEntry{
			key:      key,
			change:   entry.change.Clone(),
			revision: entry.revision,
		})
	}
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		l.committing = false
		l.mu.Unlock()
	}()

	for i := range snapshot {
		table, err := l.registry.TableFor(snapshot[i].key.entityType)
		if err != nil {
			return err
		}
		snapshot[i].table = table
	}

	var deletes, creates, updates []snapshotEntry
	for _, entry := range snapshot {
		switch entry.change.Action {
		case models.ActionDelete:
			deletes = append(deletes, entry)
		case models.ActionCreate:
			creates = append(creates, entry)
		default:
			updates = append(updates, entry)
		}
	}

	var flushed []string
	var inserted []changeKey
	fail := func(phase domain.CommitPhase, table string, batch []snapshotEntry, err error) error {
		l.markInserted(inserted)
		commitErr := &domain.CommitError{
			Phase:     phase,
			Table:     table,
			EntityIDs: entityIDs(batch),
			Flushed:   append([]string(nil), flushed...),
			Err:       err,
		}
		l.logger.Error("commit failed",
			"phase", phase,
			"table", table,
			"entity_ids", commitErr.EntityIDs,
			"flushed", len(flushed),
			"pending", len(snapshot),
			"error", err,
		)
		return commitErr
	}

	for _, batch := range groupByTable(deletes) {
		if err := l.gateway.DeleteByIDs(ctx, batch.table, entityIDs(batch.entries)); err != nil {
			return fail(domain.CommitPhaseDelete, batch.table, batch.entries, err)
		}
		flushed = append(flushed, changeIDs(batch.entries)...)
	}

	for _, batch := range groupByTable(creates) {
		rows := make([]repositories.Row, 0, len(batch.entries))
		for _, entry := range batch.entries {
			row := repositories.Row(entry.change.Data.Clone())
			if row == nil {
				row = repositories.Row{}
			}
			row[models.ColumnID] = entry.key.entityID
			rows = append(rows, row)
		}
		if err := l.gateway.InsertMany(ctx, batch.table, rows); err != nil {
			return fail(domain.CommitPhaseCreate, batch.table, batch.entries, err)
		}
		flushed = append(flushed, changeIDs(batch.entries)...)
		for _, entry := range batch.entries {
			inserted = append(inserted, entry.key)
		}
	}

	for _, entry := range updates {
		fields := repositories.Row(entry.change.Data.Clone())
		delete(fields, models.ColumnID)
		if len(fields) > 0 {
			if err := l.gateway.UpdateByID(ctx, entry.table, entry.key.entityID, fields); err != nil {
				return fail(domain.CommitPhaseUpdate, entry.table, []snapshotEntry{entry}, err)
			}
		}
		flushed = append(flushed, entry.change.ID)
	}

	committed := l.settle(snapshot)

	l.logger.Info("changes committed",
		"deletes", len(deletes),
		"creates", len(creates),
		"updates", len(updates),
	)

	l.mu.Lock()
	listeners := append([]contentSvc.CommitListener(nil), l.listeners...)
	l.mu.Unlock()
	for _, fn := range listeners {
		fn(committed)
	}
	return nil
}

// settle removes flushed entries that were not touched during the flush.
// An entry merged while its create was in flight now targets an existing row,
// so it stays pending as an update.
func (l *Ledger) settle(snapshot []snapshotEntry) []models.PendingChange {
	l.mu.Lock()
	defer l.mu.Unlock()

	committed := make([]models.PendingChange, 0, len(snapshot))
	for _, flushedEntry := range snapshot {
		committed = append(committed, flushedEntry.change)

		current, ok := l.entries[flushedEntry.key]
		if !ok {
			continue // discarded mid-flush
		}
		if current.revision == flushedEntry.revision {
			delete(l.entries, flushedEntry.key)
			continue
		}
		if current.change.Action == models.ActionCreate {
			current.change.Action = models.ActionUpdate
		}
	}

	order := l.order[:0]
	for _, key := range l.order {
		if _, ok := l.entries[key]; ok {
			order = append(order, key)
		}
	}
	l.order = order
	return committed
}

// markInserted turns creates that reached the gateway before a failed commit
// into updates, so retrying the commit does not insert the same rows twice
func (l *Ledger) markInserted(keys []changeKey) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, key := range keys {
		if entry, ok := l.entries[key]; ok && entry.change.Action == models.ActionCreate {
			entry.change.Action = models.ActionUpdate
		}
	}
}

func groupByTable(entries []snapshotEntry) []tableBatch {
	var batches []tableBatch
	index := make(map[string]int)
	for _, entry := range entries {
		i, ok := index[entry.table]
		if !ok {
			i = len(batches)
			index[entry.table] = i
			batches = append(batches, tableBatch{table: entry.table})
		}
		batches[i].entries = append(batches[i].entries, entry)
	}
	return batches
}

func entityIDs(entries []snapshotEntry) []string {
	ids := make([]string, len(entries))
	for i, entry := range entries {
		ids[i] = entry.key.entityID
	}
	return ids
}

func changeIDs(entries []snapshotEntry) []string {
	ids := make([]string, len(entries))
	for i, entry := range entries {
		ids[i] = entry.change.ID
	}
	return ids
}
