package content

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gavelogy/internal/config"
	"gavelogy/internal/domain"
	models "gavelogy/internal/domain/models/content"
	"gavelogy/internal/domain/repositories"
	contentSvc "gavelogy/internal/domain/services/content"
	"gavelogy/internal/schedule"
)

const (
	DefaultAutosaveDelay = time.Second
	DefaultFetchTimeout  = 5 * time.Second
)

// DraftCacheConfig holds the collaborators of the draft cache
type DraftCacheConfig struct {
	Store    repositories.DocumentStore
	Recovery repositories.RecoveryStore
	Clock    schedule.Clock

	// AutosaveDelay is the idle period before editor content is snapshotted
	// to the recovery store
	AutosaveDelay time.Duration

	// FetchTimeout bounds a document load
	FetchTimeout time.Duration

	// IsPlaceholder reports whether a document belongs to an item that only
	// exists as a pending create
	IsPlaceholder func(documentID string) bool

	Logger *slog.Logger
}

// document holds the three snapshots of the selected document
type document struct {
	id           string
	state        models.DocumentState
	placeholder  bool
	published    string
	hasPublished bool
	draft        *string
	editor       string
	err          error
}

func (d *document) loaded() bool {
	switch d.state {
	case models.StateClean, models.StateDraftDirty, models.StateEditorDirty:
		return true
	}
	return false
}

// baseline is what the editor shows when nothing is unsaved
func (d *document) baseline() string {
	if d.draft != nil {
		return *d.draft
	}
	return d.published
}

func (d *document) hasUnpublishedDraft() bool {
	return d.draft != nil && *d.draft != d.published
}

// settle derives the loaded state from the snapshots
func (d *document) settle() {
	switch {
	case d.editor != d.baseline():
		d.state = models.StateEditorDirty
	case d.hasUnpublishedDraft():
		d.state = models.StateDraftDirty
	default:
		d.state = models.StateClean
	}
}

// draftCache implements the DraftService interface
type draftCache struct {
	store         repositories.DocumentStore
	recovery      repositories.RecoveryStore
	clock         schedule.Clock
	autosave      *schedule.Debouncer
	sequencer     *Sequencer
	fetchTimeout  time.Duration
	isPlaceholder func(string) bool
	logger        *slog.Logger

	mu  sync.Mutex
	doc *document
}

// NewDraftCache creates the editor-side draft cache
func NewDraftCache(cfg DraftCacheConfig) contentSvc.DraftService {
	if cfg.Clock == nil {
		cfg.Clock = schedule.RealClock{}
	}
	if cfg.AutosaveDelay <= 0 {
		cfg.AutosaveDelay = DefaultAutosaveDelay
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = DefaultFetchTimeout
	}
	if cfg.IsPlaceholder == nil {
		cfg.IsPlaceholder = func(string) bool { return false }
	}
	return &draftCache{
		store:         cfg.Store,
		recovery:      cfg.Recovery,
		clock:         cfg.Clock,
		autosave:      schedule.NewDebouncer(cfg.Clock, cfg.AutosaveDelay),
		sequencer:     NewSequencer(),
		fetchTimeout:  cfg.FetchTimeout,
		isPlaceholder: cfg.IsPlaceholder,
		logger:        cfg.Logger,
	}
}

type fetchResult struct {
	content      *models.DocumentContent
	recovered    string
	hasRecovered bool
}

// Select switches the editor to documentID.
//
// Unsaved editor content of the outgoing document is written to the recovery
// store, but only when that document had finished loading. Any other pending
// autosave of the outgoing document runs before the switch. A result that
// arrives after another selection is dropped without error.
func (c *draftCache) Select(ctx context.Context, documentID string) error {
	if documentID == "" {
		return &domain.ValidationError{Message: "document id is required"}
	}

	c.mu.Lock()
	outgoing := c.doc
	var captureID, captureBody, flushID string
	if outgoing != nil {
		if outgoing.state == models.StateEditorDirty && c.sequencer.CanCapture(outgoing.id) {
			c.autosave.Cancel(outgoing.id)
			captureID, captureBody = outgoing.id, outgoing.editor
		}
		flushID = outgoing.id
	}
	ticket := c.sequencer.Begin(documentID)
	doc := &document{
		id:          documentID,
		state:       models.StateLoading,
		placeholder: c.isPlaceholder(documentID),
	}
	c.doc = doc
	c.mu.Unlock()

	if flushID != "" {
		// a pending recovery delete must not outlive the switch
		c.autosave.FireNow(flushID)
		c.autosave.Forget(flushID)
	}
	if captureID != "" {
		if err := c.recovery.Put(ctx, captureID, captureBody); err != nil {
			c.logger.Warn("failed to capture editor content", "document_id", captureID, "error", err)
		} else {
			c.logger.Debug("editor content captured", "document_id", captureID)
		}
	}

	result, err := c.fetch(ctx, documentID, doc.placeholder)

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.sequencer.IsCurrent(ticket) || c.doc != doc {
		c.logger.Debug("discarding stale document load", "document_id", documentID, "requested", c.sequencer.Requested())
		return nil
	}

	if err != nil {
		doc.state = models.StateError
		doc.err = err
		c.logger.Warn("document load failed", "document_id", documentID, "error", err)
		return err
	}

	if result.content != nil {
		doc.published = result.content.Published
		doc.hasPublished = result.content.HasPublished
		if result.content.Draft != nil {
			body := result.content.Draft.Content
			doc.draft = &body
		}
	}
	switch {
	case result.hasRecovered:
		doc.editor = result.recovered
	default:
		doc.editor = doc.baseline()
	}
	doc.settle()
	c.sequencer.Accept(ticket)

	c.logger.Debug("document loaded",
		"document_id", documentID,
		"state", doc.state,
		"recovered", result.hasRecovered,
		"placeholder", doc.placeholder,
	)
	return nil
}

// fetch loads persisted snapshots and the recovery entry, bounded by the
// fetch timeout. A store call that never returns is abandoned.
func (c *draftCache) fetch(ctx context.Context, documentID string, placeholder bool) (fetchResult, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	expired := make(chan struct{})
	timer := c.clock.AfterFunc(c.fetchTimeout, func() { close(expired) })
	defer timer.Stop()

	type outcome struct {
		result fetchResult
		err    error
	}
	done := make(chan outcome, 1)

	go func() {
		var res fetchResult
		if !placeholder {
			content, err := c.store.Fetch(ctx, documentID)
			if err != nil {
				done <- outcome{err: fmt.Errorf("failed to load document %s: %w", documentID, err)}
				return
			}
			res.content = content
		}
		recovered, ok, err := c.recovery.Get(ctx, documentID)
		if err != nil {
			c.logger.Warn("failed to read recovery entry", "document_id", documentID, "error", err)
		} else {
			res.recovered, res.hasRecovered = recovered, ok
		}
		done <- outcome{result: res}
	}()

	select {
	case out := <-done:
		return out.result, out.err
	case <-expired:
		return fetchResult{}, fmt.Errorf("document %s: %w", documentID, domain.ErrLoadTimeout)
	case <-ctx.Done():
		return fetchResult{}, ctx.Err()
	}
}

// Edit replaces the editor buffer and re-arms the recovery snapshot timer
func (c *draftCache) Edit(body string) error {
	if len(body) > config.MaxDocumentContentBytes {
		return &domain.ValidationError{
			Message: fmt.Sprintf("content exceeds %d bytes", config.MaxDocumentContentBytes),
		}
	}

	c.mu.Lock()
	doc, err := c.loadedDoc()
	if err != nil {
		c.mu.Unlock()
		return err
	}
	doc.editor = body
	doc.settle()
	c.scheduleSnapshot(doc.id, body, doc.state == models.StateEditorDirty)
	c.mu.Unlock()
	return nil
}

// scheduleSnapshot arms the autosave timer. Content back at the saved
// baseline removes the recovery entry instead of writing it.
func (c *draftCache) scheduleSnapshot(documentID, body string, dirty bool) {
	c.autosave.Schedule(documentID, func() {
		ctx := context.Background()
		if !dirty {
			if err := c.recovery.Delete(ctx, documentID); err != nil {
				c.logger.Warn("failed to clear recovery entry", "document_id", documentID, "error", err)
			}
			return
		}
		if err := c.recovery.Put(ctx, documentID, body); err != nil {
			c.logger.Warn("failed to snapshot editor content", "document_id", documentID, "error", err)
			return
		}
		c.logger.Debug("editor content snapshotted", "document_id", documentID, "bytes", len(body))
	})
}

// SaveDraft persists the editor buffer as the document's draft
func (c *draftCache) SaveDraft(ctx context.Context) error {
	c.mu.Lock()
	doc, err := c.loadedDoc()
	if err != nil {
		c.mu.Unlock()
		return err
	}
	if c.isPlaceholder(doc.id) {
		c.mu.Unlock()
		return domain.NewPreconditionError(domain.ErrUnsavedItem, doc.id)
	}
	if doc.state != models.StateEditorDirty {
		c.mu.Unlock()
		return domain.NewPreconditionError(domain.ErrNothingToSave, doc.id)
	}
	body := doc.editor
	c.mu.Unlock()

	c.autosave.Cancel(doc.id)

	if err := c.store.UpsertDraft(ctx, doc.id, body); err != nil {
		c.scheduleSnapshot(doc.id, body, true)
		return fmt.Errorf("failed to save draft: %w", err)
	}

	c.mu.Lock()
	doc.draft = &body
	if doc.loaded() {
		doc.settle()
	}
	clearRecovery := doc.editor == body
	c.mu.Unlock()

	if clearRecovery {
		c.clearRecovery(ctx, doc.id)
	}

	c.logger.Info("draft saved", "document_id", doc.id, "bytes", len(body))
	return nil
}

// Publish promotes the saved draft to published content. Editor changes made
// after the last SaveDraft are not published; they stay in the editor and in
// the recovery store.
func (c *draftCache) Publish(ctx context.Context) error {
	c.mu.Lock()
	doc, err := c.loadedDoc()
	if err != nil {
		c.mu.Unlock()
		return err
	}
	if !doc.hasUnpublishedDraft() {
		c.mu.Unlock()
		return domain.NewPreconditionError(domain.ErrNothingToPublish, doc.id)
	}
	body := *doc.draft
	c.mu.Unlock()

	if err := c.store.Publish(ctx, doc.id, body); err != nil {
		return fmt.Errorf("failed to publish: %w", err)
	}

	c.mu.Lock()
	doc.published = body
	doc.hasPublished = true
	doc.draft = nil
	doc.err = nil
	doc.settle()
	unsaved := doc.state == models.StateEditorDirty
	if !unsaved {
		c.autosave.Cancel(doc.id)
	}
	c.mu.Unlock()

	if !unsaved {
		c.clearRecovery(ctx, doc.id)
	}

	c.logger.Info("document published", "document_id", doc.id, "bytes", len(body), "unsaved_edits", unsaved)
	return nil
}

// DiscardDraft drops the draft and recovery entry and reverts the editor to
// published content (blank if never published)
func (c *draftCache) DiscardDraft(ctx context.Context) error {
	c.mu.Lock()
	doc, err := c.loadedDoc()
	if err != nil {
		c.mu.Unlock()
		return err
	}
	hadDraft := doc.draft != nil
	c.mu.Unlock()

	c.autosave.Cancel(doc.id)

	if hadDraft {
		if err := c.store.DeleteDraft(ctx, doc.id); err != nil && !errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("failed to discard draft: %w", err)
		}
	}

	c.mu.Lock()
	doc.draft = nil
	doc.editor = doc.published
	doc.err = nil
	doc.state = models.StateClean
	c.mu.Unlock()

	c.clearRecovery(ctx, doc.id)

	c.logger.Info("draft discarded", "document_id", doc.id, "had_draft", hadDraft)
	return nil
}

func (c *draftCache) clearRecovery(ctx context.Context, documentID string) {
	if err := c.recovery.Delete(ctx, documentID); err != nil {
		c.logger.Warn("failed to clear recovery entry", "document_id", documentID, "error", err)
	}
}

// View returns the read model of the selected document
func (c *draftCache) View() models.DocumentView {
	c.mu.Lock()
	defer c.mu.Unlock()

	doc := c.doc
	if doc == nil {
		return models.DocumentView{State: models.StateUnloaded}
	}
	view := models.DocumentView{
		DocumentID:            doc.id,
		State:                 doc.state,
		EditorContent:         doc.editor,
		HasDraft:              doc.draft != nil,
		IsDirty:               doc.state == models.StateEditorDirty,
		HasUnpublishedChanges: doc.hasUnpublishedDraft(),
		Placeholder:           doc.placeholder,
	}
	if doc.err != nil {
		view.Error = doc.err.Error()
	}
	return view
}

// Close writes pending recovery snapshots and stops the autosave timers
func (c *draftCache) Close() {
	c.autosave.Stop()
}

// loadedDoc must be called with c.mu held
func (c *draftCache) loadedDoc() (*document, error) {
	if c.doc == nil {
		return nil, domain.NewPreconditionError(domain.ErrNotLoaded, "")
	}
	if !c.doc.loaded() {
		return nil, domain.NewPreconditionError(domain.ErrNotLoaded, c.doc.id)
	}
	return c.doc, nil
}
