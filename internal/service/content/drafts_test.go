package content

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"gavelogy/internal/domain"
	models "gavelogy/internal/domain/models/content"
	contentSvc "gavelogy/internal/domain/services/content"
	"gavelogy/internal/repository/memory"
	"gavelogy/internal/schedule"
)

// fakeDocumentStore is an in-memory DocumentStore whose fetches can be held open
type fakeDocumentStore struct {
	mu        sync.Mutex
	published map[string]string
	drafts    map[string]string
	gates     map[string]chan struct{}
	started   chan string
	calls     []string
	fail      map[string]error // op -> error
}

func newFakeDocumentStore() *fakeDocumentStore {
	return &fakeDocumentStore{
		published: make(map[string]string),
		drafts:    make(map[string]string),
		gates:     make(map[string]chan struct{}),
		started:   make(chan string, 16),
		fail:      make(map[string]error),
	}
}

// hold makes fetches of id block until the returned func is called
func (s *fakeDocumentStore) hold(id string) (release func()) {
	gate := make(chan struct{})
	s.mu.Lock()
	s.gates[id] = gate
	s.mu.Unlock()
	var once sync.Once
	return func() { once.Do(func() { close(gate) }) }
}

func (s *fakeDocumentStore) record(op, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, op+":"+id)
	return s.fail[op]
}

func (s *fakeDocumentStore) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func (s *fakeDocumentStore) Fetch(ctx context.Context, id string) (*models.DocumentContent, error) {
	if err := s.record("fetch", id); err != nil {
		return nil, err
	}
	s.mu.Lock()
	gate := s.gates[id]
	s.mu.Unlock()
	if gate != nil {
		s.started <- id
		<-gate
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	doc := &models.DocumentContent{DocumentID: id}
	if body, ok := s.published[id]; ok {
		doc.Published, doc.HasPublished = body, true
	}
	if body, ok := s.drafts[id]; ok {
		doc.Draft = &models.Draft{DocumentID: id, Content: body}
	}
	return doc, nil
}

func (s *fakeDocumentStore) UpsertDraft(_ context.Context, id, body string) error {
	if err := s.record("upsert_draft", id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drafts[id] = body
	return nil
}

func (s *fakeDocumentStore) Publish(_ context.Context, id, body string) error {
	if err := s.record("publish", id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.published[id] = body
	delete(s.drafts, id)
	return nil
}

func (s *fakeDocumentStore) DeleteDraft(_ context.Context, id string) error {
	if err := s.record("delete_draft", id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.drafts, id)
	return nil
}

type draftFixture struct {
	cache        contentSvc.DraftService
	store        *fakeDocumentStore
	recovery     *memory.RecoveryStore
	clock        *schedule.ManualClock
	placeholders map[string]bool
}

func newDraftFixture(t *testing.T) *draftFixture {
	t.Helper()
	f := &draftFixture{
		store:        newFakeDocumentStore(),
		recovery:     memory.NewRecoveryStore(),
		clock:        schedule.NewManualClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
		placeholders: make(map[string]bool),
	}
	f.cache = NewDraftCache(DraftCacheConfig{
		Store:         f.store,
		Recovery:      f.recovery,
		Clock:         f.clock,
		AutosaveDelay: time.Second,
		FetchTimeout:  5 * time.Second,
		IsPlaceholder: func(id string) bool { return f.placeholders[id] },
		Logger:        testLogger(),
	})
	t.Cleanup(f.cache.Close)
	return f
}

func (f *draftFixture) recovered(t *testing.T, id string) (string, bool) {
	t.Helper()
	body, ok, err := f.recovery.Get(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	return body, ok
}

func TestDraftCache_SelectSeedsEditor(t *testing.T) {
	tests := []struct {
		name       string
		published  *string
		draft      *string
		recovery   *string
		wantEditor string
		wantState  models.DocumentState
		wantDraft  bool
	}{
		{name: "published only", published: strPtr("A"), wantEditor: "A", wantState: models.StateClean},
		{name: "never published", wantEditor: "", wantState: models.StateClean},
		{name: "draft over published", published: strPtr("A"), draft: strPtr("B"), wantEditor: "B", wantState: models.StateDraftDirty, wantDraft: true},
		{name: "draft equal to published", published: strPtr("A"), draft: strPtr("A"), wantEditor: "A", wantState: models.StateClean, wantDraft: true},
		{name: "recovery over draft", published: strPtr("A"), draft: strPtr("B"), recovery: strPtr("C"), wantEditor: "C", wantState: models.StateEditorDirty, wantDraft: true},
		{name: "recovery matching baseline", published: strPtr("A"), recovery: strPtr("A"), wantEditor: "A", wantState: models.StateClean},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newDraftFixture(t)
			if tt.published != nil {
				f.store.published["doc"] = *tt.published
			}
			if tt.draft != nil {
				f.store.drafts["doc"] = *tt.draft
			}
			if tt.recovery != nil {
				_ = f.recovery.Put(context.Background(), "doc", *tt.recovery)
			}

			if err := f.cache.Select(context.Background(), "doc"); err != nil {
				t.Fatal(err)
			}
			view := f.cache.View()
			if view.EditorContent != tt.wantEditor || view.State != tt.wantState || view.HasDraft != tt.wantDraft {
				t.Errorf("view = %+v", view)
			}
			if view.IsDirty != (tt.wantState == models.StateEditorDirty) {
				t.Errorf("is_dirty = %v in state %s", view.IsDirty, view.State)
			}
		})
	}
}

func TestDraftCache_SaveDraftThenPublish(t *testing.T) {
	f := newDraftFixture(t)
	ctx := context.Background()
	f.store.published["doc"] = "A"

	if err := f.cache.Select(ctx, "doc"); err != nil {
		t.Fatal(err)
	}
	if err := f.cache.Edit("B"); err != nil {
		t.Fatal(err)
	}
	if view := f.cache.View(); view.State != models.StateEditorDirty || !view.IsDirty {
		t.Fatalf("after edit: %+v", view)
	}

	if err := f.cache.SaveDraft(ctx); err != nil {
		t.Fatal(err)
	}
	view := f.cache.View()
	if f.store.drafts["doc"] != "B" || !view.HasDraft || view.EditorContent != "B" || view.State != models.StateDraftDirty {
		t.Fatalf("after save draft: view=%+v drafts=%v", view, f.store.drafts)
	}
	if !view.HasUnpublishedChanges {
		t.Error("draft differs from published")
	}

	if err := f.cache.Publish(ctx); err != nil {
		t.Fatal(err)
	}
	view = f.cache.View()
	if f.store.published["doc"] != "B" || view.HasDraft || view.State != models.StateClean || view.EditorContent != "B" {
		t.Errorf("after publish: view=%+v published=%v", view, f.store.published)
	}
	if _, ok := f.store.drafts["doc"]; ok {
		t.Error("draft record should be deleted")
	}
	if _, ok := f.recovered(t, "doc"); ok {
		t.Error("recovery entry should be cleared")
	}
}

func TestDraftCache_DiscardDraftRevertsToPublished(t *testing.T) {
	f := newDraftFixture(t)
	ctx := context.Background()
	f.store.published["doc"] = "A"
	f.store.drafts["doc"] = "B"
	_ = f.recovery.Put(ctx, "doc", "B+typing")

	if err := f.cache.Select(ctx, "doc"); err != nil {
		t.Fatal(err)
	}
	if err := f.cache.DiscardDraft(ctx); err != nil {
		t.Fatal(err)
	}

	view := f.cache.View()
	if view.EditorContent != "A" || view.HasDraft || view.State != models.StateClean {
		t.Errorf("view = %+v", view)
	}
	if _, ok := f.store.drafts["doc"]; ok {
		t.Error("draft record should be deleted")
	}
	if _, ok := f.recovered(t, "doc"); ok {
		t.Error("recovery entry should be cleared")
	}
}

func TestDraftCache_DiscardWithoutDraftSkipsStore(t *testing.T) {
	f := newDraftFixture(t)
	ctx := context.Background()

	if err := f.cache.Select(ctx, "doc"); err != nil {
		t.Fatal(err)
	}
	_ = f.cache.Edit("typed")
	calls := f.store.callCount()

	if err := f.cache.DiscardDraft(ctx); err != nil {
		t.Fatal(err)
	}
	if f.store.callCount() != calls {
		t.Error("no draft exists, so nothing should be deleted")
	}
	if view := f.cache.View(); view.EditorContent != "" || view.State != models.StateClean {
		t.Errorf("view = %+v", view)
	}
}

func TestDraftCache_Preconditions(t *testing.T) {
	ctx := context.Background()

	t.Run("publish without draft", func(t *testing.T) {
		f := newDraftFixture(t)
		f.store.published["doc"] = "A"
		_ = f.cache.Select(ctx, "doc")
		_ = f.cache.Edit("B")
		calls := f.store.callCount()

		err := f.cache.Publish(ctx)
		if !errors.Is(err, domain.ErrNothingToPublish) || !errors.Is(err, domain.ErrPrecondition) {
			t.Errorf("got %v", err)
		}
		if f.store.callCount() != calls {
			t.Error("rejected publish must not call the store")
		}
	})

	t.Run("publish with draft equal to published", func(t *testing.T) {
		f := newDraftFixture(t)
		f.store.published["doc"] = "A"
		f.store.drafts["doc"] = "A"
		_ = f.cache.Select(ctx, "doc")
		if err := f.cache.Publish(ctx); !errors.Is(err, domain.ErrNothingToPublish) {
			t.Errorf("got %v", err)
		}
	})

	t.Run("save draft without edits", func(t *testing.T) {
		f := newDraftFixture(t)
		_ = f.cache.Select(ctx, "doc")
		if err := f.cache.SaveDraft(ctx); !errors.Is(err, domain.ErrNothingToSave) {
			t.Errorf("got %v", err)
		}
	})

	t.Run("save draft for unsaved item", func(t *testing.T) {
		f := newDraftFixture(t)
		f.placeholders["new-item"] = true
		if err := f.cache.Select(ctx, "new-item"); err != nil {
			t.Fatal(err)
		}
		if f.store.callCount() != 0 {
			t.Error("placeholder must not be fetched")
		}
		if !f.cache.View().Placeholder {
			t.Error("view should flag the placeholder")
		}
		_ = f.cache.Edit("notes")
		if err := f.cache.SaveDraft(ctx); !errors.Is(err, domain.ErrUnsavedItem) {
			t.Errorf("got %v", err)
		}
		if f.store.callCount() != 0 {
			t.Error("rejected save must not call the store")
		}
	})

	t.Run("nothing selected", func(t *testing.T) {
		f := newDraftFixture(t)
		if err := f.cache.Edit("x"); !errors.Is(err, domain.ErrNotLoaded) {
			t.Errorf("edit: got %v", err)
		}
		if err := f.cache.SaveDraft(ctx); !errors.Is(err, domain.ErrNotLoaded) {
			t.Errorf("save: got %v", err)
		}
		if view := f.cache.View(); view.State != models.StateUnloaded {
			t.Errorf("view = %+v", view)
		}
	})
}

func TestDraftCache_SaveDraftFailureKeepsEditorDirty(t *testing.T) {
	f := newDraftFixture(t)
	ctx := context.Background()
	f.store.published["doc"] = "A"
	_ = f.cache.Select(ctx, "doc")
	_ = f.cache.Edit("B")

	f.store.fail["upsert_draft"] = errors.New("network down")
	if err := f.cache.SaveDraft(ctx); err == nil {
		t.Fatal("expected error")
	}
	view := f.cache.View()
	if view.State != models.StateEditorDirty || view.HasDraft || view.EditorContent != "B" {
		t.Errorf("view = %+v", view)
	}

	// the snapshot is rescheduled so the edit still reaches recovery
	f.clock.Advance(time.Second)
	if body, ok := f.recovered(t, "doc"); !ok || body != "B" {
		t.Errorf("recovery = %q, %v", body, ok)
	}
}

func TestDraftCache_FetchRace(t *testing.T) {
	f := newDraftFixture(t)
	ctx := context.Background()
	f.store.published["A"] = "content of A"
	f.store.published["B"] = "content of B"
	releaseA := f.store.hold("A")
	defer releaseA()

	doneA := make(chan error, 1)
	go func() { doneA <- f.cache.Select(ctx, "A") }()
	<-f.store.started

	if err := f.cache.Select(ctx, "B"); err != nil {
		t.Fatal(err)
	}
	releaseA()
	if err := <-doneA; err != nil {
		t.Fatalf("stale load should be silent, got %v", err)
	}

	view := f.cache.View()
	if view.DocumentID != "B" || view.EditorContent != "content of B" || view.State != models.StateClean {
		t.Errorf("view = %+v", view)
	}
}

func TestDraftCache_LoadTimeout(t *testing.T) {
	f := newDraftFixture(t)
	ctx := context.Background()
	f.store.published["slow"] = "finally"
	release := f.store.hold("slow")
	defer release()

	done := make(chan error, 1)
	go func() { done <- f.cache.Select(ctx, "slow") }()
	<-f.store.started

	if view := f.cache.View(); view.State != models.StateLoading {
		t.Errorf("state while fetching = %s", view.State)
	}
	f.clock.Advance(5 * time.Second)

	err := <-done
	if !errors.Is(err, domain.ErrLoadTimeout) {
		t.Fatalf("got %v", err)
	}
	view := f.cache.View()
	if view.State != models.StateError || view.Error == "" {
		t.Errorf("view = %+v", view)
	}
	if err := f.cache.Edit("x"); !errors.Is(err, domain.ErrNotLoaded) {
		t.Errorf("edit after timeout: got %v", err)
	}

	// retry after the backend recovers
	release()
	f.store.mu.Lock()
	delete(f.store.gates, "slow")
	f.store.mu.Unlock()
	if err := f.cache.Select(ctx, "slow"); err != nil {
		t.Fatal(err)
	}
	if view := f.cache.View(); view.State != models.StateClean || view.EditorContent != "finally" {
		t.Errorf("view after retry = %+v", view)
	}
}

func TestDraftCache_DebouncedRecoverySnapshot(t *testing.T) {
	f := newDraftFixture(t)
	ctx := context.Background()
	f.store.published["doc"] = "A"
	_ = f.cache.Select(ctx, "doc")

	for i := 1; i <= 3; i++ {
		_ = f.cache.Edit(fmt.Sprintf("A%d", i))
		f.clock.Advance(500 * time.Millisecond)
	}
	if _, ok := f.recovered(t, "doc"); ok {
		t.Fatal("snapshot written before the editor went idle")
	}

	f.clock.Advance(499 * time.Millisecond)
	if _, ok := f.recovered(t, "doc"); ok {
		t.Fatal("snapshot written early")
	}
	f.clock.Advance(time.Millisecond)
	if body, ok := f.recovered(t, "doc"); !ok || body != "A3" {
		t.Errorf("recovery = %q, %v", body, ok)
	}

	// typing back to the saved content clears the entry
	_ = f.cache.Edit("A")
	if view := f.cache.View(); view.State != models.StateClean {
		t.Errorf("state = %s", view.State)
	}
	f.clock.Advance(time.Second)
	if _, ok := f.recovered(t, "doc"); ok {
		t.Error("recovery entry should be removed once content matches the baseline")
	}
}

func TestDraftCache_CapturesOnlyLoadedDocuments(t *testing.T) {
	f := newDraftFixture(t)
	ctx := context.Background()
	f.store.published["A"] = "a"
	f.store.published["B"] = "b"

	_ = f.cache.Select(ctx, "A")
	_ = f.cache.Edit("a, unsaved")

	// B never finishes loading before the user moves on to C
	releaseB := f.store.hold("B")
	defer releaseB()
	doneB := make(chan error, 1)
	go func() { doneB <- f.cache.Select(ctx, "B") }()
	<-f.store.started

	if body, ok := f.recovered(t, "A"); !ok || body != "a, unsaved" {
		t.Errorf("outgoing A should be captured, got %q %v", body, ok)
	}

	if err := f.cache.Select(ctx, "C"); err != nil {
		t.Fatal(err)
	}
	releaseB()
	<-doneB

	if _, ok := f.recovered(t, "B"); ok {
		t.Error("B never loaded, so nothing may be captured for it")
	}

	// coming back to A restores the captured edit
	if err := f.cache.Select(ctx, "A"); err != nil {
		t.Fatal(err)
	}
	if view := f.cache.View(); view.EditorContent != "a, unsaved" || view.State != models.StateEditorDirty {
		t.Errorf("view = %+v", view)
	}
}

func TestDraftCache_SaveDraftClearsRecovery(t *testing.T) {
	f := newDraftFixture(t)
	ctx := context.Background()
	_ = f.cache.Select(ctx, "doc")
	_ = f.cache.Edit("body")
	f.clock.Advance(time.Second)
	if _, ok := f.recovered(t, "doc"); !ok {
		t.Fatal("expected snapshot")
	}

	if err := f.cache.SaveDraft(ctx); err != nil {
		t.Fatal(err)
	}
	if _, ok := f.recovered(t, "doc"); ok {
		t.Error("recovery should be cleared once the draft is durable")
	}
	if view := f.cache.View(); view.State != models.StateDraftDirty {
		t.Errorf("state = %s", view.State)
	}
}

func TestDraftCache_CloseFlushesPendingSnapshot(t *testing.T) {
	f := newDraftFixture(t)
	ctx := context.Background()
	_ = f.cache.Select(ctx, "doc")
	_ = f.cache.Edit("last words")

	f.cache.Close()
	if body, ok := f.recovered(t, "doc"); !ok || body != "last words" {
		t.Errorf("recovery = %q, %v", body, ok)
	}
}

func TestDraftCache_SwitchAwayAfterRevertClearsRecovery(t *testing.T) {
	f := newDraftFixture(t)
	ctx := context.Background()
	f.store.published["doc"] = "A"
	f.store.published["other"] = "O"
	_ = f.recovery.Put(ctx, "doc", "X")

	if err := f.cache.Select(ctx, "doc"); err != nil {
		t.Fatal(err)
	}
	if view := f.cache.View(); view.EditorContent != "X" || view.State != models.StateEditorDirty {
		t.Fatalf("view = %+v, want recovered content", view)
	}

	// typing back to the published content, then leaving before the timer fires
	_ = f.cache.Edit("A")
	if err := f.cache.Select(ctx, "other"); err != nil {
		t.Fatal(err)
	}
	if _, ok := f.recovered(t, "doc"); ok {
		t.Error("reverted recovery entry survived the switch")
	}

	if err := f.cache.Select(ctx, "doc"); err != nil {
		t.Fatal(err)
	}
	if view := f.cache.View(); view.EditorContent != "A" || view.State != models.StateClean {
		t.Errorf("view = %+v, want published content and clean", view)
	}
}

func TestDraftCache_SwitchReleasesAutosaveTimers(t *testing.T) {
	f := newDraftFixture(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("doc-%d", i)
		if err := f.cache.Select(ctx, id); err != nil {
			t.Fatal(err)
		}
		_ = f.cache.Edit("edit " + id)
	}
	if err := f.cache.Select(ctx, "last"); err != nil {
		t.Fatal(err)
	}

	if n := f.clock.Active(); n != 0 {
		t.Errorf("%d timers still armed after switching documents", n)
	}
	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("doc-%d", i)
		if body, ok := f.recovered(t, id); !ok || body != "edit "+id {
			t.Errorf("%s recovery = %q, %v", id, body, ok)
		}
	}
}

func TestDraftCache_PublishKeepsUnsavedEdits(t *testing.T) {
	f := newDraftFixture(t)
	ctx := context.Background()
	f.store.published["doc"] = "A"
	_ = f.cache.Select(ctx, "doc")

	_ = f.cache.Edit("B")
	if err := f.cache.SaveDraft(ctx); err != nil {
		t.Fatal(err)
	}
	_ = f.cache.Edit("C")
	f.clock.Advance(time.Second)

	if err := f.cache.Publish(ctx); err != nil {
		t.Fatal(err)
	}

	if f.store.published["doc"] != "B" {
		t.Errorf("published = %q, want the saved draft", f.store.published["doc"])
	}
	view := f.cache.View()
	if view.EditorContent != "C" || view.State != models.StateEditorDirty || view.HasDraft {
		t.Errorf("view = %+v, want unsaved edit kept", view)
	}
	if body, ok := f.recovered(t, "doc"); !ok || body != "C" {
		t.Errorf("recovery = %q, %v, want unsaved edit kept", body, ok)
	}

	// the kept edit can be saved and published in turn
	if err := f.cache.SaveDraft(ctx); err != nil {
		t.Fatal(err)
	}
	if err := f.cache.Publish(ctx); err != nil {
		t.Fatal(err)
	}
	if view := f.cache.View(); view.State != models.StateClean || f.store.published["doc"] != "C" {
		t.Errorf("view = %+v published = %q", view, f.store.published["doc"])
	}
}
