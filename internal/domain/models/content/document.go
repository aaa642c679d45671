package content

import "time"

// DocumentState is the editor-side lifecycle of the selected document
type DocumentState string

const (
	StateUnloaded    DocumentState = "unloaded"
	StateLoading     DocumentState = "loading"
	StateClean       DocumentState = "clean"
	StateDraftDirty  DocumentState = "draft_dirty"  // saved draft differs from published
	StateEditorDirty DocumentState = "editor_dirty" // editor differs from the saved baseline
	StateError       DocumentState = "error"
)

// Draft is an explicitly saved, unpublished snapshot
type Draft struct {
	DocumentID string    `json:"document_id"`
	Content    string    `json:"content"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// DocumentContent is what a fetch returns for one document
type DocumentContent struct {
	DocumentID   string
	Published    string
	HasPublished bool   // false when the item has never been published
	Draft        *Draft // nil when no draft record exists
}

// DocumentView is the read model handed to the presentation layer
type DocumentView struct {
	DocumentID            string        `json:"document_id,omitempty"`
	State                 DocumentState `json:"state"`
	EditorContent         string        `json:"editor_content"`
	HasDraft              bool          `json:"has_draft"`
	IsDirty               bool          `json:"is_dirty"`
	HasUnpublishedChanges bool          `json:"has_unpublished_changes"`
	Placeholder           bool          `json:"placeholder,omitempty"`
	Error                 string        `json:"error,omitempty"`
}
