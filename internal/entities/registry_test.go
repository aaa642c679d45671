package entities

import (
	"errors"
	"testing"

	"gavelogy/internal/domain"
	"gavelogy/internal/domain/models/content"
)

func TestNewRegistry_LoadsEmbeddedDefinitions(t *testing.T) {
	r, err := NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	tests := []struct {
		entityType content.EntityType
		table      string
	}{
		{content.EntityCourse, "courses"},
		{content.EntityStructureItem, "structure_items"},
		{content.EntityQuiz, "quizzes"},
		{content.EntityQuizQuestion, "quiz_questions"},
	}
	for _, tt := range tests {
		t.Run(string(tt.entityType), func(t *testing.T) {
			table, err := r.TableFor(tt.entityType)
			if err != nil {
				t.Fatalf("TableFor: %v", err)
			}
			if table != tt.table {
				t.Errorf("table = %q, want %q", table, tt.table)
			}
		})
	}

	item, _ := r.Get(content.EntityStructureItem)
	if item.DraftTable != "structure_item_drafts" {
		t.Errorf("draft table = %q", item.DraftTable)
	}
	if item.ScopeColumn != "course_id" {
		t.Errorf("scope column = %q", item.ScopeColumn)
	}
}

func TestRegistry_UnknownType(t *testing.T) {
	r, err := NewRegistry()
	if err != nil {
		t.Fatal(err)
	}
	_, err = r.TableFor("lesson_plan")
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestParseRegistry_RejectsMissingTable(t *testing.T) {
	_, err := ParseRegistry([]byte("entities:\n  course:\n    scope_column: x\n"))
	if err == nil {
		t.Fatal("expected error for entity without table")
	}
}

func TestRegistry_TypesSorted(t *testing.T) {
	r, err := NewRegistry()
	if err != nil {
		t.Fatal(err)
	}
	types := r.Types()
	for i := 1; i < len(types); i++ {
		if types[i-1] > types[i] {
			t.Fatalf("types not sorted: %v", types)
		}
	}
	if len(types) != 4 {
		t.Errorf("got %d types, want 4", len(types))
	}
}

func TestRegistry_ValidateFields(t *testing.T) {
	r, err := NewRegistry()
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name       string
		entityType content.EntityType
		fields     content.Fields
		wantErr    bool
	}{
		{"partial update", content.EntityStructureItem, content.Fields{"title": "Renamed"}, false},
		{"move to root", content.EntityStructureItem, content.Fields{"parent_id": nil, "order_index": 2}, false},
		{"nil data", content.EntityStructureItem, nil, false},
		{"float order index from json", content.EntityStructureItem, content.Fields{"order_index": float64(3)}, false},
		{"unknown column", content.EntityStructureItem, content.Fields{"colour": "red"}, true},
		{"bad item type", content.EntityStructureItem, content.Fields{"item_type": "video"}, true},
		{"fractional order index", content.EntityStructureItem, content.Fields{"order_index": 1.5}, true},
		{"empty title", content.EntityQuiz, content.Fields{"title": ""}, true},
		{"question prompt", content.EntityQuizQuestion, content.Fields{"prompt": "Why?", "quiz_id": "q1"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := r.ValidateFields(tt.entityType, tt.fields)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateFields() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, domain.ErrValidation) {
				t.Errorf("error %v is not a validation error", err)
			}
		})
	}
}

func TestParseRegistry_RejectsInvalidSchema(t *testing.T) {
	_, err := ParseRegistry([]byte("entities:\n  course:\n    table: courses\n    schema:\n      type: 12\n"))
	if err == nil {
		t.Fatal("expected error for malformed schema")
	}
}
