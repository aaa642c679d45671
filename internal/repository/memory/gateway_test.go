package memory

import (
	"context"
	"errors"
	"testing"

	"gavelogy/internal/domain"
	"gavelogy/internal/domain/repositories"
)

func TestGateway_InsertAndSelect(t *testing.T) {
	g := NewGateway()
	ctx := context.Background()

	err := g.InsertMany(ctx, "structure_items", []repositories.Row{
		{"id": "b", "course_id": "c1", "order_index": 2, "title": "Second"},
		{"id": "a", "course_id": "c1", "order_index": 1, "title": "First"},
		{"id": "x", "course_id": "c2", "order_index": 0, "title": "Other course"},
	})
	if err != nil {
		t.Fatalf("InsertMany: %v", err)
	}

	rows, err := g.SelectWhere(ctx, "structure_items",
		repositories.Where(repositories.Eq("course_id", "c1")),
		repositories.Asc("order_index"))
	if err != nil {
		t.Fatalf("SelectWhere: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[0]["id"] != "a" || rows[1]["id"] != "b" {
		t.Errorf("order = %v, %v", rows[0]["id"], rows[1]["id"])
	}

	// returned rows are copies
	rows[0]["title"] = "mutated"
	row, _ := g.Row("structure_items", "a")
	if row["title"] != "First" {
		t.Errorf("select leaked internal row: %v", row["title"])
	}
}

func TestGateway_InsertDuplicateIsAtomic(t *testing.T) {
	g := NewGateway()
	ctx := context.Background()
	g.Seed("quizzes", repositories.Row{"id": "q1"})

	err := g.InsertMany(ctx, "quizzes", []repositories.Row{{"id": "q2"}, {"id": "q1"}})
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if g.Count("quizzes") != 1 {
		t.Errorf("partial insert: count=%d", g.Count("quizzes"))
	}
}

func TestGateway_UpdateOnlyTouchesGivenFields(t *testing.T) {
	g := NewGateway()
	ctx := context.Background()
	g.Seed("structure_items", repositories.Row{"id": "a", "title": "Old", "content": "body"})

	if err := g.UpdateByID(ctx, "structure_items", "a", repositories.Row{"title": "New"}); err != nil {
		t.Fatal(err)
	}
	row, _ := g.Row("structure_items", "a")
	if row["title"] != "New" || row["content"] != "body" {
		t.Errorf("row = %v", row)
	}

	err := g.UpdateByID(ctx, "structure_items", "missing", repositories.Row{"title": "x"})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestGateway_DeleteAndSelectOne(t *testing.T) {
	g := NewGateway()
	ctx := context.Background()
	g.Seed("structure_items",
		repositories.Row{"id": "a", "parent_id": nil},
		repositories.Row{"id": "b", "parent_id": "a"},
		repositories.Row{"id": "c", "parent_id": "a"},
	)

	if err := g.DeleteByIDs(ctx, "structure_items", []string{"b", "zzz"}); err != nil {
		t.Fatal(err)
	}
	if g.Count("structure_items") != 2 {
		t.Fatalf("count = %d", g.Count("structure_items"))
	}

	root, err := g.SelectOne(ctx, "structure_items", repositories.Where(repositories.IsNull("parent_id")))
	if err != nil {
		t.Fatal(err)
	}
	if root["id"] != "a" {
		t.Errorf("root = %v", root["id"])
	}

	rows, _ := g.SelectWhere(ctx, "structure_items", repositories.Where(repositories.In("id", "a", "c")))
	if len(rows) != 2 {
		t.Errorf("In matched %d rows", len(rows))
	}

	_, err = g.SelectOne(ctx, "structure_items", repositories.Where(repositories.Eq("id", "b")))
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestGateway_FaultsAndCallLog(t *testing.T) {
	g := NewGateway()
	ctx := context.Background()
	boom := errors.New("connection reset")
	g.InjectFault(OpDeleteByIDs, "quizzes", boom)

	if err := g.DeleteByIDs(ctx, "quizzes", []string{"q1"}); !errors.Is(err, boom) {
		t.Fatalf("expected injected fault, got %v", err)
	}
	g.ClearFaults()
	if err := g.DeleteByIDs(ctx, "quizzes", []string{"q1"}); err != nil {
		t.Fatalf("fault not cleared: %v", err)
	}

	_, _ = g.SelectWhere(ctx, "quizzes", nil)
	if n := len(g.Calls()); n != 3 {
		t.Errorf("logged %d calls, want 3", n)
	}
	if n := len(g.WriteCalls()); n != 2 {
		t.Errorf("logged %d write calls, want 2", n)
	}
	g.ResetCalls()
	if len(g.Calls()) != 0 {
		t.Error("ResetCalls left entries")
	}
}
