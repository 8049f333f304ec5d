package state

import (
	"context"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewStore(db)
}

func TestMemoryCRUD(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	m, err := store.CreateMemory(ctx, "User writes Go")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if m.ID == "" {
		t.Fatalf("expected generated id")
	}

	if err := store.UpdateMemory(ctx, m.ID, "User writes Go and SQL"); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := store.UpdateMemory(ctx, "missing", "x"); err == nil {
		t.Fatalf("expected error updating missing memory")
	}

	list, err := store.ListMemories(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].Text != "User writes Go and SQL" {
		t.Fatalf("unexpected list: %+v", list)
	}

	deleted, err := store.DeleteMemories(ctx, []string{m.ID, "missing"})
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("expected 1 deleted, got %d", deleted)
	}
}

func TestTodoLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	todo, err := store.CreateTodo(ctx, "write tests")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.UpdateTodo(ctx, todo.ID, "write tests", true); err != nil {
		t.Fatalf("update: %v", err)
	}
	list, err := store.ListTodos(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || !list[0].Done {
		t.Fatalf("unexpected todos: %+v", list)
	}
	if err := store.ClearTodos(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	list, err = store.ListTodos(ctx)
	if err != nil {
		t.Fatalf("list after clear: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("expected empty todos, got %+v", list)
	}
}

func TestRecordAndListTurns(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	usage := TokenUsage{InputTokens: 120, CachedTokens: 40, OutputTokens: 33, ReasoningTokens: 10, TotalTokens: 153}
	if err := store.RecordTurn(ctx, "run-abc", 1, "completed", usage); err != nil {
		t.Fatalf("record turn 1: %v", err)
	}
	if err := store.RecordTurn(ctx, "run-abc", 2, "completed", TokenUsage{InputTokens: 150, OutputTokens: 12, TotalTokens: 162}); err != nil {
		t.Fatalf("record turn 2: %v", err)
	}

	turns, err := store.ListTurns(ctx, 10)
	if err != nil {
		t.Fatalf("list turns: %v", err)
	}
	if len(turns) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(turns))
	}
	var first TurnRecord
	for _, turn := range turns {
		if turn.Ordinal == 1 {
			first = turn
		}
	}
	if first.RunID != "run-abc" || first.Usage != usage || first.Outcome != "completed" {
		t.Fatalf("unexpected turn record: %+v", first)
	}
}
