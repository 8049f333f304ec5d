package tools_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/flitsinc/go-assistant/internal/history"
	"github.com/flitsinc/go-assistant/internal/testutil"
	"github.com/flitsinc/go-assistant/internal/tools"
)

func invoke(t *testing.T, tool tools.Tool, args map[string]any) map[string]any {
	t.Helper()
	value, err := tool.Invoke(context.Background(), args)
	if err != nil {
		t.Fatalf("invoke %s: %v", tool.Schema().Name, err)
	}
	out, ok := value.(map[string]any)
	if !ok {
		t.Fatalf("unexpected value type %T", value)
	}
	return out
}

func TestMemoryToolsRoundTrip(t *testing.T) {
	store := testutil.OpenTestStore(t)

	created := invoke(t, tools.CreateMemoriesTool(store), map[string]any{
		"texts": []any{"User prefers metric units", "User lives in Stockholm"},
	})
	if created["status"] != "success" {
		t.Fatalf("create failed: %v", created)
	}

	listed := invoke(t, tools.GetMemoriesTool(store), nil)
	if listed["count"] != 2 {
		t.Fatalf("expected 2 memories, got %v", listed["count"])
	}

	memories, err := store.ListMemories(context.Background())
	if err != nil {
		t.Fatalf("list memories: %v", err)
	}
	updated := invoke(t, tools.UpdateMemoriesTool(store), map[string]any{
		"entries": []any{map[string]any{"id": memories[0].ID, "text": "User prefers imperial units"}},
	})
	if updated["updated"] != 1 {
		t.Fatalf("expected 1 update, got %v", updated)
	}

	deleted := invoke(t, tools.DeleteMemoriesTool(store), map[string]any{
		"ids": []any{memories[1].ID},
	})
	if deleted["deleted"] != 1 {
		t.Fatalf("expected 1 delete, got %v", deleted)
	}
}

func TestTodoTools(t *testing.T) {
	store := testutil.OpenTestStore(t)

	invoke(t, tools.CreateTodosTool(store), map[string]any{"texts": []any{"buy milk"}})
	todos, err := store.ListTodos(context.Background())
	if err != nil {
		t.Fatalf("list todos: %v", err)
	}
	if len(todos) != 1 || todos[0].Done {
		t.Fatalf("unexpected todos: %+v", todos)
	}

	invoke(t, tools.UpdateTodosTool(store), map[string]any{
		"entries": []any{map[string]any{"id": todos[0].ID, "text": "buy milk", "done": true}},
	})
	todos, err = store.ListTodos(context.Background())
	if err != nil {
		t.Fatalf("list todos: %v", err)
	}
	if !todos[0].Done {
		t.Fatalf("todo not marked done: %+v", todos[0])
	}
}

func TestFilesystemToolsStayInsideRoot(t *testing.T) {
	root := t.TempDir()

	write := tools.WriteFileTool(root)
	invoke(t, write, map[string]any{
		"relative_path": "notes/todo.txt",
		"content":       "alpha\nbeta\ngamma\n",
	})
	data, err := os.ReadFile(filepath.Join(root, "notes", "todo.txt"))
	if err != nil {
		t.Fatalf("read written file: %v", err)
	}
	if string(data) != "alpha\nbeta\ngamma\n" {
		t.Fatalf("unexpected file content: %q", data)
	}

	read := invoke(t, tools.ReadFileTool(root), map[string]any{"relative_path": "notes/todo.txt"})
	if read["content"] != "alpha\nbeta\ngamma\n" {
		t.Fatalf("unexpected read content: %v", read["content"])
	}

	search := invoke(t, tools.SearchInFileTool(root), map[string]any{
		"relative_path": "notes/todo.txt",
		"query":         "beta",
	})
	if search["count"] != 1 {
		t.Fatalf("expected 1 match, got %v", search)
	}

	folder := invoke(t, tools.ReadFolderTool(root), map[string]any{"relative_path": "notes"})
	entries, _ := folder["entries"].([]map[string]any)
	if len(entries) != 1 || entries[0]["name"] != "todo.txt" {
		t.Fatalf("unexpected folder listing: %v", folder)
	}

	if _, err := tools.ReadFileTool(root).Invoke(context.Background(), map[string]any{
		"relative_path": "../escape.txt",
	}); err == nil {
		t.Fatalf("expected path escape to be rejected")
	}
}

func TestHistoryTools(t *testing.T) {
	manager := testutil.NewTestHistory(t)
	ids := make([]string, 0, 3)
	for _, text := range []string{"first", "second", "third"} {
		id, err := manager.Append(history.UserMessage(text, nil))
		if err != nil {
			t.Fatalf("append: %v", err)
		}
		ids = append(ids, id)
	}

	meta := invoke(t, tools.HistoryMetadataTool(manager), nil)
	if meta["count"] != 3 {
		t.Fatalf("expected 3 metadata rows, got %v", meta["count"])
	}

	entry := invoke(t, tools.HistoryEntryTool(manager), map[string]any{"id": ids[1]})
	env, ok := entry["entry"].(history.Envelope)
	if !ok {
		t.Fatalf("unexpected entry payload %T", entry["entry"])
	}
	if env.Content.Content[0].Text != "second" {
		t.Fatalf("wrong entry fetched: %+v", env)
	}

	stats := invoke(t, tools.HistoryStatsTool(manager), nil)
	if stats["entries"] != 3 {
		t.Fatalf("unexpected stats: %v", stats)
	}

	deleted := invoke(t, tools.HistoryDeleteTool(manager), map[string]any{
		"ids": []any{ids[0]}, "delete_all": false,
	})
	if deleted["deleted"] != 1 || manager.Len() != 2 {
		t.Fatalf("delete by id failed: %v len=%d", deleted, manager.Len())
	}

	wiped := invoke(t, tools.HistoryDeleteTool(manager), map[string]any{
		"ids": []any{}, "delete_all": true,
	})
	if wiped["deleted_all"] != true || manager.Len() != 0 {
		t.Fatalf("delete_all failed: %v len=%d", wiped, manager.Len())
	}
}
