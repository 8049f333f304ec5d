package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/flitsinc/go-assistant/internal/state"
)

type getTodosTool struct{ store *state.Store }

// GetTodosTool lists the user's to-do items.
func GetTodosTool(store *state.Store) Tool {
	return &getTodosTool{store: store}
}

func (t *getTodosTool) Schema() Schema {
	return Schema{
		Name:        "get_todos",
		Description: "Retrieve all to-do items with their completion state.",
		Parameters:  objectSchema(nil),
		Strict:      true,
	}
}

func (t *getTodosTool) Invoke(ctx context.Context, _ map[string]any) (any, error) {
	todos, err := t.store.ListTodos(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]any{"status": "success", "count": len(todos), "todos": todos}, nil
}

type createTodosTool struct{ store *state.Store }

// CreateTodosTool adds new to-do items.
func CreateTodosTool(store *state.Store) Tool {
	return &createTodosTool{store: store}
}

func (t *createTodosTool) Schema() Schema {
	return Schema{
		Name:        "create_todos",
		Description: "Create new to-do items, one short actionable line each.",
		Parameters: objectSchema(map[string]any{
			"texts": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "To-do texts to create.",
			},
		}, "texts"),
		Strict: true,
	}
}

func (t *createTodosTool) Invoke(ctx context.Context, args map[string]any) (any, error) {
	texts, err := stringSliceArg(args, "texts")
	if err != nil {
		return nil, err
	}
	if len(texts) == 0 {
		return nil, fmt.Errorf("texts must not be empty")
	}
	created := make([]state.Todo, 0, len(texts))
	for _, text := range texts {
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		todo, err := t.store.CreateTodo(ctx, text)
		if err != nil {
			return nil, err
		}
		created = append(created, todo)
	}
	return map[string]any{"status": "success", "created": created}, nil
}

type updateTodosTool struct{ store *state.Store }

// UpdateTodosTool edits to-do text or completion state by id.
func UpdateTodosTool(store *state.Store) Tool {
	return &updateTodosTool{store: store}
}

func (t *updateTodosTool) Schema() Schema {
	return Schema{
		Name:        "update_todos",
		Description: "Update to-do items by id: change the text and/or mark done.",
		Parameters: objectSchema(map[string]any{
			"entries": map[string]any{
				"type": "array",
				"items": objectSchema(map[string]any{
					"id":   map[string]any{"type": "string", "description": "To-do id to update."},
					"text": map[string]any{"type": "string", "description": "Replacement text."},
					"done": map[string]any{"type": "boolean", "description": "Completion state."},
				}, "id", "text", "done"),
				"description": "To-dos to update.",
			},
		}, "entries"),
		Strict: true,
	}
}

func (t *updateTodosTool) Invoke(ctx context.Context, args map[string]any) (any, error) {
	entries, err := objectSliceArg(args, "entries")
	if err != nil {
		return nil, err
	}
	updated := 0
	for _, entry := range entries {
		id, err := stringArg(entry, "id")
		if err != nil {
			return nil, err
		}
		text, err := stringArg(entry, "text")
		if err != nil {
			return nil, err
		}
		if err := t.store.UpdateTodo(ctx, id, text, boolArg(entry, "done")); err != nil {
			return nil, err
		}
		updated++
	}
	return map[string]any{"status": "success", "updated": updated}, nil
}

type deleteTodosTool struct{ store *state.Store }

// DeleteTodosTool removes to-do items by id.
func DeleteTodosTool(store *state.Store) Tool {
	return &deleteTodosTool{store: store}
}

func (t *deleteTodosTool) Schema() Schema {
	return Schema{
		Name:        "delete_todos",
		Description: "Delete to-do items by id.",
		Parameters: objectSchema(map[string]any{
			"ids": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "To-do ids to delete.",
			},
		}, "ids"),
		Strict: true,
	}
}

func (t *deleteTodosTool) Invoke(ctx context.Context, args map[string]any) (any, error) {
	ids, err := stringSliceArg(args, "ids")
	if err != nil {
		return nil, err
	}
	deleted, err := t.store.DeleteTodos(ctx, ids)
	if err != nil {
		return nil, err
	}
	return map[string]any{"status": "success", "deleted": deleted}, nil
}
