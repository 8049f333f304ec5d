package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/flitsinc/go-assistant/internal/state"
)

type getMemoriesTool struct{ store *state.Store }

// GetMemoriesTool lists all stored user memories.
func GetMemoriesTool(store *state.Store) Tool {
	return &getMemoriesTool{store: store}
}

func (t *getMemoriesTool) Schema() Schema {
	return Schema{
		Name: "get_user_memories",
		Description: "Retrieve all durable facts stored about the user (preferences, goals, constraints, ongoing projects). " +
			"Call this silently on the first message of a new conversation.",
		Parameters: objectSchema(nil),
		Strict:     true,
	}
}

func (t *getMemoriesTool) Invoke(ctx context.Context, _ map[string]any) (any, error) {
	memories, err := t.store.ListMemories(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]any{"status": "success", "count": len(memories), "memories": memories}, nil
}

type createMemoriesTool struct{ store *state.Store }

// CreateMemoriesTool stores one or more new memories.
func CreateMemoriesTool(store *state.Store) Tool {
	return &createMemoriesTool{store: store}
}

func (t *createMemoriesTool) Schema() Schema {
	return Schema{
		Name: "create_user_memories",
		Description: "Store new durable facts about the user. One fact per entry, one line each, " +
			"starting with \"User\". Never store secrets or temporary task state.",
		Parameters: objectSchema(map[string]any{
			"texts": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "Memory texts to store.",
			},
		}, "texts"),
		Strict: true,
	}
}

func (t *createMemoriesTool) Invoke(ctx context.Context, args map[string]any) (any, error) {
	texts, err := stringSliceArg(args, "texts")
	if err != nil {
		return nil, err
	}
	if len(texts) == 0 {
		return nil, fmt.Errorf("texts must not be empty")
	}
	created := make([]state.Memory, 0, len(texts))
	for _, text := range texts {
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		memory, err := t.store.CreateMemory(ctx, text)
		if err != nil {
			return nil, err
		}
		created = append(created, memory)
	}
	return map[string]any{"status": "success", "created": created}, nil
}

type updateMemoriesTool struct{ store *state.Store }

// UpdateMemoriesTool rewrites existing memories by id.
func UpdateMemoriesTool(store *state.Store) Tool {
	return &updateMemoriesTool{store: store}
}

func (t *updateMemoriesTool) Schema() Schema {
	return Schema{
		Name:        "update_user_memories",
		Description: "Update existing user memories by id when facts change.",
		Parameters: objectSchema(map[string]any{
			"entries": map[string]any{
				"type": "array",
				"items": objectSchema(map[string]any{
					"id":   map[string]any{"type": "string", "description": "Memory id to update."},
					"text": map[string]any{"type": "string", "description": "Replacement text."},
				}, "id", "text"),
				"description": "Memories to update.",
			},
		}, "entries"),
		Strict: true,
	}
}

func (t *updateMemoriesTool) Invoke(ctx context.Context, args map[string]any) (any, error) {
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
		if err := t.store.UpdateMemory(ctx, id, text); err != nil {
			return nil, err
		}
		updated++
	}
	return map[string]any{"status": "success", "updated": updated}, nil
}

type deleteMemoriesTool struct{ store *state.Store }

// DeleteMemoriesTool removes memories by id.
func DeleteMemoriesTool(store *state.Store) Tool {
	return &deleteMemoriesTool{store: store}
}

func (t *deleteMemoriesTool) Schema() Schema {
	return Schema{
		Name:        "delete_user_memories",
		Description: "Delete obsolete user memories by id.",
		Parameters: objectSchema(map[string]any{
			"ids": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "Memory ids to delete.",
			},
		}, "ids"),
		Strict: true,
	}
}

func (t *deleteMemoriesTool) Invoke(ctx context.Context, args map[string]any) (any, error) {
	ids, err := stringSliceArg(args, "ids")
	if err != nil {
		return nil, err
	}
	deleted, err := t.store.DeleteMemories(ctx, ids)
	if err != nil {
		return nil, err
	}
	return map[string]any{"status": "success", "deleted": deleted}, nil
}
