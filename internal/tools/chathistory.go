package tools

import (
	"context"
	"fmt"

	"github.com/flitsinc/go-assistant/internal/history"
)

type historyMetadataTool struct{ manager *history.Manager }

// HistoryMetadataTool lists transcript entries without their content, so the
// model can survey the conversation cheaply before fetching specifics.
func HistoryMetadataTool(manager *history.Manager) Tool {
	return &historyMetadataTool{manager: manager}
}

func (t *historyMetadataTool) Schema() Schema {
	return Schema{
		Name: "get_chat_history_metadata",
		Description: "List every chat history entry's id, timestamp, type and size in bytes, " +
			"without content. Use this to find entries before reading or deleting them.",
		Parameters: objectSchema(nil),
		Strict:     true,
	}
}

func (t *historyMetadataTool) Invoke(_ context.Context, _ map[string]any) (any, error) {
	wrapped := t.manager.Wrapped()
	items := make([]map[string]any, 0, len(wrapped))
	for _, env := range wrapped {
		items = append(items, map[string]any{
			"id":   env.ID,
			"ts":   env.Timestamp,
			"type": env.Type,
			"size": env.Size,
		})
	}
	return map[string]any{"status": "success", "count": len(items), "entries": items}, nil
}

type historyEntryTool struct{ manager *history.Manager }

// HistoryEntryTool fetches one transcript entry in full by id.
func HistoryEntryTool(manager *history.Manager) Tool {
	return &historyEntryTool{manager: manager}
}

func (t *historyEntryTool) Schema() Schema {
	return Schema{
		Name:        "get_chat_history_entry",
		Description: "Read the full content of a single chat history entry by id.",
		Parameters: objectSchema(map[string]any{
			"id": map[string]any{
				"type":        "string",
				"description": "Entry id from get_chat_history_metadata.",
			},
		}, "id"),
		Strict: true,
	}
}

func (t *historyEntryTool) Invoke(_ context.Context, args map[string]any) (any, error) {
	id, err := stringArg(args, "id")
	if err != nil {
		return nil, err
	}
	env, ok := t.manager.EntryByID(id)
	if !ok {
		return nil, fmt.Errorf("no history entry with id %q", id)
	}
	return map[string]any{"status": "success", "entry": env}, nil
}

type historyDeleteTool struct{ manager *history.Manager }

// HistoryDeleteTool removes transcript entries by id, or the whole transcript.
func HistoryDeleteTool(manager *history.Manager) Tool {
	return &historyDeleteTool{manager: manager}
}

func (t *historyDeleteTool) Schema() Schema {
	return Schema{
		Name: "delete_chat_history_entries",
		Description: "Delete chat history entries by id, or everything when delete_all is true. " +
			"Deletion is permanent; confirm with the user first.",
		Parameters: objectSchema(map[string]any{
			"ids": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "Entry ids to delete. Ignored when delete_all is true.",
			},
			"delete_all": map[string]any{
				"type":        "boolean",
				"description": "Delete the entire chat history.",
			},
		}, "ids", "delete_all"),
		Strict: true,
	}
}

func (t *historyDeleteTool) Invoke(_ context.Context, args map[string]any) (any, error) {
	if boolArg(args, "delete_all") {
		removed := t.manager.Len()
		if err := t.manager.Clear(); err != nil {
			return nil, err
		}
		return map[string]any{"status": "success", "deleted": removed, "deleted_all": true}, nil
	}
	ids, err := stringSliceArg(args, "ids")
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("ids must not be empty unless delete_all is true")
	}
	removed, err := t.manager.Delete(ids)
	if err != nil {
		return nil, err
	}
	return map[string]any{"status": "success", "deleted": removed}, nil
}

type historyStatsTool struct{ manager *history.Manager }

// HistoryStatsTool summarizes the transcript: counts and sizes per entry type.
func HistoryStatsTool(manager *history.Manager) Tool {
	return &historyStatsTool{manager: manager}
}

func (t *historyStatsTool) Schema() Schema {
	return Schema{
		Name:        "get_chat_history_stats",
		Description: "Summarize the chat history: total entries, total size, and a per-type breakdown.",
		Parameters:  objectSchema(nil),
		Strict:      true,
	}
}

func (t *historyStatsTool) Invoke(_ context.Context, _ map[string]any) (any, error) {
	wrapped := t.manager.Wrapped()
	totalSize := 0
	byType := map[string]map[string]int{}
	for _, env := range wrapped {
		totalSize += env.Size
		bucket := byType[env.Type]
		if bucket == nil {
			bucket = map[string]int{}
			byType[env.Type] = bucket
		}
		bucket["count"]++
		bucket["size"] += env.Size
	}
	return map[string]any{
		"status":     "success",
		"entries":    len(wrapped),
		"total_size": totalSize,
		"by_type":    byType,
	}, nil
}
