package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// resolveUnder joins relative against root and rejects escapes above root.
func resolveUnder(root, relative string) (string, error) {
	cleaned := filepath.Clean(filepath.Join(root, filepath.FromSlash(relative)))
	rel, err := filepath.Rel(root, cleaned)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes the workspace root", relative)
	}
	return cleaned, nil
}

var relativePathParams = objectSchema(map[string]any{
	"relative_path": map[string]any{
		"type":        "string",
		"description": "Path relative to the workspace root.",
	},
}, "relative_path")

type readFolderTool struct{ root string }

// ReadFolderTool lists a directory under the workspace root.
func ReadFolderTool(root string) Tool {
	return &readFolderTool{root: root}
}

func (t *readFolderTool) Schema() Schema {
	return Schema{
		Name:        "read_folder_content",
		Description: "List the files and subfolders of a folder in the workspace.",
		Parameters:  relativePathParams,
		Strict:      true,
	}
}

func (t *readFolderTool) Invoke(_ context.Context, args map[string]any) (any, error) {
	relative, err := stringArg(args, "relative_path")
	if err != nil {
		return nil, err
	}
	path, err := resolveUnder(t.root, relative)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("read folder: %w", err)
	}
	items := make([]map[string]any, 0, len(entries))
	for _, entry := range entries {
		items = append(items, map[string]any{
			"name":   entry.Name(),
			"is_dir": entry.IsDir(),
		})
	}
	return map[string]any{"status": "success", "entries": items}, nil
}

type readFileTool struct{ root string }

// ReadFileTool reads a file under the workspace root.
func ReadFileTool(root string) Tool {
	return &readFileTool{root: root}
}

func (t *readFileTool) Schema() Schema {
	return Schema{
		Name:        "read_file_content",
		Description: "Read the full text content of a file in the workspace.",
		Parameters:  relativePathParams,
		Strict:      true,
	}
}

func (t *readFileTool) Invoke(_ context.Context, args map[string]any) (any, error) {
	relative, err := stringArg(args, "relative_path")
	if err != nil {
		return nil, err
	}
	path, err := resolveUnder(t.root, relative)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return map[string]any{"status": "success", "content": string(data)}, nil
}

type writeFileTool struct{ root string }

// WriteFileTool writes a file under the workspace root, creating parents.
func WriteFileTool(root string) Tool {
	return &writeFileTool{root: root}
}

func (t *writeFileTool) Schema() Schema {
	return Schema{
		Name:        "write_file_content",
		Description: "Write text content to a file in the workspace, replacing any existing content.",
		Parameters: objectSchema(map[string]any{
			"relative_path": map[string]any{
				"type":        "string",
				"description": "Path relative to the workspace root.",
			},
			"content": map[string]any{
				"type":        "string",
				"description": "Full file content to write.",
			},
		}, "relative_path", "content"),
		Strict: true,
	}
}

func (t *writeFileTool) Invoke(_ context.Context, args map[string]any) (any, error) {
	relative, err := stringArg(args, "relative_path")
	if err != nil {
		return nil, err
	}
	content, err := stringArg(args, "content")
	if err != nil {
		return nil, err
	}
	path, err := resolveUnder(t.root, relative)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create parent dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return nil, fmt.Errorf("write file: %w", err)
	}
	return map[string]any{"status": "success", "bytes_written": len(content)}, nil
}

type searchInFileTool struct{ root string }

// SearchInFileTool finds lines containing a substring.
func SearchInFileTool(root string) Tool {
	return &searchInFileTool{root: root}
}

func (t *searchInFileTool) Schema() Schema {
	return Schema{
		Name:        "search_in_file",
		Description: "Search a workspace file for lines containing a substring; returns line numbers and text.",
		Parameters: objectSchema(map[string]any{
			"relative_path": map[string]any{
				"type":        "string",
				"description": "Path relative to the workspace root.",
			},
			"query": map[string]any{
				"type":        "string",
				"description": "Substring to search for.",
			},
		}, "relative_path", "query"),
		Strict: true,
	}
}

func (t *searchInFileTool) Invoke(_ context.Context, args map[string]any) (any, error) {
	relative, err := stringArg(args, "relative_path")
	if err != nil {
		return nil, err
	}
	query, err := stringArg(args, "query")
	if err != nil {
		return nil, err
	}
	path, err := resolveUnder(t.root, relative)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	var matches []map[string]any
	for i, line := range strings.Split(string(data), "\n") {
		if strings.Contains(line, query) {
			matches = append(matches, map[string]any{"line": i + 1, "text": line})
		}
	}
	return map[string]any{"status": "success", "count": len(matches), "matches": matches}, nil
}
