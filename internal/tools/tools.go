// Package tools defines the contract every assistant tool satisfies and the
// registry the turn controller dispatches against.
package tools

import (
	"context"
	"fmt"
)

// Schema is the declarative call signature advertised to the model.
type Schema struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
	Strict      bool           `json:"strict"`
}

// Tool is an external capability the model may invoke by name.
type Tool interface {
	Schema() Schema
	Invoke(ctx context.Context, args map[string]any) (any, error)
}

// Registry is an immutable, name-unique set of tools. It is built once before
// a run and never mutated afterwards.
type Registry struct {
	ordered []Tool
	byName  map[string]Tool
}

func NewRegistry(all ...Tool) (*Registry, error) {
	r := &Registry{byName: make(map[string]Tool, len(all))}
	for _, t := range all {
		name := t.Schema().Name
		if name == "" {
			return nil, fmt.Errorf("tool with empty name")
		}
		if _, exists := r.byName[name]; exists {
			return nil, fmt.Errorf("duplicate tool name %q", name)
		}
		r.byName[name] = t
		r.ordered = append(r.ordered, t)
	}
	return r, nil
}

func (r *Registry) Lookup(name string) (Tool, bool) {
	if r == nil {
		return nil, false
	}
	t, ok := r.byName[name]
	return t, ok
}

// Schemas returns tool schemas in registration order.
func (r *Registry) Schemas() []Schema {
	if r == nil {
		return nil
	}
	out := make([]Schema, 0, len(r.ordered))
	for _, t := range r.ordered {
		out = append(out, t.Schema())
	}
	return out
}

func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.ordered)
}

// objectSchema builds the parameter shape shared by every builtin tool:
// a closed object with the given properties, all required.
func objectSchema(properties map[string]any, required ...string) map[string]any {
	if required == nil {
		required = []string{}
	}
	if properties == nil {
		properties = map[string]any{}
	}
	return map[string]any{
		"type":                 "object",
		"properties":           properties,
		"required":             required,
		"additionalProperties": false,
	}
}
