package tools

import (
	"context"
	"time"
)

type clockTool struct {
	now func() time.Time
}

// ClockTool reports the current local date and time.
func ClockTool() Tool {
	return &clockTool{now: time.Now}
}

func (t *clockTool) Schema() Schema {
	return Schema{
		Name:        "get_time",
		Description: "Get the current date and time.",
		Parameters:  objectSchema(nil),
		Strict:      true,
	}
}

func (t *clockTool) Invoke(_ context.Context, _ map[string]any) (any, error) {
	now := t.now()
	return map[string]any{
		"status": "success",
		"time":   now.Format("2006-01-02 15:04:05"),
		"zone":   now.Format("MST"),
	}, nil
}
