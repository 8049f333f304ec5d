package tools

import (
	"context"
	"encoding/json"
	"fmt"
)

// Result is the serialized outcome of one tool invocation. Output is always
// valid JSON: either the tool's return value or an error payload of the form
// {"type":"error","message":...}.
type Result struct {
	CallID  string
	Output  string
	IsError bool
}

// Dispatch looks up and invokes one tool. Parse failures, unknown tools,
// invocation errors and panics all become error results; Dispatch never
// propagates a failure to the caller.
func Dispatch(ctx context.Context, registry *Registry, callID, name, rawArguments string) Result {
	args := map[string]any{}
	if rawArguments != "" {
		if err := json.Unmarshal([]byte(rawArguments), &args); err != nil {
			return errorResult(callID, fmt.Sprintf("invalid arguments for %s: %v", name, err))
		}
	}

	tool, ok := registry.Lookup(name)
	if !ok {
		return errorResult(callID, fmt.Sprintf("tool %q is not registered", name))
	}

	value, err := invoke(ctx, tool, args)
	if err != nil {
		return errorResult(callID, fmt.Sprintf("error occurred while calling function %s: %v", name, err))
	}

	output, err := json.Marshal(value)
	if err != nil {
		return errorResult(callID, fmt.Sprintf("tool %s returned an unserializable value: %v", name, err))
	}
	return Result{CallID: callID, Output: string(output)}
}

func invoke(ctx context.Context, tool Tool, args map[string]any) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tool panicked: %v", r)
		}
	}()
	return tool.Invoke(ctx, args)
}

func errorResult(callID, message string) Result {
	payload, _ := json.Marshal(map[string]string{"type": "error", "message": message})
	return Result{CallID: callID, Output: string(payload), IsError: true}
}
