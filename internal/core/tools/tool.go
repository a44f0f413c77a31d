// Package tools holds the executors the language model can invoke during a
// query, plus the registry that dispatches invocations by name.
package tools

import (
	"context"

	"course-assistant/internal/core/domain"
)

// Tool is one model-invocable capability. Execute always returns text, even
// on failure: the model consumes the result as conversation content, so
// errors must be phrased for the end user rather than raised.
type Tool interface {
	Declaration() domain.ToolDeclaration
	Execute(ctx context.Context, args map[string]any) string
	LastSources() []domain.SourceReference
	ResetSources()
}

func stringArg(args map[string]any, key string) string {
	if args == nil {
		return ""
	}
	value, ok := args[key].(string)
	if !ok {
		return ""
	}
	return value
}

func intArg(args map[string]any, key string) (int, bool) {
	if args == nil {
		return 0, false
	}
	switch typed := args[key].(type) {
	case int:
		return typed, true
	case int64:
		return int(typed), true
	case float64:
		return int(typed), true
	default:
		return 0, false
	}
}
