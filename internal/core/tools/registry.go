package tools

import (
	"context"
	"fmt"

	"course-assistant/internal/core/domain"
)

// Registry maps tool names to executors. Dispatch is an explicit lookup:
// a name the model invents fails with domain.ErrUnknownTool, since it
// indicates a declaration/registry mismatch rather than a user error.
type Registry struct {
	order []string
	tools map[string]Tool
}

func NewRegistry(registered ...Tool) (*Registry, error) {
	r := &Registry{tools: make(map[string]Tool)}
	for _, tool := range registered {
		if err := r.Register(tool); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) Register(tool Tool) error {
	name := tool.Declaration().Name
	if name == "" {
		return fmt.Errorf("register tool: empty name")
	}
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("register tool: duplicate name %q", name)
	}
	r.tools[name] = tool
	r.order = append(r.order, name)
	return nil
}

// Declarations returns the tool schemas in registration order.
func (r *Registry) Declarations() []domain.ToolDeclaration {
	out := make([]domain.ToolDeclaration, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name].Declaration())
	}
	return out
}

func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) (string, error) {
	tool, ok := r.tools[name]
	if !ok {
		return "", domain.WrapError(domain.ErrUnknownTool, "execute tool", fmt.Errorf("%q is not registered", name))
	}
	return tool.Execute(ctx, args), nil
}

// CollectSources concatenates lastSources across all tools in registration
// order. Callers must ResetSources afterwards, once per completed query.
func (r *Registry) CollectSources() []domain.SourceReference {
	var out []domain.SourceReference
	for _, name := range r.order {
		out = append(out, r.tools[name].LastSources()...)
	}
	return out
}

func (r *Registry) ResetSources() {
	for _, name := range r.order {
		r.tools[name].ResetSources()
	}
}
