package tools

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Registry holds the available tools. It is safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	tools      map[string]*Tool
	byCategory map[Category][]*Tool
}

func NewRegistry() *Registry {
	return &Registry{
		tools:      make(map[string]*Tool),
		byCategory: make(map[Category][]*Tool),
	}
}

// Register adds a tool. Names must be unique.
func (r *Registry) Register(tool *Tool) error {
	if err := tool.Validate(); err != nil {
		return fmt.Errorf("invalid tool: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[tool.Name]; exists {
		return fmt.Errorf("%w: %s", ErrToolAlreadyRegistered, tool.Name)
	}
	r.tools[tool.Name] = tool
	r.byCategory[tool.Category] = append(r.byCategory[tool.Category], tool)
	return nil
}

// MustRegister registers a tool and panics on error.
func (r *Registry) MustRegister(tool *Tool) {
	if err := r.Register(tool); err != nil {
		panic(fmt.Sprintf("failed to register tool %s: %v", tool.Name, err))
	}
}

// Get returns a tool by name, or nil if not found.
func (r *Registry) Get(name string) *Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tools[name]
}

func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tools[name]
	return ok
}

// GetByCategory returns the tools of one category in registration order.
func (r *Registry) GetByCategory(category Category) []*Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Tool, len(r.byCategory[category]))
	copy(out, r.byCategory[category])
	return out
}

// All returns every tool sorted by name.
func (r *Registry) All() []*Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Tool, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (r *Registry) Names() []string {
	all := r.All()
	names := make([]string, len(all))
	for i, t := range all {
		names[i] = t.Name
	}
	return names
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// Definitions returns the function declarations of every tool, sorted by name.
func (r *Registry) Definitions() []Definition {
	all := r.All()
	out := make([]Definition, len(all))
	for i, t := range all {
		out[i] = t.Definition()
	}
	return out
}

// Execute runs the named tool. ErrToolNotFound is the only lookup failure;
// argument and tool errors are returned alongside a nil result.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any, scope Scope) (any, error) {
	tool := r.Get(name)
	if tool == nil {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	if err := validateArgs(tool, args); err != nil {
		return nil, err
	}
	return tool.Execute(ctx, args, scope)
}

func validateArgs(tool *Tool, args map[string]any) error {
	for _, required := range tool.Schema.Required {
		v, ok := args[required]
		if !ok || v == nil {
			return fmt.Errorf("%w: %s", ErrMissingRequiredArg, required)
		}
	}
	return nil
}
