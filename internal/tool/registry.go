package tool

import (
	"fmt"

	"github.com/canre-io/canre/pkg/protocol"
)

// Registry holds tool descriptors in registration order. It is built once
// at startup and only read afterwards.
type Registry struct {
	order []string
	tools map[string]protocol.ToolDescriptor
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]protocol.ToolDescriptor)}
}

// Register appends a descriptor. Names must be unique.
func (r *Registry) Register(d protocol.ToolDescriptor) error {
	if d.Name == "" {
		return fmt.Errorf("tool registry: descriptor has no name")
	}
	if _, dup := r.tools[d.Name]; dup {
		return fmt.Errorf("tool registry: duplicate tool %q", d.Name)
	}
	r.order = append(r.order, d.Name)
	r.tools[d.Name] = d
	return nil
}

// Has returns true if a tool with the given name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.tools[name]
	return ok
}

// Get returns a descriptor by name.
func (r *Registry) Get(name string) (protocol.ToolDescriptor, bool) {
	d, ok := r.tools[name]
	return d, ok
}

// Names returns tool names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// List returns all descriptors in registration order.
func (r *Registry) List() []protocol.ToolDescriptor {
	defs := make([]protocol.ToolDescriptor, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.tools[name])
	}
	return defs
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	return len(r.order)
}
