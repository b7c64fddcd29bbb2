package capability

import (
	"fmt"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/bioviz-local/biocopilot/internal/model"
)

// ErrDuplicate is returned when a capability name is registered twice.
// Duplicate registration is a startup configuration error and is fatal to
// gateway initialization.
var ErrDuplicate = fmt.Errorf("capability already registered")

// Descriptor is the generic tool-schema shape handed to the model
// collaborator: name, description, and parameter schema.
type Descriptor struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Parameters  *jsonschema.Schema `json:"parameters"`
}

// entry pairs a capability with its resolved parameter schema.
type entry struct {
	cap      *Capability
	resolved *jsonschema.Resolved
}

// Registry is the static catalog of callable operations. Registration
// happens at startup; afterwards the registry is read-only and reads
// never block each other.
type Registry struct {
	mu    sync.RWMutex
	byName map[string]*entry
	order  []string
}

// NewRegistry creates an empty capability registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*entry)}
}

// Register adds a capability to the registry. It fails on a duplicate name,
// an invalid risk level, a missing handler, an unresolvable parameter
// schema, or a ContextKey that names no schema property.
func (r *Registry) Register(c *Capability) error {
	if c == nil || c.Name == "" {
		return fmt.Errorf("capability name is required")
	}
	if !c.Risk.Valid() {
		return fmt.Errorf("capability %q: invalid risk level %q", c.Name, c.Risk)
	}
	if c.Handler == nil {
		return fmt.Errorf("capability %q: handler is required", c.Name)
	}
	if c.Params == nil {
		return fmt.Errorf("capability %q: parameter schema is required", c.Name)
	}
	for _, key := range c.ContextKeys {
		if _, ok := c.Params.Properties[key]; !ok {
			return fmt.Errorf("capability %q: context key %q is not a declared parameter", c.Name, key)
		}
	}

	resolved, err := c.Params.Resolve(nil)
	if err != nil {
		return fmt.Errorf("capability %q: resolve parameter schema: %w", c.Name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[c.Name]; exists {
		return fmt.Errorf("capability %q: %w", c.Name, ErrDuplicate)
	}
	r.byName[c.Name] = &entry{cap: c, resolved: resolved}
	r.order = append(r.order, c.Name)
	return nil
}

// Lookup returns the capability for the given name, or nil if absent.
// Matching is case-sensitive.
func (r *Registry) Lookup(name string) *Capability {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e := r.byName[name]
	if e == nil {
		return nil
	}
	return e.cap
}

// Schema returns the resolved parameter schema for the given name, or nil.
func (r *Registry) Schema(name string) *jsonschema.Resolved {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e := r.byName[name]
	if e == nil {
		return nil
	}
	return e.resolved
}

// Names returns capability names in registration order. With risk levels
// given, only capabilities at one of those levels are included.
func (r *Registry) Names(levels ...model.RiskLevel) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var names []string
	for _, name := range r.order {
		if len(levels) == 0 {
			names = append(names, name)
			continue
		}
		for _, lvl := range levels {
			if r.byName[name].cap.Risk == lvl {
				names = append(names, name)
				break
			}
		}
	}
	return names
}

// Descriptors returns the capability descriptors in registration order.
// The order is stable across calls.
func (r *Registry) Descriptors() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	descs := make([]Descriptor, 0, len(r.order))
	for _, name := range r.order {
		c := r.byName[name].cap
		descs = append(descs, Descriptor{
			Name:        c.Name,
			Description: c.Description,
			Parameters:  c.Params,
		})
	}
	return descs
}

// Len returns the number of registered capabilities.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
