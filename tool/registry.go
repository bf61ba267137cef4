package tool

import (
	"fmt"
	"sort"
	"sync"

	"github.com/hupe1980/chainmesh/core"
	"github.com/hupe1980/chainmesh/internal/util"
	"github.com/hupe1980/chainmesh/logging"
)

// Descriptor is the immutable, registration-time description of a tool. It is
// what planner backends see when declaring capabilities to a model.
type Descriptor struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  map[string]any  `json:"parameters"`
	SideEffect  core.SideEffect `json:"side_effect"`
}

// RegistryOptions configure a Registry.
type RegistryOptions struct {
	Logger logging.Logger
}

// Registry is the static mapping from tool name to invocable capability.
// Tools are registered at startup; afterwards the registry is read-only and
// safe for concurrent use — it is the only process-wide shared state in the
// engine.
type Registry struct {
	mu     sync.RWMutex
	tools  map[string]Tool
	logger logging.Logger
}

// NewRegistry creates an empty registry with optional overrides.
func NewRegistry(optFns ...func(o *RegistryOptions)) *Registry {
	opts := RegistryOptions{Logger: logging.NoOpLogger{}}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Registry{
		tools:  make(map[string]Tool),
		logger: opts.Logger,
	}
}

// Register adds a tool to the registry. Names must be unique; registering a
// duplicate name is a programming error and fails loudly.
func (r *Registry) Register(t Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := t.Name()
	if name == "" {
		return fmt.Errorf("tool with empty name cannot be registered")
	}

	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool %q already registered", name)
	}

	r.tools[name] = t
	r.logger.Debug("registry.tool.registered", "tool", name, "side_effect", t.SideEffect().String())

	return nil
}

// MustRegister registers tools and panics on duplicate names. Intended for
// static startup wiring.
func (r *Registry) MustRegister(tools ...Tool) {
	for _, t := range tools {
		if err := r.Register(t); err != nil {
			panic(err)
		}
	}
}

// Lookup resolves a tool by name or fails with *core.UnknownToolError.
func (r *Registry) Lookup(name string) (Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tools[name]
	if !ok {
		return nil, &core.UnknownToolError{Tool: name}
	}

	return t, nil
}

// ValidateArgs checks arguments against a registered tool's schema without
// invoking it. Used by the executor before fanning a partitioned call out.
func (r *Registry) ValidateArgs(name string, args map[string]any) error {
	t, err := r.Lookup(name)
	if err != nil {
		return err
	}

	if args == nil {
		args = map[string]any{}
	}

	if err := util.ValidateParameters(args, t.Parameters()); err != nil {
		return &core.ParameterValidationError{Tool: name, Err: err}
	}

	return nil
}

// Invoke resolves, validates and executes a tool in one step. It fails with
// *core.UnknownToolError if the name is unregistered and with
// *core.ParameterValidationError if the arguments violate the declared
// schema. Validation happens here, once, so tool implementations receive
// pre-validated arguments.
func (r *Registry) Invoke(toolCtx *core.ToolContext, name string, args map[string]any) (core.ToolResult, error) {
	t, err := r.Lookup(name)
	if err != nil {
		return core.ToolResult{}, err
	}

	if args == nil {
		args = map[string]any{}
	}

	if err := util.ValidateParameters(args, t.Parameters()); err != nil {
		r.logger.Warn("registry.invoke.validation_failed", "tool", name, "error", err.Error())

		return core.ToolResult{}, &core.ParameterValidationError{Tool: name, Err: err}
	}

	return t.Call(toolCtx, args)
}

// Names returns all registered tool names in lexical order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Descriptors returns the registration-time descriptions of all tools in
// lexical name order, for planner backends to declare.
func (r *Registry) Descriptors() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	descriptors := make([]Descriptor, 0, len(r.tools))
	for _, t := range r.tools {
		descriptors = append(descriptors, Descriptor{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
			SideEffect:  t.SideEffect(),
		})
	}

	sort.Slice(descriptors, func(i, j int) bool { return descriptors[i].Name < descriptors[j].Name })

	return descriptors
}
