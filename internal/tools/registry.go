// Package tools holds the named operations the task loop may invoke and the
// registry that dispatches to them.
package tools

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// ToolID enumerates the registered operations.
type ToolID string

const (
	ReadDesign       ToolID = "read_design_file"
	ReadSpec         ToolID = "read_spec_file"
	ProjectStructure ToolID = "project_structure"
	FileGenerator    ToolID = "file_generator"
	GenerateAll      ToolID = "generate_project_files"
	Validator        ToolID = "project_validator"
	RunScript        ToolID = "create_run_script"
)

// State payload keys merged into the input of state-consuming tools.
const (
	KeyDesignData  = "design_data"
	KeySpecData    = "spec_data"
	KeyProjectRoot = "project_root"
)

// Param describes one input key. State params are filled from the loop's
// state rather than by the model and are left out of the catalog.
type Param struct {
	Name        string
	Description string
	Required    bool
	State       bool
}

// Spec is a tool's self-description.
type Spec struct {
	ID          ToolID
	Description string
	Params      []Param
	// ConsumesState marks tools that receive the loop's state payloads.
	ConsumesState bool
}

// Name is the action name the model uses.
func (s Spec) Name() string { return string(s.ID) }

// Input is a decoded action input.
type Input map[string]any

// String returns the string value of key, or "".
func (in Input) String(key string) string {
	s, _ := in[key].(string)
	return strings.TrimSpace(s)
}

// Map returns the object value of key, or nil.
func (in Input) Map(key string) map[string]any {
	m, _ := in[key].(map[string]any)
	return m
}

// Tool is one named operation. Call returns Observation text; a returned
// error is reported to the model by the registry.
type Tool interface {
	Spec() Spec
	Call(ctx context.Context, in Input) (string, error)
}

// Registry resolves action names to tools. It is built once at startup.
type Registry struct {
	logger *zap.Logger
	tools  map[ToolID]Tool
	names  []string
}

// NewRegistry registers tools under their IDs. Registering an ID twice is an
// error.
func NewRegistry(logger *zap.Logger, tools ...Tool) (*Registry, error) {
	r := &Registry{
		logger: logger.Named("tool_registry"),
		tools:  make(map[ToolID]Tool, len(tools)),
	}
	for _, t := range tools {
		if err := r.register(t); err != nil {
			return nil, err
		}
	}
	sort.Strings(r.names)
	return r, nil
}

func (r *Registry) register(t Tool) error {
	id := t.Spec().ID
	if id == "" {
		return fmt.Errorf("tool %T has no ID", t)
	}
	if _, dup := r.tools[id]; dup {
		return fmt.Errorf("tool %q registered twice", id)
	}
	r.tools[id] = t
	r.names = append(r.names, string(id))
	return nil
}

// Names returns the registered action names, sorted.
func (r *Registry) Names() []string { return append([]string(nil), r.names...) }

// Lookup returns the tool registered under name.
func (r *Registry) Lookup(name string) (Tool, bool) {
	t, ok := r.tools[ToolID(name)]
	return t, ok
}

// ConsumesState reports whether name receives the state payloads.
func (r *Registry) ConsumesState(name string) bool {
	t, ok := r.Lookup(name)
	return ok && t.Spec().ConsumesState
}

// Catalog renders one "name(params): description" line per tool.
func (r *Registry) Catalog() string {
	var b strings.Builder
	for _, name := range r.names {
		spec := r.tools[ToolID(name)].Spec()
		var params []string
		for _, p := range spec.Params {
			if p.State {
				continue
			}
			params = append(params, p.Name)
		}
		fmt.Fprintf(&b, "%s(%s): %s\n", name, strings.Join(params, ", "), spec.Description)
	}
	return b.String()
}

// InvalidActionMessage is the Observation for an unknown or missing action.
func (r *Registry) InvalidActionMessage(name string) string {
	return fmt.Sprintf("Error: Invalid action '%s'. Available actions: %v", name, r.names)
}

// Dispatch runs the named tool and always returns Observation text. Unknown
// names, missing parameters, errors and panics become error Observations.
func (r *Registry) Dispatch(ctx context.Context, name string, in Input) string {
	t, ok := r.Lookup(name)
	if !ok {
		return r.InvalidActionMessage(name)
	}
	if in == nil {
		in = Input{}
	}
	for _, p := range t.Spec().Params {
		if !p.Required {
			continue
		}
		if v, present := in[p.Name]; !present || v == nil || v == "" {
			return fmt.Sprintf("Error: Missing required parameter '%s' for action '%s'", p.Name, name)
		}
	}

	out, err := r.call(ctx, t, in)
	if err != nil {
		r.logger.Warn("Tool call failed", zap.String("tool", name), zap.Error(err))
		return fmt.Sprintf("Error executing action '%s': %v", name, err)
	}
	return out
}

func (r *Registry) call(ctx context.Context, t Tool, in Input) (out string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("Panic recovered during tool call",
				zap.String("tool", string(t.Spec().ID)),
				zap.Any("panic_value", rec),
				zap.Stack("stack"),
			)
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return t.Call(ctx, in)
}

// ClassifyOutcome applies the keyword heuristic to an Observation: success
// requires a success keyword and no failure keyword, case-insensitively.
func ClassifyOutcome(observation string, success, failure []string) bool {
	lower := strings.ToLower(observation)
	for _, k := range failure {
		if strings.Contains(lower, strings.ToLower(k)) {
			return false
		}
	}
	for _, k := range success {
		if strings.Contains(lower, strings.ToLower(k)) {
			return true
		}
	}
	return false
}
