package cmdschema

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
)

// Registry maps command names to their specs. It is filled once, frozen and then only read;
// concurrent lookups and validations on a frozen registry need no locking.
type Registry struct {
	commands map[string]*CommandSpec
	frozen   bool
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{commands: make(map[string]*CommandSpec)}
}

func commandKey(name string) string {
	// CMake command names are case-insensitive
	return strings.ToLower(name)
}

// Register adds spec under name. spec.Name is overwritten with name. The registry keeps a deep
// copy, so later changes to the caller's maps and slices don't reach the registered entry.
func (r *Registry) Register(name string, spec CommandSpec) error {
	if r.frozen {
		return schemaErrorf(name, "", "registry is frozen")
	}
	if name == "" {
		return schemaErrorf("", "", "empty command name")
	}

	key := commandKey(name)
	if existing, ok := r.commands[key]; ok {
		return schemaErrorf(name, "", "command already registered as %s", existing.Name)
	}

	if err := checkBlock(name, "", &spec.BlockSpec); err != nil {
		return err
	}

	r.commands[key] = &CommandSpec{Name: name, BlockSpec: spec.BlockSpec.clone()}
	return nil
}

// RegisterRaw decodes a raw declaration (as produced by the document loaders) and registers it.
func (r *Registry) RegisterRaw(name string, raw interface{}) error {
	spec, err := DecodeCommand(name, raw)
	if err != nil {
		return err
	}
	return r.Register(name, spec)
}

// Freeze rejects any further registration.
func (r *Registry) Freeze() {
	r.frozen = true
}

// Lookup returns the spec registered for name. The returned spec is shared and must not be modified.
func (r *Registry) Lookup(name string) (*CommandSpec, error) {
	spec, ok := r.commands[commandKey(name)]
	if !ok {
		notFound := &NotFoundError{Name: name}
		if best := suggest(commandKey(name), r.keys()); best != "" {
			notFound.Suggestion = r.commands[best].Name
		}
		return nil, notFound
	}
	return spec, nil
}

// Names returns all registered command names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.commands))
	for _, spec := range r.commands {
		names = append(names, spec.Name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered commands.
func (r *Registry) Len() int {
	return len(r.commands)
}

// ValidateInvocation checks an already classified invocation of name. It returns a *NotFoundError
// for unknown commands and a *ValidationError listing every violation otherwise.
func (r *Registry) ValidateInvocation(name string, inv Invocation) error {
	spec, err := r.Lookup(name)
	if err != nil {
		return err
	}

	violations := spec.Validate(inv)
	if len(violations) > 0 {
		return &ValidationError{Command: spec.Name, Violations: violations}
	}
	return nil
}

func (r *Registry) keys() []string {
	keys := make([]string, 0, len(r.commands))
	for key := range r.commands {
		keys = append(keys, key)
	}
	return keys
}

// suggest returns the candidate closest to name if it is within an edit distance of 2.
func suggest(name string, candidates []string) string {
	sorted := make([]string, len(candidates))
	copy(sorted, candidates)
	sort.Strings(sorted)

	best := ""
	bestDist := 3
	for _, candidate := range sorted {
		dist := levenshtein.ComputeDistance(name, candidate)
		if dist < bestDist && dist < len(name) {
			best = candidate
			bestDist = dist
		}
	}
	return best
}
