package module

import (
	"fmt"
	"sync"

	"github.com/erp/platform/internal/domain/shared"
	"go.uber.org/zap"
)

// Registry is the single source of truth for module definitions and their
// relationships. It is mutated only during bootstrap; steady-state access is
// read-only.
type Registry struct {
	mu      sync.RWMutex
	modules map[string]*Definition
	logger  *zap.Logger
}

// NewRegistry creates an empty module registry.
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		modules: make(map[string]*Definition),
		logger:  logger,
	}
}

// Register inserts a module definition, keyed by code. Registering a code
// twice replaces the earlier definition and logs a warning; the last
// registration wins.
func (r *Registry) Register(def *Definition) error {
	if def == nil {
		return fmt.Errorf("%w: module definition cannot be nil", shared.ErrInvalidInput)
	}
	if err := def.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.modules[def.Code]; exists {
		r.logger.Warn("module already registered, overwriting definition",
			zap.String("module_code", def.Code),
			zap.String("version", def.Version),
		)
	}
	r.modules[def.Code] = def
	return nil
}

// Get returns a module definition by code.
func (r *Registry) Get(code string) (*Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, exists := r.modules[code]
	return def, exists
}

// GetAll returns all registered module definitions.
func (r *Registry) GetAll() []*Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]*Definition, 0, len(r.modules))
	for _, def := range r.modules {
		defs = append(defs, def)
	}
	return defs
}

// GetByCategory returns all modules in the given category.
func (r *Registry) GetByCategory(category string) []*Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]*Definition, 0)
	for _, def := range r.modules {
		if def.Category == category {
			defs = append(defs, def)
		}
	}
	return defs
}

// GetDependencies returns the transitive dependency closure of a module,
// de-duplicated, excluding the module itself. Edges to modules that are not
// (yet) registered are skipped, so the result is independent of registration
// order once all nodes exist.
func (r *Registry) GetDependencies(code string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	root, exists := r.modules[code]
	if !exists {
		return nil
	}

	visited := map[string]bool{code: true}
	result := make([]string, 0)
	queue := append([]string(nil), root.Dependencies...)

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if visited[current] {
			continue
		}
		visited[current] = true
		result = append(result, current)

		if dep, ok := r.modules[current]; ok {
			queue = append(queue, dep.Dependencies...)
		}
	}
	return result
}

// AreCompatible reports whether two modules may be enabled together.
// Both must exist, and neither may list the other as incompatible; the check
// is symmetric because a one-sided declaration is still a conflict.
func (r *Registry) AreCompatible(a, b string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	modA, okA := r.modules[a]
	modB, okB := r.modules[b]
	if !okA || !okB {
		return false
	}
	return !contains(modA.IncompatibleWith, b) && !contains(modB.IncompatibleWith, a)
}

// ValidationResult is the outcome of checking an enabled-module set.
type ValidationResult struct {
	Valid     bool         `json:"valid"`
	Missing   []Dependency `json:"missing"`
	Conflicts [][2]string  `json:"conflicts"`
}

// Dependency names a dependency edge from an enabled module to a module
// that is not enabled.
type Dependency struct {
	Module    string `json:"module"`
	DependsOn string `json:"depends_on"`
}

// ValidateSet checks a set of enabled module codes: every dependency of an
// enabled module must itself be enabled, and no two enabled modules may be
// mutually incompatible. Pure function over the registry's current contents.
func (r *Registry) ValidateSet(enabled []string) ValidationResult {
	r.mu.RLock()
	defer r.mu.RUnlock()

	enabledSet := make(map[string]bool, len(enabled))
	for _, code := range enabled {
		enabledSet[code] = true
	}

	result := ValidationResult{
		Missing:   make([]Dependency, 0),
		Conflicts: make([][2]string, 0),
	}

	for _, code := range enabled {
		def, ok := r.modules[code]
		if !ok {
			continue
		}
		for _, dep := range def.Dependencies {
			if !enabledSet[dep] {
				result.Missing = append(result.Missing, Dependency{Module: code, DependsOn: dep})
			}
		}
	}

	for i := 0; i < len(enabled); i++ {
		for j := i + 1; j < len(enabled); j++ {
			a, okA := r.modules[enabled[i]]
			b, okB := r.modules[enabled[j]]
			if !okA || !okB {
				continue
			}
			if contains(a.IncompatibleWith, b.Code) || contains(b.IncompatibleWith, a.Code) {
				result.Conflicts = append(result.Conflicts, [2]string{a.Code, b.Code})
			}
		}
	}

	result.Valid = len(result.Missing) == 0 && len(result.Conflicts) == 0
	return result
}

// GetDefaultEnabled returns all modules that should be enabled for a new
// tenant: core modules plus modules flagged default-enabled.
func (r *Registry) GetDefaultEnabled() []*Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]*Definition, 0)
	for _, def := range r.modules {
		if def.IsCore || def.DefaultEnabled {
			defs = append(defs, def)
		}
	}
	return defs
}

// Count returns the number of registered modules.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.modules)
}

func contains(list []string, target string) bool {
	for _, item := range list {
		if item == target {
			return true
		}
	}
	return false
}
