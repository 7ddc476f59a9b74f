package entity

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/erp/platform/internal/domain/shared"
	"go.uber.org/zap"
)

// state holds one entity's composed definition. Extended items keep strict
// registration order; hooks are merged into their lifecycle slot as
// extensions arrive.
type state struct {
	def            *Definition
	extendedFields []Field
	relations      []Relation
	hooks          map[HookType][]Hook
	extensions     []*Extension
}

// Registry composes one logical schema per entity from a base definition
// plus N module extensions. Mutated only during bootstrap; hook and action
// execution are the steady-state paths.
type Registry struct {
	mu       sync.RWMutex
	entities map[string]*state
	logger   *zap.Logger
}

// NewRegistry creates an empty entity registry.
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		entities: make(map[string]*state),
		logger:   logger,
	}
}

// RegisterEntity stores an entity definition by code and initializes its
// extension containers. Re-registering a code replaces the definition and
// drops previously applied extensions, with a warning; the last
// registration wins.
func (r *Registry) RegisterEntity(def *Definition) error {
	if def == nil {
		return fmt.Errorf("%w: entity definition cannot be nil", shared.ErrInvalidInput)
	}
	if def.Code == "" {
		return fmt.Errorf("%w: entity code cannot be empty", shared.ErrInvalidInput)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entities[def.Code]; exists {
		r.logger.Warn("entity already registered, overwriting definition",
			zap.String("entity_code", def.Code),
		)
	}

	r.entities[def.Code] = &state{
		def:            def,
		extendedFields: make([]Field, 0),
		relations:      append([]Relation(nil), def.Relations...),
		hooks:          make(map[HookType][]Hook),
		extensions:     make([]*Extension, 0),
	}
	return nil
}

// Extend applies a module's extension to its target entity atomically.
// Every contributed field, relation, hook and tab is tagged with the
// contributing module code. Fails if the target entity is not registered;
// ordering across modules is the bootstrap routine's responsibility.
func (r *Registry) Extend(ext *Extension) error {
	if ext == nil {
		return fmt.Errorf("%w: extension cannot be nil", shared.ErrInvalidInput)
	}
	if ext.ModuleCode == "" {
		return fmt.Errorf("%w: extension module code cannot be empty", shared.ErrInvalidInput)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	st, exists := r.entities[ext.TargetEntity]
	if !exists {
		return fmt.Errorf("%w: cannot extend '%s', entity is not registered",
			shared.ErrUnknownEntity, ext.TargetEntity)
	}

	applied := &Extension{
		TargetEntity: ext.TargetEntity,
		ModuleCode:   ext.ModuleCode,
		Hooks:        make(map[HookType][]Hook),
	}

	for _, field := range ext.Fields {
		field.AddedBy = ext.ModuleCode
		applied.Fields = append(applied.Fields, field)
		st.extendedFields = append(st.extendedFields, field)
	}
	for _, rel := range ext.Relations {
		rel.AddedBy = ext.ModuleCode
		applied.Relations = append(applied.Relations, rel)
		st.relations = append(st.relations, rel)
	}
	for hookType, hooks := range ext.Hooks {
		for _, hook := range hooks {
			hook.AddedBy = ext.ModuleCode
			applied.Hooks[hookType] = append(applied.Hooks[hookType], hook)
			st.hooks[hookType] = append(st.hooks[hookType], hook)
		}
	}
	for _, action := range ext.Actions {
		action.AddedBy = ext.ModuleCode
		applied.Actions = append(applied.Actions, action)
	}
	for _, tab := range ext.Tabs {
		tab.AddedBy = ext.ModuleCode
		applied.Tabs = append(applied.Tabs, tab)
	}

	st.extensions = append(st.extensions, applied)

	r.logger.Debug("entity extended",
		zap.String("entity_code", ext.TargetEntity),
		zap.String("module_code", ext.ModuleCode),
		zap.Int("fields", len(applied.Fields)),
		zap.Int("actions", len(applied.Actions)),
	)
	return nil
}

// GetEntity returns the base definition of an entity.
func (r *Registry) GetEntity(code string) (*Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	st, exists := r.entities[code]
	if !exists {
		return nil, false
	}
	return st.def, true
}

// GetFields returns base fields followed by extended fields in strict
// registration order. UI ordering hints are a rendering concern for
// callers and are not applied here.
func (r *Registry) GetFields(code string) []Field {
	r.mu.RLock()
	defer r.mu.RUnlock()

	st, exists := r.entities[code]
	if !exists {
		return nil
	}

	fields := make([]Field, 0, len(st.def.BaseFields)+len(st.extendedFields))
	fields = append(fields, st.def.BaseFields...)
	fields = append(fields, st.extendedFields...)
	return fields
}

// GetField returns a single field of an entity by field code.
func (r *Registry) GetField(code, fieldCode string) (*Field, bool) {
	for _, field := range r.GetFields(code) {
		if field.Code == fieldCode {
			return &field, true
		}
	}
	return nil, false
}

// GetSchema returns the serializable composed view of an entity, or nil if
// the entity is unknown.
func (r *Registry) GetSchema(code string) *Schema {
	r.mu.RLock()
	defer r.mu.RUnlock()

	st, exists := r.entities[code]
	if !exists {
		return nil
	}

	schema := &Schema{
		Code:        st.def.Code,
		Name:        st.def.Name,
		OwnerModule: st.def.OwnerModule,
		Fields:      make([]Field, 0, len(st.def.BaseFields)+len(st.extendedFields)),
		Relations:   append([]Relation(nil), st.relations...),
		Tabs:        r.collectTabs(st),
		Extensions:  make([]ExtensionSummary, 0, len(st.extensions)),
	}
	schema.Fields = append(schema.Fields, st.def.BaseFields...)
	schema.Fields = append(schema.Fields, st.extendedFields...)

	for _, ext := range st.extensions {
		hookCount := 0
		for _, hooks := range ext.Hooks {
			hookCount += len(hooks)
		}
		schema.Extensions = append(schema.Extensions, ExtensionSummary{
			ModuleCode: ext.ModuleCode,
			Fields:     len(ext.Fields),
			Relations:  len(ext.Relations),
			Hooks:      hookCount,
			Actions:    len(ext.Actions),
			Tabs:       len(ext.Tabs),
		})
	}
	return schema
}

// GetActions flattens actions across extensions in registration order.
func (r *Registry) GetActions(code string) []Action {
	r.mu.RLock()
	defer r.mu.RUnlock()

	st, exists := r.entities[code]
	if !exists {
		return nil
	}

	actions := make([]Action, 0)
	for _, ext := range st.extensions {
		actions = append(actions, ext.Actions...)
	}
	return actions
}

// GetTabs flattens tabs across extensions, sorted ascending by their order
// hint for deterministic UI rendering.
func (r *Registry) GetTabs(code string) []Tab {
	r.mu.RLock()
	defer r.mu.RUnlock()

	st, exists := r.entities[code]
	if !exists {
		return nil
	}
	return r.collectTabs(st)
}

func (r *Registry) collectTabs(st *state) []Tab {
	tabs := make([]Tab, 0)
	for _, ext := range st.extensions {
		tabs = append(tabs, ext.Tabs...)
	}
	sort.SliceStable(tabs, func(i, j int) bool {
		return tabs[i].Order < tabs[j].Order
	})
	return tabs
}

// ExecuteHooks runs every hook registered for the entity's lifecycle slot,
// highest priority first, ties broken by registration order. Handlers run
// sequentially and each failure is logged and swallowed so the remaining
// hooks always run. This is explicit best-effort, not transactional.
func (r *Registry) ExecuteHooks(ctx context.Context, hookType HookType, hctx *HookContext) error {
	r.mu.RLock()
	st, exists := r.entities[hctx.Entity]
	if !exists {
		r.mu.RUnlock()
		return fmt.Errorf("%w: entity '%s'", shared.ErrUnknownEntity, hctx.Entity)
	}
	hooks := append([]Hook(nil), st.hooks[hookType]...)
	r.mu.RUnlock()

	sort.SliceStable(hooks, func(i, j int) bool {
		return hooks[i].Priority > hooks[j].Priority
	})

	hctx.Type = hookType
	for _, hook := range hooks {
		if err := r.runHook(ctx, hook, hctx); err != nil {
			r.logger.Error("entity hook failed",
				zap.String("entity_code", hctx.Entity),
				zap.String("hook_type", string(hookType)),
				zap.String("hook_name", hook.Name),
				zap.String("added_by", hook.AddedBy),
				zap.Error(err),
			)
		}
	}
	return nil
}

// runHook invokes a single hook, converting a panic into an error.
func (r *Registry) runHook(ctx context.Context, hook Hook, hctx *HookContext) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: hook '%s' panicked: %v", shared.ErrHandlerFailure, hook.Name, rec)
		}
	}()
	return hook.Handler(ctx, hctx)
}

// ExecuteAction scans extensions in registration order and invokes the
// first action matching the code. Unlike hooks, an action's error is
// propagated to the caller unchanged.
func (r *Registry) ExecuteAction(ctx context.Context, entityCode, actionCode string, actx *ActionContext) (any, error) {
	r.mu.RLock()
	st, exists := r.entities[entityCode]
	if !exists {
		r.mu.RUnlock()
		return nil, fmt.Errorf("%w: entity '%s'", shared.ErrUnknownEntity, entityCode)
	}

	var match *Action
	for _, ext := range st.extensions {
		for i := range ext.Actions {
			if ext.Actions[i].Code == actionCode {
				match = &ext.Actions[i]
				break
			}
		}
		if match != nil {
			break
		}
	}
	r.mu.RUnlock()

	if match == nil {
		return nil, fmt.Errorf("%w: action '%s' on entity '%s'",
			shared.ErrActionNotFound, actionCode, entityCode)
	}

	actx.Entity = entityCode
	actx.Action = actionCode
	return match.Handler(ctx, actx)
}

// Codes returns the codes of all registered entities.
func (r *Registry) Codes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	codes := make([]string, 0, len(r.entities))
	for code := range r.entities {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
