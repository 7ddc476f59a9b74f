// Package entity implements the data bus: a catalog of entity definitions
// that independently developed modules extend with fields, relations,
// lifecycle hooks, actions and UI tabs.
package entity

import (
	"context"

	"github.com/google/uuid"
)

// HookType identifies one of the eight lifecycle slots of an entity.
type HookType string

const (
	HookBeforeCreate HookType = "beforeCreate"
	HookAfterCreate  HookType = "afterCreate"
	HookBeforeUpdate HookType = "beforeUpdate"
	HookAfterUpdate  HookType = "afterUpdate"
	HookBeforeDelete HookType = "beforeDelete"
	HookAfterDelete  HookType = "afterDelete"
	HookBeforeRead   HookType = "beforeRead"
	HookAfterRead    HookType = "afterRead"
)

// HookTypes lists every lifecycle slot.
var HookTypes = []HookType{
	HookBeforeCreate, HookAfterCreate,
	HookBeforeUpdate, HookAfterUpdate,
	HookBeforeDelete, HookAfterDelete,
	HookBeforeRead, HookAfterRead,
}

// Field describes one attribute of an entity. AddedBy is empty for base
// fields and carries the contributing module code for extended fields.
type Field struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	Type     string `json:"type"` // string, number, boolean, date, json, reference
	Required bool   `json:"required"`
	Default  any    `json:"default,omitempty"`
	AddedBy  string `json:"added_by,omitempty"`
}

// Relation links an entity to another entity.
type Relation struct {
	Code         string `json:"code"`
	TargetEntity string `json:"target_entity"`
	Kind         string `json:"kind"` // hasOne, hasMany, belongsTo, manyToMany
	AddedBy      string `json:"added_by,omitempty"`
}

// HookContext carries the record a lifecycle hook operates on.
type HookContext struct {
	Entity   string
	Type     HookType
	TenantID uuid.UUID
	Record   map[string]any
}

// HookFunc is a lifecycle hook handler.
type HookFunc func(ctx context.Context, hctx *HookContext) error

// Hook is a named lifecycle handler. Higher priority runs first; ties are
// broken by registration order.
type Hook struct {
	Name     string
	Handler  HookFunc
	Priority int
	AddedBy  string
}

// ActionContext carries the parameters of an entity action invocation.
type ActionContext struct {
	Entity    string
	Action    string
	TenantID  uuid.UUID
	Params    map[string]any
	RecordIDs []string
}

// ActionFunc is an entity action handler.
type ActionFunc func(ctx context.Context, actx *ActionContext) (any, error)

// Action is a named operation an extension contributes to an entity.
type Action struct {
	Code        string
	Name        string
	Handler     ActionFunc
	Bulk        bool
	Permissions []string
	AddedBy     string
}

// Tab is a UI tab an extension contributes to an entity's detail view.
// Order is a rendering hint; lower values sort first.
type Tab struct {
	Code      string `json:"code"`
	Name      string `json:"name"`
	Component string `json:"component"`
	Order     int    `json:"order"`
	AddedBy   string `json:"added_by,omitempty"`
}

// Definition is the base shape of an entity. BaseFields are set once at
// registration; everything else accretes through extensions.
type Definition struct {
	Code        string     `json:"code"`
	Name        string     `json:"name"`
	BaseFields  []Field    `json:"base_fields"`
	Relations   []Relation `json:"relations"`
	OwnerModule string     `json:"owner_module,omitempty"` // empty for core entities
}

// Extension is one module's contribution to a shared entity. It is created
// once per module at start-up and applied atomically.
type Extension struct {
	TargetEntity string
	ModuleCode   string
	Fields       []Field
	Relations    []Relation
	Hooks        map[HookType][]Hook
	Actions      []Action
	Tabs         []Tab
}

// ExtensionSummary is the introspectable record of an applied extension.
type ExtensionSummary struct {
	ModuleCode string `json:"module_code"`
	Fields     int    `json:"fields"`
	Relations  int    `json:"relations"`
	Hooks      int    `json:"hooks"`
	Actions    int    `json:"actions"`
	Tabs       int    `json:"tabs"`
}

// Schema is the serializable composed view of an entity: base definition
// plus every applied extension, with provenance.
type Schema struct {
	Code        string             `json:"code"`
	Name        string             `json:"name"`
	OwnerModule string             `json:"owner_module,omitempty"`
	Fields      []Field            `json:"fields"`
	Relations   []Relation         `json:"relations"`
	Tabs        []Tab              `json:"tabs"`
	Extensions  []ExtensionSummary `json:"extensions"`
}
