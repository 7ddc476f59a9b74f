package entity

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/erp/platform/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRegistry() *Registry {
	return NewRegistry(zap.NewNop())
}

func customerDefinition() *Definition {
	return &Definition{
		Code: "customer",
		Name: "Customer",
		BaseFields: []Field{
			{Code: "id", Type: "string", Required: true},
			{Code: "name", Type: "string", Required: true},
		},
	}
}

func TestRegistry_RegisterEntity(t *testing.T) {
	registry := newTestRegistry()

	require.NoError(t, registry.RegisterEntity(customerDefinition()))

	def, exists := registry.GetEntity("customer")
	require.True(t, exists)
	assert.Equal(t, "Customer", def.Name)
}

func TestRegistry_RegisterEntity_Invalid(t *testing.T) {
	registry := newTestRegistry()

	assert.ErrorIs(t, registry.RegisterEntity(nil), shared.ErrInvalidInput)
	assert.ErrorIs(t, registry.RegisterEntity(&Definition{Name: "Nameless"}), shared.ErrInvalidInput)
}

func TestRegistry_RegisterEntity_DuplicateReplaces(t *testing.T) {
	registry := newTestRegistry()

	require.NoError(t, registry.RegisterEntity(customerDefinition()))
	require.NoError(t, registry.Extend(&Extension{
		TargetEntity: "customer",
		ModuleCode:   "@loyalty",
		Fields:       []Field{{Code: "loyaltyPoints", Type: "number"}},
	}))

	// Second registration fully replaces the first, extensions included
	require.NoError(t, registry.RegisterEntity(&Definition{
		Code:       "customer",
		Name:       "Customer v2",
		BaseFields: []Field{{Code: "id", Type: "string"}},
	}))

	def, exists := registry.GetEntity("customer")
	require.True(t, exists)
	assert.Equal(t, "Customer v2", def.Name)
	assert.Len(t, registry.GetFields("customer"), 1)
}

func TestRegistry_Extend_UnknownEntity(t *testing.T) {
	registry := newTestRegistry()

	err := registry.Extend(&Extension{TargetEntity: "ghost", ModuleCode: "@loyalty"})
	assert.ErrorIs(t, err, shared.ErrUnknownEntity)
}

func TestRegistry_Extend_TagsProvenance(t *testing.T) {
	registry := newTestRegistry()
	require.NoError(t, registry.RegisterEntity(customerDefinition()))

	require.NoError(t, registry.Extend(&Extension{
		TargetEntity: "customer",
		ModuleCode:   "@loyalty",
		Fields:       []Field{{Code: "loyaltyPoints", Type: "number"}},
		Relations:    []Relation{{Code: "rewards", TargetEntity: "reward", Kind: "hasMany"}},
		Tabs:         []Tab{{Code: "loyalty", Name: "Loyalty"}},
	}))

	schema := registry.GetSchema("customer")
	require.NotNil(t, schema)
	require.Len(t, schema.Fields, 3)
	assert.Equal(t, "@loyalty", schema.Fields[2].AddedBy)
	assert.Empty(t, schema.Fields[0].AddedBy)
	require.Len(t, schema.Relations, 1)
	assert.Equal(t, "@loyalty", schema.Relations[0].AddedBy)
	require.Len(t, schema.Tabs, 1)
	assert.Equal(t, "@loyalty", schema.Tabs[0].AddedBy)
	require.Len(t, schema.Extensions, 1)
	assert.Equal(t, "@loyalty", schema.Extensions[0].ModuleCode)
	assert.Equal(t, 1, schema.Extensions[0].Fields)
}

func TestRegistry_GetFields_RegistrationOrder(t *testing.T) {
	registry := newTestRegistry()
	require.NoError(t, registry.RegisterEntity(customerDefinition()))

	require.NoError(t, registry.Extend(&Extension{
		TargetEntity: "customer",
		ModuleCode:   "@loyalty",
		Fields:       []Field{{Code: "x", Type: "number"}},
	}))
	require.NoError(t, registry.Extend(&Extension{
		TargetEntity: "customer",
		ModuleCode:   "@pricing",
		Fields:       []Field{{Code: "y", Type: "number"}},
	}))

	fields := registry.GetFields("customer")
	require.Len(t, fields, 4)
	codes := []string{fields[0].Code, fields[1].Code, fields[2].Code, fields[3].Code}
	assert.Equal(t, []string{"id", "name", "x", "y"}, codes)
}

func TestRegistry_GetField(t *testing.T) {
	registry := newTestRegistry()
	require.NoError(t, registry.RegisterEntity(customerDefinition()))

	field, found := registry.GetField("customer", "name")
	require.True(t, found)
	assert.True(t, field.Required)

	_, found = registry.GetField("customer", "ghost")
	assert.False(t, found)
}

func TestRegistry_GetSchema_UnknownEntity(t *testing.T) {
	registry := newTestRegistry()
	assert.Nil(t, registry.GetSchema("ghost"))
}

func TestRegistry_GetTabs_SortedByOrderHint(t *testing.T) {
	registry := newTestRegistry()
	require.NoError(t, registry.RegisterEntity(customerDefinition()))

	require.NoError(t, registry.Extend(&Extension{
		TargetEntity: "customer",
		ModuleCode:   "@loyalty",
		Tabs:         []Tab{{Code: "loyalty", Order: 20}},
	}))
	require.NoError(t, registry.Extend(&Extension{
		TargetEntity: "customer",
		ModuleCode:   "@invoicing",
		Tabs:         []Tab{{Code: "invoices", Order: 10}, {Code: "credit"}}, // default order 0
	}))

	tabs := registry.GetTabs("customer")
	require.Len(t, tabs, 3)
	assert.Equal(t, "credit", tabs[0].Code)
	assert.Equal(t, "invoices", tabs[1].Code)
	assert.Equal(t, "loyalty", tabs[2].Code)
}

func TestRegistry_GetActions_RegistrationOrder(t *testing.T) {
	registry := newTestRegistry()
	require.NoError(t, registry.RegisterEntity(customerDefinition()))

	noop := func(ctx context.Context, actx *ActionContext) (any, error) { return nil, nil }

	require.NoError(t, registry.Extend(&Extension{
		TargetEntity: "customer",
		ModuleCode:   "@loyalty",
		Actions:      []Action{{Code: "grantPoints", Handler: noop}},
	}))
	require.NoError(t, registry.Extend(&Extension{
		TargetEntity: "customer",
		ModuleCode:   "@webhooks",
		Actions:      []Action{{Code: "resendWebhook", Handler: noop}},
	}))

	actions := registry.GetActions("customer")
	require.Len(t, actions, 2)
	assert.Equal(t, "grantPoints", actions[0].Code)
	assert.Equal(t, "@loyalty", actions[0].AddedBy)
	assert.Equal(t, "resendWebhook", actions[1].Code)
}

func TestRegistry_ExecuteHooks_PriorityOrder(t *testing.T) {
	registry := newTestRegistry()
	require.NoError(t, registry.RegisterEntity(customerDefinition()))

	var mu sync.Mutex
	ran := make([]int, 0)
	record := func(priority int) HookFunc {
		return func(ctx context.Context, hctx *HookContext) error {
			mu.Lock()
			defer mu.Unlock()
			ran = append(ran, priority)
			return nil
		}
	}

	require.NoError(t, registry.Extend(&Extension{
		TargetEntity: "customer",
		ModuleCode:   "@loyalty",
		Hooks: map[HookType][]Hook{
			HookBeforeCreate: {
				{Name: "p5", Priority: 5, Handler: record(5)},
				{Name: "p10", Priority: 10, Handler: record(10)},
				{Name: "p1", Priority: 1, Handler: record(1)},
			},
		},
	}))

	err := registry.ExecuteHooks(context.Background(), HookBeforeCreate, &HookContext{Entity: "customer"})
	require.NoError(t, err)
	assert.Equal(t, []int{10, 5, 1}, ran)
}

func TestRegistry_ExecuteHooks_FailureIsolation(t *testing.T) {
	registry := newTestRegistry()
	require.NoError(t, registry.RegisterEntity(customerDefinition()))

	var mu sync.Mutex
	ran := make([]string, 0)
	record := func(name string) {
		mu.Lock()
		defer mu.Unlock()
		ran = append(ran, name)
	}

	require.NoError(t, registry.Extend(&Extension{
		TargetEntity: "customer",
		ModuleCode:   "@loyalty",
		Hooks: map[HookType][]Hook{
			HookBeforeCreate: {
				{Name: "failing", Priority: 10, Handler: func(ctx context.Context, hctx *HookContext) error {
					record("failing")
					return errors.New("boom")
				}},
				{Name: "panicking", Priority: 8, Handler: func(ctx context.Context, hctx *HookContext) error {
					record("panicking")
					panic("kaboom")
				}},
				{Name: "ok", Priority: 5, Handler: func(ctx context.Context, hctx *HookContext) error {
					record("ok")
					return nil
				}},
			},
		},
	}))

	// Every hook runs despite earlier failures, and ExecuteHooks does not error
	err := registry.ExecuteHooks(context.Background(), HookBeforeCreate, &HookContext{Entity: "customer"})
	require.NoError(t, err)
	assert.Equal(t, []string{"failing", "panicking", "ok"}, ran)
}

func TestRegistry_ExecuteHooks_TieBrokenByRegistrationOrder(t *testing.T) {
	registry := newTestRegistry()
	require.NoError(t, registry.RegisterEntity(customerDefinition()))

	var mu sync.Mutex
	ran := make([]string, 0)
	record := func(name string) HookFunc {
		return func(ctx context.Context, hctx *HookContext) error {
			mu.Lock()
			defer mu.Unlock()
			ran = append(ran, name)
			return nil
		}
	}

	require.NoError(t, registry.Extend(&Extension{
		TargetEntity: "customer",
		ModuleCode:   "@first",
		Hooks:        map[HookType][]Hook{HookAfterUpdate: {{Name: "a", Priority: 5, Handler: record("a")}}},
	}))
	require.NoError(t, registry.Extend(&Extension{
		TargetEntity: "customer",
		ModuleCode:   "@second",
		Hooks:        map[HookType][]Hook{HookAfterUpdate: {{Name: "b", Priority: 5, Handler: record("b")}}},
	}))

	require.NoError(t, registry.ExecuteHooks(context.Background(), HookAfterUpdate, &HookContext{Entity: "customer"}))
	assert.Equal(t, []string{"a", "b"}, ran)
}

func TestRegistry_ExecuteHooks_UnknownEntity(t *testing.T) {
	registry := newTestRegistry()

	err := registry.ExecuteHooks(context.Background(), HookBeforeCreate, &HookContext{Entity: "ghost"})
	assert.ErrorIs(t, err, shared.ErrUnknownEntity)
}

func TestRegistry_ExecuteAction_FirstMatchWins(t *testing.T) {
	registry := newTestRegistry()
	require.NoError(t, registry.RegisterEntity(customerDefinition()))

	require.NoError(t, registry.Extend(&Extension{
		TargetEntity: "customer",
		ModuleCode:   "@first",
		Actions: []Action{{Code: "export", Handler: func(ctx context.Context, actx *ActionContext) (any, error) {
			return "from-first", nil
		}}},
	}))
	require.NoError(t, registry.Extend(&Extension{
		TargetEntity: "customer",
		ModuleCode:   "@second",
		Actions: []Action{{Code: "export", Handler: func(ctx context.Context, actx *ActionContext) (any, error) {
			return "from-second", nil
		}}},
	}))

	result, err := registry.ExecuteAction(context.Background(), "customer", "export", &ActionContext{})
	require.NoError(t, err)
	assert.Equal(t, "from-first", result)
}

func TestRegistry_ExecuteAction_PropagatesError(t *testing.T) {
	registry := newTestRegistry()
	require.NoError(t, registry.RegisterEntity(customerDefinition()))

	actionErr := errors.New("export failed")
	require.NoError(t, registry.Extend(&Extension{
		TargetEntity: "customer",
		ModuleCode:   "@loyalty",
		Actions: []Action{{Code: "export", Handler: func(ctx context.Context, actx *ActionContext) (any, error) {
			return nil, actionErr
		}}},
	}))

	_, err := registry.ExecuteAction(context.Background(), "customer", "export", &ActionContext{})
	assert.Equal(t, actionErr, err)
}

func TestRegistry_ExecuteAction_NotFound(t *testing.T) {
	registry := newTestRegistry()
	require.NoError(t, registry.RegisterEntity(customerDefinition()))

	_, err := registry.ExecuteAction(context.Background(), "customer", "ghost", &ActionContext{})
	assert.ErrorIs(t, err, shared.ErrActionNotFound)

	_, err = registry.ExecuteAction(context.Background(), "ghost", "export", &ActionContext{})
	assert.ErrorIs(t, err, shared.ErrUnknownEntity)
}

func TestRegistry_Codes(t *testing.T) {
	registry := newTestRegistry()
	require.NoError(t, registry.RegisterEntity(&Definition{Code: "order"}))
	require.NoError(t, registry.RegisterEntity(&Definition{Code: "customer"}))

	assert.Equal(t, []string{"customer", "order"}, registry.Codes())
}
