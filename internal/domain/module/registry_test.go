package module

import (
	"testing"

	"github.com/erp/platform/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRegistry() *Registry {
	return NewRegistry(zap.NewNop())
}

func TestRegistry_Register(t *testing.T) {
	registry := newTestRegistry()

	err := registry.Register(&Definition{Code: "@stock", Name: "Stock", Version: "1.0.0"})
	require.NoError(t, err)

	def, exists := registry.Get("@stock")
	require.True(t, exists)
	assert.Equal(t, "Stock", def.Name)
}

func TestRegistry_Register_NilDefinition(t *testing.T) {
	registry := newTestRegistry()

	err := registry.Register(nil)
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestRegistry_Register_EmptyCode(t *testing.T) {
	registry := newTestRegistry()

	err := registry.Register(&Definition{Name: "Nameless"})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestRegistry_Register_DuplicateOverwrites(t *testing.T) {
	registry := newTestRegistry()

	require.NoError(t, registry.Register(&Definition{Code: "@stock", Name: "Stock", Version: "1.0.0"}))
	require.NoError(t, registry.Register(&Definition{Code: "@stock", Name: "Stock v2", Version: "2.0.0"}))

	def, exists := registry.Get("@stock")
	require.True(t, exists)
	assert.Equal(t, "Stock v2", def.Name)
	assert.Equal(t, "2.0.0", def.Version)
	assert.Equal(t, 1, registry.Count())
}

func TestRegistry_Register_DependencyConflict(t *testing.T) {
	registry := newTestRegistry()

	err := registry.Register(&Definition{
		Code:             "@stock",
		Dependencies:     []string{"@products"},
		IncompatibleWith: []string{"@products"},
	})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestRegistry_Register_SelfDependency(t *testing.T) {
	registry := newTestRegistry()

	err := registry.Register(&Definition{Code: "@stock", Dependencies: []string{"@stock"}})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestRegistry_GetByCategory(t *testing.T) {
	registry := newTestRegistry()

	require.NoError(t, registry.Register(&Definition{Code: "@stock", Category: "inventory"}))
	require.NoError(t, registry.Register(&Definition{Code: "@wms", Category: "inventory"}))
	require.NoError(t, registry.Register(&Definition{Code: "@loyalty", Category: "sales"}))

	inventory := registry.GetByCategory("inventory")
	assert.Len(t, inventory, 2)
	assert.Len(t, registry.GetByCategory("sales"), 1)
	assert.Empty(t, registry.GetByCategory("unknown"))
}

func TestRegistry_GetDependencies_TransitiveClosure(t *testing.T) {
	// A -> B -> C, closure of A is {B, C} regardless of registration order
	orders := [][]*Definition{
		{
			{Code: "A", Dependencies: []string{"B"}},
			{Code: "B", Dependencies: []string{"C"}},
			{Code: "C"},
		},
		{
			{Code: "C"},
			{Code: "B", Dependencies: []string{"C"}},
			{Code: "A", Dependencies: []string{"B"}},
		},
		{
			{Code: "B", Dependencies: []string{"C"}},
			{Code: "A", Dependencies: []string{"B"}},
			{Code: "C"},
		},
	}

	for _, defs := range orders {
		registry := newTestRegistry()
		for _, def := range defs {
			require.NoError(t, registry.Register(def))
		}

		deps := registry.GetDependencies("A")
		assert.ElementsMatch(t, []string{"B", "C"}, deps)
	}
}

func TestRegistry_GetDependencies_Deduplicates(t *testing.T) {
	registry := newTestRegistry()

	require.NoError(t, registry.Register(&Definition{Code: "A", Dependencies: []string{"B", "C"}}))
	require.NoError(t, registry.Register(&Definition{Code: "B", Dependencies: []string{"C"}}))
	require.NoError(t, registry.Register(&Definition{Code: "C"}))

	deps := registry.GetDependencies("A")
	assert.ElementsMatch(t, []string{"B", "C"}, deps)
}

func TestRegistry_GetDependencies_UnknownModule(t *testing.T) {
	registry := newTestRegistry()
	assert.Nil(t, registry.GetDependencies("@nope"))
}

func TestRegistry_GetDependencies_ToleratesCycle(t *testing.T) {
	registry := newTestRegistry()

	require.NoError(t, registry.Register(&Definition{Code: "A", Dependencies: []string{"B"}}))
	require.NoError(t, registry.Register(&Definition{Code: "B", Dependencies: []string{"A"}}))

	// Visited tracking keeps the walk finite even on a bad graph
	deps := registry.GetDependencies("A")
	assert.ElementsMatch(t, []string{"B"}, deps)
}

func TestRegistry_AreCompatible(t *testing.T) {
	registry := newTestRegistry()

	require.NoError(t, registry.Register(&Definition{Code: "@pos"}))
	require.NoError(t, registry.Register(&Definition{Code: "@kiosk", IncompatibleWith: []string{"@pos"}}))
	require.NoError(t, registry.Register(&Definition{Code: "@stock"}))

	// One-sided declaration conflicts in both directions
	assert.False(t, registry.AreCompatible("@pos", "@kiosk"))
	assert.False(t, registry.AreCompatible("@kiosk", "@pos"))
	assert.True(t, registry.AreCompatible("@pos", "@stock"))

	// Unregistered modules are never compatible
	assert.False(t, registry.AreCompatible("@pos", "@ghost"))
	assert.False(t, registry.AreCompatible("@ghost", "@pos"))
}

func TestRegistry_ValidateSet(t *testing.T) {
	registry := newTestRegistry()

	require.NoError(t, registry.Register(&Definition{Code: "@stock", Dependencies: []string{"@products"}}))
	require.NoError(t, registry.Register(&Definition{Code: "@products"}))
	require.NoError(t, registry.Register(&Definition{Code: "@pos"}))
	require.NoError(t, registry.Register(&Definition{Code: "@kiosk", IncompatibleWith: []string{"@pos"}}))

	tests := []struct {
		name          string
		enabled       []string
		wantValid     bool
		wantMissing   int
		wantConflicts int
	}{
		{
			name:      "complete set",
			enabled:   []string{"@stock", "@products"},
			wantValid: true,
		},
		{
			name:        "missing dependency",
			enabled:     []string{"@stock"},
			wantValid:   false,
			wantMissing: 1,
		},
		{
			name:          "incompatible pair",
			enabled:       []string{"@pos", "@kiosk"},
			wantValid:     false,
			wantConflicts: 1,
		},
		{
			name:      "empty set",
			enabled:   []string{},
			wantValid: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := registry.ValidateSet(tt.enabled)
			assert.Equal(t, tt.wantValid, result.Valid)
			assert.Len(t, result.Missing, tt.wantMissing)
			assert.Len(t, result.Conflicts, tt.wantConflicts)
		})
	}
}

func TestRegistry_GetDefaultEnabled(t *testing.T) {
	registry := newTestRegistry()

	require.NoError(t, registry.Register(&Definition{Code: "@core", IsCore: true}))
	require.NoError(t, registry.Register(&Definition{Code: "@stock", DefaultEnabled: true}))
	require.NoError(t, registry.Register(&Definition{Code: "@loyalty"}))

	defaults := registry.GetDefaultEnabled()
	codes := make([]string, 0, len(defaults))
	for _, def := range defaults {
		codes = append(codes, def.Code)
	}
	assert.ElementsMatch(t, []string{"@core", "@stock"}, codes)
}

func TestPlanTier_Includes(t *testing.T) {
	assert.True(t, PlanEnterprise.Includes(PlanFree))
	assert.True(t, PlanProfessional.Includes(PlanProfessional))
	assert.False(t, PlanFree.Includes(PlanStarter))
	assert.False(t, PlanTier("bogus").Includes(PlanFree))
}

func TestMergeConfig(t *testing.T) {
	defaults := map[string]any{"threshold": 10, "unit": "pcs"}
	overrides := map[string]any{"threshold": 25}

	merged := MergeConfig(defaults, overrides)
	assert.Equal(t, 25, merged["threshold"])
	assert.Equal(t, "pcs", merged["unit"])

	// Inputs are not mutated
	assert.Equal(t, 10, defaults["threshold"])
}
