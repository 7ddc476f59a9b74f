// Package module holds the platform module catalog: installable module
// definitions, their dependency and compatibility relationships, and the
// per-tenant enablement model.
package module

import (
	"fmt"
	"time"

	"github.com/erp/platform/internal/domain/shared"
	"github.com/google/uuid"
)

// PlanTier is an ordinal subscription tier. Higher tiers include everything
// the lower tiers offer.
type PlanTier string

const (
	PlanFree         PlanTier = "free"
	PlanStarter      PlanTier = "starter"
	PlanProfessional PlanTier = "professional"
	PlanEnterprise   PlanTier = "enterprise"
)

var planTierOrder = map[PlanTier]int{
	PlanFree:         0,
	PlanStarter:      1,
	PlanProfessional: 2,
	PlanEnterprise:   3,
}

// Ordinal returns the tier's position in the plan ladder.
// Unknown tiers rank below free so they never unlock anything.
func (p PlanTier) Ordinal() int {
	if ord, ok := planTierOrder[p]; ok {
		return ord
	}
	return -1
}

// Includes reports whether a tenant on tier p may use a module requiring tier required.
func (p PlanTier) Includes(required PlanTier) bool {
	return p.Ordinal() >= required.Ordinal()
}

// Feature is a toggleable capability within a module.
type Feature struct {
	Code           string `json:"code"`
	Name           string `json:"name"`
	DefaultEnabled bool   `json:"default_enabled"`
}

// Definition describes an installable module. Definitions are global;
// whether a tenant may use the module is tracked separately by Enablement.
type Definition struct {
	Code             string         `json:"code"` // namespaced, e.g. "@stock"
	Name             string         `json:"name"`
	Version          string         `json:"version"` // semver
	Category         string         `json:"category"`
	Dependencies     []string       `json:"dependencies"`
	IncompatibleWith []string       `json:"incompatible_with"`
	IsCore           bool           `json:"is_core"`
	DefaultEnabled   bool           `json:"default_enabled"`
	RequiredPlan     PlanTier       `json:"required_plan"`
	Features         []Feature      `json:"features"`
	DefaultConfig    map[string]any `json:"default_config"`
}

// Validate checks the definition's internal consistency. A module must not
// both depend on and be marked incompatible with the same module.
func (d *Definition) Validate() error {
	if d.Code == "" {
		return fmt.Errorf("%w: module code cannot be empty", shared.ErrInvalidInput)
	}
	incompatible := make(map[string]bool, len(d.IncompatibleWith))
	for _, code := range d.IncompatibleWith {
		incompatible[code] = true
	}
	for _, dep := range d.Dependencies {
		if dep == d.Code {
			return fmt.Errorf("%w: module '%s' cannot depend on itself", shared.ErrInvalidInput, d.Code)
		}
		if incompatible[dep] {
			return fmt.Errorf("%w: module '%s' both depends on and is incompatible with '%s'",
				shared.ErrInvalidInput, d.Code, dep)
		}
	}
	return nil
}

// Enablement is the per-tenant activation state of a module.
// Config survives disable so a later re-enable restores the tenant's settings.
type Enablement struct {
	TenantID   uuid.UUID      `json:"tenant_id"`
	ModuleCode string         `json:"module_code"`
	IsEnabled  bool           `json:"is_enabled"`
	Config     map[string]any `json:"config"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// MergeConfig overlays caller overrides onto a module's default config,
// key by key, with the caller winning.
func MergeConfig(defaults, overrides map[string]any) map[string]any {
	merged := make(map[string]any, len(defaults)+len(overrides))
	for k, v := range defaults {
		merged[k] = v
	}
	for k, v := range overrides {
		merged[k] = v
	}
	return merged
}
