package module

import (
	"context"

	"github.com/google/uuid"
)

// EnablementRepository persists per-tenant module activation state.
// Implementations must make Upsert atomic at the storage layer; the kernel
// itself takes no in-process lock for tenant-scoped writes.
type EnablementRepository interface {
	// Upsert inserts or updates the enablement row for (tenant, module)
	Upsert(ctx context.Context, enablement *Enablement) error
	// Get returns the enablement for (tenant, module), or ErrNotFound
	Get(ctx context.Context, tenantID uuid.UUID, moduleCode string) (*Enablement, error)
	// ListEnabled returns all currently enabled enablements for a tenant
	ListEnabled(ctx context.Context, tenantID uuid.UUID) ([]*Enablement, error)
}

// PlanResolver reports a tenant's subscription tier. The billing system
// behind it is a collaborator, not part of the kernel.
type PlanResolver interface {
	ResolvePlan(ctx context.Context, tenantID uuid.UUID) (PlanTier, error)
}

// StaticPlanResolver resolves plans from a fixed map, falling back to a
// default tier. Suitable for development and tests.
type StaticPlanResolver struct {
	Plans       map[uuid.UUID]PlanTier
	DefaultTier PlanTier
}

// ResolvePlan implements PlanResolver.
func (r *StaticPlanResolver) ResolvePlan(_ context.Context, tenantID uuid.UUID) (PlanTier, error) {
	if tier, ok := r.Plans[tenantID]; ok {
		return tier, nil
	}
	if r.DefaultTier != "" {
		return r.DefaultTier, nil
	}
	return PlanFree, nil
}
