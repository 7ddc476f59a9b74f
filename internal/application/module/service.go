// Package module implements tenant-scoped module activation on top of the
// module registry and the enablement store.
package module

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/platform/internal/domain/event"
	"github.com/erp/platform/internal/domain/module"
	"github.com/erp/platform/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Emitter publishes kernel lifecycle events. Optional; a nil emitter
// disables event emission without affecting enablement semantics.
type Emitter interface {
	Emit(ctx context.Context, evt *event.Event) error
}

// Service validates and persists per-tenant module activation.
type Service struct {
	registry    *module.Registry
	enablements module.EnablementRepository
	plans       module.PlanResolver
	emitter     Emitter
	logger      *zap.Logger
}

// NewService creates a module service.
func NewService(
	registry *module.Registry,
	enablements module.EnablementRepository,
	plans module.PlanResolver,
	emitter Emitter,
	logger *zap.Logger,
) *Service {
	return &Service{
		registry:    registry,
		enablements: enablements,
		plans:       plans,
		emitter:     emitter,
		logger:      logger,
	}
}

// EnableModule enables a module for a tenant after validating plan tier,
// direct dependencies and compatibility with currently enabled modules.
// The persisted config is the module's default config, overlaid by any
// config retained from a previous enablement, overlaid by the caller's
// overrides, key by key.
func (s *Service) EnableModule(ctx context.Context, tenantID uuid.UUID, code string, overrides map[string]any) (*module.Enablement, error) {
	def, exists := s.registry.Get(code)
	if !exists {
		return nil, fmt.Errorf("%w: module '%s'", shared.ErrNotFound, code)
	}

	tier, err := s.plans.ResolvePlan(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("resolving plan for tenant %s: %w", tenantID, err)
	}
	if !tier.Includes(def.RequiredPlan) {
		return nil, fmt.Errorf("%w: module '%s' requires plan '%s', tenant is on '%s'",
			shared.ErrPlanRequired, code, def.RequiredPlan, tier)
	}

	for _, dep := range def.Dependencies {
		enabled, err := s.IsModuleEnabled(ctx, tenantID, dep)
		if err != nil {
			return nil, err
		}
		if !enabled {
			return nil, fmt.Errorf("%w: module '%s' requires '%s' to be enabled first",
				shared.ErrMissingDependency, code, dep)
		}
	}

	// Core modules count as enabled even without an enablement row
	enabledNow, err := s.GetEnabledModules(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("listing enabled modules for tenant %s: %w", tenantID, err)
	}
	for _, other := range enabledNow {
		if other.ModuleCode == code {
			continue
		}
		if s.conflicts(def, other.ModuleCode) {
			return nil, fmt.Errorf("%w: module '%s' conflicts with enabled module '%s'",
				shared.ErrIncompatibleModule, code, other.ModuleCode)
		}
	}

	config := module.MergeConfig(def.DefaultConfig, nil)
	if existing, err := s.enablements.Get(ctx, tenantID, code); err == nil && existing.Config != nil {
		// A prior enablement's config survives disable and seeds re-enable
		config = module.MergeConfig(config, existing.Config)
	}
	config = module.MergeConfig(config, overrides)

	enablement := &module.Enablement{
		TenantID:   tenantID,
		ModuleCode: code,
		IsEnabled:  true,
		Config:     config,
	}
	if err := s.enablements.Upsert(ctx, enablement); err != nil {
		return nil, fmt.Errorf("persisting enablement for '%s': %w", code, err)
	}

	s.logger.Info("module enabled",
		zap.String("tenant_id", tenantID.String()),
		zap.String("module_code", code),
	)
	s.emit(ctx, "platform.module.enabled", tenantID, code)
	return enablement, nil
}

// DisableModule disables a module for a tenant. Core modules can never be
// disabled, and a module cannot be disabled while another currently enabled
// module directly depends on it. The stored config is retained for a later
// re-enable.
func (s *Service) DisableModule(ctx context.Context, tenantID uuid.UUID, code string) error {
	def, exists := s.registry.Get(code)
	if !exists {
		return fmt.Errorf("%w: module '%s'", shared.ErrNotFound, code)
	}
	if def.IsCore {
		return fmt.Errorf("%w: module '%s'", shared.ErrCoreModuleProtected, code)
	}

	// Core modules count as dependents even without an enablement row
	enabledNow, err := s.GetEnabledModules(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("listing enabled modules for tenant %s: %w", tenantID, err)
	}
	for _, other := range enabledNow {
		if other.ModuleCode == code {
			continue
		}
		otherDef, ok := s.registry.Get(other.ModuleCode)
		if !ok {
			continue
		}
		for _, dep := range otherDef.Dependencies {
			if dep == code {
				return fmt.Errorf("%w: module '%s' is required by enabled module '%s'",
					shared.ErrDependentModulesActive, code, other.ModuleCode)
			}
		}
	}

	enablement := &module.Enablement{
		TenantID:   tenantID,
		ModuleCode: code,
		IsEnabled:  false,
	}
	if existing, err := s.enablements.Get(ctx, tenantID, code); err == nil {
		enablement.Config = existing.Config
	}
	if err := s.enablements.Upsert(ctx, enablement); err != nil {
		return fmt.Errorf("persisting disablement for '%s': %w", code, err)
	}

	s.logger.Info("module disabled",
		zap.String("tenant_id", tenantID.String()),
		zap.String("module_code", code),
	)
	s.emit(ctx, "platform.module.disabled", tenantID, code)
	return nil
}

// IsModuleEnabled reports whether a module is enabled for a tenant. Core
// modules are always enabled.
func (s *Service) IsModuleEnabled(ctx context.Context, tenantID uuid.UUID, code string) (bool, error) {
	if def, exists := s.registry.Get(code); exists && def.IsCore {
		return true, nil
	}

	enablement, err := s.enablements.Get(ctx, tenantID, code)
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return enablement.IsEnabled, nil
}

// GetEnabledModules returns the tenant's enabled modules. Core modules are
// included even when no enablement row exists yet.
func (s *Service) GetEnabledModules(ctx context.Context, tenantID uuid.UUID) ([]*module.Enablement, error) {
	enabled, err := s.enablements.ListEnabled(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(enabled))
	for _, e := range enabled {
		seen[e.ModuleCode] = true
	}
	for _, def := range s.registry.GetAll() {
		if def.IsCore && !seen[def.Code] {
			enabled = append(enabled, &module.Enablement{
				TenantID:   tenantID,
				ModuleCode: def.Code,
				IsEnabled:  true,
				Config:     module.MergeConfig(def.DefaultConfig, nil),
			})
		}
	}
	return enabled, nil
}

// UpdateModuleConfig merges new config values into an enabled module's
// stored config, key by key, with the caller winning.
func (s *Service) UpdateModuleConfig(ctx context.Context, tenantID uuid.UUID, code string, config map[string]any) (*module.Enablement, error) {
	if _, exists := s.registry.Get(code); !exists {
		return nil, fmt.Errorf("%w: module '%s'", shared.ErrNotFound, code)
	}

	enablement, err := s.enablements.Get(ctx, tenantID, code)
	if err != nil {
		return nil, fmt.Errorf("%w: module '%s' is not enabled for tenant", shared.ErrNotFound, code)
	}
	if !enablement.IsEnabled {
		return nil, fmt.Errorf("%w: module '%s' is not enabled for tenant", shared.ErrNotFound, code)
	}

	enablement.Config = module.MergeConfig(enablement.Config, config)
	if err := s.enablements.Upsert(ctx, enablement); err != nil {
		return nil, fmt.Errorf("persisting config for '%s': %w", code, err)
	}
	return enablement, nil
}

// InitializeDefaultModules enables every core and default-enabled module
// for a tenant, walking the set repeatedly so dependencies come up before
// their dependents. Modules that cannot be enabled (for example the tenant's
// plan excludes them) are logged and skipped.
func (s *Service) InitializeDefaultModules(ctx context.Context, tenantID uuid.UUID) error {
	pending := s.registry.GetDefaultEnabled()

	for len(pending) > 0 {
		progressed := false
		remaining := pending[:0]

		for _, def := range pending {
			enabled, err := s.IsModuleEnabled(ctx, tenantID, def.Code)
			if err != nil {
				return err
			}
			if enabled {
				progressed = true
				continue
			}
			if _, err := s.EnableModule(ctx, tenantID, def.Code, nil); err != nil {
				remaining = append(remaining, def)
				continue
			}
			progressed = true
		}

		if !progressed {
			for _, def := range remaining {
				s.logger.Warn("default module could not be enabled",
					zap.String("tenant_id", tenantID.String()),
					zap.String("module_code", def.Code),
				)
			}
			return nil
		}
		pending = remaining
	}
	return nil
}

// conflicts reports whether def and the module identified by otherCode
// declare each other incompatible, in either direction.
func (s *Service) conflicts(def *module.Definition, otherCode string) bool {
	for _, code := range def.IncompatibleWith {
		if code == otherCode {
			return true
		}
	}
	if otherDef, ok := s.registry.Get(otherCode); ok {
		for _, code := range otherDef.IncompatibleWith {
			if code == def.Code {
				return true
			}
		}
	}
	return false
}

func (s *Service) emit(ctx context.Context, eventType string, tenantID uuid.UUID, code string) {
	if s.emitter == nil {
		return
	}
	evt := event.New(eventType, tenantID, "module", code, map[string]any{"module_code": code})
	if err := s.emitter.Emit(ctx, evt); err != nil {
		s.logger.Warn("failed to emit module lifecycle event",
			zap.String("event_type", eventType),
			zap.String("module_code", code),
			zap.Error(err),
		)
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, shared.ErrNotFound)
}
