// Package bootstrap wires platform modules into the kernel at startup:
// module definitions into the module registry, entities and extensions into
// the entity registry, and subscriptions onto the event bus, walking modules
// in dependency order.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/erp/platform/internal/domain/entity"
	"github.com/erp/platform/internal/domain/event"
	"github.com/erp/platform/internal/domain/module"
	"go.uber.org/zap"
)

// SubscriptionSpec declares one event bus subscription a module wants.
type SubscriptionSpec struct {
	Name    string
	Pattern string
	Handler event.Handler
}

// Descriptor is everything a module contributes to the platform at startup.
// Setup, when present, runs after the module's registrations succeed.
type Descriptor struct {
	Definition    *module.Definition
	Entities      []*entity.Definition
	Extensions    []*entity.Extension
	Subscriptions []SubscriptionSpec
	Setup         func(ctx context.Context) error
}

// Subscriber is the slice of the event bus the bootstrapper needs.
type Subscriber interface {
	Subscribe(name, pattern string, handler event.Handler)
}

// Bootstrapper installs module descriptors into the kernel registries.
type Bootstrapper struct {
	modules  *module.Registry
	entities *entity.Registry
	bus      Subscriber
	logger   *zap.Logger
}

func NewBootstrapper(modules *module.Registry, entities *entity.Registry, bus Subscriber, logger *zap.Logger) *Bootstrapper {
	return &Bootstrapper{
		modules:  modules,
		entities: entities,
		bus:      bus,
		logger:   logger,
	}
}

// Install registers every descriptor in dependency order. A module's
// entities are registered before any extension targeting them, so modules
// that extend a dependency's entities always find the target present.
func (b *Bootstrapper) Install(ctx context.Context, descriptors []*Descriptor) error {
	ordered, err := sortByDependency(descriptors)
	if err != nil {
		return err
	}

	for _, d := range ordered {
		if err := b.install(ctx, d); err != nil {
			return fmt.Errorf("installing module '%s': %w", d.Definition.Code, err)
		}
	}
	b.logger.Info("platform modules installed", zap.Int("count", len(ordered)))
	return nil
}

func (b *Bootstrapper) install(ctx context.Context, d *Descriptor) error {
	if d.Definition == nil {
		return fmt.Errorf("descriptor without module definition")
	}
	if err := b.modules.Register(d.Definition); err != nil {
		return err
	}

	for _, def := range d.Entities {
		if def.OwnerModule == "" {
			def.OwnerModule = d.Definition.Code
		}
		if err := b.entities.RegisterEntity(def); err != nil {
			return err
		}
	}

	for _, ext := range d.Extensions {
		if ext.ModuleCode == "" {
			ext.ModuleCode = d.Definition.Code
		}
		if err := b.entities.Extend(ext); err != nil {
			return err
		}
	}

	for _, sub := range d.Subscriptions {
		b.bus.Subscribe(sub.Name, sub.Pattern, sub.Handler)
	}

	if d.Setup != nil {
		if err := d.Setup(ctx); err != nil {
			return err
		}
	}

	b.logger.Debug("module installed",
		zap.String("module", d.Definition.Code),
		zap.Int("entities", len(d.Entities)),
		zap.Int("extensions", len(d.Extensions)),
	)
	return nil
}

// sortByDependency orders descriptors so every module comes after its
// declared dependencies. Dependencies on modules not present in the set are
// ignored here; enablement checks them at runtime. Cycles are an error.
func sortByDependency(descriptors []*Descriptor) ([]*Descriptor, error) {
	byCode := make(map[string]*Descriptor, len(descriptors))
	for _, d := range descriptors {
		if d.Definition == nil {
			return nil, fmt.Errorf("descriptor without module definition")
		}
		byCode[d.Definition.Code] = d
	}

	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make(map[string]int, len(descriptors))
	ordered := make([]*Descriptor, 0, len(descriptors))

	var visit func(code string) error
	visit = func(code string) error {
		d, ok := byCode[code]
		if !ok {
			return nil
		}
		switch state[code] {
		case done:
			return nil
		case visiting:
			return fmt.Errorf("dependency cycle through module '%s'", code)
		}
		state[code] = visiting
		for _, dep := range d.Definition.Dependencies {
			if err := visit(dep); err != nil {
				return err
			}
		}
		state[code] = done
		ordered = append(ordered, d)
		return nil
	}

	for _, d := range descriptors {
		if err := visit(d.Definition.Code); err != nil {
			return nil, err
		}
	}
	return ordered, nil
}
