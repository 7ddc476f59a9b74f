package main

import (
	"context"

	"github.com/erp/platform/internal/application/bootstrap"
	"github.com/erp/platform/internal/domain/event"
	"github.com/erp/platform/internal/domain/module"
	"go.uber.org/zap"
)

// builtinModules is the module catalog compiled into this binary. Business
// modules ship as bootstrap descriptors: an embedding application appends
// its own modules here and the bootstrapper installs them in dependency
// order.
func builtinModules(log *zap.Logger) []*bootstrap.Descriptor {
	return []*bootstrap.Descriptor{
		{
			Definition: &module.Definition{
				Code:         "@platform",
				Name:         "Platform Core",
				Version:      "1.0.0",
				Category:     "core",
				IsCore:       true,
				RequiredPlan: module.PlanFree,
			},
			Subscriptions: []bootstrap.SubscriptionSpec{
				{
					Name:    "platform.lifecycle-log",
					Pattern: "platform.module.*",
					Handler: func(_ context.Context, evt *event.Event) error {
						log.Info("module lifecycle event",
							zap.String("event_type", evt.Type),
							zap.String("tenant_id", evt.TenantID.String()),
							zap.String("module_code", evt.EntityID),
						)
						return nil
					},
				},
			},
		},
	}
}
