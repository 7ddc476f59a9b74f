// Package workflow implements the rule-based automation engine: for every
// published event it evaluates the tenant's enabled triggers and dispatches
// their configured actions, isolating each trigger's failures.
package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/erp/platform/internal/domain/event"
	"github.com/erp/platform/internal/domain/workflow"
	"go.uber.org/zap"
)

// RetryPolicy bounds external action dispatch. Every attempt gets its own
// timeout; retries back off exponentially until MaxAttempts is reached.
type RetryPolicy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	AttemptTimeout  time.Duration
}

// DefaultRetryPolicy is used when the caller supplies a zero policy.
var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts:     3,
	InitialInterval: 500 * time.Millisecond,
	MaxInterval:     5 * time.Second,
	AttemptTimeout:  10 * time.Second,
}

// Dispatchers groups the per-kind action collaborators. A nil dispatcher
// turns the corresponding action kind into a dispatch error.
type Dispatchers struct {
	Email   workflow.EmailSender
	SMS     workflow.SMSSender
	Webhook workflow.WebhookCaller
	Field   workflow.FieldUpdater
}

// Engine evaluates workflow triggers against published events.
type Engine struct {
	repo        workflow.Repository
	conditions  workflow.ConditionEvaluator
	dispatchers Dispatchers
	retry       RetryPolicy
	logger      *zap.Logger
}

// NewEngine creates a trigger evaluation engine. A nil condition evaluator
// falls back to workflow.AlwaysTrue.
func NewEngine(repo workflow.Repository, conditions workflow.ConditionEvaluator, dispatchers Dispatchers, retry RetryPolicy, logger *zap.Logger) *Engine {
	if conditions == nil {
		conditions = workflow.AlwaysTrue
	}
	if retry.MaxAttempts <= 0 {
		retry = DefaultRetryPolicy
	}
	return &Engine{
		repo:        repo,
		conditions:  conditions,
		dispatchers: dispatchers,
		retry:       retry,
		logger:      logger,
	}
}

// EvaluateTriggers runs every enabled trigger for the event's tenant and
// type. One trigger failing never blocks the remaining triggers.
func (e *Engine) EvaluateTriggers(ctx context.Context, evt *event.Event) {
	triggers, err := e.repo.FindEnabledTriggers(ctx, evt.TenantID, evt.Type)
	if err != nil {
		e.logger.Error("failed to load workflow triggers",
			zap.String("tenant_id", evt.TenantID.String()),
			zap.String("event_type", evt.Type),
			zap.Error(err),
		)
		return
	}

	for _, trigger := range triggers {
		e.runTrigger(ctx, trigger, evt)
	}
}

// runTrigger evaluates one trigger's conditions and, when they hold,
// dispatches its actions and records the outcome. Panics are contained.
func (e *Engine) runTrigger(ctx context.Context, trigger *workflow.Trigger, evt *event.Event) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("workflow trigger panicked",
				zap.String("trigger_id", trigger.ID.String()),
				zap.Any("panic", r),
			)
			e.record(ctx, trigger, evt, workflow.ExecutionFailed, fmt.Sprintf("panic: %v", r))
		}
	}()

	matched := true
	if len(trigger.Conditions) > 0 {
		var err error
		matched, err = e.conditions(ctx, trigger, evt)
		if err != nil {
			e.logger.Warn("condition evaluation failed",
				zap.String("trigger_id", trigger.ID.String()),
				zap.Error(err),
			)
			e.record(ctx, trigger, evt, workflow.ExecutionFailed, fmt.Sprintf("condition evaluation: %v", err))
			return
		}
	}
	if !matched {
		return
	}

	var failures []string
	for _, action := range trigger.Actions {
		if err := e.dispatchWithRetry(ctx, action, evt); err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", action.Kind, err))
			e.logger.Error("workflow action failed",
				zap.String("trigger_id", trigger.ID.String()),
				zap.String("action_kind", string(action.Kind)),
				zap.Error(err),
			)
		}
	}

	if len(failures) > 0 {
		e.record(ctx, trigger, evt, workflow.ExecutionFailed, strings.Join(failures, "; "))
		return
	}
	e.record(ctx, trigger, evt, workflow.ExecutionSuccess, "")
}

// dispatchWithRetry runs one action under the retry policy. Each attempt
// is bounded by the policy's timeout; expiry counts as an attempt failure.
func (e *Engine) dispatchWithRetry(ctx context.Context, action workflow.ActionConfig, evt *event.Event) error {
	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = e.retry.InitialInterval
	expo.MaxInterval = e.retry.MaxInterval

	policy := backoff.WithContext(
		backoff.WithMaxRetries(expo, uint64(e.retry.MaxAttempts-1)),
		ctx,
	)

	return backoff.Retry(func() error {
		attemptCtx, cancel := context.WithTimeout(ctx, e.retry.AttemptTimeout)
		defer cancel()
		return e.dispatchOnce(attemptCtx, action, evt)
	}, policy)
}

func (e *Engine) dispatchOnce(ctx context.Context, action workflow.ActionConfig, evt *event.Event) error {
	switch action.Kind {
	case workflow.ActionSendEmail:
		if e.dispatchers.Email == nil {
			return backoff.Permanent(fmt.Errorf("no email dispatcher configured"))
		}
		return e.dispatchers.Email.SendEmail(ctx, action.Config, evt)
	case workflow.ActionSendSMS:
		if e.dispatchers.SMS == nil {
			return backoff.Permanent(fmt.Errorf("no sms dispatcher configured"))
		}
		return e.dispatchers.SMS.SendSMS(ctx, action.Config, evt)
	case workflow.ActionWebhook:
		if e.dispatchers.Webhook == nil {
			return backoff.Permanent(fmt.Errorf("no webhook dispatcher configured"))
		}
		return e.dispatchers.Webhook.CallWebhook(ctx, action.Config, evt)
	case workflow.ActionUpdateField:
		if e.dispatchers.Field == nil {
			return backoff.Permanent(fmt.Errorf("no field updater configured"))
		}
		return e.dispatchers.Field.UpdateField(ctx, action.Config, evt)
	default:
		return backoff.Permanent(fmt.Errorf("unknown action kind '%s'", action.Kind))
	}
}

// record persists the trigger execution outcome. A failing workflow store
// is logged and swallowed.
func (e *Engine) record(ctx context.Context, trigger *workflow.Trigger, evt *event.Event, status workflow.ExecutionStatus, errDetail string) {
	execution := workflow.NewExecution(trigger, evt.ID, status, errDetail)
	if err := e.repo.RecordExecution(ctx, execution); err != nil {
		e.logger.Error("failed to record trigger execution",
			zap.String("trigger_id", trigger.ID.String()),
			zap.Error(err),
		)
	}
}
