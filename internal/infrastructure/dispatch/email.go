// Package dispatch implements the workflow action dispatchers: email, SMS,
// webhook and field update. Email and SMS ship with log-backed senders for
// development; hosted providers plug in behind the same interfaces.
package dispatch

import (
	"context"
	"fmt"

	"github.com/erp/platform/internal/domain/event"
	"github.com/erp/platform/internal/domain/workflow"
	"go.uber.org/zap"
)

// LogEmailSender records the email that would have been sent. It stands in
// for a hosted email provider in development and tests.
type LogEmailSender struct {
	logger *zap.Logger
}

func NewLogEmailSender(logger *zap.Logger) *LogEmailSender {
	return &LogEmailSender{logger: logger}
}

// SendEmail requires a "to" address and logs the delivery.
func (s *LogEmailSender) SendEmail(_ context.Context, config map[string]any, evt *event.Event) error {
	to, _ := config["to"].(string)
	if to == "" {
		return fmt.Errorf("send_email action requires a 'to' address")
	}
	template, _ := config["template"].(string)

	s.logger.Info("email dispatched",
		zap.String("to", to),
		zap.String("template", template),
		zap.String("event_type", evt.Type),
		zap.String("event_id", evt.ID.String()),
	)
	return nil
}

var _ workflow.EmailSender = (*LogEmailSender)(nil)
