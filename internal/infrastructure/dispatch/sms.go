package dispatch

import (
	"context"
	"fmt"

	"github.com/erp/platform/internal/domain/event"
	"github.com/erp/platform/internal/domain/workflow"
	"go.uber.org/zap"
)

// LogSMSSender records the SMS that would have been sent. It stands in for
// a hosted SMS gateway in development and tests.
type LogSMSSender struct {
	logger *zap.Logger
}

func NewLogSMSSender(logger *zap.Logger) *LogSMSSender {
	return &LogSMSSender{logger: logger}
}

// SendSMS requires a "to" number and logs the delivery.
func (s *LogSMSSender) SendSMS(_ context.Context, config map[string]any, evt *event.Event) error {
	to, _ := config["to"].(string)
	if to == "" {
		return fmt.Errorf("send_sms action requires a 'to' number")
	}
	message, _ := config["message"].(string)

	s.logger.Info("sms dispatched",
		zap.String("to", to),
		zap.String("message", message),
		zap.String("event_type", evt.Type),
		zap.String("event_id", evt.ID.String()),
	)
	return nil
}

var _ workflow.SMSSender = (*LogSMSSender)(nil)
