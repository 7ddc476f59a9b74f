package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/erp/platform/internal/domain/event"
	"github.com/erp/platform/internal/domain/workflow"
)

// WebhookDispatcher delivers webhook actions: it POSTs the triggering event
// as JSON to the configured URL. Non-2xx responses are errors, so the retry
// policy upstream applies.
type WebhookDispatcher struct {
	client *http.Client
}

func NewWebhookDispatcher(timeout time.Duration) *WebhookDispatcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookDispatcher{
		client: &http.Client{Timeout: timeout},
	}
}

// webhookEnvelope is the request body posted to the endpoint.
type webhookEnvelope struct {
	Event       *event.Event `json:"event"`
	DeliveredAt time.Time    `json:"delivered_at"`
}

// CallWebhook requires a "url" config entry. Extra string values under
// config["headers"] are sent as request headers.
func (d *WebhookDispatcher) CallWebhook(ctx context.Context, config map[string]any, evt *event.Event) error {
	url, _ := config["url"].(string)
	if url == "" {
		return fmt.Errorf("webhook action requires a 'url'")
	}

	body, err := json.Marshal(webhookEnvelope{Event: evt, DeliveredAt: time.Now()})
	if err != nil {
		return fmt.Errorf("encoding webhook body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Event-Type", evt.Type)
	req.Header.Set("X-Event-ID", evt.ID.String())
	if headers, ok := config["headers"].(map[string]any); ok {
		for name, value := range headers {
			if s, ok := value.(string); ok {
				req.Header.Set(name, s)
			}
		}
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("calling webhook '%s': %w", url, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook '%s' returned status %d", url, resp.StatusCode)
	}
	return nil
}

var _ workflow.WebhookCaller = (*WebhookDispatcher)(nil)
