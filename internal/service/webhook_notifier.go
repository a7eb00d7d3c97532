package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/servisdesk/servisdesk/internal/events"
)

const (
	webhookUserAgent     = "ServisDesk-Webhook/1.0"
	maxWebhookReplyBytes = 64 << 10
)

// webhookMessage is the JSON body posted to the webhook endpoint.
type webhookMessage struct {
	Subject string       `json:"subject"`
	Event   events.Event `json:"event"`
}

// WebhookNotifier posts events to the configured webhook URL. There is no
// mail transport, so the email channel is only written to the log.
type WebhookNotifier struct {
	client *http.Client
	logger *zap.Logger
}

// NewWebhookNotifier wraps client, which should be bounded by a timeout.
func NewWebhookNotifier(client *http.Client, logger *zap.Logger) *WebhookNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookNotifier{client: client, logger: logger}
}

// Notify implements Notifier.
func (w *WebhookNotifier) Notify(ctx context.Context, channel, recipient, subject string, event events.Event) error {
	switch channel {
	case "webhook":
		return w.post(ctx, recipient, subject, event)
	default:
		w.logger.Info("notification not sent, no transport for channel",
			zap.String("channel", channel),
			zap.String("recipient", recipient),
			zap.String("subject", subject),
			zap.String("event_id", event.ID))
		return nil
	}
}

func (w *WebhookNotifier) post(ctx context.Context, endpoint, subject string, event events.Event) error {
	body, err := json.Marshal(webhookMessage{Subject: subject, Event: event})
	if err != nil {
		return fmt.Errorf("encode webhook body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", webhookUserAgent)

	resp, err := w.client.Do(req)
	if err != nil {
		w.logger.Warn("webhook delivery failed", zap.String("event_id", event.ID), zap.Error(err))
		return fmt.Errorf("deliver webhook: %w", err)
	}
	defer resp.Body.Close()
	// Drain a bounded amount so the connection can be reused.
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxWebhookReplyBytes))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		w.logger.Warn("webhook endpoint rejected event",
			zap.String("event_id", event.ID),
			zap.Int("http_status", resp.StatusCode))
		return fmt.Errorf("webhook endpoint returned status %d", resp.StatusCode)
	}
	w.logger.Debug("webhook delivered", zap.String("event_id", event.ID), zap.String("event_type", string(event.Type)))
	return nil
}
