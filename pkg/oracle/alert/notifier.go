package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const deliveryTimeout = 10 * time.Second

// Notification is the payload delivered to a rule's notify target.
type Notification struct {
	AlertID   uuid.UUID                  `json:"alertId"`
	Reason    string                     `json:"reason"`
	Prices    map[string]decimal.Decimal `json:"prices"`
	Timestamp time.Time                  `json:"timestamp"`
}

// Notifier delivers a notification to a target URL. Delivery is best-effort.
type Notifier interface {
	Notify(ctx context.Context, target string, note Notification) error
}

// WebhookNotifier posts notifications as JSON to the rule's target URL.
type WebhookNotifier struct {
	client *http.Client
}

// NewWebhookNotifier creates a webhook notifier.
func NewWebhookNotifier(timeout time.Duration) *WebhookNotifier {
	if timeout <= 0 {
		timeout = deliveryTimeout
	}
	return &WebhookNotifier{
		client: &http.Client{Timeout: timeout},
	}
}

// Notify posts the notification to the target URL.
func (n *WebhookNotifier) Notify(ctx context.Context, target string, note Notification) error {
	body, err := json.Marshal(note)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d", ErrDeliveryFailed, resp.StatusCode)
	}
	return nil
}

var _ Notifier = (*WebhookNotifier)(nil)
