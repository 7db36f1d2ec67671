package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Deliverer pushes one event to one user over the real-time transport. One
// attempt per call; the context carries the delivery timeout.
type Deliverer interface {
	Deliver(ctx context.Context, userID uuid.UUID, event string, payload []byte) error
}

// WebhookDeliverer posts events to the real-time gateway, which owns the
// user connections.
type WebhookDeliverer struct {
	url        string
	httpClient *http.Client
}

func NewWebhookDeliverer(url string, timeout time.Duration) *WebhookDeliverer {
	return &WebhookDeliverer{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type webhookEnvelope struct {
	UserID  uuid.UUID       `json:"user_id"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

func (d *WebhookDeliverer) Deliver(ctx context.Context, userID uuid.UUID, event string, payload []byte) error {
	body, err := json.Marshal(webhookEnvelope{UserID: userID, Event: event, Payload: payload})
	if err != nil {
		return fmt.Errorf("failed to encode delivery: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build delivery request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("delivery failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("delivery gateway returned status %d", resp.StatusCode)
	}
	return nil
}

// LogDeliverer only logs. Used when no gateway is configured.
type LogDeliverer struct{}

func (LogDeliverer) Deliver(_ context.Context, userID uuid.UUID, event string, payload []byte) error {
	slog.Info("alert delivered to log", "user_id", userID.String(), "event", event, "bytes", len(payload))
	return nil
}
