package infra

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// WebhookEvent is the payload POSTed to the notification collaborator for
// every committed lifecycle / ledger mutation.
type WebhookEvent struct {
	Event         string `json:"event"`
	InvoiceID     uint   `json:"invoice_id"`
	InvoiceNumber string `json:"invoice_number"`
	Status        string `json:"status"`
	Amount        string `json:"amount"`
	ActorID       string `json:"actor_id,omitempty"`
	OccurredAt    string `json:"occurred_at"`
}

// WebhookClient delivers domain events to an external notification sink over
// HTTP. Delivery is best-effort by contract: the engine never waits on it and
// never rolls back because of it.
type WebhookClient struct {
	url        string
	httpClient *http.Client
}

// NewWebhookClient builds a client for the given sink URL. An empty URL
// disables delivery entirely.
func NewWebhookClient(url string) *WebhookClient {
	return &WebhookClient{
		url:        url,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Enabled reports whether a sink URL is configured.
func (c *WebhookClient) Enabled() bool { return c.url != "" }

// Notify POSTs one event to the sink. Non-2xx responses count as failures so
// the circuit breaker sees them.
func (c *WebhookClient) Notify(ctx context.Context, event WebhookEvent) error {
	if c.url == "" {
		return nil
	}
	if event.OccurredAt == "" {
		event.OccurredAt = time.Now().UTC().Format(time.RFC3339)
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("webhook: marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook: sink returned status %d", resp.StatusCode)
	}
	return nil
}
