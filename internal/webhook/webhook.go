package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/haproxy-monitor/haproxy-monitor/internal/config"
)

// StatusSuccess is the only value ever sent in Payload.Status.
const StatusSuccess = "success"

const maxResponseLog = 4 << 10

// Payload is the JSON body POSTed to the webhook.
type Payload struct {
	EventName string `json:"event_name"`
	Message   string `json:"message"`
	Status    string `json:"status"`
	Username  string `json:"username"`
}

// Outcome describes one delivery attempt.
//
// Delivered is false only when no HTTP response was received. Any response,
// including 4xx/5xx, counts as delivered and its code is in StatusCode.
type Outcome struct {
	Delivered  bool
	StatusCode int
	Err        error
}

// Dispatcher posts rendered reports to a webhook URL. It makes exactly one
// attempt per Send; there is no retry.
type Dispatcher struct {
	client    *http.Client
	eventName string
	username  string
}

// New creates a Dispatcher from the webhook configuration.
func New(cfg config.WebhookConfig) *Dispatcher {
	return &Dispatcher{
		client:    &http.Client{Timeout: cfg.Timeout},
		eventName: cfg.EventName,
		username:  cfg.Username,
	}
}

// Send posts message to url. Failures are returned in the Outcome, never
// as a panic or a separate error.
func (d *Dispatcher) Send(ctx context.Context, url, message string) Outcome {
	body, err := json.Marshal(Payload{
		EventName: d.eventName,
		Message:   message,
		Status:    StatusSuccess,
		Username:  d.username,
	})
	if err != nil {
		return Outcome{Err: fmt.Errorf("webhook: encode payload: %w", err)}
	}

	code, err := d.post(ctx, url, body)
	if err != nil {
		slog.Error("webhook: delivery failed", "url", url, "err", err)
		return Outcome{Err: err}
	}

	if code >= 400 {
		slog.Warn("webhook: delivered with error status", "url", url, "status", code)
	} else {
		slog.Info("webhook: delivered", "url", url, "status", code)
	}
	return Outcome{Delivered: true, StatusCode: code}
}

func (d *Dispatcher) post(ctx context.Context, url string, body []byte) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("webhook: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("webhook: http post: %w", err)
	}
	defer resp.Body.Close()

	reply, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseLog))
	slog.Debug("webhook: response", "url", url, "status", resp.StatusCode, "body", string(reply))

	return resp.StatusCode, nil
}
