// Package delivery hands finished reports to the downstream collaborator
// over a JSON webhook.
package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"intelwatch/internal/logger"
	"intelwatch/internal/metrics"
	"intelwatch/internal/retry"
)

// Request is the outbound collaborator contract.
type Request struct {
	Recipient      string   `json:"recipient"`
	Topic          string   `json:"topic"`
	FocusAreas     []string `json:"focus_areas"`
	DeliveryFormat string   `json:"delivery_format"`
	Report         string   `json:"report,omitempty"`
}

// Client posts requests to the collaborator webhook with retries.
type Client struct {
	url      string
	client   *http.Client
	retryCfg retry.Config
	log      interface {
		Info(msg string, args ...any)
		Error(msg string, args ...any)
	}
}

// NewClient builds a delivery client for the given webhook URL.
func NewClient(url string, timeout time.Duration) *Client {
	return &Client{
		url:      url,
		client:   &http.Client{Timeout: timeout},
		retryCfg: retry.DefaultConfig,
		log:      logger.With("delivery"),
	}
}

// Send posts one request. Non-2xx responses are errors; transient failures
// are retried with backoff.
func (c *Client) Send(ctx context.Context, req Request) error {
	if c.url == "" {
		return fmt.Errorf("delivery webhook url is not configured")
	}

	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encoding delivery request: %w", err)
	}

	err = retry.WithRetry(ctx, c.retryCfg, func() error {
		return c.post(ctx, body)
	})
	if err != nil {
		metrics.Get().IncDispatchFailure()
		c.log.Error("delivery failed", "recipient", req.Recipient, "topic", req.Topic, "error", err)
		return err
	}

	metrics.Get().IncDispatched()
	c.log.Info("report delivered", "recipient", req.Recipient, "topic", req.Topic, "format", req.DeliveryFormat)
	return nil
}

func (c *Client) post(ctx context.Context, body []byte) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("posting to webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("webhook returned status %d: %s", resp.StatusCode, string(snippet))
	}
	return nil
}
