package review

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"intelwatch/internal/logger"
	"intelwatch/internal/metrics"
	"intelwatch/internal/retry"
)

// ErrAuthFailed is returned when the upstream rejects our token. Callers
// degrade to cached or empty data instead of failing the run.
var ErrAuthFailed = errors.New("review api authentication failed")

// Client calls the upstream review API with a bearer token.
type Client struct {
	baseURL  string
	token    string
	client   *http.Client
	retryCfg retry.Config
	log      interface {
		Info(msg string, args ...any)
		Warn(msg string, args ...any)
	}
}

// NewClient builds a client for the review API at baseURL.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		baseURL:  baseURL,
		token:    token,
		client:   &http.Client{Timeout: timeout},
		retryCfg: retry.DefaultConfig,
		log:      logger.With("review"),
	}
}

// FetchReviews pulls reviews for a product. On auth failure or upstream
// unavailability it returns a degraded result instead of an error, so the
// pipeline keeps running on the remaining channels.
func (c *Client) FetchReviews(ctx context.Context, product string) ChannelResult {
	if c.baseURL == "" || c.token == "" {
		c.log.Info("review api not configured, skipping channel")
		metrics.Get().IncReviewDegrade()
		return ChannelResult{Degraded: &DegradedReason{Kind: "unavailable", Detail: "review api not configured"}}
	}

	var records []Record
	authFailed := false
	err := retry.WithRetry(ctx, c.retryCfg, func() error {
		var err error
		records, err = c.fetchOnce(ctx, product)
		if errors.Is(err, ErrAuthFailed) {
			// Retrying a rejected token will not help.
			authFailed = true
			return nil
		}
		return err
	})

	if authFailed {
		c.log.Warn("review api rejected token, continuing without reviews")
		metrics.Get().IncReviewDegrade()
		return ChannelResult{Degraded: &DegradedReason{Kind: "auth", Detail: "bearer token rejected"}}
	}
	if err != nil {
		c.log.Warn("review channel unavailable", "error", err)
		metrics.Get().IncReviewDegrade()
		return ChannelResult{Degraded: &DegradedReason{Kind: "unavailable", Detail: err.Error()}}
	}

	return ChannelResult{Reviews: records}
}

func (c *Client) fetchOnce(ctx context.Context, product string) ([]Record, error) {
	endpoint := fmt.Sprintf("%s/reviews?product=%s", c.baseURL, url.QueryEscape(product))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling review api: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, ErrAuthFailed
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("review api returned status %d", resp.StatusCode)
	}

	var payload struct {
		Reviews []Record `json:"reviews"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decoding review api response: %w", err)
	}
	return payload.Reviews, nil
}
