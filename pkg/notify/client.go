// Package notify delivers best-effort human notifications through a
// webhook. Failures are reported to the caller but are never worth
// failing a pipeline run over.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// Client defines the notification operation used by the pipeline.
type Client interface {
	SendMessage(ctx context.Context, text string) error
}

// Option configures the webhook client.
type Option func(*httpClient)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit overrides the default message throttle (1 msg/s).
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		} else {
			c.limiter = nil
		}
	}
}

type httpClient struct {
	webhookURL string
	http       *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a webhook notification client.
func NewClient(webhookURL string, opts ...Option) Client {
	c := &httpClient{
		webhookURL: webhookURL,
		http:       &http.Client{Timeout: 10 * time.Second},
		limiter:    rate.NewLimiter(1, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) SendMessage(ctx context.Context, text string) error {
	if c.webhookURL == "" {
		return eris.New("notify: webhook URL not configured")
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return eris.Wrap(err, "notify: rate limit")
		}
	}

	payload, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return eris.Wrap(err, "notify: marshal payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "notify: create request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "notify: request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return eris.Errorf("notify: unexpected status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}
