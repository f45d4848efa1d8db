// Package gmail provides a client for the Gmail REST API covering the
// operations the pipeline needs: listing unread inquiries, creating reply
// drafts, and marking messages as processed. Drafts are never sent; a
// human dispatches them from the mailbox.
package gmail

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/mail"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/ottomail/proposal-cli/internal/model"
)

// Client defines the Gmail operations used by the pipeline.
type Client interface {
	// ListUnread fetches up to max unread inbox messages.
	ListUnread(ctx context.Context, max int) ([]model.InboundEmail, error)
	// CreateDraft creates an unsent draft and returns its ID.
	CreateDraft(ctx context.Context, to, subject, body string) (string, error)
	// MarkRead removes the UNREAD label from a message.
	MarkRead(ctx context.Context, messageID string) error
}

// Option configures the Gmail client.
type Option func(*httpClient)

// WithBaseURL sets a custom API base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client, bypassing OAuth transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit overrides the default request throttle.
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
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a Gmail client authenticated by the given token source.
func NewClient(ctx context.Context, ts oauth2.TokenSource, opts ...Option) Client {
	c := &httpClient{
		baseURL: "https://gmail.googleapis.com/gmail/v1",
		limiter: rate.NewLimiter(5, 5),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = oauth2.NewClient(ctx, ts)
		c.http.Timeout = 30 * time.Second
	}
	return c
}

func (c *httpClient) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

func (c *httpClient) do(ctx context.Context, method, url string, reqBody, out any) error {
	if err := c.wait(ctx); err != nil {
		return eris.Wrap(err, "gmail: rate limit")
	}

	var body io.Reader
	if reqBody != nil {
		data, err := json.Marshal(reqBody)
		if err != nil {
			return eris.Wrap(err, "gmail: marshal request")
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return eris.Wrap(err, "gmail: create request")
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "gmail: request failed")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "gmail: read response body")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return eris.Errorf("gmail: unexpected status %d: %s", resp.StatusCode, string(data))
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return eris.Wrap(err, "gmail: unmarshal response")
		}
	}
	return nil
}

type messageRef struct {
	ID       string `json:"id"`
	ThreadID string `json:"threadId"`
}

type messageList struct {
	Messages []messageRef `json:"messages"`
}

type messagePayload struct {
	MimeType string `json:"mimeType"`
	Headers  []struct {
		Name  string `json:"name"`
		Value string `json:"value"`
	} `json:"headers"`
	Body struct {
		Data string `json:"data"`
	} `json:"body"`
	Parts []messagePayload `json:"parts"`
}

type message struct {
	ID       string         `json:"id"`
	ThreadID string         `json:"threadId"`
	Payload  messagePayload `json:"payload"`
}

func (c *httpClient) ListUnread(ctx context.Context, maxResults int) ([]model.InboundEmail, error) {
	if maxResults <= 0 {
		maxResults = 10
	}

	listURL := fmt.Sprintf("%s/users/me/messages?q=%s&maxResults=%d",
		c.baseURL, "is:unread+in:inbox", maxResults)

	var list messageList
	if err := c.do(ctx, http.MethodGet, listURL, nil, &list); err != nil {
		return nil, eris.Wrap(err, "gmail: list messages")
	}

	emails := make([]model.InboundEmail, 0, len(list.Messages))
	for _, ref := range list.Messages {
		msgURL := fmt.Sprintf("%s/users/me/messages/%s?format=full", c.baseURL, ref.ID)
		var msg message
		if err := c.do(ctx, http.MethodGet, msgURL, nil, &msg); err != nil {
			return nil, eris.Wrapf(err, "gmail: get message %s", ref.ID)
		}
		emails = append(emails, toInboundEmail(msg))
	}
	return emails, nil
}

func toInboundEmail(msg message) model.InboundEmail {
	email := model.InboundEmail{
		ID:       msg.ID,
		ThreadID: msg.ThreadID,
		Body:     extractBody(msg.Payload),
	}
	for _, h := range msg.Payload.Headers {
		switch h.Name {
		case "From":
			email.From = h.Value
		case "Subject":
			email.Subject = h.Value
		case "Date":
			if t, err := mail.ParseDate(h.Value); err == nil {
				email.Date = t
			}
		}
	}
	return email
}

// extractBody walks the MIME tree preferring the first text/plain part.
func extractBody(payload messagePayload) string {
	if payload.Body.Data != "" {
		if decoded, err := base64.URLEncoding.DecodeString(payload.Body.Data); err == nil {
			return string(decoded)
		}
	}
	for _, part := range payload.Parts {
		if part.MimeType == "text/plain" {
			if decoded, err := base64.URLEncoding.DecodeString(part.Body.Data); err == nil {
				return string(decoded)
			}
		}
	}
	for _, part := range payload.Parts {
		if body := extractBody(part); body != "" {
			return body
		}
	}
	return ""
}

func (c *httpClient) CreateDraft(ctx context.Context, to, subject, body string) (string, error) {
	raw := fmt.Sprintf("To: %s\r\nSubject: %s\r\nContent-Type: text/plain; charset=\"UTF-8\"\r\n\r\n%s", to, subject, body)

	req := map[string]any{
		"message": map[string]string{
			"raw": base64.URLEncoding.EncodeToString([]byte(raw)),
		},
	}

	var resp struct {
		ID string `json:"id"`
	}
	draftURL := fmt.Sprintf("%s/users/me/drafts", c.baseURL)
	if err := c.do(ctx, http.MethodPost, draftURL, req, &resp); err != nil {
		return "", eris.Wrap(err, "gmail: create draft")
	}
	return resp.ID, nil
}

func (c *httpClient) MarkRead(ctx context.Context, messageID string) error {
	req := map[string]any{
		"removeLabelIds": []string{"UNREAD"},
	}
	modifyURL := fmt.Sprintf("%s/users/me/messages/%s/modify", c.baseURL, messageID)
	if err := c.do(ctx, http.MethodPost, modifyURL, req, nil); err != nil {
		return eris.Wrapf(err, "gmail: mark read %s", messageID)
	}
	return nil
}
