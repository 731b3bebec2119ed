// Package webhook talks to the external automation webhooks that run
// company searches and deliver follow-up messages.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prospecta/leads-api/internal/circuit"
	"github.com/prospecta/leads-api/internal/config"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

var (
	// ErrNotConfigured is returned when the webhook URL is empty
	ErrNotConfigured = errors.New("webhook not configured")
	// ErrUnavailable is returned when the circuit is open or the call failed
	// before a response arrived
	ErrUnavailable = errors.New("webhook unavailable")
	// ErrInvalidRequest is returned for payloads that cannot be forwarded
	ErrInvalidRequest = errors.New("invalid webhook request")
)

// StatusError is a non-2xx answer from the webhook
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("webhook returned status %d", e.StatusCode)
}

func (e *StatusError) HTTPStatus() int {
	return e.StatusCode
}

const (
	defaultTimeout   = 30 * time.Second
	maxResponseBytes = 32 << 20
	userAgent        = "ProspectaB2B/1.0"
)

// Client calls the search and follow-up webhooks. Each endpoint has its own
// circuit breaker.
type Client struct {
	http        *http.Client
	searchURL   string
	followUpURL string
	token       string
	source      string
	search      *gobreaker.CircuitBreaker
	followUp    *gobreaker.CircuitBreaker
	logger      *zap.Logger
	now         func() time.Time
}

func NewClient(cfg *config.WebhookConfig, logger *zap.Logger) *Client {
	timeout := cfg.TimeoutDuration()
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	source := cfg.Source
	if source == "" {
		source = "ProspectaB2B"
	}
	return &Client{
		http:        &http.Client{Timeout: timeout},
		searchURL:   cfg.SearchURL,
		followUpURL: cfg.FollowUpURL,
		token:       cfg.Token,
		source:      source,
		search:      circuit.New("webhook-search", cfg.BreakerFailures, cfg.BreakerTimeoutDuration(), logger),
		followUp:    circuit.New("webhook-followup", cfg.BreakerFailures, cfg.BreakerTimeoutDuration(), logger),
		logger:      logger,
		now:         time.Now,
	}
}

// SearchEnabled reports whether a search webhook is configured
func (c *Client) SearchEnabled() bool {
	return c.searchURL != ""
}

// FollowUpEnabled reports whether a follow-up webhook is configured
func (c *Client) FollowUpEnabled() bool {
	return c.followUpURL != ""
}

// BreakerStates reports the state of each circuit breaker by name
func (c *Client) BreakerStates() map[string]string {
	return map[string]string{
		c.search.Name():   c.search.State().String(),
		c.followUp.Name(): c.followUp.State().String(),
	}
}

// Response is a raw webhook answer
type Response struct {
	StatusCode int
	Body       []byte
}

// Forward posts body to the search webhook and returns whatever it answers,
// including non-2xx responses.
func (c *Client) Forward(ctx context.Context, body json.RawMessage) (*Response, error) {
	if !c.SearchEnabled() {
		return nil, ErrNotConfigured
	}
	result, err := c.search.Execute(func() (interface{}, error) {
		resp, err := c.post(ctx, c.searchURL, body)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 500 {
			return resp, &StatusError{StatusCode: resp.StatusCode, Body: truncate(string(resp.Body), 500)}
		}
		return resp, nil
	})
	if resp, ok := result.(*Response); ok && resp != nil {
		return resp, nil
	}
	return nil, c.classify(err)
}

// call posts body and fails on any non-2xx answer
func (c *Client) call(ctx context.Context, cb *gobreaker.CircuitBreaker, url string, body []byte) ([]byte, error) {
	result, err := cb.Execute(func() (interface{}, error) {
		resp, err := c.post(ctx, url, body)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, &StatusError{StatusCode: resp.StatusCode, Body: truncate(string(resp.Body), 500)}
		}
		return resp.Body, nil
	})
	if err != nil {
		return nil, c.classify(err)
	}
	return result.([]byte), nil
}

func (c *Client) post(ctx context.Context, url string, body []byte) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("Webhook request failed", zap.Error(err), zap.Duration("duration", time.Since(start)))
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrUnavailable, err)
	}

	c.logger.Debug("Webhook call completed",
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(data)),
		zap.Duration("duration", time.Since(start)),
	)
	return &Response{StatusCode: resp.StatusCode, Body: data}, nil
}

func (c *Client) classify(err error) error {
	if circuit.IsOpen(err) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
