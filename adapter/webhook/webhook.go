// Package webhook posts run completion events as JSON to an HTTP endpoint.
package webhook

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/pithecene-io/agharvest/adapter"
)

// DefaultTimeout bounds each request.
const DefaultTimeout = 10 * time.Second

// DefaultRetries is the number of retries after the first attempt.
const DefaultRetries = 3

// Config configures the webhook adapter.
type Config struct {
	URL     string
	Headers map[string]string
	Timeout time.Duration
	Retries int
	// Backoff is the first retry delay, doubling after that.
	Backoff time.Duration
}

// Adapter publishes via HTTP POST.
type Adapter struct {
	config Config
	client *resty.Client
}

// New validates cfg and creates the adapter.
func New(cfg Config) (*Adapter, error) {
	if cfg.URL == "" {
		return nil, errors.New("webhook adapter requires a URL")
	}
	if cfg.Retries < 0 {
		return nil, fmt.Errorf("retries must be >= 0, got %d", cfg.Retries)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeaders(cfg.Headers)
	return &Adapter{config: cfg, client: client}, nil
}

// StatusError is a non-2xx response. 4xx responses are not retried.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.Code)
}

// Publish posts event, retrying network errors and 5xx responses.
func (a *Adapter) Publish(ctx context.Context, event *adapter.RunCompletedEvent) error {
	err := adapter.Retry(ctx, a.config.Retries, a.config.Backoff, func(ctx context.Context) error {
		resp, err := a.client.R().SetContext(ctx).SetBody(event).Post(a.config.URL)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		if code := resp.StatusCode(); code < 200 || code >= 300 {
			se := &StatusError{Code: code}
			if code >= 400 && code < 500 {
				return fmt.Errorf("%w: %w", adapter.ErrPermanent, se)
			}
			return se
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("webhook: %w", err)
	}
	return nil
}

// Close releases idle connections.
func (a *Adapter) Close() error {
	a.client.GetClient().CloseIdleConnections()
	return nil
}

var _ adapter.Adapter = (*Adapter)(nil)
