// Package quickstats is a client for the USDA NASS QuickStats API.
package quickstats

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/pithecene-io/agharvest/log"
	"github.com/pithecene-io/agharvest/tabular"
	"github.com/pithecene-io/agharvest/types"
)

// DefaultBaseURL is the public API root.
const DefaultBaseURL = "https://quickstats.nass.usda.gov/api"

// DefaultTimeout bounds one API call.
const DefaultTimeout = 2 * time.Minute

// ErrNoAPIKey is returned when a call is made without a key.
var ErrNoAPIKey = errors.New("quickstats: api key is required")

// APIError is an error reported by the API.
type APIError struct {
	StatusCode int
	Messages   []string
}

func (e *APIError) Error() string {
	if len(e.Messages) == 0 {
		return fmt.Sprintf("quickstats: HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("quickstats: HTTP %d: %s", e.StatusCode, strings.Join(e.Messages, "; "))
}

// Client calls the API with one key.
type Client struct {
	http   *resty.Client
	apiKey string
	logger *log.Logger
}

type config struct {
	baseURL   string
	timeout   time.Duration
	proxy     *types.ProxyEndpoint
	transport http.RoundTripper
	logger    *log.Logger
}

// Option configures a Client.
type Option func(*config)

// WithBaseURL points the client at another API root.
func WithBaseURL(u string) Option {
	return func(c *config) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithTimeout bounds each call.
func WithTimeout(t time.Duration) Option {
	return func(c *config) {
		if t > 0 {
			c.timeout = t
		}
	}
}

// WithProxy routes calls through p.
func WithProxy(p *types.ProxyEndpoint) Option {
	return func(c *config) { c.proxy = p }
}

// WithTransport replaces the HTTP transport.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *config) { c.transport = rt }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(c *config) { c.logger = l }
}

// NewClient creates a client for apiKey.
func NewClient(apiKey string, opts ...Option) *Client {
	cfg := config{baseURL: DefaultBaseURL, timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(&cfg)
	}
	h := resty.New().
		SetBaseURL(cfg.baseURL).
		SetTimeout(cfg.timeout).
		SetHeader("Accept", "application/json")
	if cfg.transport != nil {
		h.SetTransport(cfg.transport)
	}
	if cfg.proxy != nil {
		h.SetProxy(cfg.proxy.URL())
	}
	return &Client{http: h, apiKey: apiKey, logger: cfg.logger}
}

func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	if c.apiKey == "" {
		return nil, ErrNoAPIKey
	}
	q := url.Values{"key": {c.apiKey}}
	for k, vs := range query {
		q[k] = append(q[k], vs...)
	}
	started := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParamsFromValues(q).
		Get(path)
	if err != nil {
		return nil, fmt.Errorf("quickstats %s: %w", path, err)
	}
	body := resp.Body()
	c.logger.Debug("quickstats call", map[string]any{
		"path":        path,
		"status":      resp.StatusCode(),
		"bytes":       len(body),
		"duration_ms": time.Since(started).Milliseconds(),
	})

	var envelope struct {
		Error []string `json:"error"`
	}
	_ = json.Unmarshal(body, &envelope)
	if resp.IsError() || len(envelope.Error) > 0 {
		return nil, &APIError{StatusCode: resp.StatusCode(), Messages: envelope.Error}
	}
	return body, nil
}

func conditionValues(conds []Condition) url.Values {
	q := url.Values{}
	for _, c := range conds {
		q.Add(c.Key(), c.Value)
	}
	return q
}

// ParamValues lists the values param takes among records matching conds.
func (c *Client) ParamValues(ctx context.Context, param Parameter, conds []Condition) ([]string, error) {
	q := conditionValues(conds)
	q.Set("param", string(param))
	body, err := c.get(ctx, "/get_param_values/", q)
	if err != nil {
		return nil, err
	}
	var out map[string][]string
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("quickstats: decode param values: %w", err)
	}
	return out[string(param)], nil
}

// Count returns the number of records matching conds.
func (c *Client) Count(ctx context.Context, conds []Condition) (int64, error) {
	body, err := c.get(ctx, "/get_counts/", conditionValues(conds))
	if err != nil {
		return 0, err
	}
	var out struct {
		Count int64 `json:"count"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return 0, fmt.Errorf("quickstats: decode count: %w", err)
	}
	return out.Count, nil
}

// Data fetches the records matching conds as a table. Columns follow the
// key order of the first record; nested objects flatten to "a.b".
func (c *Client) Data(ctx context.Context, conds []Condition) (*tabular.Table, error) {
	body, err := c.get(ctx, "/api_GET/", conditionValues(conds))
	if err != nil {
		return nil, err
	}
	var envelope struct {
		Data []json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("quickstats: decode data: %w", err)
	}

	t := &tabular.Table{}
	index := map[string]int{}
	for i, raw := range envelope.Data {
		rec, err := decodeRecord(raw)
		if err != nil {
			return nil, fmt.Errorf("quickstats: record %d: %w", i, err)
		}
		row := make([]any, len(t.Columns))
		for _, f := range rec {
			c, ok := index[f.key]
			if !ok {
				c = len(t.Columns)
				index[f.key] = c
				t.Columns = append(t.Columns, f.key)
				for r := range t.Rows {
					t.Rows[r] = append(t.Rows[r], nil)
				}
				row = append(row, nil)
			}
			row[c] = f.value
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

type field struct {
	key   string
	value any
}

// decodeRecord reads one JSON object keeping its key order.
func decodeRecord(raw json.RawMessage) ([]field, error) {
	var out []field
	if err := decodeObject(raw, "", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func decodeObject(raw json.RawMessage, prefix string, out *[]field) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("expected object, got %v", tok)
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key := prefix + tok.(string)
		var val json.RawMessage
		if err := dec.Decode(&val); err != nil {
			return err
		}
		if trimmed := bytes.TrimSpace(val); len(trimmed) > 0 && trimmed[0] == '{' {
			if err := decodeObject(trimmed, key+".", out); err != nil {
				return err
			}
			continue
		}
		vd := json.NewDecoder(bytes.NewReader(val))
		vd.UseNumber()
		var v any
		if err := vd.Decode(&v); err != nil {
			return err
		}
		*out = append(*out, field{key: key, value: cellValue(v)})
	}
	return nil
}

func cellValue(v any) any {
	switch v := v.(type) {
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n
		}
		if f, err := v.Float64(); err == nil {
			return f
		}
		return v.String()
	case string, bool, nil:
		return v
	default:
		b, _ := json.Marshal(v)
		return string(b)
	}
}
