// Package fetch downloads a located plot artifact and derives how it is
// persisted: the number of preamble lines to skip, the column rename and
// the metadata block carried next to the output.
package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/pithecene-io/agharvest/log"
	"github.com/pithecene-io/agharvest/metrics"
	"github.com/pithecene-io/agharvest/types"
)

// DefaultAuthHost issues the credentials used for artifact downloads.
const DefaultAuthHost = "urs.earthdata.nasa.gov"

// DefaultTimeout bounds a whole download including redirects.
const DefaultTimeout = 5 * time.Minute

// Credentials authenticate against the auth host.
type Credentials struct {
	Username string
	Password string
}

// StatusError reports a non-2xx response.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("download %s: HTTP %d", e.URL, e.Code)
}

// Downloader fetches artifacts. Each download gets its own cookie jar so
// no session state survives between runs.
type Downloader struct {
	creds     Credentials
	authHost  string
	timeout   time.Duration
	proxy     *types.ProxyEndpoint
	transport http.RoundTripper
	logger    *log.Logger
	metrics   *metrics.Collector
}

// Option configures a Downloader.
type Option func(*Downloader)

// WithAuthHost changes the host that receives the credentials.
func WithAuthHost(host string) Option {
	return func(d *Downloader) {
		if host != "" {
			d.authHost = host
		}
	}
}

// WithTimeout bounds each download.
func WithTimeout(t time.Duration) Option {
	return func(d *Downloader) {
		if t > 0 {
			d.timeout = t
		}
	}
}

// WithProxy routes downloads through p.
func WithProxy(p *types.ProxyEndpoint) Option {
	return func(d *Downloader) { d.proxy = p }
}

// WithTransport replaces the base HTTP transport.
func WithTransport(rt http.RoundTripper) Option {
	return func(d *Downloader) { d.transport = rt }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(d *Downloader) { d.logger = l }
}

// WithMetrics records download counters into c.
func WithMetrics(c *metrics.Collector) Option {
	return func(d *Downloader) { d.metrics = c }
}

// NewDownloader creates a downloader for creds.
func NewDownloader(creds Credentials, opts ...Option) *Downloader {
	d := &Downloader{
		creds:    creds,
		authHost: DefaultAuthHost,
		timeout:  DefaultTimeout,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Download fetches target and returns the body.
func (d *Downloader) Download(ctx context.Context, target string) ([]byte, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	base := d.transport
	if base == nil {
		tr := http.DefaultTransport.(*http.Transport).Clone()
		if d.proxy != nil {
			proxyURL, err := url.Parse(d.proxy.URL())
			if err != nil {
				return nil, fmt.Errorf("proxy url: %w", err)
			}
			tr.Proxy = http.ProxyURL(proxyURL)
		}
		base = tr
	}
	client := resty.New().
		SetTimeout(d.timeout).
		SetCookieJar(jar).
		SetTransport(&hostAuth{base: base, host: d.authHost, creds: d.creds})

	started := time.Now()
	resp, err := client.R().SetContext(ctx).Get(target)
	if err != nil {
		d.metrics.AddDownload(0, true)
		return nil, fmt.Errorf("download %s: %w", target, err)
	}
	if resp.IsError() {
		d.metrics.AddDownload(0, true)
		return nil, &StatusError{Code: resp.StatusCode(), URL: target}
	}
	body := resp.Body()
	d.metrics.AddDownload(int64(len(body)), false)
	d.logger.Info("artifact downloaded", map[string]any{
		"bytes":       len(body),
		"duration_ms": time.Since(started).Milliseconds(),
	})
	return body, nil
}

// hostAuth attaches Basic credentials only to requests addressed to host.
type hostAuth struct {
	base  http.RoundTripper
	host  string
	creds Credentials
}

func (t *hostAuth) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.creds.Username != "" && strings.EqualFold(req.URL.Hostname(), t.host) {
		req = req.Clone(req.Context())
		req.SetBasicAuth(t.creds.Username, t.creds.Password)
	}
	return t.base.RoundTrip(req)
}
