package config

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pithecene-io/agharvest/portal"
	"github.com/pithecene-io/agharvest/types"
)

// Config is an agharvest.yaml file. Every value is optional; command
// flags override it.
type Config struct {
	LogLevel   string                     `yaml:"log_level"`
	Portal     PortalConfig               `yaml:"portal"`
	QuickStats QuickStatsConfig           `yaml:"quickstats"`
	Storage    StorageConfig              `yaml:"storage"`
	Proxies    map[string]ProxyPoolConfig `yaml:"proxies"`
	Proxy      ProxySelection             `yaml:"proxy"`
	Adapter    AdapterConfig              `yaml:"adapter"`
}

// PortalConfig configures the browser session and the artifact download.
type PortalConfig struct {
	URL        string `yaml:"url"`
	AuthHost   string `yaml:"auth_host"`
	Headless   *bool  `yaml:"headless"`
	ChromePath string `yaml:"chrome_path"`
	// CDPURL attaches to a running browser instead of launching one.
	CDPURL              string         `yaml:"cdp_url"`
	UserAgent           string         `yaml:"user_agent"`
	ManualOverlayScroll bool           `yaml:"manual_overlay_scroll"`
	DownloadTimeout     Duration       `yaml:"download_timeout"`
	Timeouts            TimeoutsConfig `yaml:"timeouts"`
}

// TimeoutsConfig overrides individual portal waits.
type TimeoutsConfig struct {
	Alert         Duration `yaml:"alert"`
	Overlay       Duration `yaml:"overlay"`
	LoginForm     Duration `yaml:"login_form"`
	LoginSubmit   Duration `yaml:"login_submit"`
	Logout        Duration `yaml:"logout"`
	Widget        Duration `yaml:"widget"`
	Calendar      Duration `yaml:"calendar"`
	SearchResults Duration `yaml:"search_results"`
	PlotButton    Duration `yaml:"plot_button"`
	Computation   Duration `yaml:"computation"`
	ProgressBar   Duration `yaml:"progress_bar"`
	Results       Duration `yaml:"results"`
}

// Apply overlays the configured values onto base.
func (c TimeoutsConfig) Apply(base portal.Timeouts) portal.Timeouts {
	set := func(dst *time.Duration, d Duration) {
		if d.Duration > 0 {
			*dst = d.Duration
		}
	}
	set(&base.Alert, c.Alert)
	set(&base.Overlay, c.Overlay)
	set(&base.LoginForm, c.LoginForm)
	set(&base.LoginSubmit, c.LoginSubmit)
	set(&base.Logout, c.Logout)
	set(&base.Widget, c.Widget)
	set(&base.Calendar, c.Calendar)
	set(&base.SearchResults, c.SearchResults)
	set(&base.PlotButton, c.PlotButton)
	set(&base.Computation, c.Computation)
	set(&base.ProgressBar, c.ProgressBar)
	set(&base.Results, c.Results)
	return base
}

// QuickStatsConfig configures the NASS API client.
type QuickStatsConfig struct {
	APIKey  string   `yaml:"api_key"`
	BaseURL string   `yaml:"base_url"`
	Timeout Duration `yaml:"timeout"`
}

// StorageConfig configures the run archive.
type StorageConfig struct {
	Dataset string `yaml:"dataset"`
	// Backend is "fs" or "s3".
	Backend     string `yaml:"backend"`
	Path        string `yaml:"path"`
	Region      string `yaml:"region"`
	Endpoint    string `yaml:"endpoint"`
	S3PathStyle bool   `yaml:"s3_path_style"`
}

// ProxyPoolConfig is one pool; its name is the map key.
type ProxyPoolConfig struct {
	Strategy  types.ProxyStrategy   `yaml:"strategy"`
	Endpoints []types.ProxyEndpoint `yaml:"endpoints"`
}

// ProxySelection picks the pool used by a run.
type ProxySelection struct {
	Pool     string `yaml:"pool"`
	Strategy string `yaml:"strategy"`
}

// AdapterConfig configures run notifications.
type AdapterConfig struct {
	// Type is "webhook" or "redis".
	Type    string            `yaml:"type"`
	URL     string            `yaml:"url"`
	Channel string            `yaml:"channel,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty"`
	Timeout Duration          `yaml:"timeout,omitempty"`
	Retries *int              `yaml:"retries,omitempty"`
}

// Duration reads YAML strings such as "10s" or "5m30s".
type Duration struct {
	time.Duration
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: duration must be a string", node.Line)
	}
	if node.Value == "" {
		return nil
	}
	parsed, err := time.ParseDuration(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: invalid duration %q: %w", node.Line, node.Value, err)
	}
	if parsed < 0 {
		return fmt.Errorf("line %d: negative duration %q", node.Line, node.Value)
	}
	d.Duration = parsed
	return nil
}

// ProxyPools returns the pools sorted by name.
func (c *Config) ProxyPools() []types.ProxyPool {
	if len(c.Proxies) == 0 {
		return nil
	}
	names := make([]string, 0, len(c.Proxies))
	for name := range c.Proxies {
		names = append(names, name)
	}
	sort.Strings(names)

	pools := make([]types.ProxyPool, 0, len(names))
	for _, name := range names {
		pc := c.Proxies[name]
		pools = append(pools, types.ProxyPool{Name: name, Strategy: pc.Strategy, Endpoints: pc.Endpoints})
	}
	return pools
}

// Validate checks enumerations and cross-field rules.
func (c *Config) Validate() error {
	var errs []error
	if c.Storage.Backend != "" && !slices.Contains([]string{"fs", "s3"}, c.Storage.Backend) {
		errs = append(errs, fmt.Errorf("storage.backend %q: must be fs or s3", c.Storage.Backend))
	}
	if c.Adapter.Type != "" {
		if !slices.Contains([]string{"webhook", "redis"}, c.Adapter.Type) {
			errs = append(errs, fmt.Errorf("adapter.type %q: must be webhook or redis", c.Adapter.Type))
		}
		if c.Adapter.URL == "" {
			errs = append(errs, errors.New("adapter.url is required when adapter.type is set"))
		}
	}
	for _, pool := range c.ProxyPools() {
		if err := pool.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("proxies.%s: %w", pool.Name, err))
		}
	}
	if c.Proxy.Pool != "" {
		if _, ok := c.Proxies[c.Proxy.Pool]; !ok {
			errs = append(errs, fmt.Errorf("proxy.pool %q is not defined under proxies", c.Proxy.Pool))
		}
	}
	return errors.Join(errs...)
}
