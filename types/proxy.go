package types

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
)

// ProxyProtocol is the allowed proxy protocol.
type ProxyProtocol string

const (
	ProxyProtocolHTTP   ProxyProtocol = "http"
	ProxyProtocolHTTPS  ProxyProtocol = "https"
	ProxyProtocolSOCKS5 ProxyProtocol = "socks5"
)

// ProxyStrategy is the endpoint selection strategy for a pool.
type ProxyStrategy string

const (
	ProxyStrategyRoundRobin ProxyStrategy = "round_robin"
	ProxyStrategyRandom     ProxyStrategy = "random"
)

// ProxyEndpoint is a proxy the browser and the download client can dial.
type ProxyEndpoint struct {
	Protocol ProxyProtocol `json:"protocol" yaml:"protocol"`
	Host     string        `json:"host" yaml:"host"`
	Port     int           `json:"port" yaml:"port"`
	Username string        `json:"username,omitempty" yaml:"username,omitempty"`
	Password string        `json:"password,omitempty" yaml:"password,omitempty"`
}

// Validate checks protocol, port range and that credentials come in pairs.
func (p *ProxyEndpoint) Validate() error {
	switch p.Protocol {
	case ProxyProtocolHTTP, ProxyProtocolHTTPS, ProxyProtocolSOCKS5:
	default:
		return fmt.Errorf("invalid protocol %q: must be http, https, or socks5", p.Protocol)
	}
	if p.Host == "" {
		return fmt.Errorf("host is required")
	}
	if p.Port < 1 || p.Port > 65535 {
		return fmt.Errorf("invalid port %d: must be between 1 and 65535", p.Port)
	}
	if (p.Username == "") != (p.Password == "") {
		return fmt.Errorf("username and password must be provided together")
	}
	return nil
}

// URL renders the endpoint as a proxy URL, credentials included.
func (p *ProxyEndpoint) URL() string {
	u := url.URL{
		Scheme: string(p.Protocol),
		Host:   net.JoinHostPort(p.Host, strconv.Itoa(p.Port)),
	}
	if p.Username != "" {
		u.User = url.UserPassword(p.Username, p.Password)
	}
	return u.String()
}

// ServerAddr renders the endpoint without credentials, the form Chrome's
// --proxy-server switch accepts.
func (p *ProxyEndpoint) ServerAddr() string {
	return string(p.Protocol) + "://" + net.JoinHostPort(p.Host, strconv.Itoa(p.Port))
}

// Redact returns a copy of the endpoint without the password.
func (p *ProxyEndpoint) Redact() ProxyEndpoint {
	r := *p
	r.Password = ""
	return r
}

// Warnings returns non-fatal issues worth surfacing to the operator.
func (p *ProxyEndpoint) Warnings() []string {
	if p.Protocol == ProxyProtocolSOCKS5 && p.Username != "" {
		return []string{fmt.Sprintf("proxy %s: chrome ignores socks5 credentials; only the download client will authenticate", p.Host)}
	}
	return nil
}

// ProxyPool is a named set of endpoints with a rotation strategy.
type ProxyPool struct {
	Name      string          `json:"name" yaml:"name"`
	Strategy  ProxyStrategy   `json:"strategy" yaml:"strategy"`
	Endpoints []ProxyEndpoint `json:"endpoints" yaml:"endpoints"`
}

// Validate validates the pool and every endpoint in it.
func (p *ProxyPool) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("pool name is required")
	}
	switch p.Strategy {
	case ProxyStrategyRoundRobin, ProxyStrategyRandom:
	default:
		return fmt.Errorf("invalid strategy %q: must be round_robin or random", p.Strategy)
	}
	if len(p.Endpoints) == 0 {
		return fmt.Errorf("pool must have at least one endpoint")
	}
	for i, ep := range p.Endpoints {
		if err := ep.Validate(); err != nil {
			return fmt.Errorf("endpoints[%d]: %w", i, err)
		}
	}
	return nil
}

// Warnings collects endpoint warnings for the pool.
func (p *ProxyPool) Warnings() []string {
	var warnings []string
	for _, ep := range p.Endpoints {
		warnings = append(warnings, ep.Warnings()...)
	}
	return warnings
}
