package distribution

import (
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/http/httpproxy"
)

// ProxyConfig is an explicit download proxy. The zero value falls back to
// the standard HTTP_PROXY/HTTPS_PROXY/NO_PROXY environment variables.
type ProxyConfig struct {
	Host     string `yaml:"host,omitempty" json:"host,omitempty"`
	Port     int    `yaml:"port,omitempty" json:"port,omitempty"`
	Protocol string `yaml:"protocol,omitempty" json:"protocol,omitempty"` // "http" (default) or "https"
	User     string `yaml:"user,omitempty" json:"user,omitempty"`
	Password string `yaml:"password,omitempty" json:"-"`

	// NonProxyHosts bypass the proxy, separated by '|' ("*.corp|localhost").
	NonProxyHosts string `yaml:"nonProxyHosts,omitempty" json:"nonProxyHosts,omitempty"`
}

// ProxyFunc returns the proxy selector for this configuration. The proxy
// only applies to download URLs whose scheme equals Protocol.
func (p ProxyConfig) ProxyFunc() func(*url.URL) (*url.URL, error) {
	if strings.TrimSpace(p.Host) == "" {
		return httpproxy.FromEnvironment().ProxyFunc()
	}

	proto := strings.ToLower(strings.TrimSpace(p.Protocol))
	if proto == "" {
		proto = "http"
	}
	host := p.Host
	if p.Port > 0 {
		host = net.JoinHostPort(p.Host, strconv.Itoa(p.Port))
	}
	u := &url.URL{Scheme: "http", Host: host}
	if p.User != "" {
		u.User = url.UserPassword(p.User, p.Password)
	}

	cfg := &httpproxy.Config{NoProxy: strings.ReplaceAll(p.NonProxyHosts, "|", ",")}
	switch proto {
	case "http":
		cfg.HTTPProxy = u.String()
	case "https":
		cfg.HTTPSProxy = u.String()
	}
	return cfg.ProxyFunc()
}

// NewClient builds the download client. Only this client sees the proxy;
// nothing process-wide is changed.
func NewClient(p ProxyConfig, timeout time.Duration) *http.Client {
	selector := p.ProxyFunc()
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = func(req *http.Request) (*url.URL, error) {
		return selector(req.URL)
	}
	return &http.Client{Transport: transport, Timeout: timeout}
}
