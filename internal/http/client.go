// Package http builds the outbound HTTP clients used for both the Synapse
// REST API and the object store SDKs, with shared proxy configuration.
package http

import (
	"crypto/tls"
	"net"
	nethttp "net/http"
	"net/url"
	"os"
	"strings"
	"time"

	ntlmssp "github.com/Azure/go-ntlmssp"
	"golang.org/x/net/http/httpproxy"
	"golang.org/x/net/http2"

	"github.com/DwayneJengSage/BridgeUserDataDownloadService/internal/config"
)

const (
	dialTimeout          = 30 * time.Second
	dialKeepAlive        = 30 * time.Second
	idleConnTimeout      = 90 * time.Second
	tlsHandshakeTimeout  = 30 * time.Second
	expectContinueWindow = 5 * time.Second
)

// NewClient builds an HTTP client honoring the configured proxy mode.
// Per-operation deadlines come from contexts, so the client itself carries
// no overall timeout; file-handle downloads can run for a long time.
func NewClient(cfg *config.Config) (*nethttp.Client, error) {
	transport := &nethttp.Transport{
		DialContext: (&net.Dialer{
			Timeout:   dialTimeout,
			KeepAlive: dialKeepAlive,
		}).DialContext,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   100,
		MaxConnsPerHost:       100,
		IdleConnTimeout:       idleConnTimeout,
		TLSHandshakeTimeout:   tlsHandshakeTimeout,
		ExpectContinueTimeout: expectContinueWindow,
		ForceAttemptHTTP2:     true,
	}
	if err := http2.ConfigureTransport(transport); err != nil {
		return nil, err
	}

	// Proxies often mishandle HTTP/2 multiplexing mid-transfer; fall back
	// to HTTP/1.1 whenever a proxy is in play.
	mode := strings.ToLower(cfg.Proxy.Mode)
	if mode != "no-proxy" && mode != "" {
		transport.ForceAttemptHTTP2 = false
		transport.TLSNextProto = make(map[string]func(string, *tls.Conn) nethttp.RoundTripper)
	}

	switch mode {
	case "system":
		transport.Proxy = nethttp.ProxyFromEnvironment

	case "basic":
		transport.Proxy = proxyFuncWithBypass(buildProxyURL(cfg), cfg.Proxy.NoProxy)

	case "ntlm":
		transport.Proxy = proxyFuncWithBypass(buildProxyURL(cfg), cfg.Proxy.NoProxy)
		return &nethttp.Client{
			Transport: ntlmssp.Negotiator{RoundTripper: transport},
		}, nil

	default:
		// no-proxy; config validation rejects unknown modes earlier.
		transport.Proxy = nil
	}

	return &nethttp.Client{Transport: transport}, nil
}

// buildProxyURL assembles the proxy URL from config, embedding credentials
// when present. Corporate proxies are nearly always plain-HTTP endpoints
// even when tunneling HTTPS traffic.
func buildProxyURL(cfg *config.Config) *url.URL {
	host := cfg.Proxy.Host
	if cfg.Proxy.Port != "" {
		host = net.JoinHostPort(cfg.Proxy.Host, cfg.Proxy.Port)
	}
	proxyURL := &url.URL{Scheme: "http", Host: host}
	if cfg.Proxy.User != "" {
		if cfg.Proxy.Password != "" {
			proxyURL.User = url.UserPassword(cfg.Proxy.User, cfg.Proxy.Password)
		} else {
			proxyURL.User = url.User(cfg.Proxy.User)
		}
	}
	return proxyURL
}

// proxyFuncWithBypass returns a proxy selection function honoring a
// NO_PROXY-style bypass list (hosts, domains, CIDRs).
func proxyFuncWithBypass(proxyURL *url.URL, noProxy string) func(*nethttp.Request) (*url.URL, error) {
	if noProxy == "" {
		noProxy = os.Getenv("NO_PROXY")
	}
	proxyCfg := &httpproxy.Config{
		HTTPProxy:  proxyURL.String(),
		HTTPSProxy: proxyURL.String(),
		NoProxy:    noProxy,
	}
	proxyFunc := proxyCfg.ProxyFunc()
	return func(req *nethttp.Request) (*url.URL, error) {
		return proxyFunc(req.URL)
	}
}
