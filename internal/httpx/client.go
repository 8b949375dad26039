// Package httpx builds the HTTP clients used to reach the audit server,
// including proxy support for locked-down corporate networks.
package httpx

import (
	"crypto/tls"
	"fmt"
	"net"
	nethttp "net/http"
	"net/url"
	"os"
	"strings"

	ntlmssp "github.com/Azure/go-ntlmssp"
	"golang.org/x/net/http/httpproxy"
	"golang.org/x/net/http2"

	"github.com/faceaudit/faceaudit/internal/config"
	"github.com/faceaudit/faceaudit/internal/constants"
)

// NewClient configures an HTTP client according to the proxy settings.
//
// Modes:
//   - "no-proxy" / "": direct connections
//   - "system": proxy from HTTP_PROXY/HTTPS_PROXY/NO_PROXY environment
//   - "basic": explicit proxy with optional basic-auth credentials
//   - "ntlm": explicit proxy behind an NTLM negotiator
//
// HTTP/2 is enabled unless FACEAUDIT_DISABLE_HTTP2 is set; some NTLM proxies
// mishandle h2 connection reuse.
func NewClient(cfg *config.ProxyConfig) (*nethttp.Client, error) {
	transport := newTransport()

	mode := ""
	if cfg != nil {
		mode = strings.ToLower(cfg.Mode)
	}

	switch mode {
	case "no-proxy", "":
		transport.Proxy = nil

	case "system":
		transport.Proxy = nethttp.ProxyFromEnvironment

	case "basic":
		if cfg.Host == "" {
			// Incomplete saved config; fall back to direct connections so the
			// user can reconfigure.
			transport.Proxy = nil
			break
		}
		transport.Proxy = proxyFuncWithBypass(buildProxyURL(cfg), cfg.NoProxy)

	case "ntlm":
		if cfg.Host == "" {
			transport.Proxy = nil
			break
		}
		transport.Proxy = proxyFuncWithBypass(buildProxyURL(cfg), cfg.NoProxy)
		return &nethttp.Client{
			Transport: ntlmssp.Negotiator{
				RoundTripper: transport,
			},
			Timeout: constants.HTTPRequestTimeout,
		}, nil

	default:
		return nil, fmt.Errorf("unsupported proxy mode: %s", cfg.Mode)
	}

	return &nethttp.Client{
		Transport: transport,
		Timeout:   constants.HTTPRequestTimeout,
	}, nil
}

// newTransport returns the tuned base transport shared by all proxy modes.
func newTransport() *nethttp.Transport {
	transport := &nethttp.Transport{
		DialContext: (&net.Dialer{
			Timeout:   constants.HTTPDialTimeout,
			KeepAlive: constants.HTTPDialKeepAlive,
		}).DialContext,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
		MaxIdleConns:          32,
		MaxIdleConnsPerHost:   8,
		IdleConnTimeout:       constants.HTTPIdleConnTimeout,
		TLSHandshakeTimeout:   constants.HTTPTLSHandshakeTimeout,
		ExpectContinueTimeout: constants.HTTPExpectContinueTimeout,
	}

	if os.Getenv("FACEAUDIT_DISABLE_HTTP2") == "" {
		// Errors here leave the transport on HTTP/1.1, which is fine.
		_ = http2.ConfigureTransport(transport)
	} else {
		transport.ForceAttemptHTTP2 = false
		transport.TLSNextProto = map[string]func(string, *tls.Conn) nethttp.RoundTripper{}
	}

	return transport
}

// buildProxyURL constructs a proxy URL from config.
func buildProxyURL(cfg *config.ProxyConfig) *url.URL {
	port := cfg.Port
	if port == 0 {
		port = constants.DefaultProxyPort
	}

	proxyURL := &url.URL{
		Scheme: "http",
		Host:   fmt.Sprintf("%s:%d", cfg.Host, port),
	}

	// Only embed credentials when both are present; an empty password in the
	// URL confuses some proxies.
	if cfg.User != "" && cfg.Password != "" {
		proxyURL.User = url.UserPassword(cfg.User, cfg.Password)
	}

	return proxyURL
}

// proxyFuncWithBypass returns a proxy function honoring the no_proxy bypass
// list. With an empty list it behaves identically to http.ProxyURL.
func proxyFuncWithBypass(proxyURL *url.URL, noProxy string) func(*nethttp.Request) (*url.URL, error) {
	if noProxy == "" {
		return nethttp.ProxyURL(proxyURL)
	}
	cfg := httpproxy.Config{
		HTTPProxy:  proxyURL.String(),
		HTTPSProxy: proxyURL.String(),
		NoProxy:    noProxy,
	}
	proxyFunc := cfg.ProxyFunc()
	return func(req *nethttp.Request) (*url.URL, error) {
		return proxyFunc(req.URL)
	}
}
