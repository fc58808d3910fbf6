package youtube

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	_ "github.com/bdandy/go-socks4"
	"golang.org/x/net/proxy"
)

// httpTimeout bounds each request, including one chunk of an audio download.
const httpTimeout = 60 * time.Second

// newHTTPClient builds the client used for YouTube requests, optionally
// routed through an http, https, socks5 or socks4 proxy.
func newHTTPClient(proxyStr string) (*http.Client, error) {
	if proxyStr == "" {
		return &http.Client{Timeout: httpTimeout}, nil
	}

	proxyURL, err := url.Parse(proxyStr)
	if err != nil {
		return nil, fmt.Errorf("invalid proxy %q: %w", proxyStr, err)
	}

	var transport *http.Transport

	switch proxyURL.Scheme {
	case "http", "https":
		transport = &http.Transport{
			Proxy: http.ProxyURL(proxyURL),
		}
	case "socks5":
		auth := &proxy.Auth{}
		if proxyURL.User != nil {
			auth.User = proxyURL.User.Username()
			if pass, ok := proxyURL.User.Password(); ok {
				auth.Password = pass
			}
		}
		dialer, err := proxy.SOCKS5("tcp", proxyURL.Host, auth, &net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 10 * time.Second,
		})
		if err != nil {
			return nil, fmt.Errorf("socks5 dialer: %w", err)
		}
		transport = &http.Transport{DialContext: dialContext(dialer)}
	case "socks4", "socks4a":
		dialer, err := proxy.FromURL(proxyURL, &net.Dialer{
			Timeout: 10 * time.Second,
		})
		if err != nil {
			return nil, fmt.Errorf("socks4 dialer: %w", err)
		}
		transport = &http.Transport{DialContext: dialContext(dialer)}
	default:
		return nil, fmt.Errorf("unsupported proxy scheme %q", proxyURL.Scheme)
	}

	return &http.Client{
		Timeout:   httpTimeout,
		Transport: transport,
	}, nil
}

func dialContext(d proxy.Dialer) func(ctx context.Context, network, addr string) (net.Conn, error) {
	if cd, ok := d.(proxy.ContextDialer); ok {
		return cd.DialContext
	}
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return d.Dial(network, addr)
	}
}
