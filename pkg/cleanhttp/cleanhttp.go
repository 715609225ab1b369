// Package cleanhttp provides the pooled HTTP client archive downloads
// use: sane timeouts, no transparent compression (tarballs are already
// packed), and a stable User-Agent.
package cleanhttp

import (
	"context"
	"net"
	"net/http"
	"time"
)

const userAgent = "TSI/0.1.0"

var DefaultClient = &http.Client{
	Timeout:   5 * time.Minute,
	Transport: newTransport(),
}

func newTransport() *http.Transport {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
		DisableCompression:    true,
	}
}

// Get issues a GET for url under ctx.
func Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("User-Agent", userAgent)

	return DefaultClient.Do(req)
}
