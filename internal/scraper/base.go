package scraper

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/haproxy-monitor/haproxy-monitor/internal/config"
)

// ErrorMarker prefixes the text form of a failed fetch.
const ErrorMarker = "Error collecting stats: "

// maxBodyBytes caps how much of the stats response is read.
const maxBodyBytes = 16 << 20

// Target identifies one HAProxy stats endpoint and its optional credentials.
type Target struct {
	Endpoint string
	Username string
	Password string
}

// hasBasicAuth reports whether both credentials are set. A username without
// a password (or the reverse) sends no Authorization header.
func (t Target) hasBasicAuth() bool {
	return t.Username != "" && t.Password != ""
}

// Result is the outcome of one fetch. Exactly one of Raw and Err is meaningful:
// when Err is non-nil, Raw is empty and must not be parsed.
type Result struct {
	Endpoint  string
	FetchedAt time.Time

	// Raw is the response body, typically HAProxy "show stat" CSV.
	Raw string

	// Err is non-nil if the fetch failed (connectivity, timeout, TLS, non-2xx).
	Err error
}

// Failed reports whether the fetch produced no stats.
func (r *Result) Failed() bool {
	return r.Err != nil
}

// ErrorText renders a failed fetch as "Error collecting stats: <reason>".
// Returns empty string for a successful fetch.
func (r *Result) ErrorText() string {
	if r.Err == nil {
		return ""
	}
	return ErrorMarker + r.Err.Error()
}

// Scraper retrieves raw statistics text from one endpoint.
type Scraper interface {
	Scrape(ctx context.Context) *Result
}

// New returns a Scraper for target. The HTTP client is built once and owned
// by the returned value; nothing is shared between scrapers.
func New(target Target, cfg config.FetchConfig) (Scraper, error) {
	u, err := url.Parse(target.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("scraper: parse endpoint: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("scraper: endpoint %q is not an absolute http(s) URL", target.Endpoint)
	}
	return &haproxyScraper{target: target, client: buildHTTPClient(target, cfg)}, nil
}

// authRoundTripper injects basic authentication into every outgoing request.
type authRoundTripper struct {
	base   http.RoundTripper
	target Target
}

func (t *authRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.target.hasBasicAuth() {
		req = req.Clone(req.Context())
		req.SetBasicAuth(t.target.Username, t.target.Password)
	}
	return t.base.RoundTrip(req)
}

// buildHTTPClient constructs an http.Client for the target's auth and the
// configured TLS and timeout settings.
func buildHTTPClient(target Target, cfg config.FetchConfig) *http.Client {
	timeout := cfg.Timeout
	if timeout <= 0 || timeout > config.MaxFetchTimeout {
		timeout = config.MaxFetchTimeout
	}
	if cfg.InsecureSkipVerify {
		slog.Warn("scraper: TLS verification disabled", "endpoint", target.Endpoint)
	}

	transport := &authRoundTripper{
		base: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: cfg.InsecureSkipVerify, //nolint:gosec // user-configured
			},
		},
		target: target,
	}
	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}

// fetchText performs an HTTP GET to url and returns the body as text.
func fetchText(ctx context.Context, client *http.Client, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "text/csv, text/plain;q=0.9, */*;q=0.1")

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	return string(body), nil
}
