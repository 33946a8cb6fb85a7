// Package scraper retrieves the raw HAProxy statistics text for one tick.
//
// New(Target, config.FetchConfig) builds a Scraper that owns its own
// *http.Client: basic auth is injected by authRoundTripper when both
// username and password are set, TLS verification follows
// fetch.insecure_skip_verify (enabled by default), and the client timeout is
// capped at 30s.
//
// Scrape never returns an error value. Connectivity failures, timeouts and
// non-2xx responses are carried in Result.Err so the caller can tell "no stats"
// apart from "empty stats" without ever parsing an error string.
package scraper
