package scraper

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

type haproxyScraper struct {
	target Target
	client *http.Client
}

// Scrape performs a single GET against the HAProxy stats endpoint
// (typically ".../haproxy?stats;csv"). It never returns nil: failures are
// reported through Result.Err.
func (s *haproxyScraper) Scrape(ctx context.Context) *Result {
	res := &Result{
		Endpoint:  s.target.Endpoint,
		FetchedAt: time.Now().UTC(),
	}

	raw, err := fetchText(ctx, s.client, s.target.Endpoint)
	if err != nil {
		res.Err = err
		slog.Warn("scraper: haproxy fetch failed", "endpoint", s.target.Endpoint, "err", err)
		return res
	}

	res.Raw = raw
	slog.Debug("scraper: haproxy stats fetched", "endpoint", s.target.Endpoint, "bytes", len(raw))
	return res
}
