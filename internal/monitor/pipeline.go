package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/haproxy-monitor/haproxy-monitor/internal/config"
	"github.com/haproxy-monitor/haproxy-monitor/internal/report"
	"github.com/haproxy-monitor/haproxy-monitor/internal/scraper"
	"github.com/haproxy-monitor/haproxy-monitor/internal/stats"
	"github.com/haproxy-monitor/haproxy-monitor/internal/telemetry"
	"github.com/haproxy-monitor/haproxy-monitor/internal/webhook"
)

// Pipeline stages, in execution order.
const (
	StageFetching    = "fetching"
	StageParsing     = "parsing"
	StageRendering   = "rendering"
	StageDispatching = "dispatching"
	StageDone        = "done"
)

// Target is everything one tick needs to know about where to read stats
// and where to deliver the report. It is supplied per invocation.
type Target struct {
	Stats      scraper.Target
	WebhookURL string
}

// Sender delivers a rendered report. *webhook.Dispatcher implements it.
type Sender interface {
	Send(ctx context.Context, url, message string) webhook.Outcome
}

// Result summarizes one pipeline run.
type Result struct {
	// FetchErr is non-nil when the stats could not be read; the failure
	// report was dispatched instead of a metrics report.
	FetchErr error

	// Backends is the number of backend servers parsed (0 on fetch failure).
	Backends    int
	TotalErrors int64

	Report   string
	Dispatch webhook.Outcome
	Duration time.Duration
}

// Pipeline runs fetch → parse → render → dispatch once per Run call.
// A Pipeline owns its scraper and sender; nothing is shared between
// pipelines built for different ticks.
type Pipeline struct {
	target  Target
	scraper scraper.Scraper
	sender  Sender
	rec     telemetry.Recorder
	now     func() time.Time // injectable for deterministic tests
}

// New builds a Pipeline for target using the fetch and webhook settings in cfg.
// It fails only when the stats endpoint is not a usable URL.
func New(target Target, cfg *config.Config, rec telemetry.Recorder) (*Pipeline, error) {
	s, err := scraper.New(target.Stats, cfg.Fetch)
	if err != nil {
		return nil, fmt.Errorf("monitor: %w", err)
	}
	if rec == nil {
		rec = telemetry.Nop{}
	}
	return &Pipeline{
		target:  target,
		scraper: s,
		sender:  webhook.New(cfg.Webhook),
		rec:     rec,
		now:     time.Now,
	}, nil
}

// Run executes the pipeline once. Every stage runs at most once and there
// is no retry; the outcome is logged, recorded and returned.
func (p *Pipeline) Run(ctx context.Context) Result {
	start := p.now()
	log := slog.With("endpoint", p.target.Stats.Endpoint)
	var out Result

	log.Debug("monitor: stage", "stage", StageFetching)
	res := p.scraper.Scrape(ctx)

	if res.Failed() {
		p.rec.FetchFailed()
		out.FetchErr = res.Err
		log.Warn("monitor: stats unavailable, sending failure report", "err", res.Err)
		log.Debug("monitor: stage", "stage", StageRendering)
		out.Report = report.RenderFailure(res.ErrorText(), p.now())
	} else {
		log.Debug("monitor: stage", "stage", StageParsing)
		m := stats.Parse(res.Raw)
		out.Backends = len(m.Backends)
		out.TotalErrors = m.TotalErrors
		p.rec.Backends(out.Backends)
		if out.Backends == 0 {
			p.rec.EmptyParse()
			log.Warn("monitor: stats parsed to zero backend servers",
				"rows", m.Rows, "bytes", len(res.Raw))
		}

		log.Debug("monitor: stage", "stage", StageRendering)
		out.Report = report.Render(m, p.now())
	}

	log.Debug("monitor: stage", "stage", StageDispatching)
	out.Dispatch = p.sender.Send(ctx, p.target.WebhookURL, out.Report)
	p.rec.Dispatched(out.Dispatch.Delivered)

	out.Duration = p.now().Sub(start)
	log.Info("monitor: tick complete",
		"stage", StageDone,
		"backends", out.Backends,
		"total_errors", out.TotalErrors,
		"fetch_failed", out.FetchErr != nil,
		"delivered", out.Dispatch.Delivered,
		"status", out.Dispatch.StatusCode,
		"duration", out.Duration,
	)
	return out
}
