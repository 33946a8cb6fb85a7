// Package api implements the HTTP surface of the monitor.
//
// New(cfg, metrics) returns a Handler that serves:
//
//	GET  /integration.json  integration descriptor (app metadata, settings, tick_url)
//	POST /tick              validate settings, start one pipeline run, answer 202
//	GET  /health            liveness
//	GET  /metrics           tick outcome counters (Prometheus text format)
//
// POST /tick never waits for the pipeline: missing or invalid settings are
// answered with 400, everything else with {"status":"accepted"} while the
// run continues in its own goroutine.
//
// CORS is applied with gorilla/handlers when server.cors_origins is set.
// SetConfig swaps the configuration atomically on hot reload.
package api
