// Package telemetry counts tick outcomes (accepted, rejected, fetch failures,
// empty parses, webhook deliveries) and serves them on GET /metrics in the
// Prometheus exposition format.
package telemetry
