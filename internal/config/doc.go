// Package config loads and watches the service configuration file (config.yaml).
//
// Top-level types:
//   - Config{Server, Log, Fetch, Webhook}: full config tree parsed from YAML
//   - ServerConfig: http_port, base_url, cors_origins
//   - LogConfig: level (debug|info|warn|error), format (json|text)
//   - FetchConfig: timeout (≤30s), insecure_skip_verify (default false)
//   - WebhookConfig: timeout, event_name, username
//
// Per-tick settings (stats endpoint, credentials, return URL) are not part of
// this file; they arrive with every /tick payload.
//
// Load(path) reads the YAML file, applies defaults, then validates with
// ozzo-validation. Watch(ctx, path, onChange) uses fsnotify to reload the
// file and hands the new Config to onChange.
package config
