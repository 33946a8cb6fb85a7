// Package webhook delivers rendered reports to a notification webhook.
// Delivery is best-effort: one POST per report, no retry, outcome returned
// to the caller and logged.
package webhook
