// Package stats parses HAProxy "show stat" CSV into types.Metrics.
package stats
