package report

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/haproxy-monitor/haproxy-monitor/pkg/types"
)

// Title is the first line of every report.
const Title = "🔍 HAProxy Health Report"

// DateLayout is the timestamp format used on the report's date line.
const DateLayout = "2006-01-02 15:04:05"

const (
	markUp   = "✅"
	markDown = "❌"
)

// Render formats m as a multi-line health report stamped with now.
// Output depends only on m and now.
func Render(m types.Metrics, now time.Time) string {
	lines := header(now)

	lines = append(lines, "📊 Backend Servers Status:")
	if len(m.Backends) == 0 {
		lines = append(lines, "  (no backend servers reported)")
	}
	for _, b := range m.Backends {
		lines = append(lines, backendBlock(b))
	}

	lines = append(lines, "", "🚨 Error Summary:")
	lines = append(lines, fmt.Sprintf("Total Errors: %d", m.TotalErrors))
	for _, c := range m.ErrorBreakdown.Categories() {
		lines = append(lines, fmt.Sprintf("  • %s: %d", Label(c.Key), c.Count))
	}

	return strings.Join(lines, "\n")
}

// RenderFailure formats a report for a tick whose stats could not be
// collected. errText is the scraper's "Error collecting stats: ..." line.
func RenderFailure(errText string, now time.Time) string {
	lines := header(now)
	lines = append(lines,
		"⚠️ Stats collection failed",
		errText,
	)
	return strings.Join(lines, "\n")
}

// Label turns a snake_case key into a title-cased label:
// "connection_errors" → "Connection Errors".
func Label(key string) string {
	// Casers keep state; one per call keeps Label safe for concurrent ticks.
	return cases.Title(language.English).String(strings.ReplaceAll(key, "_", " "))
}

// StatusMark returns the indicator shown before a backend's name.
func StatusMark(b types.BackendMetrics) string {
	if b.IsUp() {
		return markUp
	}
	return markDown
}

func header(now time.Time) []string {
	return []string{
		Title,
		"📅 Date: " + now.Format(DateLayout),
		"",
	}
}

func backendBlock(b types.BackendMetrics) string {
	return fmt.Sprintf("%s %s:\n"+
		"  • Status: %s\n"+
		"  • Sessions handled: %d\n"+
		"  • Up time: %s\n"+
		"  • Failed checks: %d\n"+
		"  • Response time: %dms",
		StatusMark(b), b.Name,
		b.Status,
		b.TotalSessions,
		b.Uptime,
		b.FailedChecks,
		b.ResponseTime,
	)
}
