package api

import (
	"fmt"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/haproxy-monitor/haproxy-monitor/internal/config"
	"github.com/haproxy-monitor/haproxy-monitor/internal/monitor"
	"github.com/haproxy-monitor/haproxy-monitor/internal/scraper"
)

// ConfigError reports tick settings that were required but absent.
type ConfigError struct {
	Missing []string
}

func (e *ConfigError) Error() string {
	return "missing configuration: " + strings.Join(e.Missing, ", ")
}

// Validate checks the payload shape before settings are extracted.
func (t TickRequest) Validate() error {
	return validation.ValidateStruct(&t,
		validation.Field(&t.ReturnURL, validation.Required, is.URL, config.HTTPURL),
		validation.Field(&t.Settings, validation.Required),
	)
}

// target extracts the pipeline target from the tick settings.
//
// Labels are matched case-insensitively with spaces and dashes read as
// underscores. stats_endpoint must be present and non-empty; username and
// password must be present but may be empty, in which case no basic auth
// is sent.
func (t TickRequest) target() (monitor.Target, error) {
	values := make(map[string]string, len(t.Settings))
	for _, s := range t.Settings {
		values[normalizeLabel(s.Label)] = strings.TrimSpace(s.Default)
	}

	var missing []string
	for _, label := range []string{LabelStatsEndpoint, LabelUsername, LabelPassword} {
		if _, ok := values[label]; !ok {
			missing = append(missing, label)
		}
	}
	if values[LabelStatsEndpoint] == "" && !contains(missing, LabelStatsEndpoint) {
		missing = append(missing, LabelStatsEndpoint)
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return monitor.Target{}, &ConfigError{Missing: missing}
	}

	if err := validation.Validate(values[LabelStatsEndpoint], is.URL, config.HTTPURL); err != nil {
		return monitor.Target{}, fmt.Errorf("%s: %w", LabelStatsEndpoint, err)
	}

	return monitor.Target{
		Stats: scraper.Target{
			Endpoint: values[LabelStatsEndpoint],
			Username: values[LabelUsername],
			Password: values[LabelPassword],
		},
		WebhookURL: t.ReturnURL,
	}, nil
}

func normalizeLabel(label string) string {
	return strings.NewReplacer(" ", "_", "-", "_").Replace(strings.ToLower(strings.TrimSpace(label)))
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
