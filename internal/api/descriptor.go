package api

import (
	"net/http"
	"strings"
)

// Setting labels understood by POST /tick.
const (
	LabelInterval      = "interval"
	LabelStatsEndpoint = "stats_endpoint"
	LabelUsername      = "username"
	LabelPassword      = "password"
)

const descriptorDate = "2025-02-20"

// descriptor builds the integration descriptor advertised at baseURL.
func descriptor(baseURL string) Descriptor {
	return Descriptor{
		Date: DescriptorDate{CreatedAt: descriptorDate, UpdatedAt: descriptorDate},
		Descriptions: DescriptorApp{
			AppName:         "HAProxy Stats Monitor",
			AppDescription:  "Monitors HAProxy statistics and sends health reports to a channel webhook.",
			AppLogo:         baseURL + "/static/logo.png",
			AppURL:          baseURL,
			BackgroundColor: "#4A90E2",
		},
		IntegrationCategory: "Monitoring & Logging",
		IntegrationType:     "interval",
		IsActive:            true,
		Output:              []DescriptorOutput{{Label: "output_channel_1", Value: true}},
		KeyFeatures: []string{
			"Monitors HAProxy backend health and error counters.",
			"Sends regular stats reports to the channel.",
			"Configurable update interval.",
			"Supports basic-auth protected stats pages.",
		},
		Permissions: map[string]Permission{
			"monitoring_user": {AlwaysOnline: true, DisplayName: "HAProxy Performance Monitor"},
		},
		Settings: []TickSetting{
			{Label: LabelInterval, Type: "text", Required: true, Default: "* * * * *"},
			{Label: LabelStatsEndpoint, Type: "text", Required: true, Default: "http://localhost:8404/stats;csv"},
			{Label: LabelUsername, Type: "text", Required: false, Default: ""},
			{Label: LabelPassword, Type: "text", Required: false, Default: ""},
		},
		TickURL: baseURL + "/tick",
	}
}

// requestBaseURL derives scheme://host from r, honouring X-Forwarded-Proto
// when the service runs behind a proxy.
func requestBaseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if p := r.Header.Get("X-Forwarded-Proto"); p != "" {
		scheme = strings.ToLower(strings.TrimSpace(strings.Split(p, ",")[0]))
	}
	return scheme + "://" + r.Host
}
