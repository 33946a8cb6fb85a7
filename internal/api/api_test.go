package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/haproxy-monitor/haproxy-monitor/internal/config"
	"github.com/haproxy-monitor/haproxy-monitor/internal/telemetry"
	"github.com/haproxy-monitor/haproxy-monitor/internal/webhook"
)

// --- test helpers -----------------------------------------------------------

// newSyncHandler returns a Handler whose pipelines run before tick returns.
func newSyncHandler(t *testing.T, cfg *config.Config) (*Handler, *telemetry.Collector) {
	t.Helper()
	col := telemetry.NewCollector()
	h := New(cfg, col)
	h.launch = func(run func()) { run() }
	return h, col
}

func settings(endpoint, user, pass string) []TickSetting {
	return []TickSetting{
		{Label: "interval", Type: "text", Required: true, Default: "* * * * *"},
		{Label: "stats_endpoint", Type: "text", Required: true, Default: endpoint},
		{Label: "username", Type: "text", Default: user},
		{Label: "password", Type: "text", Default: pass},
	}
}

func postTick(t *testing.T, h http.Handler, req TickRequest) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/tick", bytes.NewReader(body)))
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("decode JSON: %v (body: %s)", err, rr.Body.String())
	}
}

// counterValue returns the first sample of the named counter family.
func counterValue(t *testing.T, col *telemetry.Collector, name string) float64 {
	t.Helper()
	for _, mf := range col.Gather() {
		if mf.GetName() == name {
			return mf.GetMetric()[0].GetCounter().GetValue()
		}
	}
	t.Fatalf("metric family %q not gathered", name)
	return 0
}

// --- /tick ------------------------------------------------------------------

func TestTick_AcceptedAndDelivered(t *testing.T) {
	stats := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("svname,status,stot,lastchg\nweb1,UP,120,3600\n"))
	}))
	defer stats.Close()

	var mu sync.Mutex
	var got webhook.Payload
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		_ = json.NewDecoder(r.Body).Decode(&got)
	}))
	defer hook.Close()

	h, _ := newSyncHandler(t, config.Default())
	rr := postTick(t, h, TickRequest{
		ChannelID: "ch-1",
		ReturnURL: hook.URL,
		Settings:  settings(stats.URL, "", ""),
	})

	if rr.Code != http.StatusAccepted {
		t.Fatalf("status: got %d, want 202 (body %s)", rr.Code, rr.Body.String())
	}
	var resp TickResponse
	decode(t, rr, &resp)
	if resp.Status != "accepted" {
		t.Errorf("status field: got %q", resp.Status)
	}

	mu.Lock()
	defer mu.Unlock()
	if !strings.Contains(got.Message, "web1") {
		t.Errorf("webhook message missing backend: %q", got.Message)
	}
}

func TestTick_ReturnsBeforePipelineFinishes(t *testing.T) {
	h := New(config.Default(), telemetry.NewCollector())
	var launched func()
	h.launch = func(run func()) { launched = run }

	rr := postTick(t, h, TickRequest{
		ReturnURL: "http://127.0.0.1:1/hook",
		Settings:  settings("http://127.0.0.1:1/stats", "u", "p"),
	})
	if rr.Code != http.StatusAccepted {
		t.Fatalf("status: got %d, want 202", rr.Code)
	}
	if launched == nil {
		t.Fatal("pipeline was not launched")
	}
}

func TestTick_MissingSettings(t *testing.T) {
	h, col := newSyncHandler(t, config.Default())
	rr := postTick(t, h, TickRequest{
		ReturnURL: "https://hooks.example.com/abc",
		Settings: []TickSetting{
			{Label: "stats_endpoint", Default: "http://lb/stats"},
		},
	})

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want 400", rr.Code)
	}
	var resp errorResponse
	decode(t, rr, &resp)
	if resp.Error != "missing configuration: password, username" {
		t.Errorf("error: got %q", resp.Error)
	}
	if got := counterValue(t, col, "haproxy_monitor_ticks_rejected_total"); got != 1 {
		t.Errorf("ticks_rejected_total = %v, want 1", got)
	}
}

func TestTick_EmptyStatsEndpoint(t *testing.T) {
	h, _ := newSyncHandler(t, config.Default())
	rr := postTick(t, h, TickRequest{
		ReturnURL: "https://hooks.example.com/abc",
		Settings:  settings("", "", ""),
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want 400", rr.Code)
	}
	var resp errorResponse
	decode(t, rr, &resp)
	if !strings.Contains(resp.Error, "stats_endpoint") {
		t.Errorf("error: got %q", resp.Error)
	}
}

func TestTick_InvalidPayloads(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", "{nope"},
		{"missing return_url", `{"settings":[{"label":"stats_endpoint","default":"http://lb"}]}`},
		{"invalid return_url", `{"return_url":"not a url","settings":[{"label":"x"}]}`},
		{"no settings", `{"return_url":"https://hooks.example.com/abc"}`},
		{"return_url without scheme", `{"return_url":"hooks.example.com/abc","settings":[` +
			`{"label":"stats_endpoint","default":"http://lb:8404/stats"},{"label":"username"},{"label":"password"}]}`},
		{"return_url with ftp scheme", `{"return_url":"ftp://hooks.example.com/abc","settings":[` +
			`{"label":"stats_endpoint","default":"http://lb:8404/stats"},{"label":"username"},{"label":"password"}]}`},
		{"stats endpoint without scheme", `{"return_url":"https://hooks.example.com/abc","settings":[` +
			`{"label":"stats_endpoint","default":"lb.local:8404"},{"label":"username"},{"label":"password"}]}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h, _ := newSyncHandler(t, config.Default())
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/tick", strings.NewReader(tc.body)))
			if rr.Code != http.StatusBadRequest {
				t.Errorf("status: got %d, want 400 (body %s)", rr.Code, rr.Body.String())
			}
		})
	}
}

func TestTick_MethodNotAllowed(t *testing.T) {
	h, _ := newSyncHandler(t, config.Default())
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/tick", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("status: got %d, want 405", rr.Code)
	}
}

func TestTickRequest_LabelMatching(t *testing.T) {
	req := TickRequest{
		ReturnURL: "https://hooks.example.com/abc",
		Settings: []TickSetting{
			{Label: "Stats Endpoint", Default: " http://lb:8404/stats;csv "},
			{Label: "USERNAME", Default: "admin"},
			{Label: "pass-word", Default: "x"},
			{Label: "Password", Default: "s3cret"},
		},
	}
	target, err := req.target()
	if err != nil {
		t.Fatalf("target() error: %v", err)
	}
	if target.Stats.Endpoint != "http://lb:8404/stats;csv" {
		t.Errorf("endpoint: got %q", target.Stats.Endpoint)
	}
	if target.Stats.Username != "admin" || target.Stats.Password != "s3cret" {
		t.Errorf("credentials: got %q/%q", target.Stats.Username, target.Stats.Password)
	}
	if target.WebhookURL != req.ReturnURL {
		t.Errorf("webhook: got %q", target.WebhookURL)
	}
}

// --- /integration.json ------------------------------------------------------

func TestIntegration_FromRequestHost(t *testing.T) {
	h, _ := newSyncHandler(t, config.Default())
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/integration.json", nil)
	req.Host = "monitor.local:8000"
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	var resp DescriptorResponse
	decode(t, rr, &resp)

	if resp.Data.TickURL != "http://monitor.local:8000/tick" {
		t.Errorf("tick_url: got %q", resp.Data.TickURL)
	}
	if resp.Data.Descriptions.AppURL != "http://monitor.local:8000" {
		t.Errorf("app_url: got %q", resp.Data.Descriptions.AppURL)
	}
	if resp.Data.IntegrationType != "interval" {
		t.Errorf("integration_type: got %q", resp.Data.IntegrationType)
	}
	labels := map[string]bool{}
	for _, s := range resp.Data.Settings {
		labels[s.Label] = true
	}
	for _, want := range []string{LabelInterval, LabelStatsEndpoint, LabelUsername, LabelPassword} {
		if !labels[want] {
			t.Errorf("settings missing %q", want)
		}
	}
}

func TestIntegration_ConfiguredBaseURL(t *testing.T) {
	cfg := config.Default()
	cfg.Server.BaseURL = "https://monitor.example.com"
	h, _ := newSyncHandler(t, cfg)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/integration.json", nil))
	var resp DescriptorResponse
	decode(t, rr, &resp)

	if resp.Data.TickURL != "https://monitor.example.com/tick" {
		t.Errorf("tick_url: got %q", resp.Data.TickURL)
	}
}

func TestIntegration_ForwardedProto(t *testing.T) {
	h, _ := newSyncHandler(t, config.Default())
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/integration.json", nil)
	req.Host = "monitor.example.com"
	req.Header.Set("X-Forwarded-Proto", "https")
	h.ServeHTTP(rr, req)

	var resp DescriptorResponse
	decode(t, rr, &resp)
	if resp.Data.Descriptions.AppURL != "https://monitor.example.com" {
		t.Errorf("app_url: got %q", resp.Data.Descriptions.AppURL)
	}
}

// --- /health, /metrics, CORS ------------------------------------------------

func TestHealth(t *testing.T) {
	h, _ := newSyncHandler(t, config.Default())
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	var resp HealthResponse
	decode(t, rr, &resp)
	if resp.Status != "ok" {
		t.Errorf("status: got %q", resp.Status)
	}
}

func TestMetrics_Served(t *testing.T) {
	h, _ := newSyncHandler(t, config.Default())
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "haproxy_monitor_ticks_total") {
		t.Errorf("metrics body missing ticks counter:\n%s", rr.Body.String())
	}
}

func TestCORS_AllowedOrigin(t *testing.T) {
	cfg := config.Default()
	cfg.Server.CORSOrigins = []string{"http://localhost:5173"}
	h, _ := newSyncHandler(t, cfg)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	h.ServeHTTP(rr, req)

	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Errorf("Access-Control-Allow-Origin: got %q", got)
	}
	if got := rr.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Errorf("Access-Control-Allow-Credentials: got %q", got)
	}
}

func TestCORS_DisallowedOrigin(t *testing.T) {
	cfg := config.Default()
	cfg.Server.CORSOrigins = []string{"http://localhost:5173"}
	h, _ := newSyncHandler(t, cfg)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	h.ServeHTTP(rr, req)

	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Access-Control-Allow-Origin: got %q, want none", got)
	}
}

func TestCORS_PreflightAnyHeaderAndMethod(t *testing.T) {
	cfg := config.Default()
	cfg.Server.CORSOrigins = []string{"http://localhost:5173"}
	h, _ := newSyncHandler(t, cfg)

	tests := []struct {
		method  string
		headers string
	}{
		{http.MethodPost, "X-Telex-Channel, Content-Type"},
		{http.MethodPut, "Authorization"},
		{http.MethodDelete, ""},
	}
	for _, tc := range tests {
		t.Run(tc.method, func(t *testing.T) {
			rr := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodOptions, "/tick", nil)
			req.Header.Set("Origin", "http://localhost:5173")
			req.Header.Set("Access-Control-Request-Method", tc.method)
			if tc.headers != "" {
				req.Header.Set("Access-Control-Request-Headers", tc.headers)
			}
			h.ServeHTTP(rr, req)

			if rr.Code != http.StatusOK {
				t.Fatalf("status: got %d, want 200", rr.Code)
			}
			if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
				t.Errorf("Access-Control-Allow-Origin: got %q", got)
			}
			if got := rr.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
				t.Errorf("Access-Control-Allow-Credentials: got %q", got)
			}
			allowed := rr.Header().Get("Access-Control-Allow-Headers")
			for _, want := range strings.Split(tc.headers, ",") {
				want = http.CanonicalHeaderKey(strings.TrimSpace(want))
				if want != "" && !strings.Contains(allowed, want) {
					t.Errorf("Access-Control-Allow-Headers %q missing %q", allowed, want)
				}
			}
		})
	}
}

func TestCORS_PreflightDisallowedOrigin(t *testing.T) {
	cfg := config.Default()
	cfg.Server.CORSOrigins = []string{"http://localhost:5173"}
	h, _ := newSyncHandler(t, cfg)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/tick", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "X-Telex-Channel")
	h.ServeHTTP(rr, req)

	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Access-Control-Allow-Origin: got %q, want none", got)
	}
}

func TestSetConfig_Swaps(t *testing.T) {
	h, _ := newSyncHandler(t, config.Default())
	next := config.Default()
	next.Server.BaseURL = "https://reloaded.example.com"
	h.SetConfig(next)

	if h.Config().Server.BaseURL != "https://reloaded.example.com" {
		t.Errorf("Config() after SetConfig: got %q", h.Config().Server.BaseURL)
	}
}
