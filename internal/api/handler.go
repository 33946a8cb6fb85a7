package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/gorilla/handlers"

	"github.com/haproxy-monitor/haproxy-monitor/internal/config"
	"github.com/haproxy-monitor/haproxy-monitor/internal/monitor"
	"github.com/haproxy-monitor/haproxy-monitor/internal/telemetry"
)

const maxTickBody = 1 << 20

// Handler serves the integration endpoints and launches one pipeline per tick.
type Handler struct {
	state   atomic.Pointer[state]
	mux     *http.ServeMux
	metrics *telemetry.Collector

	// launch runs a pipeline detached from the request. Tests replace it
	// to run synchronously.
	launch func(run func())
}

// state is swapped as a whole on config reload. Ticks in flight keep the
// *config.Config they started with.
type state struct {
	cfg  *config.Config
	root http.Handler
}

// New creates a Handler wired to cfg and metrics and registers all routes.
func New(cfg *config.Config, metrics *telemetry.Collector) *Handler {
	h := &Handler{
		mux:     http.NewServeMux(),
		metrics: metrics,
		launch:  func(run func()) { go run() },
	}

	h.mux.HandleFunc("/integration.json", h.integration)
	h.mux.HandleFunc("/tick", h.tick)
	h.mux.HandleFunc("/health", h.health)
	h.mux.Handle("/metrics", metrics.Handler())

	h.SetConfig(cfg)
	return h
}

// SetConfig atomically replaces the active configuration, rebuilding the
// CORS policy from cfg.Server.CORSOrigins.
func (h *Handler) SetConfig(cfg *config.Config) {
	h.state.Store(&state{cfg: cfg, root: withCORS(h.mux, cfg.Server.CORSOrigins)})
}

// Config returns the active configuration.
func (h *Handler) Config() *config.Config {
	return h.state.Load().cfg
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.state.Load().root.ServeHTTP(w, r)
}

// corsMethods is every method a cross-origin caller may use.
var corsMethods = []string{
	http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut,
	http.MethodPatch, http.MethodDelete, http.MethodOptions,
	http.MethodConnect, http.MethodTrace,
}

// withCORS wraps next with gorilla's CORS middleware. An empty origin list
// disables CORS headers entirely.
//
// Any method and any header are allowed. gorilla matches preflight headers
// against an exact list, so the policy is built per request from the
// Access-Control-Request-* headers the caller sent.
func withCORS(next http.Handler, origins []string) http.Handler {
	if len(origins) == 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		methods := corsMethods
		if m := r.Header.Get("Access-Control-Request-Method"); m != "" {
			methods = append(methods[:len(methods):len(methods)], m)
		}
		handlers.CORS(
			handlers.AllowedOrigins(origins),
			handlers.AllowedMethods(methods),
			handlers.AllowedHeaders(strings.Split(r.Header.Get("Access-Control-Request-Headers"), ",")),
			handlers.AllowCredentials(),
		)(next).ServeHTTP(w, r)
	})
}

// --- route handlers ---------------------------------------------------------

// integration serves GET /integration.json with the integration descriptor.
func (h *Handler) integration(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	base := h.Config().Server.BaseURL
	if base == "" {
		base = requestBaseURL(r)
	}
	jsonResp(w, http.StatusOK, DescriptorResponse{Data: descriptor(base)})
}

// tick handles POST /tick: it validates settings, then runs the pipeline in
// the background and answers 202 without waiting for it.
func (h *Handler) tick(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req TickRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxTickBody)).Decode(&req); err != nil {
		h.reject(w, "invalid JSON body: "+err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		h.reject(w, err.Error())
		return
	}

	target, err := req.target()
	if err != nil {
		var cfgErr *ConfigError
		if errors.As(err, &cfgErr) {
			slog.Warn("api: tick missing configuration", "channel", req.ChannelID, "missing", cfgErr.Missing)
		}
		h.reject(w, err.Error())
		return
	}

	cfg := h.Config()
	p, err := monitor.New(target, cfg, h.metrics)
	if err != nil {
		h.reject(w, err.Error())
		return
	}

	h.metrics.TickAccepted()
	slog.Info("api: tick accepted", "channel", req.ChannelID, "endpoint", target.Stats.Endpoint)

	// The pipeline outlives the request; keep its values but not its cancellation.
	ctx := context.WithoutCancel(r.Context())
	h.launch(func() { p.Run(ctx) })

	jsonResp(w, http.StatusAccepted, TickResponse{Status: "accepted"})
}

// health returns GET /health for liveness only.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jsonResp(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// --- helpers ----------------------------------------------------------------

func (h *Handler) reject(w http.ResponseWriter, msg string) {
	h.metrics.TickRejected()
	jsonErr(w, http.StatusBadRequest, msg)
}

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}
