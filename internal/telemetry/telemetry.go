package telemetry

import (
	"log/slog"
	"net/http"
	"sync/atomic"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"google.golang.org/protobuf/proto"
)

const namespace = "haproxy_monitor_"

// Recorder receives pipeline and API events. The monitor and api packages
// depend on this interface, not on Collector.
type Recorder interface {
	TickAccepted()
	TickRejected()
	FetchFailed()
	EmptyParse()
	Backends(n int)
	Dispatched(delivered bool)
}

// Nop is a Recorder that discards every event.
type Nop struct{}

func (Nop) TickAccepted()   {}
func (Nop) TickRejected()   {}
func (Nop) FetchFailed()    {}
func (Nop) EmptyParse()     {}
func (Nop) Backends(int)    {}
func (Nop) Dispatched(bool) {}

// Collector counts tick outcomes for the life of the process.
// Counters reset on restart; nothing is persisted.
//
// Collector is safe for concurrent use.
type Collector struct {
	ticks         atomic.Uint64
	rejected      atomic.Uint64
	fetchFailures atomic.Uint64
	emptyParses   atomic.Uint64
	delivered     atomic.Uint64
	failed        atomic.Uint64
	lastBackends  atomic.Int64
}

// NewCollector returns a zeroed Collector.
func NewCollector() *Collector {
	return &Collector{}
}

func (c *Collector) TickAccepted() { c.ticks.Add(1) }
func (c *Collector) TickRejected() { c.rejected.Add(1) }
func (c *Collector) FetchFailed()  { c.fetchFailures.Add(1) }
func (c *Collector) EmptyParse()   { c.emptyParses.Add(1) }

// Backends records how many backend servers the latest parse produced.
func (c *Collector) Backends(n int) { c.lastBackends.Store(int64(n)) }

// Dispatched counts one webhook attempt by outcome.
func (c *Collector) Dispatched(delivered bool) {
	if delivered {
		c.delivered.Add(1)
		return
	}
	c.failed.Add(1)
}

// Gather returns the current values as Prometheus metric families.
func (c *Collector) Gather() []*dto.MetricFamily {
	return []*dto.MetricFamily{
		counter("ticks_total", "Ticks accepted by POST /tick.", c.ticks.Load()),
		counter("ticks_rejected_total", "Ticks rejected for missing or invalid settings.", c.rejected.Load()),
		counter("fetch_failures_total", "Stats fetches that returned no data.", c.fetchFailures.Load()),
		counter("empty_parses_total", "Successful fetches that parsed to zero backend servers.", c.emptyParses.Load()),
		{
			Name: proto.String(namespace + "dispatch_total"),
			Help: proto.String("Webhook delivery attempts by outcome."),
			Type: dto.MetricType_COUNTER.Enum(),
			Metric: []*dto.Metric{
				counterMetric(c.delivered.Load(), label("outcome", "delivered")),
				counterMetric(c.failed.Load(), label("outcome", "failed")),
			},
		},
		{
			Name: proto.String(namespace + "backends_last_run"),
			Help: proto.String("Backend servers reported by the most recent parse."),
			Type: dto.MetricType_GAUGE.Enum(),
			Metric: []*dto.Metric{
				{Gauge: &dto.Gauge{Value: proto.Float64(float64(c.lastBackends.Load()))}},
			},
		},
	}
}

// Handler serves Gather() in the exposition format negotiated from the
// request's Accept header.
func (c *Collector) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		format := expfmt.Negotiate(r.Header)
		w.Header().Set("Content-Type", string(format))

		enc := expfmt.NewEncoder(w, format)
		for _, mf := range c.Gather() {
			if err := enc.Encode(mf); err != nil {
				slog.Error("telemetry: encode metric family", "name", mf.GetName(), "err", err)
				return
			}
		}
		if closer, ok := enc.(expfmt.Closer); ok {
			_ = closer.Close()
		}
	})
}

func counter(name, help string, v uint64) *dto.MetricFamily {
	return &dto.MetricFamily{
		Name:   proto.String(namespace + name),
		Help:   proto.String(help),
		Type:   dto.MetricType_COUNTER.Enum(),
		Metric: []*dto.Metric{counterMetric(v)},
	}
}

func counterMetric(v uint64, labels ...*dto.LabelPair) *dto.Metric {
	return &dto.Metric{
		Label:   labels,
		Counter: &dto.Counter{Value: proto.Float64(float64(v))},
	}
}

func label(name, value string) *dto.LabelPair {
	return &dto.LabelPair{Name: proto.String(name), Value: proto.String(value)}
}
