// internal/metrics/metrics.go
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tamzrod/printer-mirror/internal/device"
	"github.com/tamzrod/printer-mirror/internal/jsondiff"
)

// Recorder implements device.Recorder on prometheus collectors.
type Recorder struct {
	gatherer prometheus.Gatherer

	messages *prometheus.CounterVec
	failures *prometheus.CounterVec
	resyncs  *prometheus.CounterVec
	sync     *prometheus.GaugeVec
	health   *prometheus.GaugeVec
}

var _ device.Recorder = (*Recorder)(nil)

// New registers the mirror collectors on a fresh registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	r := &Recorder{
		gatherer: reg,
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "printer_mirror_messages_total",
			Help: "Reports received, by kind (full, diff, version, other).",
		}, []string{"device", "kind"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "printer_mirror_decode_failures_total",
			Help: "Reports that could not be parsed or restored.",
		}, []string{"device", "reason"}),
		resyncs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "printer_mirror_resync_requests_total",
			Help: "Push-all requests issued after repeated restore failures.",
		}, []string{"device"}),
		sync: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "printer_mirror_sync_state",
			Help: "Delta codec state: 0 unsynced, 1 synced, 2 degraded.",
		}, []string{"device"}),
		health: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "printer_mirror_health",
			Help: "Watchdog verdict: 0 ok, 1 stale, 2 offline.",
		}, []string{"device"}),
	}
	reg.MustRegister(r.messages, r.failures, r.resyncs, r.sync, r.health)
	return r
}

func (r *Recorder) Message(id, kind string) {
	r.messages.WithLabelValues(id, kind).Inc()
}

func (r *Recorder) DecodeFailure(id, reason string) {
	r.failures.WithLabelValues(id, reason).Inc()
}

func (r *Recorder) ResyncRequested(id string) {
	r.resyncs.WithLabelValues(id).Inc()
}

func (r *Recorder) SyncState(id string, s jsondiff.SyncState) {
	r.sync.WithLabelValues(id).Set(float64(s))
}

// Health records one watchdog verdict.
func (r *Recorder) Health(id string, h device.Health) {
	r.health.WithLabelValues(id).Set(float64(h))
}

// Handler serves the registry in the prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})
}
