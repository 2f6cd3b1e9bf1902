package observability

import (
	"log"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/maxflow-ai/maxflow-go/internal/ports"
)

// PromObs owns a private registry so several clients in one process can each
// carry default observability without colliding on collector names.
type PromObs struct {
	registry *prometheus.Registry
	counters map[string]prometheus.Counter
	gauges   map[string]prometheus.Gauge
	histos   map[string]prometheus.Observer
}

func NewPromObs() *PromObs {
	reg := prometheus.NewRegistry()
	queued := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "maxflow_pulses_queued_total",
		Help: "Total pulses accepted onto the debounce queue.",
	})
	dispatched := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "maxflow_pulses_dispatched_total",
		Help: "Total pulses successfully sent to the API.",
	})
	dispatchErrs := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "maxflow_dispatch_errors_total",
		Help: "Pulses whose dispatch ended in a transport or API error.",
	})
	flushes := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "maxflow_flushes_total",
		Help: "Number of flush cycles the debounce queue has run.",
	})
	queueGauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "maxflow_queue_length",
		Help: "Pulses currently waiting on the next flush.",
	})
	journalGauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "maxflow_journal_size_bytes",
		Help: "Size of the on-disk pulse journal.",
	})
	latency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "maxflow_flush_latency_seconds",
		Help:    "Wall time of a full flush cycle, queue detach to last settlement.",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	})

	reg.MustRegister(queued, dispatched, dispatchErrs, flushes, queueGauge, journalGauge, latency)

	return &PromObs{
		registry: reg,
		counters: map[string]prometheus.Counter{
			"maxflow_pulses_queued_total":     queued,
			"maxflow_pulses_dispatched_total": dispatched,
			"maxflow_dispatch_errors_total":   dispatchErrs,
			"maxflow_flushes_total":           flushes,
		},
		gauges: map[string]prometheus.Gauge{
			"maxflow_queue_length":       queueGauge,
			"maxflow_journal_size_bytes": journalGauge,
		},
		histos: map[string]prometheus.Observer{
			"maxflow_flush_latency_seconds": latency,
		},
	}
}

// Registry exposes the backing registry so the metrics server can serve this
// instance's collectors.
func (p *PromObs) Registry() *prometheus.Registry { return p.registry }

func (p *PromObs) LogInfo(msg string, fields ...ports.Field) {}

func (p *PromObs) LogError(msg string, err error, fields ...ports.Field) {
	if err != nil {
		log.Printf("ERROR: %s: %v", msg, err)
	}
}

func (p *PromObs) IncCounter(name string, v float64) {
	if c, ok := p.counters[name]; ok {
		c.Add(v)
	}
}

func (p *PromObs) ObserveLatency(name string, seconds float64) {
	if h, ok := p.histos[name]; ok {
		h.Observe(seconds)
	}
}

func (p *PromObs) SetGauge(name string, v float64) {
	if g, ok := p.gauges[name]; ok {
		g.Set(v)
	}
}

var _ ports.Observability = (*PromObs)(nil)
