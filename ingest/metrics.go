package ingest

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts ingested objects.
type Metrics struct {
	// Ingested counts ingested objects by kind and result.
	Ingested *prometheus.CounterVec

	// FetchLatency is the time taken to dereference an IRI.
	FetchLatency prometheus.Histogram
}

// NewMetrics creates Metrics registered with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Ingested: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "asap_ingest_total",
			Help: "Total ingested objects by kind and result",
		}, []string{"kind", "result"}), // result: "ok", "unsupported", "error"

		FetchLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "asap_fetch_duration_seconds",
			Help:    "Duration of dereferencing remote objects",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
	}
}

// IncrementIngested records the result of ingesting an object of kind.
func (m *Metrics) IncrementIngested(kind, result string) {
	if m != nil {
		m.Ingested.WithLabelValues(kind, result).Inc()
	}
}

// ObserveFetchLatency records the duration of a fetch.
func (m *Metrics) ObserveFetchLatency(d time.Duration) {
	if m != nil {
		m.FetchLatency.Observe(d.Seconds())
	}
}
