package observability

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors shared by streams and emitters
type Metrics struct {
	Appends        *prometheus.CounterVec
	Fetches        *prometheus.CounterVec
	FetchedEntries *prometheus.CounterVec
	StreamErrors   *prometheus.CounterVec
	OnceOutcomes   *prometheus.CounterVec
	Streams        prometheus.Gauge
}

// Status label values
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered but usable. Collectors that reg already holds
// are reused, so several emitters can share one registry
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		Appends: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "courier_appends_total",
			Help: "Entries appended to durable logs.",
		}, []string{"topic", "status"})),

		Fetches: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "courier_fetches_total",
			Help: "Range reads issued against durable logs.",
		}, []string{"topic", "status"})),

		FetchedEntries: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "courier_fetched_entries_total",
			Help: "Entries buffered by range reads.",
		}, []string{"topic"})),

		StreamErrors: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "courier_stream_errors_total",
			Help: "Log streams moved to the error state.",
		}, []string{"topic", "kind"})),

		OnceOutcomes: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "courier_once_total",
			Help: "Once calls by outcome.",
		}, []string{"topic", "outcome"})),

		Streams: register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "courier_registered_streams",
			Help: "Log streams held by emitter registries.",
		})),
	}
}

// Status maps an error to a status label value
func Status(err error) string {
	if err != nil {
		return StatusError
	}
	return StatusOK
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if reg == nil {
		return c
	}
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}
