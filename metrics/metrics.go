package metrics

// Prometheus metrics of the admission control.
//
// To add new statistic you should:
// 1. Update the Metrics structure.
// 2. Prepare the metric instance in the NewMetrics function.
// 3. Add a nil-safe method recording the metric value.

import (
	"net/http"
	"reflect"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

const namespace = "walledgarden"

// Set of the walled-garden metrics. All recording methods are safe to call
// on a nil instance, in which case they do nothing.
type Metrics struct {
	Registry *prometheus.Registry

	DecisionTotal          *prometheus.CounterVec
	LeaseVetoTotal         prometheus.Counter
	NakRewriteTotal        prometheus.Counter
	CalloutPanicTotal      *prometheus.CounterVec
	DispatchTotal          *prometheus.CounterVec
	DispatchFailureTotal   *prometheus.CounterVec
	SnapshotReservations   prometheus.Gauge
	SnapshotRefreshSeconds prometheus.Gauge
	SyncTotal              *prometheus.CounterVec
}

// Constructor of the metrics. They are registered in a dedicated
// registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		Registry: registry,

		DecisionTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "classifier",
			Name:      "decision_total",
			Help:      "Classification decisions by tier",
		}, []string{"tier"}),
		LeaseVetoTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "enforcement",
			Name:      "lease_veto_total",
			Help:      "Leases vetoed because the requested address is outside the entitled pools",
		}),
		NakRewriteTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "enforcement",
			Name:      "nak_rewrite_total",
			Help:      "Acknowledgments rewritten into negative acknowledgments",
		}),
		CalloutPanicTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "enforcement",
			Name:      "callout_panic_total",
			Help:      "Recovered callout failures",
		}, []string{"callout"}),
		DispatchTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "redirect",
			Name:      "dispatch_total",
			Help:      "Redirection toggler invocations",
		}, []string{"action"}),
		DispatchFailureTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "redirect",
			Name:      "dispatch_failure_total",
			Help:      "Failed redirection toggler invocations",
		}, []string{"action"}),
		SnapshotReservations: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "reservation",
			Name:      "snapshot_reservations",
			Help:      "Number of reservations in the current snapshot",
		}),
		SnapshotRefreshSeconds: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "reservation",
			Name:      "snapshot_refresh_timestamp_seconds",
			Help:      "Unix time of the last snapshot refresh",
		}),
		SyncTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "keasync",
			Name:      "device_total",
			Help:      "Devices synchronized with the Kea host reservations by result",
		}, []string{"result"}),
	}
}

// Records the classification decision.
func (m *Metrics) ObserveDecision(tier string) {
	if m == nil {
		return
	}
	m.DecisionTotal.WithLabelValues(tier).Inc()
}

// Records the lease veto.
func (m *Metrics) ObserveLeaseVeto() {
	if m == nil {
		return
	}
	m.LeaseVetoTotal.Inc()
}

// Records the ACK to NAK rewrite.
func (m *Metrics) ObserveNakRewrite() {
	if m == nil {
		return
	}
	m.NakRewriteTotal.Inc()
}

// Records the recovered callout failure.
func (m *Metrics) ObserveCalloutPanic(callout string) {
	if m == nil {
		return
	}
	m.CalloutPanicTotal.WithLabelValues(callout).Inc()
}

// Records the toggler invocation and its result.
func (m *Metrics) ObserveDispatch(action string, err error) {
	if m == nil {
		return
	}
	m.DispatchTotal.WithLabelValues(action).Inc()
	if err != nil {
		m.DispatchFailureTotal.WithLabelValues(action).Inc()
	}
}

// Records the reservation snapshot refresh.
func (m *Metrics) ObserveSnapshot(size int, refreshedAt time.Time) {
	if m == nil {
		return
	}
	m.SnapshotReservations.Set(float64(size))
	m.SnapshotRefreshSeconds.Set(float64(refreshedAt.Unix()))
}

// Records the device synchronization result.
func (m *Metrics) ObserveSync(result string) {
	if m == nil {
		return
	}
	m.SyncTotal.WithLabelValues(result).Inc()
}

// Creates standard Prometheus HTTP handler.
func (m *Metrics) GetHTTPHandler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{
		ErrorLog: logrus.StandardLogger(),
	})
}

// Unregister all metrics from the Prometheus registry.
func (m *Metrics) UnregisterAll() {
	v := reflect.ValueOf(*m)
	for i := 0; i < v.NumField(); i++ {
		if collector, ok := v.Field(i).Interface().(prometheus.Collector); ok {
			m.Registry.Unregister(collector)
		}
	}
}
