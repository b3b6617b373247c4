package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "gatherings"

// Registry is the process-wide Prometheus registry.
var Registry = prometheus.NewRegistry()

// AppInfo exposes build information as labels; the value is always 1.
var AppInfo = promauto.With(Registry).NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "app_info",
		Help:      "Application version information (always set to 1, version info in labels)",
	},
	[]string{"version", "commit"},
)

// HealthCheckStatus tracks readiness check results (0=fail, 1=pass).
var HealthCheckStatus = promauto.With(Registry).NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "health_check_status",
		Help:      "Readiness check status (0=fail, 1=pass)",
	},
	[]string{"check"},
)

// DomainWrites counts successful writes by record kind and action.
var DomainWrites = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "domain_writes_total",
		Help:      "Total number of successful writes by record kind",
	},
	[]string{"kind", "action"}, // kind: event|rsvp|review|user
)

// RecordWrite increments DomainWrites.
func RecordWrite(kind, action string) {
	DomainWrites.WithLabelValues(kind, action).Inc()
}

var initOnce sync.Once

// Init registers the runtime collectors and sets AppInfo. Repeated calls
// only update AppInfo.
func Init(version, commit string) {
	initOnce.Do(func() {
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
	AppInfo.WithLabelValues(version, commit).Set(1)
}

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}
