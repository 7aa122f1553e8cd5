package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/uptrms/bddkit/pkg/bdd"
)

// Metrics holds the Prometheus collectors for a scenario run. Each instance
// owns a private registry so parallel runs and tests never collide.
type Metrics struct {
	registry *prometheus.Registry

	ScenariosTotal      *prometheus.CounterVec
	ScenarioDuration    prometheus.Histogram
	StepsTotal          *prometheus.CounterVec
	StepDuration        *prometheus.HistogramVec
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates a Metrics instance with all collectors registered.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	scenariosTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bddkit_scenarios_total",
			Help: "Total number of executed scenarios by status",
		},
		[]string{"status"},
	)

	scenarioDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bddkit_scenario_duration_seconds",
			Help:    "Scenario duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	stepsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bddkit_steps_total",
			Help: "Total number of steps by status",
		},
		[]string{"status"},
	)

	stepDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bddkit_step_duration_seconds",
			Help:    "Step duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"status"},
	)

	httpRequestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bddkit_http_requests_total",
			Help: "Total number of HTTP requests by method and status code; code 0 means a transport failure",
		},
		[]string{"method", "code"},
	)

	httpRequestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bddkit_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	registry.MustRegister(
		scenariosTotal,
		scenarioDuration,
		stepsTotal,
		stepDuration,
		httpRequestsTotal,
		httpRequestDuration,
	)

	return &Metrics{
		registry:            registry,
		ScenariosTotal:      scenariosTotal,
		ScenarioDuration:    scenarioDuration,
		StepsTotal:          stepsTotal,
		StepDuration:        stepDuration,
		HTTPRequestsTotal:   httpRequestsTotal,
		HTTPRequestDuration: httpRequestDuration,
	}
}

// GetRegistry returns the Prometheus registry for this metrics instance
func (m *Metrics) GetRegistry() *prometheus.Registry {
	return m.registry
}

// ObserveScenario records a finished scenario.
func (m *Metrics) ObserveScenario(status bdd.ScenarioStatus, duration time.Duration) {
	m.ScenariosTotal.WithLabelValues(status.String()).Inc()
	m.ScenarioDuration.Observe(duration.Seconds())
}

// ObserveStep records a finished or skipped step.
func (m *Metrics) ObserveStep(status bdd.StepStatus, duration time.Duration) {
	m.StepsTotal.WithLabelValues(status.String()).Inc()
	if status != bdd.StepSkipped {
		m.StepDuration.WithLabelValues(status.String()).Observe(duration.Seconds())
	}
}

// ObserveRequest records one HTTP exchange made by a fixture client or served
// by the API twin.
func (m *Metrics) ObserveRequest(method string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// WriteTextfile writes all metrics in the Prometheus text format, suitable for
// the node exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}

// Handler serves the registry over HTTP.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
