// Package metrics exposes Prometheus metrics for the booking API and the
// notification worker.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cuongbtq/booking-service/internal/booking"
	"github.com/cuongbtq/booking-service/internal/booking/domain"
	"github.com/cuongbtq/booking-service/internal/worker"
)

const (
	// Namespace is the namespace for all service metrics.
	Namespace = "booking"

	subsystemJobs          = "jobs"
	subsystemNotifications = "notifications"
	subsystemHTTP          = "http"
)

var (
	_ booking.Recorder = (*Metrics)(nil)
	_ worker.Recorder  = (*Metrics)(nil)
)

// Metrics holds all Prometheus metrics.
type Metrics struct {
	registry *prometheus.Registry

	// Booking metrics
	BookingsCreated   *prometheus.CounterVec
	StatusTransitions *prometheus.CounterVec
	AcceptOutcomes    *prometheus.CounterVec

	// Notification metrics
	NotificationFailures *prometheus.CounterVec
	MessagesProcessed    *prometheus.CounterVec
	DeliverySeconds      *prometheus.HistogramVec

	// HTTP metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New creates a registry with Go and process collectors and registers all
// metrics on it.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(reg)
	m := &Metrics{registry: reg}

	m.initBookingMetrics(factory)
	m.initNotificationMetrics(factory)
	m.initHTTPMetrics(factory)

	return m
}

func (m *Metrics) initBookingMetrics(factory promauto.Factory) {
	m.BookingsCreated = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: subsystemJobs,
			Name:      "created_total",
			Help:      "Total number of bookings created",
		},
		[]string{"job_type"},
	)

	m.StatusTransitions = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: subsystemJobs,
			Name:      "status_transitions_total",
			Help:      "Total number of job status transitions",
		},
		[]string{"from", "to"},
	)

	m.AcceptOutcomes = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: subsystemJobs,
			Name:      "accept_attempts_total",
			Help:      "Total number of job accept attempts by outcome",
		},
		[]string{"outcome"},
	)
}

func (m *Metrics) initNotificationMetrics(factory promauto.Factory) {
	m.NotificationFailures = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: subsystemNotifications,
			Name:      "enqueue_failures_total",
			Help:      "Total number of notifications that could not be queued",
		},
		[]string{"kind"},
	)

	m.MessagesProcessed = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: subsystemNotifications,
			Name:      "messages_processed_total",
			Help:      "Total number of notification messages processed by the worker",
		},
		[]string{"kind", "outcome"},
	)

	m.DeliverySeconds = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: subsystemNotifications,
			Name:      "delivery_duration_seconds",
			Help:      "Duration of notification deliveries in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		},
		[]string{"kind"},
	)
}

func (m *Metrics) initHTTPMetrics(factory promauto.Factory) {
	m.HTTPRequests = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: subsystemHTTP,
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	m.HTTPRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: subsystemHTTP,
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// BookingCreated implements booking.Recorder.
func (m *Metrics) BookingCreated(jobType domain.JobType) {
	m.BookingsCreated.WithLabelValues(string(jobType)).Inc()
}

// StatusChanged implements booking.Recorder.
func (m *Metrics) StatusChanged(from, to domain.Status) {
	m.StatusTransitions.WithLabelValues(string(from), string(to)).Inc()
}

// AcceptOutcome implements booking.Recorder.
func (m *Metrics) AcceptOutcome(outcome string) {
	m.AcceptOutcomes.WithLabelValues(outcome).Inc()
}

// NotificationFailed implements booking.Recorder.
func (m *Metrics) NotificationFailed(kind string) {
	m.NotificationFailures.WithLabelValues(kind).Inc()
}

// MessageProcessed implements worker.Recorder.
func (m *Metrics) MessageProcessed(kind, outcome string) {
	m.MessagesProcessed.WithLabelValues(kind, outcome).Inc()
}

// DeliveryDuration implements worker.Recorder.
func (m *Metrics) DeliveryDuration(kind string, d time.Duration) {
	m.DeliverySeconds.WithLabelValues(kind).Observe(d.Seconds())
}

// ObserveHTTP records one served request. route is the matched route pattern.
func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
