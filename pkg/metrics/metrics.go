package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Store metrics
	StoreOperations   *prometheus.CounterVec
	StoreLatency      *prometheus.HistogramVec
	StoreConflicts    prometheus.Counter
	StoreCorruptReads prometheus.Counter
	StoreSize         prometheus.Gauge

	// Booking metrics
	BookingsCompleted prometheus.Counter
	BookingRejections *prometheus.CounterVec
	PaymentOutcomes   *prometheus.CounterVec

	// Watcher metrics
	WatcherRefreshes *prometheus.CounterVec
	WatcherViewSize  prometheus.Gauge

	// Notification metrics
	NotificationsSent *prometheus.CounterVec

	// Worker metrics
	EventsProcessed *prometheus.CounterVec
	EventLatency    *prometheus.HistogramVec
	EventRetries    *prometheus.CounterVec

	// HTTP metrics
	RequestDuration *prometheus.HistogramVec
	RequestTotal    *prometheus.CounterVec
	ErrorTotal      *prometheus.CounterVec
}

// NewMetrics creates all application metrics and registers them on reg.
// A nil reg uses the default registerer.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		StoreOperations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "operations_total",
			Help:      "Total number of appointment store operations",
		}, []string{"operation", "status"}),
		StoreLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "operation_duration_seconds",
			Help:      "Duration of appointment store operations",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"operation"}),
		StoreConflicts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "revision_conflicts_total",
			Help:      "Compare-and-swap attempts rejected because the revision moved",
		}),
		StoreCorruptReads: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "corrupt_reads_total",
			Help:      "Reads that found a malformed appointment blob",
		}),
		StoreSize: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "appointments",
			Help:      "Number of appointments in the last written blob",
		}),

		BookingsCompleted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "booking",
			Name:      "completed_total",
			Help:      "Total number of completed bookings",
		}),
		BookingRejections: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "booking",
			Name:      "rejected_steps_total",
			Help:      "Booking steps that did not advance the flow",
		}, []string{"reason"}),
		PaymentOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "payment",
			Name:      "authorizations_total",
			Help:      "Payment authorizations by method and outcome",
		}, []string{"method", "outcome"}),

		WatcherRefreshes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "watcher",
			Name:      "refreshes_total",
			Help:      "Doctor view refreshes by trigger",
		}, []string{"trigger"}),
		WatcherViewSize: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "watcher",
			Name:      "view_appointments",
			Help:      "Number of appointments in the doctor view",
		}),

		NotificationsSent: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notification",
			Name:      "sent_total",
			Help:      "Notifications sent by channel and status",
		}, []string{"channel", "status"}),

		EventsProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "events_processed_total",
			Help:      "Broker events handled by status",
		}, []string{"channel", "status"}),
		EventLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "event_processing_duration_seconds",
			Help:      "Time spent handling one broker event",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"channel"}),
		EventRetries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "event_retries_total",
			Help:      "Retried broker event deliveries",
		}, []string{"channel"}),

		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
		}, []string{"method", "path", "status"}),
		RequestTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		ErrorTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "errors_total",
			Help:      "Total number of HTTP errors",
		}, []string{"method", "path", "type"}),
	}
}

// NewTestMetrics registers on a throwaway registry.
func NewTestMetrics() *Metrics {
	return NewMetrics(prometheus.NewRegistry(), "test")
}
