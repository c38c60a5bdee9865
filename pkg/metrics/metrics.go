package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Dispatch related metrics
	DispatchAttempts       *prometheus.CounterVec
	RequesterNotifications *prometheus.CounterVec

	// Ledger metrics
	LedgerWrites *prometheus.CounterVec

	// Inbound mailbox metrics
	InboxMessages     *prometheus.CounterVec
	PollCycles        *prometheus.CounterVec
	PollCycleDuration prometheus.Histogram

	// Background task metrics
	TaskQueueDepth prometheus.Gauge
	TasksProcessed *prometheus.CounterVec

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

// New creates and registers all application metrics on reg.
func New(namespace string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		DispatchAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatch_attempts_total",
			Help:      "Donor notification attempts by channel and outcome",
		}, []string{"channel", "status"}),
		RequesterNotifications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requester_notifications_total",
			Help:      "Requester confirmation emails by outcome",
		}, []string{"status"}),
		LedgerWrites: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_writes_total",
			Help:      "Confirmation ledger writes by outcome",
		}, []string{"outcome"}),
		InboxMessages: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inbox_messages_total",
			Help:      "Inbound reply messages by classification outcome",
		}, []string{"outcome"}),
		PollCycles: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inbox_poll_cycles_total",
			Help:      "Inbound mailbox poll cycles by status",
		}, []string{"status"}),
		PollCycleDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "inbox_poll_cycle_duration_seconds",
			Help:      "Time spent in one mailbox poll cycle",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		}),
		TaskQueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "task_queue_depth",
			Help:      "Detached tasks waiting for a worker",
		}),
		TasksProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_processed_total",
			Help:      "Detached tasks by name and outcome",
		}, []string{"task", "status"}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}
}

// NewNop returns metrics registered on a throwaway registry.
func NewNop() *Metrics {
	return New("test", prometheus.NewRegistry())
}
