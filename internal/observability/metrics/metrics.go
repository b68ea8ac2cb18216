package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SchedulingMetrics exposes counters/histograms for availability queries and
// booking decisions.
type SchedulingMetrics struct {
	operationsTotal  *prometheus.CounterVec
	operationLatency *prometheus.HistogramVec
	conflictsTotal   *prometheus.CounterVec
	freeBlocks       prometheus.Histogram
	eventsTotal      *prometheus.CounterVec
}

func NewSchedulingMetrics(reg prometheus.Registerer) *SchedulingMetrics {
	m := &SchedulingMetrics{
		operationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "salon",
			Subsystem: "scheduling",
			Name:      "operations_total",
			Help:      "Total scheduling operations by outcome",
		}, []string{"operation", "outcome"}),
		operationLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "salon",
			Subsystem: "scheduling",
			Name:      "operation_latency_seconds",
			Help:      "Latency of scheduling operations",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		conflictsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "salon",
			Subsystem: "scheduling",
			Name:      "conflicts_total",
			Help:      "Bookings refused because the time was taken",
		}, []string{"stage"}),
		freeBlocks: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "salon",
			Subsystem: "scheduling",
			Name:      "free_blocks_returned",
			Help:      "Number of free blocks returned per search",
			Buckets:   []float64{0, 1, 2, 3, 5, 10, 20},
		}),
		eventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "salon",
			Subsystem: "scheduling",
			Name:      "events_published_total",
			Help:      "Booking events handed to the publisher",
		}, []string{"type", "status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.operationsTotal, m.operationLatency, m.conflictsTotal, m.freeBlocks, m.eventsTotal)
	return m
}

// ObserveOperation records one finished operation. outcome is "ok" or an
// error class such as "conflict" or "invalid".
func (m *SchedulingMetrics) ObserveOperation(operation, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.operationsTotal.WithLabelValues(operation, outcome).Inc()
	m.operationLatency.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// ObserveConflict counts a refused booking. stage is "request", "approve" or
// "direct".
func (m *SchedulingMetrics) ObserveConflict(stage string) {
	if m == nil {
		return
	}
	m.conflictsTotal.WithLabelValues(stage).Inc()
}

func (m *SchedulingMetrics) ObserveFreeBlocks(count int) {
	if m == nil {
		return
	}
	m.freeBlocks.Observe(float64(count))
}

func (m *SchedulingMetrics) ObserveEvent(eventType string, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.eventsTotal.WithLabelValues(eventType, status).Inc()
}
