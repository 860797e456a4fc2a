// internal/metrics/collector.go
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/michaelgoldpiano/datastructures/arraylist"
)

// Collector exports list and soak-run metrics. It implements
// arraylist.Observer so it can be handed straight to a List.
type Collector struct {
	startTime time.Time

	reallocations *prometheus.CounterVec
	allocFailures prometheus.Counter
	capacity      prometheus.Histogram
	operations    *prometheus.CounterVec
	violations    prometheus.Counter
	budgetInUse   prometheus.Gauge
	requests      *prometheus.CounterVec
}

// NewCollector registers the metrics with reg
func NewCollector(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		startTime: time.Now(),

		reallocations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "arraylist_reallocations_total",
				Help: "Total number of buffer reallocations",
			},
			[]string{"direction", "reason"},
		),

		allocFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "arraylist_alloc_failures_total",
				Help: "Total number of failed buffer allocations",
			},
		),

		capacity: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "arraylist_capacity_slots",
				Help:    "Buffer capacity after each reallocation",
				Buckets: prometheus.ExponentialBuckets(10, 2, 16),
			},
		),

		operations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "arraylist_soak_operations_total",
				Help: "Total number of soak operations by outcome",
			},
			[]string{"op", "result"},
		),

		violations: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "arraylist_soak_invariant_violations_total",
				Help: "Total number of invariant violations detected by the soak run",
			},
		),

		budgetInUse: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "arraylist_budget_slots_in_use",
				Help: "Slots currently handed out by the soak allocator",
			},
		),

		requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "arraylist_http_requests_total",
				Help: "Total number of requests served by the metrics server",
			},
			[]string{"method", "endpoint", "status"},
		),
	}
}

// ObserveResize records a buffer reallocation
func (c *Collector) ObserveResize(event arraylist.ResizeEvent) {
	direction := "shrink"
	if event.Grew() {
		direction = "grow"
	}
	c.reallocations.WithLabelValues(direction, event.Reason).Inc()
	c.capacity.Observe(float64(event.NewCapacity))
}

// ObserveAllocFailure records a failed allocation
func (c *Collector) ObserveAllocFailure(requested int, err error) {
	c.allocFailures.Inc()
}

// RecordOperation records one soak operation
func (c *Collector) RecordOperation(op, result string) {
	c.operations.WithLabelValues(op, result).Inc()
}

// RecordViolation records an invariant violation
func (c *Collector) RecordViolation() {
	c.violations.Inc()
}

// SetBudgetInUse reports allocator usage
func (c *Collector) SetBudgetInUse(slots int) {
	c.budgetInUse.Set(float64(slots))
}

// RecordRequest records a metrics server request
func (c *Collector) RecordRequest(method, endpoint string, status int) {
	c.requests.WithLabelValues(method, endpoint, statusClass(status)).Inc()
}

// Uptime returns the uptime duration
func (c *Collector) Uptime() time.Duration {
	return time.Since(c.startTime)
}

func statusClass(status int) string {
	switch {
	case status >= 200 && status < 300:
		return "2xx"
	case status >= 300 && status < 400:
		return "3xx"
	case status >= 400 && status < 500:
		return "4xx"
	case status >= 500:
		return "5xx"
	default:
		return strconv.Itoa(status)
	}
}
