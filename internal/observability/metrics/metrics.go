package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const metricPrefix = "argus_"

var (
	registerOnce sync.Once

	ordersIssued     *prometheus.CounterVec
	ordersClosed     *prometheus.CounterVec
	ordersExpired    prometheus.Counter
	responsesParsed  *prometheus.CounterVec
	parseErrors      prometheus.Counter
	unsolicited      prometheus.Counter
	schedulerFirings *prometheus.CounterVec
	pollerRuns       *prometheus.CounterVec
	dispatchLatency  prometheus.Histogram
)

// Init registers the process metrics. Safe to call more than once.
func Init() {
	registerOnce.Do(func() {
		ordersIssued = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "orders_issued_total",
				Help: "Orders delivered to the instrument Inbox, by order type",
			},
			[]string{"order_type"},
		)
		ordersClosed = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "orders_closed_total",
				Help: "Order lifecycle transitions out of open, by final status",
			},
			[]string{"status"},
		)
		ordersExpired = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "orders_expired_total",
				Help: "Open orders expired without a response",
			},
		)
		responsesParsed = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "responses_parsed_total",
				Help: "Instrument responses parsed, by order type",
			},
			[]string{"order_type"},
		)
		parseErrors = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "response_parse_errors_total",
				Help: "Outbox files that did not parse as a known response",
			},
		)
		unsolicited = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "responses_unsolicited_total",
				Help: "Responses whose order id matched no known order",
			},
		)
		schedulerFirings = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "scheduler_firings_total",
				Help: "Measurement schedule firings, by result",
			},
			[]string{"result"},
		)
		pollerRuns = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "poller_runs_total",
				Help: "System state poller runs, by result",
			},
			[]string{"result"},
		)
		dispatchLatency = prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "response_dispatch_seconds",
				Help:    "Time from Outbox file event to stored response",
				Buckets: prometheus.DefBuckets,
			},
		)

		prometheus.MustRegister(
			ordersIssued,
			ordersClosed,
			ordersExpired,
			responsesParsed,
			parseErrors,
			unsolicited,
			schedulerFirings,
			pollerRuns,
			dispatchLatency,
		)
	})
}

// IncOrderIssued counts a delivered order.
func IncOrderIssued(orderType string) {
	if ordersIssued != nil {
		ordersIssued.WithLabelValues(orderType).Inc()
	}
}

// IncOrderClosed counts a lifecycle transition out of open.
func IncOrderClosed(status string) {
	if ordersClosed != nil {
		ordersClosed.WithLabelValues(status).Inc()
	}
}

// AddOrdersExpired counts expired orders.
func AddOrdersExpired(count int) {
	if ordersExpired != nil && count > 0 {
		ordersExpired.Add(float64(count))
	}
}

// IncResponseParsed counts a parsed response.
func IncResponseParsed(orderType string) {
	if responsesParsed != nil {
		responsesParsed.WithLabelValues(orderType).Inc()
	}
}

// IncParseError counts an unparseable Outbox file.
func IncParseError() {
	if parseErrors != nil {
		parseErrors.Inc()
	}
}

// IncUnsolicited counts a response without a matching order.
func IncUnsolicited() {
	if unsolicited != nil {
		unsolicited.Inc()
	}
}

// IncSchedulerFiring counts a schedule firing result ("submitted",
// "skipped", "error").
func IncSchedulerFiring(result string) {
	if schedulerFirings != nil {
		schedulerFirings.WithLabelValues(result).Inc()
	}
}

// IncPollerRun counts a poller run result ("submitted", "fresh", "pending",
// "error").
func IncPollerRun(result string) {
	if pollerRuns != nil {
		pollerRuns.WithLabelValues(result).Inc()
	}
}

// ObserveDispatchLatency records end-to-end response handling time.
func ObserveDispatchLatency(seconds float64) {
	if dispatchLatency != nil {
		dispatchLatency.Observe(seconds)
	}
}
