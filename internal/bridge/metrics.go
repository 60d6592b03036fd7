package bridge

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	outcomeSuccess = "success"
	outcomeError   = "error"
)

// Collector gathers bridge conversion and device call metrics.
type Collector struct {
	conversions       *prometheus.CounterVec
	droppedParameters *prometheus.CounterVec
	deviceCalls       *prometheus.CounterVec
	callDuration      *prometheus.HistogramVec
}

func NewCollector() *Collector {
	return &Collector{
		conversions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kmcompat_bridge_conversions_total",
			Help: "Parameter list conversions performed by the bridge by direction and outcome",
		}, []string{"direction", "outcome"}), // to_legacy, to_current - success, error
		droppedParameters: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kmcompat_bridge_dropped_parameters_total",
			Help: "Parameters dropped because the legacy revision cannot carry them",
		}, []string{"tag"}),
		deviceCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kmcompat_bridge_device_calls_total",
			Help: "Calls forwarded to the wrapped device by method and outcome",
		}, []string{"method", "outcome"}),
		callDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "kmcompat_bridge_call_duration_seconds",
			Help:    "Histogram of wrapped device call duration by method",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 16), // 0.5ms to ~16s
		}, []string{"method"}),
	}
}

func (c *Collector) MetricsName() string {
	return "bridge"
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.conversions.Describe(ch)
	c.droppedParameters.Describe(ch)
	c.deviceCalls.Describe(ch)
	c.callDuration.Describe(ch)
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.conversions.Collect(ch)
	c.droppedParameters.Collect(ch)
	c.deviceCalls.Collect(ch)
	c.callDuration.Collect(ch)
}

func (c *Collector) recordConversion(direction string, err error) {
	if c == nil {
		return
	}
	outcome := outcomeSuccess
	if err != nil {
		outcome = outcomeError
	}
	c.conversions.WithLabelValues(direction, outcome).Inc()
}

func (c *Collector) recordDrop(tag string) {
	if c == nil {
		return
	}
	c.droppedParameters.WithLabelValues(tag).Inc()
}

func (c *Collector) recordCall(method string, start time.Time, err error) {
	if c == nil {
		return
	}
	outcome := outcomeSuccess
	if err != nil {
		outcome = outcomeError
	}
	c.deviceCalls.WithLabelValues(method, outcome).Inc()
	c.callDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
}
