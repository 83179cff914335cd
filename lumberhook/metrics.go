package lumberhook

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nilpntr/lumber/lumbertype"
)

// Metric names recorded by MetricsHook.
const (
	MetricEventsTotal          = "lumber_events_total"
	MetricEventsWithErrorTotal = "lumber_events_with_error_total"
	MetricMessageSizeBytes     = "lumber_event_message_size_bytes"
	MetricEventFieldCount      = "lumber_event_field_count"
)

// MetricsCollector defines the interface for collecting metrics.
type MetricsCollector interface {
	// IncrementCounter increments a counter metric.
	IncrementCounter(name string, labels map[string]string)

	// RecordGauge records a gauge metric value.
	RecordGauge(name string, value float64, labels map[string]string)

	// RecordHistogram records a histogram metric value.
	RecordHistogram(name string, value float64, labels map[string]string)

	// RecordTiming records a timing metric.
	RecordTiming(name string, duration time.Duration, labels map[string]string)
}

// MetricsHook counts events that reached the bridge.
type MetricsHook struct {
	BaseHook
	collector MetricsCollector
}

// NewMetricsHook creates a new metrics hook with the given collector.
func NewMetricsHook(collector MetricsCollector) *MetricsHook {
	return &MetricsHook{collector: collector}
}

// AfterLog records per-logger, per-level counts and message sizes.
func (h *MetricsHook) AfterLog(_ context.Context, event lumbertype.Event) {
	labels := map[string]string{
		"logger": event.Logger,
		"level":  event.Level.String(),
	}

	h.collector.IncrementCounter(MetricEventsTotal, labels)
	h.collector.RecordHistogram(MetricMessageSizeBytes, float64(len(event.Message)), labels)
	h.collector.RecordGauge(MetricEventFieldCount, float64(len(event.Fields)), labels)

	if event.Err != nil {
		h.collector.IncrementCounter(MetricEventsWithErrorTotal, labels)
	}
}

// InMemoryMetricsCollector is a simple in-memory metrics collector for testing.
type InMemoryMetricsCollector struct {
	mu         sync.Mutex
	counters   map[string]int64
	gauges     map[string]float64
	histograms map[string][]float64
	timings    map[string][]time.Duration
}

// NewInMemoryMetricsCollector creates a new in-memory metrics collector.
func NewInMemoryMetricsCollector() *InMemoryMetricsCollector {
	c := &InMemoryMetricsCollector{}
	c.Reset()
	return c
}

// IncrementCounter increments a counter metric.
func (c *InMemoryMetricsCollector) IncrementCounter(name string, labels map[string]string) {
	key := buildMetricKey(name, labels)
	c.mu.Lock()
	c.counters[key]++
	c.mu.Unlock()
}

// RecordGauge records a gauge metric value.
func (c *InMemoryMetricsCollector) RecordGauge(name string, value float64, labels map[string]string) {
	key := buildMetricKey(name, labels)
	c.mu.Lock()
	c.gauges[key] = value
	c.mu.Unlock()
}

// RecordHistogram records a histogram metric value.
func (c *InMemoryMetricsCollector) RecordHistogram(name string, value float64, labels map[string]string) {
	key := buildMetricKey(name, labels)
	c.mu.Lock()
	c.histograms[key] = append(c.histograms[key], value)
	c.mu.Unlock()
}

// RecordTiming records a timing metric.
func (c *InMemoryMetricsCollector) RecordTiming(name string, duration time.Duration, labels map[string]string) {
	key := buildMetricKey(name, labels)
	c.mu.Lock()
	c.timings[key] = append(c.timings[key], duration)
	c.mu.Unlock()
}

// GetCounter returns the current value of a counter metric.
func (c *InMemoryMetricsCollector) GetCounter(name string, labels map[string]string) int64 {
	key := buildMetricKey(name, labels)
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counters[key]
}

// GetGauge returns the current value of a gauge metric.
func (c *InMemoryMetricsCollector) GetGauge(name string, labels map[string]string) float64 {
	key := buildMetricKey(name, labels)
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gauges[key]
}

// GetHistogram returns all recorded values for a histogram metric.
func (c *InMemoryMetricsCollector) GetHistogram(name string, labels map[string]string) []float64 {
	key := buildMetricKey(name, labels)
	c.mu.Lock()
	defer c.mu.Unlock()
	values := c.histograms[key]
	result := make([]float64, len(values))
	copy(result, values)
	return result
}

// GetTimings returns all recorded timings for a timing metric.
func (c *InMemoryMetricsCollector) GetTimings(name string, labels map[string]string) []time.Duration {
	key := buildMetricKey(name, labels)
	c.mu.Lock()
	defer c.mu.Unlock()
	values := c.timings[key]
	result := make([]time.Duration, len(values))
	copy(result, values)
	return result
}

// Reset clears all metrics.
func (c *InMemoryMetricsCollector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counters = make(map[string]int64)
	c.gauges = make(map[string]float64)
	c.histograms = make(map[string][]float64)
	c.timings = make(map[string][]time.Duration)
}

// buildMetricKey creates a consistent key for metrics with labels.
func buildMetricKey(name string, labels map[string]string) string {
	if len(labels) == 0 {
		return name
	}

	var b strings.Builder
	b.WriteString(name)
	for _, k := range sortedKeys(labels) {
		b.WriteString(",")
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(labels[k])
	}
	return b.String()
}

func sortedKeys(labels map[string]string) []string {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// PrometheusCollector implements MetricsCollector on top of the Prometheus
// client. Vectors are created on first use of a metric name; the label set
// of the first call fixes the label names for that metric.
type PrometheusCollector struct {
	registerer prometheus.Registerer
	namespace  string

	mu         sync.Mutex
	counters   map[string]*prometheus.CounterVec
	gauges     map[string]*prometheus.GaugeVec
	histograms map[string]*prometheus.HistogramVec
}

// NewPrometheusCollector creates a collector that registers its vectors on
// registerer. A nil registerer means prometheus.DefaultRegisterer.
func NewPrometheusCollector(registerer prometheus.Registerer, namespace string) *PrometheusCollector {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	return &PrometheusCollector{
		registerer: registerer,
		namespace:  namespace,
		counters:   make(map[string]*prometheus.CounterVec),
		gauges:     make(map[string]*prometheus.GaugeVec),
		histograms: make(map[string]*prometheus.HistogramVec),
	}
}

// IncrementCounter increments a counter metric.
func (c *PrometheusCollector) IncrementCounter(name string, labels map[string]string) {
	c.mu.Lock()
	vec, ok := c.counters[name]
	if !ok {
		vec = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: c.namespace,
			Name:      name,
			Help:      "Counter " + name + ".",
		}, sortedKeys(labels))
		vec = registerOrExisting(c.registerer, vec)
		c.counters[name] = vec
	}
	c.mu.Unlock()
	vec.With(labels).Inc()
}

// RecordGauge records a gauge metric value.
func (c *PrometheusCollector) RecordGauge(name string, value float64, labels map[string]string) {
	c.mu.Lock()
	vec, ok := c.gauges[name]
	if !ok {
		vec = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: c.namespace,
			Name:      name,
			Help:      "Gauge " + name + ".",
		}, sortedKeys(labels))
		vec = registerOrExisting(c.registerer, vec)
		c.gauges[name] = vec
	}
	c.mu.Unlock()
	vec.With(labels).Set(value)
}

// RecordHistogram records a histogram metric value.
func (c *PrometheusCollector) RecordHistogram(name string, value float64, labels map[string]string) {
	c.histogram(name, sizeBuckets, labels).With(labels).Observe(value)
}

// RecordTiming records a timing metric as seconds in a histogram.
func (c *PrometheusCollector) RecordTiming(name string, duration time.Duration, labels map[string]string) {
	c.histogram(name+"_seconds", prometheus.DefBuckets, labels).With(labels).Observe(duration.Seconds())
}

// sizeBuckets spans 16 bytes to 256 KiB.
var sizeBuckets = prometheus.ExponentialBuckets(16, 4, 8)

func (c *PrometheusCollector) histogram(name string, buckets []float64, labels map[string]string) *prometheus.HistogramVec {
	c.mu.Lock()
	defer c.mu.Unlock()
	vec, ok := c.histograms[name]
	if !ok {
		vec = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: c.namespace,
			Name:      name,
			Help:      "Histogram " + name + ".",
			Buckets:   buckets,
		}, sortedKeys(labels))
		vec = registerOrExisting(c.registerer, vec)
		c.histograms[name] = vec
	}
	return vec
}

// registerOrExisting registers c, or returns the collector already
// registered under the same descriptor.
func registerOrExisting[C prometheus.Collector](registerer prometheus.Registerer, c C) C {
	if err := registerer.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
	}
	return c
}
