package metrics

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

const historySize = 100

// Collector keeps counters, gauges and bounded histograms in memory.
type Collector struct {
	metrics map[string]*Metric
	mu      sync.RWMutex
}

type Metric struct {
	Name      string            `json:"name"`
	Type      string            `json:"type"`
	Value     float64           `json:"value"`
	Labels    map[string]string `json:"labels,omitempty"`
	History   []float64         `json:"history,omitempty"`
	Timestamp int64             `json:"timestamp"`
}

func NewCollector() *Collector {
	return &Collector{metrics: make(map[string]*Metric)}
}

func (c *Collector) IncCounter(name string, labels map[string]string) {
	c.AddCounter(name, 1, labels)
}

func (c *Collector) AddCounter(name string, value float64, labels map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m := c.entry(name, "counter", labels)
	m.Value += value
	m.Timestamp = time.Now().Unix()
}

func (c *Collector) SetGauge(name string, value float64, labels map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m := c.entry(name, "gauge", labels)
	m.Value = value
	m.Timestamp = time.Now().Unix()
}

// ObserveHistogram records value, keeping the last historySize samples.
// Value holds the latest observation.
func (c *Collector) ObserveHistogram(name string, value float64, labels map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m := c.entry(name, "histogram", labels)
	m.History = append(m.History, value)
	if len(m.History) > historySize {
		m.History = m.History[1:]
	}
	m.Value = value
	m.Timestamp = time.Now().Unix()
}

// entry returns the metric for name and labels, creating it. Callers hold mu.
func (c *Collector) entry(name, typ string, labels map[string]string) *Metric {
	key := buildKey(name, labels)
	if m, ok := c.metrics[key]; ok {
		return m
	}
	m := &Metric{Name: name, Type: typ, Labels: copyLabels(labels)}
	c.metrics[key] = m
	return m
}

// GetMetrics returns copies of every metric keyed like GetMetric.
func (c *Collector) GetMetrics() map[string]Metric {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make(map[string]Metric, len(c.metrics))
	for k, m := range c.metrics {
		result[k] = m.clone()
	}
	return result
}

// GetMetric returns a copy of one metric.
func (c *Collector) GetMetric(name string, labels map[string]string) (Metric, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	m, ok := c.metrics[buildKey(name, labels)]
	if !ok {
		return Metric{}, false
	}
	return m.clone(), true
}

func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metrics = make(map[string]*Metric)
}

func (m *Metric) clone() Metric {
	out := *m
	out.Labels = copyLabels(m.Labels)
	out.History = append([]float64(nil), m.History...)
	return out
}

// buildKey renders name{k="v",...} with labels in key order.
func buildKey(name string, labels map[string]string) string {
	if len(labels) == 0 {
		return name
	}
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = fmt.Sprintf("%s=%q", k, labels[k])
	}
	return name + "{" + strings.Join(pairs, ",") + "}"
}

func copyLabels(labels map[string]string) map[string]string {
	if len(labels) == 0 {
		return nil
	}
	out := make(map[string]string, len(labels))
	for k, v := range labels {
		out[k] = v
	}
	return out
}
