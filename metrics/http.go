package metrics

import (
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
)

const (
	MetricHTTPRequests = "extcore_http_requests_total"
	MetricHTTPDuration = "extcore_http_request_duration_seconds"
)

// Middleware records request counts and durations. Under chi the route
// pattern is used as the path label, so URL parameters do not multiply
// series.
func Middleware(c *Collector) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &statusWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(ww, r)

			path := r.URL.Path
			if rc := chi.RouteContext(r.Context()); rc != nil {
				if pattern := rc.RoutePattern(); pattern != "" {
					path = pattern
				}
			}
			c.IncCounter(MetricHTTPRequests, map[string]string{
				"method": r.Method,
				"path":   path,
				"status": strconv.Itoa(ww.statusCode),
			})
			c.ObserveHistogram(MetricHTTPDuration, time.Since(start).Seconds(), map[string]string{"path": path})
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }

// Handler serves the collector in a Prometheus-style text format.
// Histograms are summarized as _avg and _count over the kept samples.
func Handler(c *Collector) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		_, _ = w.Write([]byte(Format(c)))
	})
}

// Format renders every metric, one series per line, sorted.
func Format(c *Collector) string {
	metrics := c.GetMetrics()
	lines := make([]string, 0, len(metrics))
	for _, m := range metrics {
		labels := buildKey("", m.Labels)
		switch m.Type {
		case "histogram":
			if len(m.History) == 0 {
				continue
			}
			var sum float64
			for _, v := range m.History {
				sum += v
			}
			lines = append(lines,
				fmt.Sprintf("%s_avg%s %g", m.Name, labels, sum/float64(len(m.History))),
				fmt.Sprintf("%s_count%s %d", m.Name, labels, len(m.History)))
		default:
			lines = append(lines, fmt.Sprintf("%s%s %g", m.Name, labels, m.Value))
		}
	}
	sort.Strings(lines)
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}
