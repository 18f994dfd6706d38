// Package metrics exposes refresh observability as Prometheus collectors.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/tartampluch/birthday-board/internal/config"
)

// Metrics tracks refresh outcomes and the size of the current schedule.
type Metrics struct {
	Refreshes       *prometheus.CounterVec
	SkippedLines    prometheus.Counter
	Records         prometheus.Gauge
	BirthdaysToday  prometheus.Gauge
	RefreshDuration prometheus.Histogram
}

// New creates the collectors and registers them on reg. A nil reg falls back
// to prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		Refreshes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: config.MetricsNamespace,
			Name:      "refreshes_total",
			Help:      "Total number of birthday source refreshes, by result",
		}, []string{config.MetricLabelResult}),
		SkippedLines: factory.NewCounter(prometheus.CounterOpts{
			Namespace: config.MetricsNamespace,
			Name:      "skipped_lines_total",
			Help:      "Total number of malformed source entries skipped during refreshes",
		}),
		Records: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: config.MetricsNamespace,
			Name:      "records",
			Help:      "Number of birthday records in the current snapshot",
		}),
		BirthdaysToday: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: config.MetricsNamespace,
			Name:      "birthdays_today",
			Help:      "Number of birthdays falling on the current UTC+9 date",
		}),
		RefreshDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: config.MetricsNamespace,
			Name:      "refresh_duration_seconds",
			Help:      "Duration of birthday source refreshes",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
	}
}

// ObserveSuccess records a completed refresh.
// Call with time.Now() taken at the start of the refresh.
func (m *Metrics) ObserveSuccess(start time.Time, records, skipped, today int) {
	m.Refreshes.WithLabelValues(config.MetricResultOK).Inc()
	m.SkippedLines.Add(float64(skipped))
	m.Records.Set(float64(records))
	m.BirthdaysToday.Set(float64(today))
	m.RefreshDuration.Observe(time.Since(start).Seconds())
}

// ObserveFailure records a failed refresh. Gauges keep describing the
// snapshot still being served.
func (m *Metrics) ObserveFailure(start time.Time) {
	m.Refreshes.WithLabelValues(config.MetricResultError).Inc()
	m.RefreshDuration.Observe(time.Since(start).Seconds())
}
