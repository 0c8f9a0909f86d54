package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	ticksTotal  *prometheus.CounterVec
	alertsTotal *prometheus.CounterVec
	errorsTotal *prometheus.CounterVec
	lastPrice   *prometheus.GaugeVec
	dipPct      *prometheus.GaugeVec
	activeSlots prometheus.Gauge
	latency     *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		ticksTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dipwatch_ticks_total",
				Help: "Total ticks received, by underlying and outcome",
			},
			[]string{"underlying", "outcome"},
		),
		alertsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dipwatch_alerts_total",
				Help: "Total dip alerts, by symbol and outcome",
			},
			[]string{"symbol", "outcome"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dipwatch_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "dipwatch_last_price",
				Help: "Last derived price for a symbol",
			},
			[]string{"symbol"},
		),
		dipPct: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "dipwatch_dip_percentage",
				Help: "Current dip from session high for a symbol",
			},
			[]string{"symbol"},
		),
		activeSlots: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "dipwatch_active_slots",
				Help: "Currently granted notification slots",
			},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dipwatch_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordTick records a received tick and its admission outcome.
func (r *Recorder) RecordTick(underlying, outcome string) {
	r.ticksTotal.WithLabelValues(underlying, outcome).Inc()
}

// RecordAlert records an alert lifecycle outcome.
func (r *Recorder) RecordAlert(symbol, outcome string) {
	r.alertsTotal.WithLabelValues(symbol, outcome).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLastPrice records the last derived price for a symbol.
func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

// RecordDip records the current dip percentage for a symbol.
func (r *Recorder) RecordDip(symbol string, pct float64) {
	r.dipPct.WithLabelValues(symbol).Set(pct)
}

// RecordSlots records the number of granted slots.
func (r *Recorder) RecordSlots(active int) {
	r.activeSlots.Set(float64(active))
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
