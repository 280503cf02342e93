// Package metrics expone las métricas Prometheus del ledger.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jhoicas/stock-ledger/internal/application/ports"
	"github.com/jhoicas/stock-ledger/internal/domain"
)

var (
	_ ports.LedgerRecorder = (*Recorder)(nil)
	_ ports.AlertRecorder  = (*Recorder)(nil)
)

// Recorder agrupa los collectors del ledger sobre un registry propio.
type Recorder struct {
	registry         *prometheus.Registry
	movements        *prometheus.CounterVec
	movementFailures *prometheus.CounterVec
	movementLatency  *prometheus.HistogramVec
	lotsConsumed     prometheus.Counter
	activeAlerts     *prometheus.GaugeVec
}

// New registra los collectors (más los de Go y del proceso).
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		movements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stock_ledger",
			Name:      "movements_total",
			Help:      "Movimientos registrados por tipo",
		}, []string{"type"}),
		movementFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stock_ledger",
			Name:      "movement_failures_total",
			Help:      "Movimientos rechazados por tipo y causa",
		}, []string{"type", "reason"}),
		movementLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "stock_ledger",
			Name:      "movement_duration_seconds",
			Help:      "Duración de una operación del motor de movimientos",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		}, []string{"type"}),
		lotsConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "stock_ledger",
			Name:      "lots_consumed_total",
			Help:      "Lotes que pasaron a CONSUMED",
		}),
		activeAlerts: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "stock_ledger",
			Name:      "active_alerts",
			Help:      "Alertas activas por tipo y nivel (desde el arranque del proceso)",
		}, []string{"type", "level"}),
	}
	r.registry.MustRegister(
		r.movements, r.movementFailures, r.movementLatency, r.lotsConsumed, r.activeAlerts,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Registry devuelve el registry (tests).
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// Handler sirve /metrics.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

func (r *Recorder) MovementRecorded(movementType string, elapsed time.Duration) {
	r.movements.WithLabelValues(movementType).Inc()
	r.movementLatency.WithLabelValues(movementType).Observe(elapsed.Seconds())
}

func (r *Recorder) MovementFailed(movementType string, err error) {
	r.movementFailures.WithLabelValues(movementType, reason(err)).Inc()
}

func (r *Recorder) LotConsumed() { r.lotsConsumed.Inc() }

func (r *Recorder) AlertOpened(alertType, alertLevel string) {
	r.activeAlerts.WithLabelValues(alertType, alertLevel).Inc()
}

func (r *Recorder) AlertClosed(alertType, alertLevel string) {
	r.activeAlerts.WithLabelValues(alertType, alertLevel).Dec()
}

// reason etiqueta de baja cardinalidad para el error.
func reason(err error) string {
	switch {
	case errors.Is(err, domain.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, domain.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, domain.ErrInvalidAdjustment):
		return "invalid_adjustment"
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrLotNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrItemInactive):
		return "inactive"
	case errors.Is(err, domain.ErrLotBlocked), errors.Is(err, domain.ErrLotDepleted):
		return "lot_unavailable"
	case domain.IsRetryable(err):
		return "conflict"
	default:
		return "internal"
	}
}
