package metrics

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns a private registry so tests can build as many as they like.
// A nil *Collector is valid and records nothing.
type Collector struct {
	registry *prometheus.Registry

	ledgerOps       *prometheus.CounterVec
	ledgerDuration  prometheus.Histogram
	wagers          *prometheus.CounterVec
	wagered         *prometheus.CounterVec
	paidOut         *prometheus.CounterVec
	cooldownChecks  *prometheus.CounterVec
	activeSessions  *prometheus.GaugeVec
	sweepItems      *prometheus.CounterVec
	commandFailures *prometheus.CounterVec

	logger *slog.Logger
}

func NewCollector(logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.Default()
	}

	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Collector{
		registry: registry,
		ledgerOps: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "econbot_ledger_operations_total",
			Help: "Ledger mutations by transaction kind and result",
		}, []string{"kind", "result"}),
		ledgerDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "econbot_ledger_operation_duration_seconds",
			Help:    "Time spent inside a ledger transaction",
			Buckets: prometheus.DefBuckets,
		}),
		wagers: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "econbot_wagers_total",
			Help: "Resolved wagers by game and outcome",
		}, []string{"game", "outcome"}),
		wagered: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "econbot_wagered_coins_total",
			Help: "Coins staked per game",
		}, []string{"game"}),
		paidOut: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "econbot_paid_out_coins_total",
			Help: "Coins returned to players per game",
		}, []string{"game"}),
		cooldownChecks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "econbot_cooldown_checks_total",
			Help: "Cooldown gate decisions",
		}, []string{"action", "allowed"}),
		activeSessions: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "econbot_active_sessions",
			Help: "Turn-based sessions currently held in memory",
		}, []string{"kind"}),
		sweepItems: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "econbot_maintenance_items_total",
			Help: "Rows handled by the maintenance worker per task",
		}, []string{"task"}),
		commandFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "econbot_command_failures_total",
			Help: "Command failures by error class",
		}, []string{"class"}),
		logger: logger,
	}
}

// ObserveLedger records one ledger transaction
func (m *Collector) ObserveLedger(kind string, took time.Duration, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.ledgerOps.WithLabelValues(kind, result).Inc()
	m.ledgerDuration.Observe(took.Seconds())
}

// ObserveWager records a settled wager
func (m *Collector) ObserveWager(game string, bet, payout int64) {
	if m == nil {
		return
	}
	outcome := "loss"
	switch {
	case payout > bet:
		outcome = "win"
	case payout == bet:
		outcome = "push"
	case payout > 0:
		outcome = "partial"
	}
	m.wagers.WithLabelValues(game, outcome).Inc()
	m.wagered.WithLabelValues(game).Add(float64(bet))
	m.paidOut.WithLabelValues(game).Add(float64(payout))
}

func (m *Collector) ObserveCooldown(action string, allowed bool) {
	if m == nil {
		return
	}
	m.cooldownChecks.WithLabelValues(action, strconv.FormatBool(allowed)).Inc()
}

// SetActiveSessions publishes the in-memory session count for kind
func (m *Collector) SetActiveSessions(kind string, n int) {
	if m == nil {
		return
	}
	m.activeSessions.WithLabelValues(kind).Set(float64(n))
}

func (m *Collector) AddSweep(task string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.sweepItems.WithLabelValues(task).Add(float64(n))
}

func (m *Collector) CommandFailed(class string) {
	if m == nil {
		return
	}
	m.commandFailures.WithLabelValues(class).Inc()
}

// Registry exposes the underlying registry, mostly for tests
func (m *Collector) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format
func (m *Collector) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{ErrorLog: slog.NewLogLogger(m.logger.Handler(), slog.LevelError)})
}
