package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 为 nil 时所有方法都是空操作。
type Metrics struct {
	registry *prometheus.Registry

	RemoteRequests *prometheus.CounterVec
	Retries        *prometheus.CounterVec
	AccountRuns    *prometheus.CounterVec
	Spins          prometheus.Counter
	DailyClaims    prometheus.Counter
	Restarts       prometheus.Counter
	Cooldowns      *prometheus.CounterVec
	SpinBalance    *prometheus.GaugeVec
}

func New(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		RemoteRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "remote_requests_total",
			Help:      "Remote API calls by operation and outcome",
		}, []string{"op", "outcome"}),
		Retries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retries_total",
			Help:      "Failed attempts that were retried, by operation",
		}, []string{"op"}),
		AccountRuns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "account_runs_total",
			Help:      "Account passes by outcome",
		}, []string{"outcome"}),
		Spins: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "spins_total",
			Help:      "Successful spins",
		}),
		DailyClaims: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "daily_claims_total",
			Help:      "Daily rewards claimed",
		}),
		Restarts: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "restarts_total",
			Help:      "Supervisor restarts after an escaped error",
		}),
		Cooldowns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cooldowns_total",
			Help:      "Long waits entered, by reason",
		}, []string{"reason"}),
		SpinBalance: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "spin_balance",
			Help:      "Last observed spin balance per user",
		}, []string{"user"}),
	}
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveRequest(op string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.RemoteRequests.WithLabelValues(op, outcome).Inc()
}

func (m *Metrics) ObserveRetry(op string) {
	if m == nil {
		return
	}
	m.Retries.WithLabelValues(op).Inc()
}

func (m *Metrics) ObserveRun(failed bool) {
	if m == nil {
		return
	}
	outcome := "ok"
	if failed {
		outcome = "error"
	}
	m.AccountRuns.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveSpin() {
	if m == nil {
		return
	}
	m.Spins.Inc()
}

func (m *Metrics) ObserveClaim() {
	if m == nil {
		return
	}
	m.DailyClaims.Inc()
}

func (m *Metrics) ObserveRestart() {
	if m == nil {
		return
	}
	m.Restarts.Inc()
}

func (m *Metrics) ObserveCooldown(reason string) {
	if m == nil {
		return
	}
	m.Cooldowns.WithLabelValues(reason).Inc()
}

func (m *Metrics) SetSpinBalance(user string, n int) {
	if m == nil || user == "" {
		return
	}
	m.SpinBalance.WithLabelValues(user).Set(float64(n))
}
