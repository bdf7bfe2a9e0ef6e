// Package metrics holds the Prometheus collectors for the invite bot.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/aussiebroadwan/invitetracker/internal/invites/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "invitebot"

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	inviteOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "invites",
			Name:      "events_total",
			Help:      "Invite events by outcome (credited, skipped_self_invite, skipped_already_credited, cached, failed).",
		},
		[]string{"outcome"},
	)

	keyRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "keys",
			Name:      "requests_total",
			Help:      "Reward key requests by result.",
		},
		[]string{"status"},
	)

	dispatches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bot",
			Name:      "dispatch_total",
			Help:      "Bot updates handled, by kind and result.",
		},
		[]string{"kind", "result"},
	)

	dispatchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "bot",
			Name:      "dispatch_duration_seconds",
			Help:      "Time spent handling a bot update.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"kind"},
	)

	ledgerUsers = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "users",
		Help:      "Users with a ledger record.",
	})

	ledgerCredits = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "credits",
		Help:      "Invite credits across all users.",
	})

	ledgerKeyHolders = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "key_holders",
		Help:      "Users that have been issued a withdrawal key.",
	})

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)
)

func init() {
	Registry.MustRegister(
		inviteOutcomes,
		keyRequests,
		dispatches,
		dispatchDuration,
		ledgerUsers,
		ledgerCredits,
		ledgerKeyHolders,
		httpRequests,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

func RecordInviteOutcome(o domain.Outcome) {
	inviteOutcomes.WithLabelValues(o.String()).Inc()
}

// RecordInviteCached counts a join skipped by the in-process duplicate filter.
func RecordInviteCached() {
	inviteOutcomes.WithLabelValues("cached").Inc()
}

func RecordInviteFailure() {
	inviteOutcomes.WithLabelValues("failed").Inc()
}

func RecordKeyRequest(s domain.KeyStatus) {
	keyRequests.WithLabelValues(s.String()).Inc()
}

// ObserveDispatch records one handled bot update.
func ObserveDispatch(kind string, err error, duration time.Duration) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	dispatches.WithLabelValues(kind, result).Inc()
	dispatchDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// SetLedgerStats publishes a ledger snapshot.
func SetLedgerStats(s domain.LedgerStats) {
	ledgerUsers.Set(float64(s.Users))
	ledgerCredits.Set(float64(s.TotalCredits))
	ledgerKeyHolders.Set(float64(s.KeyHolders))
}

// UnmatchedRoute labels requests no route pattern matched.
const UnmatchedRoute = "unmatched"

// InstrumentHandler counts HTTP requests by method, route pattern and status.
// It must wrap the ServeMux directly so the matched pattern is visible after
// the mux returns.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		httpRequests.WithLabelValues(r.Method, routeLabel(r), strconv.Itoa(rec.status)).Inc()
	})
}

func routeLabel(r *http.Request) string {
	if r.Pattern == "" {
		return UnmatchedRoute
	}
	return r.Pattern
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
