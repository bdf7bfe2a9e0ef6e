package http

import (
	"net/http"
	"time"

	"github.com/aussiebroadwan/invitetracker/internal/invites/metrics"
	"github.com/aussiebroadwan/invitetracker/internal/invites/store"
	"github.com/aussiebroadwan/invitetracker/pkg/httpx"
)

type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime"`
	Version string        `json:"version"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

type HealthChecks struct {
	Ledger string `json:"ledger"`
}

// LivezHandler godoc
//
//	@Summary		Liveness probe
//	@Description	Always answers 200 while the process is up. Does not touch the ledger.
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	HealthResponse	"status, uptime, version"
//	@Router			/livez [get].
func LivezHandler(startTime time.Time, version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, HealthResponse{
			Status:  "ok",
			Uptime:  time.Since(startTime).String(),
			Version: version,
		})
	}
}

// ReadyzHandler godoc
//
//	@Summary		Readiness probe
//	@Description	Pings the ledger store and reports 503 while it is unreachable
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	HealthResponse	"status, uptime, version, checks"
//	@Failure		503	{object}	HealthResponse	"ledger unreachable"
//	@Router			/readyz [get].
func ReadyzHandler(startTime time.Time, version string, st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := &HealthChecks{Ledger: "ok"}
		overallStatus := "ok"
		statusCode := http.StatusOK

		if err := st.Ping(r.Context()); err != nil {
			checks.Ledger = "error: " + err.Error()
			overallStatus = "degraded"
			statusCode = http.StatusServiceUnavailable
		}

		httpx.WriteJSON(w, statusCode, HealthResponse{
			Status:  overallStatus,
			Uptime:  time.Since(startTime).String(),
			Version: version,
			Checks:  checks,
		})
	}
}

// IndexHandler godoc
//
//	@Summary		Keep-alive
//	@Description	Plain text acknowledgement for platforms that only probe "/"
//	@Tags			Health
//	@Produce		plain
//	@Success		200	{string}	string	"Bot is running!"
//	@Router			/ [get].
func IndexHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.NoCache(w)
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("Bot is running!"))
	}
}

// MetricsHandler godoc
//
//	@Summary		Prometheus metrics
//	@Description	Invite outcomes, key requests, bot dispatches, ledger gauges and HTTP counters
//	@Tags			Metrics
//	@Produce		plain
//	@Success		200	{string}	string	"Prometheus text exposition"
//	@Router			/metrics [get].
func MetricsHandler() http.Handler {
	return metrics.Handler()
}
