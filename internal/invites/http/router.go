package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/invitetracker/internal/invites/metrics"
	"github.com/aussiebroadwan/invitetracker/internal/invites/store"
	"github.com/aussiebroadwan/invitetracker/pkg/httpx"
	"github.com/aussiebroadwan/invitetracker/pkg/slogx"

	_ "github.com/aussiebroadwan/invitetracker/api/invitebot" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router serves the operational endpoints of the bot: probes and metrics.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	store        store.Store
}

func NewRouter(buildVersion string, st store.Store, logger *slog.Logger) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
		metrics.InstrumentHandler,
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerSystem()

	r.Mux.Handle("GET /swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Invite Tracker Bot
//	@version		0.1.0
//	@description	Operational endpoints of the invite reward bot: liveness, readiness and Prometheus metrics.
//	@description	The bot itself talks to Telegram over long polling and exposes no public API.
//
//	@contact.name	AussieBroadWAN Team
//	@contact.url	https://github.com/aussiebroadwan/invitetracker
//
//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT
//
//	@host			localhost:8080
//	@BasePath		/
//
//	@schemes		http https
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerSystem() {
	// Probes get lenient limits since monitoring systems poll frequently.
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /metrics",
		httpx.Chain(MetricsHandler(),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)

	// Platform health checks that only know about "/".
	r.Mux.Handle("GET /{$}",
		httpx.Chain(IndexHandler(),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)
}
