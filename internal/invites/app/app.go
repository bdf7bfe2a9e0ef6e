package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aussiebroadwan/invitetracker/internal/invites/bot"
	httpapi "github.com/aussiebroadwan/invitetracker/internal/invites/http"
	"github.com/aussiebroadwan/invitetracker/internal/invites/service"
	"github.com/aussiebroadwan/invitetracker/internal/invites/store"
	"github.com/aussiebroadwan/invitetracker/internal/invites/store/drivers/memory"
	"github.com/aussiebroadwan/invitetracker/internal/invites/store/drivers/mongo"
	"github.com/aussiebroadwan/invitetracker/internal/invites/store/drivers/postgres"
	"github.com/aussiebroadwan/invitetracker/internal/invites/store/drivers/sqlite"
	"github.com/aussiebroadwan/invitetracker/internal/invites/telegram"
	"github.com/aussiebroadwan/invitetracker/pkg/httpx"
	"github.com/aussiebroadwan/invitetracker/pkg/slogx"
	"golang.org/x/sync/errgroup"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"
)

var ErrPollingStopped = errors.New("telegram polling stopped unexpectedly")

// Application encapsulates the invite bot with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db  store.Store
	api telegram.API

	// Services
	statusService     *service.StatusService
	keyIssuer         *service.KeyIssuer
	inviteRecorder    *service.InviteRecorder
	membershipHandler *service.MembershipHandler
	statsService      *service.StatsService

	// Bot
	dispatcher *bot.Dispatcher
	poller     *telegram.Poller

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application, connecting to the ledger store and the
// Telegram Bot API.
func New(cfg Config) (*Application, error) {
	logger := slogx.New(slogx.Config{
		Service: "invite-bot",
		Version: BuildVersion,
		Env:     cfg.Env,
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
	})

	api, err := telegram.NewAPI(cfg.BotToken, logger)
	if err != nil {
		return nil, err
	}

	return newApplication(cfg, logger, api)
}

func newApplication(cfg Config, logger *slog.Logger, api telegram.API) (*Application, error) {
	app := &Application{
		cfg:    cfg,
		logger: logger,
		api:    api,
	}

	if err := app.initStore(context.Background()); err != nil {
		return nil, err
	}

	app.initServices()
	app.initBot()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested or a
// component fails.
func (app *Application) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return app.run(ctx)
}

func (app *Application) run(ctx context.Context) error {
	app.statsService.Start()

	app.logger.Info("invite bot starting",
		"port", app.cfg.Port,
		"version", BuildVersion,
		"ledger_driver", app.cfg.LedgerDriver,
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := app.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		err := app.poller.Run(gctx)
		if err == nil && gctx.Err() == nil {
			err = ErrPollingStopped
		}
		return err
	})

	g.Go(func() error {
		<-gctx.Done()
		app.logger.Info("shutdown requested")
		app.shutdownHTTP()
		return nil
	})

	err := g.Wait()

	// Polling has drained by now, so nothing else touches the store.
	app.statsService.Stop()
	if cerr := app.db.Close(); cerr != nil {
		app.logger.Error("error closing ledger store", "error", cerr)
		if err == nil {
			err = cerr
		}
	}

	app.logger.Info("invite bot stopped")
	return err
}

func (app *Application) shutdownHTTP() {
	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}
}

// initStore opens the configured ledger driver and applies migrations.
func (app *Application) initStore(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	var (
		db  store.Store
		err error
	)
	switch app.cfg.LedgerDriver {
	case DriverSQLite:
		dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", app.cfg.DatabaseFile)
		db, err = sqlite.NewStore(dsn)
	case DriverPostgres:
		db, err = postgres.NewStore(ctx, app.cfg.DatabaseURL)
	case DriverMongo:
		db, err = mongo.NewStore(ctx, app.cfg.MongoURI, app.cfg.MongoDatabase)
	case DriverMemory:
		app.logger.Warn("using in-memory ledger; invites are lost on restart")
		db = memory.New()
	default:
		err = fmt.Errorf("%w: unknown ledger driver %q", ErrInvalidConfig, app.cfg.LedgerDriver)
	}
	if err != nil {
		return fmt.Errorf("failed to initialize ledger store: %w", err)
	}

	if err := db.ApplyMigrations(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply ledger migrations: %w", err)
	}

	app.db = db
	app.logger.Info("ledger store ready", "driver", app.cfg.LedgerDriver)
	return nil
}

// initServices initializes the invite accounting services.
func (app *Application) initServices() {
	policy := app.cfg.Policy()

	app.statusService = &service.StatusService{Store: app.db, Policy: policy}
	app.keyIssuer = &service.KeyIssuer{Store: app.db, Policy: policy}
	app.inviteRecorder = &service.InviteRecorder{Store: app.db}
	app.membershipHandler = service.NewMembershipHandler(app.inviteRecorder, app.cfg.DedupCacheSize)

	app.statsService = service.NewStatsService(
		app.db,
		app.logger,
		app.cfg.StatsInterval,
	)
}

// initBot wires the dispatcher to the Telegram transport.
func (app *Application) initBot() {
	app.dispatcher = &bot.Dispatcher{
		Status:        app.statusService,
		Keys:          app.keyIssuer,
		Members:       app.membershipHandler,
		Transport:     &telegram.Transport{API: app.api},
		WithdrawalURL: app.cfg.WithdrawalURL,
	}

	if app.cfg.CallbackRatePerMinute > 0 {
		app.dispatcher.CallbackLimiter = httpx.NewKeyedLimiter(httpx.RateLimitConfig{
			RequestsPerWindow: app.cfg.CallbackRatePerMinute,
			Window:            time.Minute,
			Burst:             app.cfg.CallbackRatePerMinute,
		})
	}

	app.poller = &telegram.Poller{
		API:         app.api,
		Handler:     app.dispatcher,
		Logger:      app.logger,
		DropPending: true,
	}
}

// initHTTP initializes the HTTP router and server.
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(BuildVersion, app.db, app.logger)
	router.ApplyRoutes()
	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
