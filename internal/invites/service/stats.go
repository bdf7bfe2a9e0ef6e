package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/invitetracker/internal/invites/metrics"
	"github.com/aussiebroadwan/invitetracker/internal/invites/store"
)

// StatsService periodically reads ledger statistics and publishes them as
// gauges.
type StatsService struct {
	Store    store.Store
	Logger   *slog.Logger
	Interval time.Duration

	// Internal channels for lifecycle management
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewStatsService creates a stats worker with the given interval.
// If interval is 0 or negative, defaults to 1 minute.
func NewStatsService(store store.Store, logger *slog.Logger, interval time.Duration) *StatsService {
	if interval <= 0 {
		interval = time.Minute
	}

	return &StatsService{
		Store:    store,
		Logger:   logger,
		Interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background worker. Call Stop to shut it down.
func (s *StatsService) Start() {
	go s.run()
	s.Logger.Info("stats service started", "interval", s.Interval)
}

// Stop shuts down the background worker and waits for an in-progress
// collection to finish.
func (s *StatsService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("stats service stopped")
}

func (s *StatsService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.collect()

	for {
		select {
		case <-ticker.C:
			s.collect()
		case <-s.stopCh:
			return
		}
	}
}

func (s *StatsService) collect() {
	ctx, cancel := context.WithTimeout(context.Background(), s.Interval)
	defer cancel()

	stats, err := s.Store.Users().Stats(ctx)
	if err != nil {
		s.Logger.Error("failed to read ledger stats", "error", err)
		return
	}

	metrics.SetLedgerStats(stats)
	s.Logger.Debug("ledger stats collected",
		"users", stats.Users,
		"credits", stats.TotalCredits,
		"key_holders", stats.KeyHolders,
	)
}
