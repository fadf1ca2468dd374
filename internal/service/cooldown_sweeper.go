package service

import (
	"context"
	"sync"
	"time"

	"pugpool/internal/repository"
	"pugpool/pkg/logger"
)

// cooldownSweeper deletes expired cooldown rows on a timer. Correctness
// never depends on it: an expired cooldown already reads as absent
// everywhere. Sweeping only keeps the table from collecting dead rows.
type cooldownSweeper struct {
	cooldownRepo repository.CooldownRepository
	logger       *logger.Logger
	interval     time.Duration
	ticker       *time.Ticker
	stop         chan struct{}
	mu           sync.Mutex
	isRunning    bool
}

// NewCooldownSweeper creates a new cooldown sweeper
func NewCooldownSweeper(cooldownRepo repository.CooldownRepository, logger *logger.Logger, interval time.Duration) SweeperService {
	return &cooldownSweeper{
		cooldownRepo: cooldownRepo,
		logger:       logger,
		interval:     interval,
		stop:         make(chan struct{}),
	}
}

// Start begins periodic sweeps of expired cooldown rows
func (s *cooldownSweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	s.ticker = time.NewTicker(s.interval)
	go s.sweepRoutine(ctx)

	s.isRunning = true
	s.logger.WithField("interval", s.interval.String()).Info("Cooldown sweeper started")
	return nil
}

// Stop gracefully shuts the sweep loop down
func (s *cooldownSweeper) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return nil
	}

	if s.ticker != nil {
		s.ticker.Stop()
	}
	close(s.stop)

	s.isRunning = false
	s.logger.Info("Cooldown sweeper stopped")
	return nil
}

// sweepRoutine runs sweeps until stopped
func (s *cooldownSweeper) sweepRoutine(ctx context.Context) {
	for {
		select {
		case <-s.ticker.C:
			s.sweep(ctx)
		case <-s.stop:
			s.logger.Debug("Sweep routine stopped")
			return
		case <-ctx.Done():
			s.logger.Debug("Sweep routine cancelled")
			return
		}
	}
}

// sweep deletes every expired row once
func (s *cooldownSweeper) sweep(ctx context.Context) {
	deleted, err := s.cooldownRepo.DeleteExpired(ctx, time.Now())
	if err != nil {
		s.logger.WithError(err).Error("Failed to sweep expired cooldowns")
		return
	}
	if deleted > 0 {
		s.logger.WithField("deleted", deleted).Debug("Swept expired cooldowns")
	}
}
