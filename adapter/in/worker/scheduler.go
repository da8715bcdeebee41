// Package worker runs the background sync scheduler.
package worker

import (
	"context"
	"time"

	"billsync/core/domain"
	"billsync/core/service/sync"

	"github.com/rs/zerolog"
)

const (
	// Delay before the first scheduled run, letting connections settle.
	startupDelay = 30 * time.Second

	runTimeout = 5 * time.Minute
)

// SyncScheduler triggers incremental payment syncs on a fixed interval.
// Runs never overlap: the next tick waits for the previous run to finish.
type SyncScheduler struct {
	engine   *sync.Engine
	interval time.Duration
	log      zerolog.Logger
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewSyncScheduler creates a scheduler that runs every interval.
func NewSyncScheduler(engine *sync.Engine, interval time.Duration, log zerolog.Logger) *SyncScheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &SyncScheduler{
		engine:   engine,
		interval: interval,
		log:      log.With().Str("component", "sync-scheduler").Logger(),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

// Start launches the scheduler loop.
func (s *SyncScheduler) Start() {
	s.log.Info().Dur("interval", s.interval).Msg("starting")
	go s.run()
}

// Stop cancels the loop and waits for the in-flight run to finish.
func (s *SyncScheduler) Stop() {
	s.log.Info().Msg("stopping")
	s.cancel()
	<-s.done
}

func (s *SyncScheduler) run() {
	defer close(s.done)

	select {
	case <-s.ctx.Done():
		return
	case <-time.After(startupDelay):
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.runOnce()
	for {
		select {
		case <-s.ctx.Done():
			s.log.Info().Msg("stopped")
			return
		case <-ticker.C:
			s.runOnce()
		}
	}
}

func (s *SyncScheduler) runOnce() {
	ctx, cancel := context.WithTimeout(s.ctx, runTimeout)
	defer cancel()

	start := time.Now()
	report, err := s.engine.SyncPayments(ctx, domain.SyncOptions{})
	if err != nil {
		s.log.Error().Err(err).Msg("scheduled sync failed")
		return
	}

	s.log.Info().
		Int("total_found", report.TotalFound).
		Int("inserted", report.Inserted).
		Int("skipped", report.Skipped).
		Int("fetch_failed", report.FetchFailed).
		Int("parse_failed", report.ParseFailed).
		Int("store_failed", report.StoreFailed).
		Str("watermark", report.Watermark).
		Dur("duration", time.Since(start)).
		Msg("scheduled sync completed")
}
