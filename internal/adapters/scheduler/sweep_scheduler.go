package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ExpirySweeper finds active items past their end time and settles them.
type ExpirySweeper interface {
	SweepExpired(ctx context.Context, now time.Time) ([]string, error)
}

// SweepScheduler triggers the expiry sweep on a fixed interval. The sweep
// itself is idempotent, so overlapping triggers (a timer tick racing an
// app-foreground or cron invocation elsewhere) are harmless.
type SweepScheduler struct {
	sweeper  ExpirySweeper
	interval time.Duration
	logger   zerolog.Logger
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

type SweepSchedulerParams struct {
	Sweeper  ExpirySweeper
	Interval time.Duration
	Logger   zerolog.Logger
}

func NewSweepScheduler(params SweepSchedulerParams) *SweepScheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &SweepScheduler{
		sweeper:  params.Sweeper,
		interval: params.Interval,
		logger:   params.Logger.With().Str("component", "sweep_scheduler").Logger(),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start begins the scheduler loop
func (s *SweepScheduler) Start() {
	s.logger.Info().Dur("interval", s.interval).Msg("Starting expiry sweep scheduler")

	s.wg.Add(1)
	go s.schedulerLoop()
}

// Stop gracefully stops the scheduler
func (s *SweepScheduler) Stop() {
	s.logger.Info().Msg("Stopping expiry sweep scheduler")
	s.cancel()
	s.wg.Wait()
}

// schedulerLoop runs the main scheduling loop
func (s *SweepScheduler) schedulerLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.runSweep()
		case <-s.ctx.Done():
			s.logger.Info().Msg("Scheduler loop stopped")
			return
		}
	}
}

func (s *SweepScheduler) runSweep() {
	now := time.Now().UTC()

	transitioned, err := s.sweeper.SweepExpired(s.ctx, now)
	if err != nil {
		s.logger.Error().Err(err).Msg("Expiry sweep reported failures")
	}

	if len(transitioned) > 0 {
		s.logger.Info().
			Int("count", len(transitioned)).
			Strs("item_ids", transitioned).
			Msg("Expired items settled")
	}
}
