package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type countingSweeper struct {
	calls atomic.Int32
}

func (s *countingSweeper) SweepExpired(context.Context, time.Time) ([]string, error) {
	s.calls.Add(1)
	return nil, nil
}

func TestSweepSchedulerRunsOnInterval(t *testing.T) {
	sweeper := &countingSweeper{}
	s := NewSweepScheduler(SweepSchedulerParams{
		Sweeper:  sweeper,
		Interval: 10 * time.Millisecond,
		Logger:   zerolog.Nop(),
	})

	s.Start()

	require.Eventually(t, func() bool {
		return sweeper.calls.Load() >= 2
	}, time.Second, 5*time.Millisecond)

	s.Stop()
	after := sweeper.calls.Load()
	time.Sleep(30 * time.Millisecond)
	require.Equal(t, after, sweeper.calls.Load(), "no sweeps after stop")
}
