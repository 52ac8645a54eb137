package stats

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
)

// Scheduler refreshes the snapshots on a fixed interval until its context ends.
type Scheduler struct {
	agg      *Aggregator
	interval time.Duration
	log      *log.Logger
}

func NewScheduler(agg *Aggregator, interval time.Duration, logger *log.Logger) *Scheduler {
	return &Scheduler{agg: agg, interval: interval, log: logger}
}

// Run refreshes once right away, then every interval. A non-positive
// interval disables it.
func (s *Scheduler) Run(ctx context.Context) {
	if s.interval <= 0 {
		return
	}
	s.tick(ctx)

	t := time.NewTicker(s.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	start := time.Now()
	if err := s.agg.RefreshAll(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		s.log.Error("stats refresh failed", "err", err)
		return
	}
	s.log.Info("stats refreshed", "took", time.Since(start).Round(time.Millisecond))
}
