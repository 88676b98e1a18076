package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog/log"
)

// OverdueFlagger marks orders whose payment round is past due.
type OverdueFlagger interface {
	FlagOverdue(ctx context.Context) (int, error)
}

type Scheduler struct {
	s gocron.Scheduler
}

// New registers the overdue sweep to run every interval. A sweep that is still
// running when the next one is due delays it instead of overlapping.
func New(flagger OverdueFlagger, interval, timeout time.Duration) (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("scheduler: failed to create: %w", err)
	}

	_, err = s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(sweep, flagger, timeout),
		gocron.WithName("overdue-sweep"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return nil, fmt.Errorf("scheduler: failed to register overdue sweep: %w", err)
	}
	return &Scheduler{s: s}, nil
}

func sweep(flagger OverdueFlagger, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	n, err := flagger.FlagOverdue(ctx)
	if err != nil {
		log.Error().Err(err).Msg("scheduler: overdue sweep failed")
		return
	}
	log.Info().Int("flagged", n).Msg("scheduler: overdue sweep finished")
}

func (s *Scheduler) Start() {
	s.s.Start()
}

func (s *Scheduler) Shutdown() error {
	return s.s.Shutdown()
}
