package notification

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/groupbuy-service/internal/bg"
)

const deliveryTimeout = 10 * time.Second

// Dispatcher delivers notifications best-effort: delivery runs on the runner,
// detached from the caller's cancellation, and failures are only logged.
type Dispatcher struct {
	sink   Sink
	runner bg.Runner
}

func NewDispatcher(sink Sink, runner bg.Runner) *Dispatcher {
	return &Dispatcher{sink: sink, runner: runner}
}

func (d *Dispatcher) Send(ctx context.Context, n Notification) {
	detached := context.WithoutCancel(ctx)
	d.runner.Do(func() {
		ctx, cancel := context.WithTimeout(detached, deliveryTimeout)
		defer cancel()

		if err := d.sink.Notify(ctx, n); err != nil {
			log.Error().Err(err).
				Stringer("user_id", n.UserID).
				Str("category", string(n.Category)).
				Str("title", n.Title).
				Msg("notification: delivery failed")
		}
	})
}
