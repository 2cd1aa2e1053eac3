package synapse

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
)

// PollConfig bounds a poll loop: at most MaxTries calls, sleeping Interval
// before each one. Interval <= 0 polls as fast as possible (test mode).
type PollConfig struct {
	Interval time.Duration
	MaxTries int
}

// pollAsync drives an async remote job to completion. The sleep precedes
// the call so a just-submitted job isn't burned on a first try that is
// near-certain to report not-ready. fn returning ErrResultNotReady spins
// the loop; any other error propagates immediately; running out of tries
// yields an AsyncTimeoutError.
func pollAsync[T any](ctx context.Context, cfg PollConfig, op string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	for tries := 0; tries < cfg.MaxTries; tries++ {
		if cfg.Interval > 0 {
			timer := time.NewTimer(cfg.Interval)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				log.Warn().Str("op", op).Msg("Interrupted while sleeping")
				return zero, ctx.Err()
			}
		}

		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		if errors.Is(err, ErrResultNotReady) {
			// Result not ready. Spin around one more time.
			continue
		}
		return zero, err
	}
	return zero, &AsyncTimeoutError{Op: op, Tries: cfg.MaxTries}
}
