package store

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

// WaitReady pings the database until it answers or maxElapsed runs out.
// Used only at startup; the request path never retries.
func WaitReady(ctx context.Context, acq Acquirer, maxElapsed time.Duration, log zerolog.Logger) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = maxElapsed

	return backoff.RetryNotify(func() error {
		attemptCtx, cancel := context.WithTimeout(ctx, maxElapsed)
		defer cancel()
		return Ping(attemptCtx, acq)
	}, backoff.WithContext(b, ctx), func(err error, next time.Duration) {
		log.Warn().Err(err).Dur("retry_in", next).Msg("database not ready")
	})
}

func Ping(ctx context.Context, acq Acquirer) error {
	s, release, err := acq.Acquire(ctx)
	if err != nil {
		return err
	}
	defer release()
	return s.PingContext(ctx)
}
