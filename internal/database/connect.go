package database

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

const (
	connectAttempts = 5
	connectDelay    = 2 * time.Second
)

// withRetry calls fn up to attempts times, pausing delay between failures.
// It returns the last error, or ctx.Err() if ctx ends while waiting.
func withRetry(ctx context.Context, log zerolog.Logger, what string, attempts int, delay time.Duration, fn func(context.Context) error) error {
	var err error
	for i := 1; i <= attempts; i++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if i == attempts {
			break
		}
		log.Warn().Err(err).Str("target", what).Int("attempt", i).Dur("retry_in", delay).Msg("Connection failed, retrying")

		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
	return err
}
