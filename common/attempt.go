package common

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
)

// Attempt is one entry in an ordered fallback sequence. Each attempt bounds
// its own network call; a timed-out attempt must not prevent the next one.
type Attempt[T any] func(ctx context.Context) (T, error)

// ErrAllAttemptsFailed is returned when every attempt in a sequence failed.
var ErrAllAttemptsFailed = errors.New("all attempts failed")

// FirstSuccess runs attempts in order and returns the first result that
// arrives without error. The sequence stops early if the caller's context
// is done. The last attempt error is joined in so callers can still
// classify it.
func FirstSuccess[T any](ctx context.Context, name string, attempts []Attempt[T]) (T, error) {
	var zero T
	var lastErr error

	for i, attempt := range attempts {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		result, err := attempt(ctx)
		if err == nil {
			log.Debug().Str("sequence", name).Int("attempt", i+1).Msg("attempt succeeded")
			return result, nil
		}

		log.Debug().Str("sequence", name).Int("attempt", i+1).Err(err).Msg("attempt failed, trying next")
		lastErr = err
	}

	if lastErr == nil {
		return zero, ErrAllAttemptsFailed
	}
	return zero, errors.Join(ErrAllAttemptsFailed, lastErr)
}
