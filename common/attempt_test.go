package common

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFirstSuccessReturnsEarliestWinner(t *testing.T) {
	calls := 0
	attempts := []Attempt[string]{
		func(ctx context.Context) (string, error) {
			calls++
			return "", errors.New("first down")
		},
		func(ctx context.Context) (string, error) {
			calls++
			return "second", nil
		},
		func(ctx context.Context) (string, error) {
			calls++
			return "third", nil
		},
	}

	result, err := FirstSuccess(context.Background(), "test", attempts)
	require.NoError(t, err)
	assert.Equal(t, "second", result)
	// The third attempt must never run once one succeeds.
	assert.Equal(t, 2, calls)
}

func TestFirstSuccessAllFail(t *testing.T) {
	lastErr := errors.New("last failure")
	attempts := []Attempt[int]{
		func(ctx context.Context) (int, error) { return 0, errors.New("first failure") },
		func(ctx context.Context) (int, error) { return 0, lastErr },
	}

	_, err := FirstSuccess(context.Background(), "test", attempts)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAllAttemptsFailed)
	assert.ErrorIs(t, err, lastErr)
}

func TestFirstSuccessEmptySequence(t *testing.T) {
	_, err := FirstSuccess[int](context.Background(), "test", nil)
	assert.ErrorIs(t, err, ErrAllAttemptsFailed)
}

func TestFirstSuccessStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	attempts := []Attempt[string]{
		func(ctx context.Context) (string, error) {
			calls++
			return "never", nil
		},
	}

	_, err := FirstSuccess(ctx, "test", attempts)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, calls)
}
