package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastOpts() []Option {
	return []Option{WithInitialDelay(time.Millisecond), WithMaxDelay(time.Millisecond)}
}

func TestDo_SucceedsFirstAttempt(t *testing.T) {
	t.Parallel()

	calls := 0
	err := Do(context.Background(), func() error {
		calls++
		return nil
	}, fastOpts()...)

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_RetriesTransientFailures(t *testing.T) {
	t.Parallel()

	calls := 0
	err := Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("connection reset")
		}
		return nil
	}, fastOpts()...)

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_GivesUpAfterMaxRetries(t *testing.T) {
	t.Parallel()

	calls := 0
	opts := append(fastOpts(), WithMaxRetries(2))
	err := Do(context.Background(), func() error {
		calls++
		return errors.New("connection reset")
	}, opts...)

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Contains(t, err.Error(), "giving up after 3 attempts")
}

func TestDo_PermanentErrorStopsImmediately(t *testing.T) {
	t.Parallel()

	calls := 0
	err := Do(context.Background(), func() error {
		calls++
		return Permanent(fmt.Errorf("unexpected status 404 Not Found"))
	}, fastOpts()...)

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.True(t, IsPermanent(err))
}

func TestDo_ContextCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	err := Do(ctx, func() error {
		calls++
		cancel()
		return errors.New("connection reset")
	}, WithInitialDelay(time.Minute))

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestPermanent_NilPassthrough(t *testing.T) {
	t.Parallel()

	assert.NoError(t, Permanent(nil))
	assert.False(t, IsPermanent(errors.New("plain")))
}
