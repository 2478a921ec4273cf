package job_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/SaiWorkProfile/manortha-website/pkg/job"
)

func TestJobRunsOnEveryTick(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClock()

	var runs atomic.Int32

	ctx, cancel := context.WithCancel(context.Background())

	s := job.NewService(clock).
		RegisterJob("cleanup", time.Minute, func(context.Context) error {
			runs.Add(1)
			return nil
		}).
		TryRegisterJob(false, "disabled", time.Minute, func(context.Context) error {
			t.Error("disabled job ran")
			return nil
		}).
		TryRegisterJob(true, "no interval", 0, func(context.Context) error {
			t.Error("job without interval ran")
			return nil
		})

	s.Start(ctx)

	require.NoError(t, clock.BlockUntilContext(ctx, 1))

	require.Eventually(t, func() bool {
		clock.Advance(time.Minute)
		return runs.Load() >= 2
	}, 5*time.Second, time.Millisecond)

	cancel()
	s.Stop()
}

func TestJobSurvivesErrorsAndPanics(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClock()

	var runs atomic.Int32

	ctx, cancel := context.WithCancel(context.Background())

	s := job.NewService(clock).RegisterJob("flaky", time.Second, func(context.Context) error {
		if runs.Add(1)%2 == 0 {
			panic("boom")
		}

		return errors.New("temporary")
	})

	s.Start(ctx)

	require.NoError(t, clock.BlockUntilContext(ctx, 1))

	require.Eventually(t, func() bool {
		clock.Advance(time.Second)
		return runs.Load() >= 3
	}, 5*time.Second, time.Millisecond)

	cancel()
	s.Stop()
}
