package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCronScheduler_RunsImmediately(t *testing.T) {
	t.Parallel()

	fired := make(chan time.Time, 1)
	s := NewCronScheduler("0 */6 * * *", nil, nil)

	require.NoError(t, s.Start(context.Background(), func(trigger time.Time) {
		select {
		case fired <- trigger:
		default:
		}
	}))
	t.Cleanup(func() { _ = s.Stop(context.Background()) })

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("job was not run on start")
	}
}

func TestCronScheduler_StopWaitsForInitialRun(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	var finished atomic.Bool
	s := NewCronScheduler("0 */6 * * *", time.UTC, nil)

	require.NoError(t, s.Start(context.Background(), func(time.Time) {
		close(started)
		time.Sleep(300 * time.Millisecond)
		finished.Store(true)
	}))
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, s.Stop(ctx))
	assert.True(t, finished.Load(), "stop returned before the initial run finished")
}

func TestCronScheduler_StopHonoursDeadline(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	started := make(chan struct{})
	s := NewCronScheduler("0 */6 * * *", time.UTC, nil)

	require.NoError(t, s.Start(context.Background(), func(time.Time) {
		close(started)
		<-release
	}))
	t.Cleanup(func() { close(release) })
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, s.Stop(ctx), context.DeadlineExceeded)
}

func TestCronScheduler_InvalidSpec(t *testing.T) {
	t.Parallel()

	s := NewCronScheduler("every day", time.UTC, nil)
	err := s.Start(context.Background(), func(time.Time) {})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "every day")
}

func TestCronScheduler_StopWithoutStart(t *testing.T) {
	t.Parallel()

	s := NewCronScheduler("@hourly", time.UTC, nil)
	assert.NoError(t, s.Stop(context.Background()))
	assert.NoError(t, s.Start(context.Background(), nil))
}
