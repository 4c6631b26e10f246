package executor

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecutor_Schedule(t *testing.T) {
	e := newTestExecutor(t, Config{PoolSize: 1})

	h, err := e.Schedule(30*time.Millisecond, value("wake up"))
	require.NoError(t, err)
	assert.Equal(t, Pending, h.State())

	v, err := h.GetWithTimeout(time.Second)
	require.NoError(t, err)
	assert.Equal(t, "wake up", v)
	assert.GreaterOrEqual(t, h.StartedAt().Sub(h.SubmittedAt()), 30*time.Millisecond)
}

func TestExecutor_ScheduleZeroDelaySubmitsImmediately(t *testing.T) {
	e := newTestExecutor(t, Config{PoolSize: 1})

	h, err := e.Schedule(0, value(5))
	require.NoError(t, err)
	v, err := h.GetWithTimeout(time.Second)
	require.NoError(t, err)
	assert.Equal(t, 5, v)
}

func TestExecutor_ScheduleCancel(t *testing.T) {
	e := newTestExecutor(t, Config{PoolSize: 1})

	var ran atomic.Bool
	h, err := e.Schedule(20*time.Millisecond, func(context.Context) (any, error) {
		ran.Store(true)
		return nil, nil
	})
	require.NoError(t, err)

	assert.True(t, h.Cancel())
	time.Sleep(50 * time.Millisecond)

	assert.False(t, ran.Load())
	_, err = h.Get(context.Background())
	assert.ErrorIs(t, err, ErrCancelled)

	st := e.Stats()
	assert.Equal(t, int64(1), st.Submitted)
	assert.Equal(t, int64(1), st.Cancelled)
	assert.LessOrEqual(t, st.Finished(), st.Submitted)
}

func TestExecutor_ShutdownCancelsDelayedTasks(t *testing.T) {
	e := newTestExecutor(t, Config{PoolSize: 1})

	h, err := e.Schedule(time.Hour, value(1))
	require.NoError(t, err)

	e.Shutdown()
	assert.Equal(t, Cancelled, h.State())
	assert.True(t, e.AwaitTermination(time.Second))
	assert.Equal(t, e.Stats().Submitted, e.Stats().Finished())

	_, err = e.Schedule(time.Millisecond, value(2))
	assert.ErrorIs(t, err, ErrShutdown)
}

func TestExecutor_ScheduleAtFixedRate(t *testing.T) {
	e := newTestExecutor(t, Config{PoolSize: 2})

	var seen []int
	p, err := e.ScheduleAtFixedRate(5*time.Millisecond, 5*time.Millisecond, func(_ context.Context, run int) bool {
		seen = append(seen, run)
		return run < 3
	})
	require.NoError(t, err)

	select {
	case <-p.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("periodic task did not stop")
	}
	assert.Equal(t, 3, p.Runs())
	assert.Equal(t, []int{1, 2, 3}, seen)
	assert.NoError(t, p.Err())
}

func TestExecutor_ScheduleAtFixedRateStop(t *testing.T) {
	e := newTestExecutor(t, Config{PoolSize: 1})

	var runs atomic.Int32
	p, err := e.ScheduleAtFixedRate(0, 5*time.Millisecond, func(context.Context, int) bool {
		runs.Add(1)
		return true
	})
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return runs.Load() >= 2 }, time.Second, time.Millisecond)
	p.Stop()
	p.Stop()

	select {
	case <-p.Done():
	case <-time.After(time.Second):
		t.Fatal("Stop did not end the schedule")
	}
	after := runs.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, after, runs.Load())
}

func TestExecutor_ScheduleAtFixedRateEndsOnShutdown(t *testing.T) {
	e := newTestExecutor(t, Config{PoolSize: 1})

	p, err := e.ScheduleAtFixedRate(0, time.Hour, func(context.Context, int) bool { return true })
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return p.Runs() == 1 }, time.Second, time.Millisecond)
	e.Shutdown()

	select {
	case <-p.Done():
	case <-time.After(time.Second):
		t.Fatal("shutdown did not end the schedule")
	}
}

func TestExecutor_ScheduleAtFixedRateValidation(t *testing.T) {
	e := newTestExecutor(t, Config{PoolSize: 1})

	_, err := e.ScheduleAtFixedRate(0, 0, func(context.Context, int) bool { return false })
	assert.Error(t, err)

	_, err = e.ScheduleAtFixedRate(0, time.Second, nil)
	assert.True(t, errors.Is(err, ErrNilTask))
}
