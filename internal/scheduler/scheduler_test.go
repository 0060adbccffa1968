package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/eve-companion/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logging.Logger {
	return logging.NewLogger(logging.LevelError, logging.FormatText)
}

func TestRegisterValidation(t *testing.T) {
	s := New(testLogger())
	noop := func(ctx context.Context) error { return nil }

	require.NoError(t, s.Register("skills", time.Hour, false, noop))

	assert.Error(t, s.Register("skills", time.Hour, false, noop), "duplicate name")
	assert.Error(t, s.Register("", time.Hour, false, noop), "empty name")
	assert.Error(t, s.Register("nil-run", time.Hour, false, nil), "nil run func")
	assert.Error(t, s.Register("bad-interval", 0, false, noop), "zero interval")
	assert.Error(t, s.Register("neg-interval", -time.Second, false, noop), "negative interval")
}

func TestStartRequiresJobs(t *testing.T) {
	s := New(testLogger())
	assert.Error(t, s.Start(context.Background()))
}

func TestSlowJobSkipsOverlappingTicks(t *testing.T) {
	s := New(testLogger())

	var concurrent, maxConcurrent, runs int32
	block := make(chan struct{})

	err := s.Register("slow", 5*time.Millisecond, false, func(ctx context.Context) error {
		cur := atomic.AddInt32(&concurrent, 1)
		defer atomic.AddInt32(&concurrent, -1)
		for {
			prev := atomic.LoadInt32(&maxConcurrent)
			if cur <= prev || atomic.CompareAndSwapInt32(&maxConcurrent, prev, cur) {
				break
			}
		}
		atomic.AddInt32(&runs, 1)

		select {
		case <-block:
		case <-ctx.Done():
		}
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background()))

	// Let many ticks elapse while the first run is still blocked.
	time.Sleep(60 * time.Millisecond)
	close(block)
	s.Stop()

	assert.Equal(t, int32(1), atomic.LoadInt32(&maxConcurrent), "at most one run in flight")
	assert.Equal(t, int32(1), atomic.LoadInt32(&runs), "overlapping ticks skipped, not queued")

	status := s.Status()
	require.Len(t, status, 1)
	assert.Greater(t, status[0].Skipped, int64(0))
}

func TestOverlapAllowedJobRunsConcurrently(t *testing.T) {
	s := New(testLogger())

	var concurrent, maxConcurrent int32
	block := make(chan struct{})

	err := s.Register("overlapping", 5*time.Millisecond, true, func(ctx context.Context) error {
		cur := atomic.AddInt32(&concurrent, 1)
		defer atomic.AddInt32(&concurrent, -1)
		for {
			prev := atomic.LoadInt32(&maxConcurrent)
			if cur <= prev || atomic.CompareAndSwapInt32(&maxConcurrent, prev, cur) {
				break
			}
		}
		select {
		case <-block:
		case <-ctx.Done():
		}
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background()))

	time.Sleep(60 * time.Millisecond)
	close(block)
	s.Stop()

	assert.Greater(t, atomic.LoadInt32(&maxConcurrent), int32(1), "overlap-allowed job may run concurrently")

	status := s.Status()
	require.Len(t, status, 1)
	assert.Zero(t, status[0].Skipped)
}

func TestPanicIsolatedToOneRun(t *testing.T) {
	s := New(testLogger())

	var panics, healthyRuns int32
	err := s.Register("panicky", 5*time.Millisecond, false, func(ctx context.Context) error {
		atomic.AddInt32(&panics, 1)
		panic("boom")
	})
	require.NoError(t, err)
	err = s.Register("healthy", 5*time.Millisecond, false, func(ctx context.Context) error {
		atomic.AddInt32(&healthyRuns, 1)
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, s.Start(context.Background()))
	time.Sleep(50 * time.Millisecond)
	s.Stop()

	// The panicking job keeps firing on schedule and the sibling is unhurt.
	assert.Greater(t, atomic.LoadInt32(&panics), int32(1))
	assert.Greater(t, atomic.LoadInt32(&healthyRuns), int32(1))

	for _, st := range s.Status() {
		if st.Name == "panicky" {
			assert.Greater(t, st.Panics, int64(0))
			assert.Contains(t, st.LastError, "panicked")
		}
	}
}

func TestStopWaitsForInFlightRun(t *testing.T) {
	s := New(testLogger())

	var finished atomic.Bool
	started := make(chan struct{})

	err := s.Register("draining", 5*time.Millisecond, false, func(ctx context.Context) error {
		select {
		case started <- struct{}{}:
		default:
		}
		time.Sleep(20 * time.Millisecond)
		finished.Store(true)
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background()))

	<-started
	s.Stop()

	assert.True(t, finished.Load(), "Stop returned before the in-flight run finished")
}

func TestStopDoesNotCancelInFlightRun(t *testing.T) {
	s := New(testLogger())

	started := make(chan struct{})
	release := make(chan struct{})
	var sawCancel atomic.Bool

	err := s.Register("mid-sync", 5*time.Millisecond, false, func(ctx context.Context) error {
		select {
		case started <- struct{}{}:
		default:
		}
		select {
		case <-ctx.Done():
			sawCancel.Store(true)
		case <-release:
		}
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background()))

	<-started
	go func() {
		time.Sleep(20 * time.Millisecond)
		close(release)
	}()
	s.Stop()

	assert.False(t, sawCancel.Load(), "shutdown cancelled a run instead of letting it finish")
}

func TestFailedRunRecordsError(t *testing.T) {
	s := New(testLogger())

	ran := make(chan struct{}, 1)
	err := s.Register("failing", 5*time.Millisecond, false, func(ctx context.Context) error {
		select {
		case ran <- struct{}{}:
		default:
		}
		return errors.New("upstream unavailable")
	})
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background()))

	<-ran
	s.Stop()

	status := s.Status()
	require.Len(t, status, 1)
	assert.Equal(t, "upstream unavailable", status[0].LastError)
	assert.NotEmpty(t, status[0].LastRunID)
	assert.Greater(t, status[0].Runs, int64(0))
}

func TestRegisterAfterStartFails(t *testing.T) {
	s := New(testLogger())
	require.NoError(t, s.Register("only", time.Hour, false, func(ctx context.Context) error { return nil }))
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	assert.Error(t, s.Register("late", time.Hour, false, func(ctx context.Context) error { return nil }))
}
