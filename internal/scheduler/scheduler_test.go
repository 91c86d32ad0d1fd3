package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobRunsImmediatelyAndRepeats(t *testing.T) {
	s := NewScheduler(context.Background())
	defer s.Stop()

	var runs atomic.Int32
	s.AddJob("sync", 20*time.Millisecond, func(context.Context) error {
		runs.Add(1)
		return nil
	})

	assert.Eventually(t, func() bool { return runs.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)

	status := s.Status()
	require.Len(t, status, 1)
	assert.Equal(t, "sync", status[0].Name)
	assert.Empty(t, status[0].LastError)
}

func TestJobErrorIsRecorded(t *testing.T) {
	s := NewScheduler(context.Background())
	defer s.Stop()

	s.AddJob("failing", time.Hour, func(context.Context) error {
		return errors.New("server unreachable")
	})

	assert.Eventually(t, func() bool {
		status := s.Status()
		return len(status) == 1 && status[0].LastError == "server unreachable"
	}, 2*time.Second, 5*time.Millisecond)
}

func TestRemoveAndStop(t *testing.T) {
	s := NewScheduler(context.Background())

	var runs atomic.Int32
	s.AddJob("once", time.Hour, func(context.Context) error {
		runs.Add(1)
		return nil
	})

	assert.Eventually(t, func() bool { return runs.Load() == 1 }, 2*time.Second, 5*time.Millisecond)

	s.RemoveJob("once")
	assert.Empty(t, s.Status())

	s.Stop()
	assert.False(t, s.Running())
}

func TestStopCancelsJobContext(t *testing.T) {
	s := NewScheduler(context.Background())

	started := make(chan struct{})
	s.AddJob("blocking", time.Hour, func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	})

	<-started
	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}
}
