package executor_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/socialfeed/internal/executor"
)

func newTestPool(t *testing.T, cfg executor.Config) *executor.Pool {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	p := executor.NewPool(cfg, logger)
	p.Start()
	t.Cleanup(p.Stop)
	return p
}

func TestPool_RunsSubmittedTasks(t *testing.T) {
	p := newTestPool(t, executor.Config{Workers: 3, QueueSize: 16})

	var ran atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		ok := p.Submit(executor.Task{Name: "count", Run: func(ctx context.Context) error {
			defer wg.Done()
			ran.Add(1)
			return nil
		}})
		require.True(t, ok)
	}

	wg.Wait()
	assert.Equal(t, int32(10), ran.Load())
}

func TestPool_FailuresAndPanicsAreContained(t *testing.T) {
	p := newTestPool(t, executor.Config{Workers: 1, QueueSize: 4})

	done := make(chan struct{})
	p.Submit(executor.Task{Name: "fails", Run: func(ctx context.Context) error {
		return errors.New("boom")
	}})
	p.Submit(executor.Task{Name: "panics", Run: func(ctx context.Context) error {
		panic("worse boom")
	}})
	p.Submit(executor.Task{Name: "after", Run: func(ctx context.Context) error {
		close(done)
		return nil
	}})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not survive a failing and a panicking task")
	}
}

func TestPool_SubmitDoesNotBlockWhenFull(t *testing.T) {
	p := newTestPool(t, executor.Config{Workers: 1, QueueSize: 1})

	release := make(chan struct{})
	started := make(chan struct{})
	blocker := executor.Task{Name: "blocker", Run: func(ctx context.Context) error {
		close(started)
		<-release
		return nil
	}}
	require.True(t, p.Submit(blocker))
	<-started // the worker is now busy

	noop := executor.Task{Name: "noop", Run: func(ctx context.Context) error { return nil }}
	assert.True(t, p.Submit(noop), "one task fits in the queue")

	begin := time.Now()
	assert.False(t, p.Submit(noop), "queue is full, task must be dropped")
	assert.Less(t, time.Since(begin), 100*time.Millisecond)

	close(release)
}

func TestPool_TaskContextHasTimeout(t *testing.T) {
	p := newTestPool(t, executor.Config{Workers: 1, QueueSize: 1, TaskTimeout: 50 * time.Millisecond})

	result := make(chan error, 1)
	p.Submit(executor.Task{Name: "slow", Run: func(ctx context.Context) error {
		<-ctx.Done()
		result <- ctx.Err()
		return ctx.Err()
	}})

	select {
	case err := <-result:
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(2 * time.Second):
		t.Fatal("task context never expired")
	}
}

func TestPool_StopDrainsQueueThenRejects(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	p := executor.NewPool(executor.Config{Workers: 1, QueueSize: 8}, logger)
	p.Start()

	var ran atomic.Int32
	for i := 0; i < 5; i++ {
		p.Submit(executor.Task{Name: "queued", Run: func(ctx context.Context) error {
			ran.Add(1)
			return nil
		}})
	}

	p.Stop()
	assert.Equal(t, int32(5), ran.Load(), "queued tasks run before Stop returns")

	assert.False(t, p.Submit(executor.Task{Name: "late", Run: func(ctx context.Context) error { return nil }}))
	p.Stop() // second Stop is a no-op
}
