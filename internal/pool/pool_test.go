package pool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNew_RejectsInvalidLimit(t *testing.T) {
	for _, limit := range []int{0, -1} {
		_, err := New(limit)
		require.ErrorIs(t, err, ErrInvalidLimit)
	}
}

func TestRun_BoundsConcurrency(t *testing.T) {
	p, err := New(3)
	require.NoError(t, err)

	var running, maxSeen atomic.Int32
	tasks := make([]Task, 20)
	for i := range tasks {
		tasks[i] = func(ctx context.Context) error {
			n := running.Add(1)
			for {
				m := maxSeen.Load()
				if n <= m || maxSeen.CompareAndSwap(m, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			running.Add(-1)
			return nil
		}
	}

	require.NoError(t, p.Run(context.Background(), tasks))
	require.LessOrEqual(t, int(maxSeen.Load()), 3)
	require.LessOrEqual(t, p.Peak(), 3)
	require.Equal(t, 3, p.Limit())
}

func TestRun_FailuresDoNotCancelSiblings(t *testing.T) {
	p, err := New(2)
	require.NoError(t, err)

	errBoom := errors.New("boom")
	var completed atomic.Int32
	tasks := []Task{
		func(ctx context.Context) error { return errBoom },
		func(ctx context.Context) error {
			time.Sleep(10 * time.Millisecond)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			completed.Add(1)
			return nil
		},
		func(ctx context.Context) error { completed.Add(1); return nil },
		func(ctx context.Context) error { return errBoom },
	}

	err = p.Run(context.Background(), tasks)
	require.ErrorIs(t, err, errBoom)
	require.Equal(t, int32(2), completed.Load())
}

func TestRun_StartsInSubmissionOrder(t *testing.T) {
	p, err := New(1)
	require.NoError(t, err)

	var (
		mu    sync.Mutex
		order []int
	)
	tasks := make([]Task, 10)
	for i := range tasks {
		tasks[i] = func(ctx context.Context) error {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			return nil
		}
	}

	require.NoError(t, p.Run(context.Background(), tasks))
	require.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, order)
}

func TestRun_LimitEqualToTaskCountRunsAllAtOnce(t *testing.T) {
	p, err := New(4)
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(4)
	tasks := make([]Task, 4)
	for i := range tasks {
		tasks[i] = func(ctx context.Context) error {
			wg.Done()
			// Every task waits for all the others to start.
			wg.Wait()
			return nil
		}
	}

	done := make(chan error, 1)
	go func() { done <- p.Run(context.Background(), tasks) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("tasks did not run in parallel")
	}
}

func TestRun_SharedAcrossCalls(t *testing.T) {
	p, err := New(2)
	require.NoError(t, err)

	task := func(ctx context.Context) error {
		time.Sleep(5 * time.Millisecond)
		return nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = p.Run(context.Background(), []Task{task, task, task})
		}()
	}
	wg.Wait()

	require.LessOrEqual(t, p.Peak(), 2)
}

func TestRun_CancelledContextSkipsPendingTasks(t *testing.T) {
	p, err := New(1)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	var started atomic.Int32
	tasks := []Task{
		func(ctx context.Context) error {
			started.Add(1)
			cancel()
			return nil
		},
		func(ctx context.Context) error { started.Add(1); return nil },
	}

	err = p.Run(ctx, tasks)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, int32(1), started.Load())
}

func TestRun_Empty(t *testing.T) {
	p, err := New(1)
	require.NoError(t, err)
	require.NoError(t, p.Run(context.Background(), nil))
}
