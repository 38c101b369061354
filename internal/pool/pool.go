// Package pool provides a bounded task pool shared by one traversal level.
//
// A Pool caps how many tasks run at once across every Run call made on it.
// Run starts tasks in submission order as slots free up and always waits for
// the whole batch; a failing task never cancels its siblings.
//
//	sections := pool.New(budget.SectionLimit)
//	err := sections.Run(ctx, tasks) // joined errors of failed tasks
package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// ErrInvalidLimit is returned when a pool is created with a limit below one.
var ErrInvalidLimit = errors.New("pool limit must be at least 1")

// Task is one unit of work submitted to a Pool.
type Task func(ctx context.Context) error

// Pool runs tasks with at most Limit of them in flight.
type Pool struct {
	limit int
	sem   *semaphore.Weighted

	inFlight atomic.Int32
	peak     atomic.Int32
}

// New creates a pool with the given concurrency limit.
func New(limit int) (*Pool, error) {
	if limit < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidLimit, limit)
	}
	return &Pool{
		limit: limit,
		sem:   semaphore.NewWeighted(int64(limit)),
	}, nil
}

// Limit returns the pool's concurrency limit.
func (p *Pool) Limit() int {
	return p.limit
}

// Peak returns the highest number of tasks observed running at once.
func (p *Pool) Peak() int {
	return int(p.peak.Load())
}

// Run executes tasks and returns once all of them have finished.
//
// Slots are acquired in submission order. The returned error joins every
// task failure; it is nil when all tasks succeeded. If ctx is cancelled
// before a task obtains a slot, that task is not started and ctx.Err() is
// recorded for it.
func (p *Pool) Run(ctx context.Context, tasks []Task) error {
	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)

	record := func(err error) {
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()
	}

	for _, task := range tasks {
		if err := p.sem.Acquire(ctx, 1); err != nil {
			record(err)
			continue
		}
		if err := ctx.Err(); err != nil {
			p.sem.Release(1)
			record(err)
			continue
		}

		g.Go(func() error {
			defer p.sem.Release(1)
			p.enter()
			defer p.inFlight.Add(-1)

			if err := task(ctx); err != nil {
				record(err)
			}
			return nil
		})
	}

	_ = g.Wait()
	return errors.Join(errs...)
}

func (p *Pool) enter() {
	n := p.inFlight.Add(1)
	for {
		peak := p.peak.Load()
		if n <= peak || p.peak.CompareAndSwap(peak, n) {
			return
		}
	}
}
