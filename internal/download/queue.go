package download

import (
	"context"
	"fmt"
	"sync"

	"github.com/iamfaazi/savemyexam-downloader/internal/model"
	"github.com/iamfaazi/savemyexam-downloader/internal/pool"
)

// DefaultMaxPasses bounds how often the failure queue is drained.
const DefaultMaxPasses = 3

// FailureQueue collects leaf downloads that exhausted their retries so they
// can be re-run once the rest of a traversal is done.
//
// A queue belongs to one subject traversal. Push is safe to call from
// concurrent downloads, including downloads started by DrainWith itself.
type FailureQueue struct {
	mu        sync.Mutex
	tasks     []model.FailedTask
	maxPasses int
	subjectID string
	emit      emitter
}

// NewFailureQueue creates an empty queue. maxPasses below zero is treated as
// zero, which turns every queued task into a permanent failure on drain.
func NewFailureQueue(subjectID string, maxPasses int, obs Observer) *FailureQueue {
	if maxPasses < 0 {
		maxPasses = 0
	}
	return &FailureQueue{
		maxPasses: maxPasses,
		subjectID: subjectID,
		emit:      newEmitter(obs),
	}
}

// Push records a failed task.
func (q *FailureQueue) Push(task model.FailedTask) {
	q.mu.Lock()
	q.tasks = append(q.tasks, task)
	q.mu.Unlock()
}

// Len returns the number of queued tasks.
func (q *FailureQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

func (q *FailureQueue) take() []model.FailedTask {
	q.mu.Lock()
	defer q.mu.Unlock()
	batch := q.tasks
	q.tasks = nil
	return batch
}

// DrainWith re-runs queued tasks through op on p until the queue is empty or
// maxPasses passes have run.
//
// Each pass takes a snapshot of the queue and clears it before running, so
// tasks that fail again (op returns an error) land in the next pass. Tasks
// still queued after the last pass, or when ctx is cancelled, are returned as
// permanent failures with Err holding their last error. A status line is
// emitted on every call, including when there is nothing to retry.
func (q *FailureQueue) DrainWith(ctx context.Context, p *pool.Pool, op func(context.Context, model.FailedTask) error) []model.FailedTask {
	var permanent []model.FailedTask

	for pass := 1; ; pass++ {
		batch := q.take()
		if len(batch) == 0 {
			if pass == 1 {
				q.status(LevelInfo, "No failed downloads to retry.")
			}
			return permanent
		}

		if pass > q.maxPasses || ctx.Err() != nil {
			q.status(LevelWarning, fmt.Sprintf("Giving up on %d failed downloads after %d retry passes.", len(batch), pass-1))
			return append(permanent, batch...)
		}

		q.status(LevelInfo, fmt.Sprintf("Retrying failed downloads for %d files...", len(batch)))

		started := make([]bool, len(batch))
		tasks := make([]pool.Task, 0, len(batch))
		for i, ft := range batch {
			tasks = append(tasks, func(ctx context.Context) error {
				started[i] = true
				ft.Passes++
				if err := op(ctx, ft); err != nil {
					ft.Err = err
					q.Push(ft)
				}
				return nil
			})
		}
		_ = p.Run(ctx, tasks)

		// Tasks the pool never started (cancelled ctx) keep their old error.
		for i, ft := range batch {
			if !started[i] {
				q.Push(ft)
			}
		}

		q.status(LevelSuccess, "Retry process completed!")
	}
}

func (q *FailureQueue) status(level ProgressLevel, msg string) {
	q.emit.log(LogEvent{SubjectID: q.subjectID, Message: msg, Level: level})
}
