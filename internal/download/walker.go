package download

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/iamfaazi/savemyexam-downloader/internal/http"
	ioutils "github.com/iamfaazi/savemyexam-downloader/internal/io"
	"github.com/iamfaazi/savemyexam-downloader/internal/model"
	"github.com/iamfaazi/savemyexam-downloader/internal/pool"
	"github.com/iamfaazi/savemyexam-downloader/internal/retry"
	"github.com/rs/zerolog/log"
	"github.com/segmentio/ksuid"
	"github.com/spf13/afero"
)

// Locator discovers the resource tree of a subject.
type Locator interface {
	// ListChildren returns the direct children of node, in page order.
	ListChildren(ctx context.Context, node *model.ResourceNode) ([]*model.ResourceNode, error)
	// ResolveLeafLocation returns the direct download URL of a leaf file.
	ResolveLeafLocation(ctx context.Context, leaf *model.ResourceNode) (string, error)
}

// Fetcher transfers one file to dest.
type Fetcher interface {
	Download(ctx context.Context, location, dest string, onProgress func(percent float64)) (http.Outcome, error)
}

// Walker traverses one resource group and downloads every leaf below it.
type Walker struct {
	locator Locator
	fetcher Fetcher
	fs      afero.Fs
	policy  retry.Policy
	emit    emitter
}

// NewWalker creates a Walker.
func NewWalker(locator Locator, fetcher Fetcher, fs afero.Fs, policy retry.Policy, obs Observer) *Walker {
	return &Walker{
		locator: locator,
		fetcher: fetcher,
		fs:      fs,
		policy:  policy,
		emit:    newEmitter(obs),
	}
}

// traversal holds the state of one WalkGroup call. Each tree level gets its
// own pool; a task never waits on a slot of the pool it is running in.
type traversal struct {
	w     *Walker
	job   *model.SubjectJob
	queue *FailureQueue

	sections    *pool.Pool
	subSections *pool.Pool
	leaves      *pool.Pool
}

// WalkGroup downloads the resource group rooted at group into dir.
//
// Leaf failures never escape: they are retried, then pushed onto queue, and
// the queue is drained before WalkGroup returns. The returned slice holds the
// leaves that still failed after the last drain pass. The error is non-nil
// only when ctx was cancelled.
func (w *Walker) WalkGroup(ctx context.Context, job *model.SubjectJob, group *model.ResourceNode, dir string, budget model.ConcurrencyBudget, queue *FailureQueue) ([]model.FailedTask, error) {
	budget = budget.Normalize()
	t := &traversal{w: w, job: job, queue: queue}

	var err error
	if t.sections, err = pool.New(budget.SectionLimit); err != nil {
		return nil, err
	}
	if t.subSections, err = pool.New(budget.SectionLimit); err != nil {
		return nil, err
	}
	if t.leaves, err = pool.New(budget.DownloadLimit); err != nil {
		return nil, err
	}

	log.Debug().
		Str("subject", job.Title).
		Str("group", group.Title).
		Int("sections", budget.SectionLimit).
		Int("downloads", budget.DownloadLimit).
		Msg("walking resource group")

	if err := ioutils.EnsureDir(w.fs, dir); err != nil {
		t.logf(LevelError, "Skipping %s: %v", group.Title, err)
		return nil, ctx.Err()
	}

	t.expand(ctx, group, dir)

	permanent := queue.DrainWith(ctx, t.leaves, t.attempt)
	for _, ft := range permanent {
		w.emit.log(LogEvent{
			SubjectID: job.ID,
			LineID:    ft.LineID,
			Message:   fmt.Sprintf("Failed to download %s: %v", ft.Leaf.FileName(), ft.Err),
			Level:     LevelError,
			Terminal:  true,
		})
	}
	return permanent, ctx.Err()
}

// expand lists node's children and processes them on the pool for their level.
func (t *traversal) expand(ctx context.Context, node *model.ResourceNode, dir string) {
	children, kind, ok := t.list(ctx, node)
	if !ok || len(children) == 0 {
		return
	}

	if kind == model.KindLeafFile {
		t.w.emit.addTotal(t.job, len(children))
		tasks := make([]pool.Task, 0, len(children))
		for _, leaf := range children {
			tasks = append(tasks, func(ctx context.Context) error {
				t.downloadLeaf(ctx, leaf, dir)
				return nil
			})
		}
		_ = t.leaves.Run(ctx, tasks)
		return
	}

	p := t.sections
	if kind == model.KindSubSection {
		p = t.subSections
	}

	tasks := make([]pool.Task, 0, len(children))
	for _, child := range children {
		tasks = append(tasks, func(ctx context.Context) error {
			childDir := filepath.Join(dir, child.Title)
			if err := ioutils.EnsureDir(t.w.fs, childDir); err != nil {
				t.logf(LevelError, "Skipping %s: %v", child.Title, err)
				return nil
			}
			if kind == model.KindSection {
				t.logf(LevelSuccess, "Downloading %s section's topics...", child.Title)
			}
			t.expand(ctx, child, childDir)
			return nil
		})
	}
	_ = p.Run(ctx, tasks)
}

// list fetches node's children and drops any whose kind does not fit the
// level. ok is false when discovery failed; the subtree is then skipped.
func (t *traversal) list(ctx context.Context, node *model.ResourceNode) ([]*model.ResourceNode, model.Kind, bool) {
	kind, err := node.ChildKind()
	if err != nil {
		t.logf(LevelWarning, "Skipping %s: %v", node.Title, err)
		return nil, 0, false
	}

	children, err := t.w.locator.ListChildren(ctx, node)
	if err != nil {
		if ctx.Err() == nil {
			derr := &DiscoveryError{Node: node, Err: err}
			t.logf(LevelWarning, "Skipping %s: %v", node.Title, derr)
		}
		return nil, 0, false
	}

	valid := children[:0:0]
	for _, c := range children {
		if c == nil || c.Kind != kind {
			log.Warn().Str("parent", node.Title).Msg("dropping child of unexpected kind")
			continue
		}
		valid = append(valid, c)
	}
	if err := node.AddChildren(valid...); err != nil {
		t.logf(LevelWarning, "Skipping %s: %v", node.Title, err)
		return nil, 0, false
	}
	return valid, kind, true
}

// downloadLeaf runs the first pass for a leaf. Exhausted retries send it to
// the failure queue; success, an existing file, or an unrecoverable error
// produce its terminal line right away.
func (t *traversal) downloadLeaf(ctx context.Context, leaf *model.ResourceNode, dir string) {
	ft := model.FailedTask{
		Leaf:      leaf,
		DestDir:   dir,
		SubjectID: t.job.ID,
		LineID:    ksuid.New().String(),
	}

	if err := t.attempt(ctx, ft); err != nil {
		if ctx.Err() != nil {
			return
		}
		ft.Err = err
		t.queue.Push(ft)
		t.w.emit.log(LogEvent{
			SubjectID: t.job.ID,
			LineID:    ft.LineID,
			Message:   fmt.Sprintf("Download failed for %s, queued for retry: %v", leaf.FileName(), err),
			Level:     LevelWarning,
		})
	}
}

// attempt downloads a leaf under the retry policy. It also serves as the
// failure queue's op. It returns an error only for retryable failures;
// terminal outcomes are reported here.
func (t *traversal) attempt(ctx context.Context, ft model.FailedTask) error {
	leaf := ft.Leaf
	dest := ft.DestPath()

	exists, err := ioutils.Exists(t.w.fs, dest)
	if err != nil {
		t.terminal(ft, LevelError, fmt.Sprintf("Failed to download %s: %v", leaf.FileName(), err))
		return nil
	}
	if exists {
		t.w.emit.addDownloaded(t.job, 1)
		t.terminal(ft, LevelWarning, fmt.Sprintf("%s already exists!", leaf.FileName()))
		return nil
	}

	t.w.emit.log(LogEvent{
		SubjectID: t.job.ID,
		LineID:    ft.LineID,
		Message:   fmt.Sprintf("Downloading %s", leaf.FileName()),
		Level:     LevelVerbose,
	})

	policy := t.w.policy
	policy.OnRetry = func(attempt int, err error, delay time.Duration) {
		t.w.emit.log(LogEvent{
			SubjectID: t.job.ID,
			LineID:    ft.LineID,
			Message:   fmt.Sprintf("Retry %d/%d for %s in %s: %v", attempt, policy.MaxAttempts, leaf.FileName(), delay, err),
			Level:     LevelWarning,
		})
	}

	var outcome http.Outcome
	err = policy.Do(ctx, func(ctx context.Context) error {
		location, err := t.w.locator.ResolveLeafLocation(ctx, leaf)
		if err != nil {
			if errors.Is(err, ErrNoDownloadLink) {
				return retry.Unrecoverable(err)
			}
			return err
		}

		outcome, err = t.w.fetcher.Download(ctx, location, dest, func(percent float64) {
			t.w.emit.log(LogEvent{
				SubjectID: t.job.ID,
				LineID:    ft.LineID,
				Message:   leaf.FileName(),
				Level:     LevelProgress,
				Percent:   percent,
			})
		})
		if isFilesystemError(err) {
			return retry.Unrecoverable(err)
		}
		return err
	})

	switch {
	case err == nil:
		t.w.emit.addDownloaded(t.job, 1)
		if outcome == http.OutcomeExists {
			t.terminal(ft, LevelWarning, fmt.Sprintf("%s already exists!", leaf.FileName()))
		} else {
			t.terminal(ft, LevelSuccess, fmt.Sprintf("%s downloaded successfully!", leaf.FileName()))
		}
		return nil
	case errors.Is(err, ErrNoDownloadLink):
		t.terminal(ft, LevelWarning, fmt.Sprintf("No download link found for %s", leaf.Title))
		return nil
	case isFilesystemError(err):
		t.terminal(ft, LevelError, fmt.Sprintf("Failed to save %s: %v", leaf.FileName(), err))
		return nil
	default:
		return err
	}
}

func (t *traversal) terminal(ft model.FailedTask, level ProgressLevel, msg string) {
	ev := LogEvent{
		SubjectID: t.job.ID,
		LineID:    ft.LineID,
		Message:   msg,
		Level:     level,
		Terminal:  true,
	}
	if level == LevelSuccess {
		ev.Percent = 100
	}
	t.w.emit.log(ev)
}

func (t *traversal) logf(level ProgressLevel, format string, args ...any) {
	t.w.emit.log(LogEvent{
		SubjectID: t.job.ID,
		Message:   fmt.Sprintf(format, args...),
		Level:     level,
	})
}

func isFilesystemError(err error) bool {
	var fsErr *ioutils.FilesystemError
	return errors.As(err, &fsErr)
}
