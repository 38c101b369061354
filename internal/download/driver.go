package download

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	ioutils "github.com/iamfaazi/savemyexam-downloader/internal/io"
	"github.com/iamfaazi/savemyexam-downloader/internal/model"
	"github.com/iamfaazi/savemyexam-downloader/internal/pool"
	"github.com/iamfaazi/savemyexam-downloader/internal/retry"
	"github.com/rs/zerolog/log"
	"github.com/segmentio/ksuid"
	"github.com/spf13/afero"
)

// Budgeter decides the concurrency caps for the next group traversal.
type Budgeter interface {
	ComputeBudget(ctx context.Context) model.ConcurrencyBudget
}

// FixedBudget is a Budgeter that always returns the same caps.
type FixedBudget model.ConcurrencyBudget

func (b FixedBudget) ComputeBudget(context.Context) model.ConcurrencyBudget {
	return model.ConcurrencyBudget(b).Normalize()
}

// Options configures a Driver.
type Options struct {
	// Root is the directory subject folders are created in.
	Root string
	// SubjectConcurrency caps how many subjects are processed at once.
	SubjectConcurrency int
	Retry              retry.Policy
	// MaxPasses bounds the failure queue drain.
	MaxPasses int
}

// DefaultOptions returns one subject at a time with the default retry policy.
func DefaultOptions(root string) Options {
	return Options{
		Root:               root,
		SubjectConcurrency: 1,
		Retry:              retry.DefaultPolicy(),
		MaxPasses:          DefaultMaxPasses,
	}
}

// Summary describes a finished run.
type Summary struct {
	RunID      string
	Root       string
	StartedAt  time.Time
	FinishedAt time.Time
	Subjects   []model.SubjectState
	Failures   []model.FailedTask
}

// Downloaded returns the sum of downloaded counts over all subjects.
func (s *Summary) Downloaded() int {
	n := 0
	for _, sub := range s.Subjects {
		n += sub.DownloadedCount
	}
	return n
}

// Total returns the sum of total counts over all subjects.
func (s *Summary) Total() int {
	n := 0
	for _, sub := range s.Subjects {
		n += sub.TotalCount
	}
	return n
}

// Driver runs the pipeline for a batch of subjects.
type Driver struct {
	locator Locator
	walker  *Walker
	budget  Budgeter
	fs      afero.Fs
	opts    Options
	obs     Observer
	emit    emitter
}

// NewDriver wires a Driver. A nil budget falls back to one section and five
// downloads at a time.
func NewDriver(locator Locator, fetcher Fetcher, budget Budgeter, fs afero.Fs, obs Observer, opts Options) *Driver {
	if budget == nil {
		budget = FixedBudget{SectionLimit: 1, DownloadLimit: 5}
	}
	if opts.SubjectConcurrency < 1 {
		opts.SubjectConcurrency = 1
	}
	return &Driver{
		locator: locator,
		walker:  NewWalker(locator, fetcher, fs, opts.Retry, obs),
		budget:  budget,
		fs:      fs,
		opts:    opts,
		obs:     obs,
		emit:    newEmitter(obs),
	}
}

// Run downloads every subject in jobs.
//
// Subjects are independent: a failing subject is logged and the others
// continue. Run returns an error wrapping ErrSetup when the destination root
// cannot be created, and ctx.Err() when the run was cancelled; in both cases
// the summary covers whatever finished.
func (d *Driver) Run(ctx context.Context, jobs []*model.SubjectJob) (*Summary, error) {
	summary := &Summary{
		RunID:     ksuid.New().String(),
		Root:      d.opts.Root,
		StartedAt: time.Now(),
	}
	defer func() { summary.FinishedAt = time.Now() }()

	if len(jobs) == 0 {
		d.logf("", LevelWarning, "No subjects provided.")
		return summary, nil
	}

	if err := ioutils.EnsureDir(d.fs, d.opts.Root); err != nil {
		d.logf("", LevelError, "Cannot create download folder: %v", err)
		return summary, fmt.Errorf("%w: %w", ErrSetup, err)
	}

	subjects, err := pool.New(d.opts.SubjectConcurrency)
	if err != nil {
		return summary, fmt.Errorf("%w: %w", ErrSetup, err)
	}

	results := make([][]model.FailedTask, len(jobs))
	tasks := make([]pool.Task, 0, len(jobs))
	for i, job := range jobs {
		tasks = append(tasks, func(ctx context.Context) error {
			failures, err := d.runSubject(ctx, job)
			results[i] = failures
			if err != nil && ctx.Err() == nil {
				d.logf(job.ID, LevelError, "Error processing %s: %v", job.DisplayName(), err)
			}
			return err
		})
	}
	_ = subjects.Run(ctx, tasks)

	for i, job := range jobs {
		summary.Subjects = append(summary.Subjects, job.Snapshot())
		summary.Failures = append(summary.Failures, results[i]...)
	}

	if err := ctx.Err(); err != nil {
		d.logf("", LevelWarning, "Download cancelled.")
		return summary, err
	}

	d.logf("", LevelSuccess, "All downloads finished! %d/%d files saved.", summary.Downloaded(), summary.Total())
	log.Info().
		Str("run", summary.RunID).
		Int("subjects", len(summary.Subjects)).
		Int("failures", len(summary.Failures)).
		Msg("run finished")
	return summary, nil
}

// runSubject traverses every resource group of one subject in page order.
// The subject is marked completed once its groups are done, even if some
// leaves failed.
func (d *Driver) runSubject(ctx context.Context, job *model.SubjectJob) ([]model.FailedTask, error) {
	d.logf(job.ID, LevelInfo, "Processing: %s", job.DisplayName())

	subject := model.NewNode(model.KindSubject, job.Title, job.ResourceURL, model.GroupUnknown)
	dir := filepath.Join(d.opts.Root, subject.Title)
	if err := ioutils.EnsureDir(d.fs, dir); err != nil {
		return nil, err
	}
	d.emit.savedLocation(job, dir)

	groups, err := d.locator.ListChildren(ctx, subject)
	if err != nil {
		return nil, &DiscoveryError{Node: subject, Err: err}
	}
	if err := subject.AddChildren(groups...); err != nil {
		return nil, &DiscoveryError{Node: subject, Err: err}
	}
	if len(groups) == 0 {
		d.logf(job.ID, LevelWarning, "No resources found for %s", job.DisplayName())
	}

	queue := NewFailureQueue(job.ID, d.opts.MaxPasses, d.obs)

	var failures []model.FailedTask
	for _, group := range groups {
		switch group.Group {
		case model.GroupRevisionNotes:
			d.logf(job.ID, LevelInfo, "Initialize Revision Notes Download")
		case model.GroupExamQuestions:
			d.logf(job.ID, LevelInfo, "Initialize Exam Questions Download")
		default:
			d.logf(job.ID, LevelWarning, "Skipping unknown resource group %q", group.Title)
			continue
		}

		budget := d.budget.ComputeBudget(ctx)
		permanent, err := d.walker.WalkGroup(ctx, job, group, filepath.Join(dir, group.Title), budget, queue)
		failures = append(failures, permanent...)
		if err != nil {
			return failures, err
		}
	}

	d.emit.completed(job)
	state := job.Snapshot()
	level := LevelSuccess
	if len(failures) > 0 {
		level = LevelWarning
	}
	d.logf(job.ID, level, "Finished %s: %d/%d files downloaded", job.DisplayName(), state.DownloadedCount, state.TotalCount)
	return failures, nil
}

func (d *Driver) logf(subjectID string, level ProgressLevel, format string, args ...any) {
	d.emit.log(LogEvent{
		SubjectID: subjectID,
		Message:   fmt.Sprintf(format, args...),
		Level:     level,
	})
}
