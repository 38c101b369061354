package model

import (
	"fmt"
	"sync"

	"github.com/segmentio/ksuid"
)

// SubjectJob is one subject selected for download.
//
// The ID is assigned once when the subject is discovered and survives every
// retry. Progress counters are only changed through the methods below, which
// are safe for concurrent use by sibling leaf downloads.
type SubjectJob struct {
	ID          string
	Title       string
	Level       string
	ResourceURL string

	mu    sync.Mutex
	total int
	done  int
	saved string
	ended bool
}

// SubjectState is a point-in-time copy of a SubjectJob.
type SubjectState struct {
	ID              string
	Title           string
	Level           string
	ResourceURL     string
	TotalCount      int
	DownloadedCount int
	SavedLocation   string
	Completed       bool
}

// NewSubjectJob creates a job with a fresh unique ID.
func NewSubjectJob(title, level, resourceURL string) *SubjectJob {
	return &SubjectJob{
		ID:          ksuid.New().String(),
		Title:       title,
		Level:       level,
		ResourceURL: resourceURL,
	}
}

// DisplayName returns "Title (Level)" or just the title when no level is set.
func (j *SubjectJob) DisplayName() string {
	if j.Level == "" {
		return j.Title
	}
	return fmt.Sprintf("%s (%s)", j.Title, j.Level)
}

// AddTotal records newly discovered leaf files.
func (j *SubjectJob) AddTotal(n int) {
	if n <= 0 {
		return
	}
	j.mu.Lock()
	j.total += n
	j.mu.Unlock()
}

// AddDownloaded records leaves that were downloaded or already present.
func (j *SubjectJob) AddDownloaded(n int) {
	if n <= 0 {
		return
	}
	j.mu.Lock()
	j.done += n
	j.mu.Unlock()
}

// SetSavedLocation records the subject's output root.
func (j *SubjectJob) SetSavedLocation(path string) {
	j.mu.Lock()
	j.saved = path
	j.mu.Unlock()
}

// MarkCompleted flags the traversal as finished.
func (j *SubjectJob) MarkCompleted() {
	j.mu.Lock()
	j.ended = true
	j.mu.Unlock()
}

// Snapshot returns the job's current state.
func (j *SubjectJob) Snapshot() SubjectState {
	j.mu.Lock()
	defer j.mu.Unlock()
	return SubjectState{
		ID:              j.ID,
		Title:           j.Title,
		Level:           j.Level,
		ResourceURL:     j.ResourceURL,
		TotalCount:      j.total,
		DownloadedCount: j.done,
		SavedLocation:   j.saved,
		Completed:       j.ended,
	}
}
