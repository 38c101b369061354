package model

import "path/filepath"

// FailedTask is a leaf download that exhausted its retries within a pass.
//
// It holds everything needed to run the exact same download again.
type FailedTask struct {
	Leaf      *ResourceNode
	DestDir   string
	SubjectID string
	Err       error

	// LineID ties every log line about this leaf together across passes.
	LineID string

	// Passes counts the failure-queue drains this task already went through.
	Passes int
}

// DestPath returns the full path of the leaf file.
func (t FailedTask) DestPath() string {
	return filepath.Join(t.DestDir, t.Leaf.FileName())
}

// ConcurrencyBudget holds the concurrency caps for one traversal.
type ConcurrencyBudget struct {
	SectionLimit  int
	DownloadLimit int
}

// Normalize clamps both limits to at least one.
func (b ConcurrencyBudget) Normalize() ConcurrencyBudget {
	if b.SectionLimit < 1 {
		b.SectionLimit = 1
	}
	if b.DownloadLimit < 1 {
		b.DownloadLimit = 1
	}
	return b
}
