package tui

import (
	"github.com/iamfaazi/savemyexam-downloader/internal/download"
	"github.com/iamfaazi/savemyexam-downloader/internal/model"
)

// maxLines is how many log lines the download screen keeps.
const maxLines = 12

// logLine is one rendered progress line. Events sharing a LineID update the
// same line, so a file's "Downloading", percent and result collapse into one.
type logLine struct {
	id       string
	message  string
	level    download.ProgressLevel
	percent  float64
	terminal bool
}

type subjectRow struct {
	name       string
	total      int
	downloaded int
	saved      string
	completed  bool
}

// board accumulates pipeline events for rendering.
type board struct {
	order    []string
	subjects map[string]*subjectRow
	lines    []logLine
	index    map[string]int
	verbose  bool
}

func newBoard(jobs []*model.SubjectJob, verbose bool) *board {
	b := &board{
		subjects: make(map[string]*subjectRow, len(jobs)),
		index:    make(map[string]int),
		verbose:  verbose,
	}
	for _, job := range jobs {
		b.order = append(b.order, job.ID)
		b.subjects[job.ID] = &subjectRow{name: job.DisplayName()}
	}
	return b
}

func (b *board) apply(ev download.Event) {
	switch {
	case ev.Log != nil:
		b.log(*ev.Log)
	case ev.Counts != nil:
		row, ok := b.subjects[ev.Counts.SubjectID]
		if !ok {
			return
		}
		row.total += ev.Counts.TotalDelta
		row.downloaded += ev.Counts.DownloadedDelta
		if ev.Counts.SavedLocation != "" {
			row.saved = ev.Counts.SavedLocation
		}
	case ev.Completed != nil:
		row, ok := b.subjects[ev.Completed.ID]
		if !ok {
			return
		}
		row.total = ev.Completed.TotalCount
		row.downloaded = ev.Completed.DownloadedCount
		row.completed = true
	}
}

func (b *board) log(ev download.LogEvent) {
	if ev.LineID != "" {
		if i, ok := b.index[ev.LineID]; ok {
			line := &b.lines[i]
			if ev.Level == download.LevelProgress {
				line.percent = ev.Percent
				return
			}
			line.message = ev.Message
			line.level = ev.Level
			line.terminal = ev.Terminal
			if ev.Percent > 0 {
				line.percent = ev.Percent
			}
			return
		}
	}

	// A bare progress tick for a line we no longer show is not worth a row.
	if ev.Level == download.LevelProgress {
		return
	}
	if ev.Level == download.LevelVerbose && !b.verbose {
		return
	}

	b.lines = append(b.lines, logLine{
		id:       ev.LineID,
		message:  ev.Message,
		level:    ev.Level,
		percent:  ev.Percent,
		terminal: ev.Terminal,
	})
	if len(b.lines) > maxLines {
		b.lines = b.lines[len(b.lines)-maxLines:]
		b.reindex()
		return
	}
	if ev.LineID != "" {
		b.index[ev.LineID] = len(b.lines) - 1
	}
}

func (b *board) reindex() {
	clear(b.index)
	for i, line := range b.lines {
		if line.id != "" {
			b.index[line.id] = i
		}
	}
}

// totals sums the counters of every subject.
func (b *board) totals() (downloaded, total int) {
	for _, row := range b.subjects {
		downloaded += row.downloaded
		total += row.total
	}
	return downloaded, total
}

func (b *board) percent() float64 {
	done, total := b.totals()
	if total == 0 {
		return 0
	}
	return float64(done) / float64(total)
}
