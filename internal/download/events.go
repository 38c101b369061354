package download

import (
	"sync"

	"github.com/iamfaazi/savemyexam-downloader/internal/model"
)

// ProgressLevel indicates the severity/type of a log line.
type ProgressLevel int

const (
	LevelInfo ProgressLevel = iota
	LevelVerbose
	LevelWarning
	LevelError
	LevelSuccess
	// LevelProgress lines carry a Percent update for an in-flight download.
	LevelProgress
)

func (l ProgressLevel) String() string {
	switch l {
	case LevelInfo:
		return "info"
	case LevelVerbose:
		return "verbose"
	case LevelWarning:
		return "warning"
	case LevelError:
		return "danger"
	case LevelSuccess:
		return "success"
	case LevelProgress:
		return "progress"
	default:
		return "unknown"
	}
}

// LogEvent is a human readable log line.
//
// LineID groups successive updates for the same in-flight download; an empty
// LineID means a one-shot line. Terminal is set on exactly one line per leaf
// file: downloaded, already exists, or failed for good.
type LogEvent struct {
	SubjectID string
	LineID    string
	Message   string
	Level     ProgressLevel
	Percent   float64
	Terminal  bool
}

// CountEvent updates a subject's aggregate counters.
type CountEvent struct {
	SubjectID       string
	TotalDelta      int
	DownloadedDelta int
	SavedLocation   string
}

// Observer receives pipeline events. Implementations must be safe for
// concurrent use; sibling downloads report from different goroutines.
type Observer interface {
	OnLog(LogEvent)
	OnCounts(CountEvent)
	OnSubjectCompleted(model.SubjectState)
}

// ObserverFuncs adapts plain functions to Observer. Nil fields are skipped.
type ObserverFuncs struct {
	Log       func(LogEvent)
	Counts    func(CountEvent)
	Completed func(model.SubjectState)
}

func (f ObserverFuncs) OnLog(ev LogEvent) {
	if f.Log != nil {
		f.Log(ev)
	}
}

func (f ObserverFuncs) OnCounts(ev CountEvent) {
	if f.Counts != nil {
		f.Counts(ev)
	}
}

func (f ObserverFuncs) OnSubjectCompleted(s model.SubjectState) {
	if f.Completed != nil {
		f.Completed(s)
	}
}

// MultiObserver fans every event out to all observers in order.
type MultiObserver []Observer

func (m MultiObserver) OnLog(ev LogEvent) {
	for _, o := range m {
		o.OnLog(ev)
	}
}

func (m MultiObserver) OnCounts(ev CountEvent) {
	for _, o := range m {
		o.OnCounts(ev)
	}
}

func (m MultiObserver) OnSubjectCompleted(s model.SubjectState) {
	for _, o := range m {
		o.OnSubjectCompleted(s)
	}
}

// Event is one item delivered by a ChannelObserver. Exactly one field is set.
type Event struct {
	Log       *LogEvent
	Counts    *CountEvent
	Completed *model.SubjectState
}

// ChannelObserver forwards events onto a channel.
//
// Sends block while the channel is full, so the consumer applies
// backpressure to the pipeline. Close may be called at any time, also while
// the pipeline is still running: blocked senders are released and later
// events are dropped.
type ChannelObserver struct {
	mu     sync.RWMutex
	ch     chan Event
	done   chan struct{}
	once   sync.Once
	closed bool
}

// NewChannelObserver creates an observer with the given channel buffer.
func NewChannelObserver(buffer int) *ChannelObserver {
	return &ChannelObserver{
		ch:   make(chan Event, buffer),
		done: make(chan struct{}),
	}
}

// Events returns the receive side of the channel.
func (c *ChannelObserver) Events() <-chan Event {
	return c.ch
}

// Close closes the channel.
func (c *ChannelObserver) Close() {
	c.once.Do(func() { close(c.done) })

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.ch)
	}
}

func (c *ChannelObserver) send(ev Event) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return
	}
	select {
	case c.ch <- ev:
	case <-c.done:
	}
}

func (c *ChannelObserver) OnLog(ev LogEvent)                      { c.send(Event{Log: &ev}) }
func (c *ChannelObserver) OnCounts(ev CountEvent)                 { c.send(Event{Counts: &ev}) }
func (c *ChannelObserver) OnSubjectCompleted(s model.SubjectState) { c.send(Event{Completed: &s}) }

// emitter applies count changes to a job before notifying the observer, so
// observers always see counters that already include the event.
type emitter struct {
	obs Observer
}

func newEmitter(obs Observer) emitter {
	if obs == nil {
		obs = ObserverFuncs{}
	}
	return emitter{obs: obs}
}

func (e emitter) log(ev LogEvent) {
	e.obs.OnLog(ev)
}

func (e emitter) addTotal(job *model.SubjectJob, n int) {
	if n <= 0 {
		return
	}
	job.AddTotal(n)
	e.obs.OnCounts(CountEvent{SubjectID: job.ID, TotalDelta: n})
}

func (e emitter) addDownloaded(job *model.SubjectJob, n int) {
	job.AddDownloaded(n)
	e.obs.OnCounts(CountEvent{SubjectID: job.ID, DownloadedDelta: n})
}

func (e emitter) savedLocation(job *model.SubjectJob, path string) {
	job.SetSavedLocation(path)
	e.obs.OnCounts(CountEvent{SubjectID: job.ID, SavedLocation: path})
}

func (e emitter) completed(job *model.SubjectJob) {
	job.MarkCompleted()
	e.obs.OnSubjectCompleted(job.Snapshot())
}
