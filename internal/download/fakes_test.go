package download

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/iamfaazi/savemyexam-downloader/internal/http"
	"github.com/iamfaazi/savemyexam-downloader/internal/model"
	"github.com/iamfaazi/savemyexam-downloader/internal/retry"
	"github.com/spf13/afero"
)

var errFlaky = errors.New("connection reset")

// gauge tracks how many callers are inside a section of code at once.
type gauge struct {
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (g *gauge) enter() {
	n := g.inFlight.Add(1)
	for {
		p := g.peak.Load()
		if n <= p || g.peak.CompareAndSwap(p, n) {
			return
		}
	}
}

func (g *gauge) leave() { g.inFlight.Add(-1) }

// fakeLocator serves a fixed tree keyed by node location.
type fakeLocator struct {
	mu       sync.Mutex
	tree     map[string][]model.ResourceNode
	listErr  map[string]error
	noLink   map[string]bool
	resolves map[string]int

	// listDelay slows down listing of Section and SubSection nodes, whose
	// concurrency is recorded per kind in listing.
	listDelay time.Duration
	listing   map[model.Kind]*gauge
}

func newFakeLocator() *fakeLocator {
	return &fakeLocator{
		tree:     map[string][]model.ResourceNode{},
		listErr:  map[string]error{},
		noLink:   map[string]bool{},
		resolves: map[string]int{},
		listing: map[model.Kind]*gauge{
			model.KindSection:    {},
			model.KindSubSection: {},
		},
	}
}

func (l *fakeLocator) listPeak(kind model.Kind) int {
	return int(l.listing[kind].peak.Load())
}

func (l *fakeLocator) add(parent string, kind model.Kind, group model.GroupKind, titles ...string) []string {
	var locs []string
	for _, title := range titles {
		loc := parent + "/" + title
		n := model.NewNode(kind, title, loc, group)
		l.tree[parent] = append(l.tree[parent], *n)
		locs = append(locs, loc)
	}
	return locs
}

func (l *fakeLocator) ListChildren(ctx context.Context, node *model.ResourceNode) ([]*model.ResourceNode, error) {
	if g, ok := l.listing[node.Kind]; ok {
		g.enter()
		defer g.leave()
		if l.listDelay > 0 {
			time.Sleep(l.listDelay)
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.listErr[node.Location]; err != nil {
		return nil, err
	}
	var out []*model.ResourceNode
	for _, tmpl := range l.tree[node.Location] {
		c := tmpl
		c.Children = nil
		out = append(out, &c)
	}
	return out, nil
}

func (l *fakeLocator) ResolveLeafLocation(ctx context.Context, leaf *model.ResourceNode) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.resolves[leaf.Location]++
	if l.noLink[leaf.Location] {
		return "", fmt.Errorf("%s: %w", leaf.Title, ErrNoDownloadLink)
	}
	return "pdf:" + leaf.Location, nil
}

func (l *fakeLocator) totalResolves() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, c := range l.resolves {
		n += c
	}
	return n
}

// fakeFetcher writes a small file for every request. Locations listed in
// failures fail that many times; -1 fails forever.
type fakeFetcher struct {
	fs    afero.Fs
	delay time.Duration

	mu       sync.Mutex
	failures map[string]int
	calls    map[string]int

	inFlight atomic.Int32
	peak     atomic.Int32
}

func newFakeFetcher(fs afero.Fs) *fakeFetcher {
	return &fakeFetcher{fs: fs, failures: map[string]int{}, calls: map[string]int{}}
}

func (f *fakeFetcher) Download(ctx context.Context, location, dest string, onProgress func(float64)) (http.Outcome, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}

	f.mu.Lock()
	f.calls[location]++
	left := f.failures[location]
	if left > 0 {
		f.failures[location] = left - 1
	}
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(f.delay):
		}
	}
	if left != 0 {
		return 0, &http.TransferError{Kind: http.NetworkError, URL: location, Err: errFlaky}
	}

	onProgress(50)
	if err := afero.WriteFile(f.fs, dest, []byte("%PDF-1.4"), 0644); err != nil {
		return 0, err
	}
	onProgress(100)
	return http.OutcomeDownloaded, nil
}

func (f *fakeFetcher) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *fakeFetcher) callsFor(location string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[location]
}

// recorder collects every event.
type recorder struct {
	mu        sync.Mutex
	logs      []LogEvent
	counts    []CountEvent
	completed []model.SubjectState
}

func (r *recorder) OnLog(ev LogEvent) {
	r.mu.Lock()
	r.logs = append(r.logs, ev)
	r.mu.Unlock()
}

func (r *recorder) OnCounts(ev CountEvent) {
	r.mu.Lock()
	r.counts = append(r.counts, ev)
	r.mu.Unlock()
}

func (r *recorder) OnSubjectCompleted(s model.SubjectState) {
	r.mu.Lock()
	r.completed = append(r.completed, s)
	r.mu.Unlock()
}

// terminals returns the number of terminal lines per LineID.
func (r *recorder) terminals() map[string]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[string]int{}
	for _, ev := range r.logs {
		if ev.Terminal {
			out[ev.LineID]++
		}
	}
	return out
}

func (r *recorder) messages(level ProgressLevel) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, ev := range r.logs {
		if ev.Level == level {
			out = append(out, ev.Message)
		}
	}
	return out
}

func fastPolicy() retry.Policy {
	return retry.Policy{MaxAttempts: 3, Floor: time.Millisecond, Ceil: 2 * time.Millisecond, Factor: 2}
}

const subjectURL = "https://example.test/biology"

// buildSubject creates a subject with a Revision Notes group holding one
// section of two sub-sections (3 leaves each) and an Exam Questions group
// holding two sections of two leaves each. It returns all leaf locations.
func buildSubject(l *fakeLocator) []string {
	groups := l.add(subjectURL, model.KindResourceGroup, model.GroupUnknown, model.RevisionNotesTitle, model.ExamQuestionsTitle)
	// Groups carry their kind.
	l.tree[subjectURL][0].Group = model.GroupRevisionNotes
	l.tree[subjectURL][1].Group = model.GroupExamQuestions

	var leaves []string
	notes := l.add(groups[0], model.KindSection, model.GroupRevisionNotes, "Cells")
	subs := l.add(notes[0], model.KindSubSection, model.GroupRevisionNotes, "Structure", "Transport")
	leaves = append(leaves, l.add(subs[0], model.KindLeafFile, model.GroupRevisionNotes, "Organelles", "Membranes", "Microscopy")...)
	leaves = append(leaves, l.add(subs[1], model.KindLeafFile, model.GroupRevisionNotes, "Diffusion", "Osmosis", "Active Transport")...)

	qs := l.add(groups[1], model.KindSection, model.GroupExamQuestions, "Topic 1: Cells", "Topic 2: Enzymes")
	leaves = append(leaves, l.add(qs[0], model.KindLeafFile, model.GroupExamQuestions, "Easy", "Hard")...)
	leaves = append(leaves, l.add(qs[1], model.KindLeafFile, model.GroupExamQuestions, "Easy", "Hard")...)
	return leaves
}
