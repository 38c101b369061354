// Package tui provides a Bubble Tea terminal user interface for savemyexam-downloader.
package tui

import (
	"context"
	"errors"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/iamfaazi/savemyexam-downloader/internal/config"
	"github.com/iamfaazi/savemyexam-downloader/internal/download"
	"github.com/iamfaazi/savemyexam-downloader/internal/logging"
	"github.com/iamfaazi/savemyexam-downloader/internal/model"
	"github.com/iamfaazi/savemyexam-downloader/internal/savemyexams"
)

var errCancelled = errors.New("cancelled by user")

// State represents the current UI state.
type State int

const (
	StateLogin State = iota
	StateSelect
	StateDownloading
	StateComplete
	StateError
)

// Model is the Bubble Tea model for the TUI.
type Model struct {
	state    State
	spinner  spinner.Model
	progress progress.Model
	settings *config.Settings
	envFile  string
	err      error

	// Program lifetime context; login and every run derive from it.
	ctx    context.Context
	cancel context.CancelFunc

	session  *savemyexams.Session
	greeting string
	subjects []*model.SubjectJob
	cursor   int
	selected map[int]bool
	verbose  bool

	// Current run
	runCancel  context.CancelFunc
	cancelling bool
	obs        *download.ChannelObserver
	board      *board
	summary    *download.Summary
	recordErr  error

	width  int
	height int
}

// NewModel creates a new TUI model.
func NewModel(settings *config.Settings, envFile string) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 50

	ctx, cancel := context.WithCancel(context.Background())

	return Model{
		state:    StateLogin,
		spinner:  sp,
		progress: prog,
		settings: settings,
		envFile:  envFile,
		ctx:      ctx,
		cancel:   cancel,
		selected: make(map[int]bool),
	}
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.login())
}

// Message types
type (
	// LoginDoneMsg is sent when login and subject discovery complete.
	LoginDoneMsg struct {
		Session  *savemyexams.Session
		Subjects []*model.SubjectJob
		Err      error
	}

	// EventMsg carries one pipeline event.
	EventMsg struct {
		Event download.Event
	}

	// EventsClosedMsg is sent once the run's event stream has ended.
	EventsClosedMsg struct{}

	// RunDoneMsg is sent when the pipeline returns. RecordErr is set when
	// the run could not be saved to the history database.
	RunDoneMsg struct {
		Summary   *download.Summary
		Err       error
		RecordErr error
	}
)

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = msg.Width - 20
		if m.progress.Width > 80 {
			m.progress.Width = 80
		}
		if m.progress.Width < 20 {
			m.progress.Width = 20
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case LoginDoneMsg:
		if msg.Err != nil {
			m.state = StateError
			m.err = msg.Err
			return m, nil
		}
		m.session = msg.Session
		m.greeting = msg.Session.Greeting()
		m.subjects = msg.Subjects
		m.state = StateSelect

	case EventMsg:
		if m.board != nil {
			m.board.apply(msg.Event)
			cmds = append(cmds, m.progress.SetPercent(m.board.percent()))
		}
		cmds = append(cmds, waitForEvent(m.obs))

	case EventsClosedMsg:
		// Nothing left to read.

	case RunDoneMsg:
		m.summary = msg.Summary
		m.recordErr = msg.RecordErr
		m.runCancel = nil
		switch {
		case m.cancelling || errors.Is(msg.Err, context.Canceled):
			m.state = StateError
			m.err = errCancelled
		case msg.Err != nil:
			m.state = StateError
			m.err = msg.Err
		default:
			m.state = StateComplete
		}
		m.cancelling = false

	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		m.shutdown()
		return m, tea.Quit
	}

	switch m.state {
	case StateLogin:
		if msg.String() == "esc" {
			m.shutdown()
			return m, tea.Quit
		}

	case StateSelect:
		switch msg.String() {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.subjects)-1 {
				m.cursor++
			}
		case " ", "space", "x":
			m.selected[m.cursor] = !m.selected[m.cursor]
		case "a":
			all := len(m.selectedJobs()) < len(m.subjects)
			for i := range m.subjects {
				m.selected[i] = all
			}
		case "v":
			m.verbose = !m.verbose
		case "enter":
			if jobs := m.selectedJobs(); len(jobs) > 0 {
				return m.startRun(jobs)
			}
		case "esc", "q":
			m.shutdown()
			return m, tea.Quit
		}

	case StateDownloading:
		if msg.String() == "esc" && m.runCancel != nil {
			m.cancelling = true
			m.runCancel()
		}

	case StateComplete, StateError:
		switch msg.String() {
		case "q", "esc":
			m.shutdown()
			return m, tea.Quit
		case "r":
			if m.session == nil {
				// Login failed; try again.
				m.state = StateLogin
				m.err = nil
				m.summary = nil
				m.recordErr = nil
				return m, tea.Batch(m.spinner.Tick, m.login())
			}
			m.state = StateSelect
			m.err = nil
			m.board = nil
			m.summary = nil
			m.recordErr = nil
			return m, m.progress.SetPercent(0)
		}
	}

	return m, nil
}

// selectedJobs returns fresh jobs for the selected subjects so that a second
// run starts from zero counters.
func (m Model) selectedJobs() []*model.SubjectJob {
	var jobs []*model.SubjectJob
	for i, s := range m.subjects {
		if m.selected[i] {
			jobs = append(jobs, model.NewSubjectJob(s.Title, s.Level, s.ResourceURL))
		}
	}
	return jobs
}

func (m Model) startRun(jobs []*model.SubjectJob) (tea.Model, tea.Cmd) {
	runCtx, runCancel := context.WithCancel(m.ctx)

	m.state = StateDownloading
	m.runCancel = runCancel
	m.obs = download.NewChannelObserver(64)
	m.board = newBoard(jobs, m.verbose)
	m.summary = nil
	m.recordErr = nil

	return m, tea.Batch(
		m.spinner.Tick,
		m.run(runCtx, jobs, m.obs),
		waitForEvent(m.obs),
	)
}

// shutdown cancels any running work and ends the session.
func (m Model) shutdown() {
	m.cancel()
	if m.obs != nil {
		m.obs.Close()
	}
	if m.session != nil {
		_ = m.session.Close()
	}
}

// Run starts the TUI application. Diagnostic logging is silenced so it does
// not draw over the interface.
func Run(settings *config.Settings, envFile string) error {
	logging.Discard()

	p := tea.NewProgram(NewModel(settings, envFile), tea.WithAltScreen())
	final, err := p.Run()
	if m, ok := final.(Model); ok {
		m.shutdown()
	}
	return err
}
