package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/iamfaazi/savemyexam-downloader/internal/advisor"
	"github.com/iamfaazi/savemyexam-downloader/internal/config"
	"github.com/iamfaazi/savemyexam-downloader/internal/download"
	"github.com/iamfaazi/savemyexam-downloader/internal/http"
	"github.com/iamfaazi/savemyexam-downloader/internal/model"
	"github.com/iamfaazi/savemyexam-downloader/internal/savemyexams"
	"github.com/iamfaazi/savemyexam-downloader/internal/store"
	"github.com/spf13/afero"
)

// login signs in and lists the account's subjects.
func (m Model) login() tea.Cmd {
	ctx, settings, envFile := m.ctx, m.settings, m.envFile

	return func() tea.Msg {
		creds, err := config.LoadCredentials(envFile)
		if err != nil {
			return LoginDoneMsg{Err: err}
		}

		session, err := savemyexams.Login(ctx, creds, settings.ToSiteOptions())
		if err != nil {
			return LoginDoneMsg{Err: err}
		}

		subjects, err := session.Locator().ListSubjects(ctx)
		if err != nil {
			_ = session.Close()
			return LoginDoneMsg{Err: err}
		}
		return LoginDoneMsg{Session: session, Subjects: subjects}
	}
}

// run drives the pipeline in the background. Events reach the model through
// obs, which is closed when the run returns.
func (m Model) run(ctx context.Context, jobs []*model.SubjectJob, obs *download.ChannelObserver) tea.Cmd {
	session, settings := m.session, m.settings

	return func() tea.Msg {
		defer obs.Close()

		fs := afero.NewOsFs()
		driver := download.NewDriver(
			session.Locator(),
			http.NewFileWriter(session.Client(), fs),
			advisor.New(settings.ToAdvisorConfig(), session.Client()),
			fs,
			obs,
			settings.ToDriverOptions(),
		)

		summary, err := driver.Run(ctx, jobs)
		msg := RunDoneMsg{Summary: summary, Err: err}
		if summary != nil && err == nil {
			msg.RecordErr = record(settings.Store.SQLitePath, summary)
		}
		return msg
	}
}

// record stores a finished run in the history database. A failure here
// does not fail the run; the files are already on disk.
func record(path string, summary *download.Summary) error {
	st, err := store.Open(path)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer st.Close()
	if err := st.SaveRun(context.Background(), summary); err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	return nil
}

// waitForEvent reads the next pipeline event.
func waitForEvent(obs *download.ChannelObserver) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-obs.Events()
		if !ok {
			return EventsClosedMsg{}
		}
		return EventMsg{Event: ev}
	}
}
