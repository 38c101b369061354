package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/iamfaazi/savemyexam-downloader/internal/download"
)

// Styles for the TUI
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF6B6B")).
			MarginBottom(1)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#4ECDC4"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#95E1A3"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFE66D"))

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A8DADC"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6C757D"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#4ECDC4")).
			Padding(1, 2)

	subjectStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F8B500"))
)

// View renders the UI.
func (m Model) View() string {
	var b strings.Builder

	// Header
	b.WriteString(titleStyle.Render("📚 Save My Exams Downloader"))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Download revision notes and exam questions"))
	b.WriteString("\n\n")

	switch m.state {
	case StateLogin:
		b.WriteString(m.viewLogin())
	case StateSelect:
		b.WriteString(m.viewSelect())
	case StateDownloading:
		b.WriteString(m.viewDownloading())
	case StateComplete:
		b.WriteString(m.viewComplete())
	case StateError:
		b.WriteString(m.viewError())
	}

	// Footer
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(m.helpText()))

	return b.String()
}

func (m Model) viewLogin() string {
	return m.spinner.View() + " " + subtitleStyle.Render("Logging in...") + "\n"
}

func (m Model) viewSelect() string {
	var b strings.Builder

	if m.greeting != "" {
		b.WriteString(successStyle.Render(m.greeting))
		b.WriteString("\n\n")
	}

	if len(m.subjects) == 0 {
		b.WriteString(warningStyle.Render("No subjects found on this account."))
		b.WriteString("\n")
		return b.String()
	}

	b.WriteString(subtitleStyle.Render("Choose subjects to download:"))
	b.WriteString("\n\n")
	for i, s := range m.subjects {
		cursor := "  "
		if i == m.cursor {
			cursor = "› "
		}
		check := "[ ]"
		if m.selected[i] {
			check = "[×]"
		}
		line := fmt.Sprintf("%s%s %s", cursor, check, s.DisplayName())
		if i == m.cursor {
			line = subjectStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	verboseCheck := "[ ]"
	if m.verbose {
		verboseCheck = "[×]"
	}
	b.WriteString("\n")
	b.WriteString(infoStyle.Render("Options:"))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("  %s Verbose output (v)\n", verboseCheck))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("Download path: %s", m.settings.Download.Root)))
	b.WriteString("\n")

	return b.String()
}

func (m Model) viewDownloading() string {
	var b strings.Builder

	if m.cancelling {
		b.WriteString(m.spinner.View() + " " + warningStyle.Render("Cancelling..."))
	} else {
		b.WriteString(m.spinner.View() + " " + subtitleStyle.Render("Downloading..."))
	}
	b.WriteString("\n\n")

	if m.board == nil {
		return b.String()
	}

	for _, id := range m.board.order {
		row := m.board.subjects[id]
		mark := "♦"
		if row.completed {
			mark = "✓"
		}
		b.WriteString(subjectStyle.Render(fmt.Sprintf("  %s %s", mark, row.name)))
		b.WriteString(dimStyle.Render(fmt.Sprintf("  %d/%d", row.downloaded, row.total)))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	done, total := m.board.totals()
	b.WriteString(m.progress.View())
	b.WriteString("\n")
	b.WriteString(infoStyle.Render(fmt.Sprintf("Files: %s/%s", humanize.Comma(int64(done)), humanize.Comma(int64(total)))))
	b.WriteString("\n\n")

	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) viewComplete() string {
	if m.summary == nil {
		return boxStyle.Render("✨ Download Complete!")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "✨ Download Complete!\n\n")
	fmt.Fprintf(&b, "Subjects: %d\n", len(m.summary.Subjects))
	fmt.Fprintf(&b, "Files: %s/%s\n", humanize.Comma(int64(m.summary.Downloaded())), humanize.Comma(int64(m.summary.Total())))
	fmt.Fprintf(&b, "Took: %s", m.summary.FinishedAt.Sub(m.summary.StartedAt).Round(time.Second))
	if n := len(m.summary.Failures); n > 0 {
		fmt.Fprintf(&b, "\nFailed: %d", n)
	}

	out := boxStyle.Render(b.String()) + "\n\n"
	if m.recordErr != nil {
		out += warningStyle.Render("⚠ Run not saved to history: "+m.recordErr.Error()) + "\n\n"
	}
	return out + m.renderLogs()
}

func (m Model) viewError() string {
	var b strings.Builder

	b.WriteString(errorStyle.Render("❌ Error occurred:"))
	b.WriteString("\n\n")
	if m.err != nil {
		b.WriteString(fmt.Sprintf("  %s", m.err.Error()))
	}
	b.WriteString("\n")

	return b.String()
}

func (m Model) renderLogs() string {
	if m.board == nil {
		return ""
	}

	var b strings.Builder
	for _, line := range m.board.lines {
		var style lipgloss.Style
		prefix := "•"
		switch line.level {
		case download.LevelError:
			style = errorStyle
			prefix = "✗"
		case download.LevelWarning:
			style = warningStyle
			prefix = "!"
		case download.LevelSuccess:
			style = successStyle
			prefix = "✓"
		case download.LevelInfo:
			style = infoStyle
			prefix = "›"
		default:
			style = dimStyle
		}

		text := prefix + " " + line.message
		if !line.terminal && line.percent > 0 && line.percent < 100 {
			text += fmt.Sprintf(" %3.0f%%", line.percent)
		}
		b.WriteString(style.Render(text))
		b.WriteString("\n")
	}

	return b.String()
}

func (m Model) helpText() string {
	switch m.state {
	case StateLogin:
		return "esc: quit"
	case StateSelect:
		return "↑/↓: move • space: select • a: all • v: verbose • enter: start • q: quit"
	case StateDownloading:
		return "esc: cancel"
	case StateComplete, StateError:
		return "r: new download • q: quit"
	}
	return ""
}
