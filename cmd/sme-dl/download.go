package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/iamfaazi/savemyexam-downloader/internal/advisor"
	"github.com/iamfaazi/savemyexam-downloader/internal/download"
	"github.com/iamfaazi/savemyexam-downloader/internal/http"
	"github.com/iamfaazi/savemyexam-downloader/internal/model"
	"github.com/iamfaazi/savemyexam-downloader/internal/store"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var errNoSelection = errors.New("no subjects selected: pass --subject or --all")

func newDownloadCmd(a *app) *cobra.Command {
	var (
		selectors []string
		all       bool
		verbose   bool
		noHistory bool
	)

	cmd := &cobra.Command{
		Use:   "download",
		Short: "Download the PDFs of one or more subjects",
		Example: `  sme-dl download --subject Biology
  sme-dl download --subject 1 --subject 3 --root ~/sme
  sme-dl download --all`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if len(selectors) == 0 && !all {
				return errNoSelection
			}
			return a.download(cmd.Context(), selectors, all, verbose, noHistory)
		},
	}

	f := cmd.Flags()
	f.StringSliceVarP(&selectors, "subject", "s", nil, "subject title or number from 'sme-dl subjects' (repeatable)")
	f.BoolVar(&all, "all", false, "download every subject on the account")
	f.BoolVarP(&verbose, "verbose", "v", false, "show verbose output")
	f.BoolVar(&noHistory, "no-history", false, "do not record the run in the history database")
	f.String("root", "", "output directory (overrides config)")
	f.Int("parallel-subjects", 0, "subjects downloaded at the same time")
	_ = a.v.BindPFlag("download.root", f.Lookup("root"))
	_ = a.v.BindPFlag("download.subject_concurrency", f.Lookup("parallel-subjects"))

	return cmd
}

func (a *app) download(ctx context.Context, selectors []string, all, verbose, noHistory bool) error {
	session, err := a.login(ctx)
	if err != nil {
		return err
	}
	defer session.Close()

	locator := session.Locator()
	available, err := locator.ListSubjects(ctx)
	if err != nil {
		return err
	}

	jobs, err := selectSubjects(available, selectors, all)
	if err != nil {
		return err
	}

	fmt.Println("📚 Save My Exams Downloader")
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Println(session.Greeting())
	fmt.Println()

	opts := a.settings.ToDriverOptions()
	fs := afero.NewOsFs()
	driver := download.NewDriver(
		locator,
		http.NewFileWriter(session.Client(), fs),
		advisor.New(a.settings.ToAdvisorConfig(), session.Client()),
		fs,
		printer(verbose),
		opts,
	)

	summary, runErr := driver.Run(ctx, jobs)

	if !noHistory && summary != nil && !errors.Is(runErr, download.ErrSetup) {
		a.record(summary)
	}
	if runErr != nil {
		return runErr
	}

	fmt.Println()
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("✨ Complete! Downloaded %s/%s files in %s\n",
		humanize.Comma(int64(summary.Downloaded())),
		humanize.Comma(int64(summary.Total())),
		summary.FinishedAt.Sub(summary.StartedAt).Round(time.Second))
	if n := len(summary.Failures); n > 0 {
		fmt.Printf("   %d %s could not be downloaded, run again to retry them\n", n, plural(n, "file", "files"))
	}
	fmt.Printf("   Saved to %s\n", opts.Root)
	return nil
}

// record stores the run in the history database. Failures are logged only;
// the download itself already succeeded.
func (a *app) record(summary *download.Summary) {
	st, err := store.Open(a.settings.Store.SQLitePath)
	if err != nil {
		log.Warn().Err(err).Msg("run history unavailable")
		return
	}
	defer st.Close()

	if err := st.SaveRun(context.Background(), summary); err != nil {
		log.Warn().Err(err).Str("run", summary.RunID).Msg("failed to record run")
	}
}

// selectSubjects resolves selectors against the account's subjects. A selector
// is a 1-based number from the subjects listing, a title or a "Title (Level)"
// display name, compared case-insensitively.
func selectSubjects(available []*model.SubjectJob, selectors []string, all bool) ([]*model.SubjectJob, error) {
	if all {
		return available, nil
	}

	var (
		picked []*model.SubjectJob
		seen   = make(map[string]bool)
	)
	for _, sel := range selectors {
		sel = strings.TrimSpace(sel)
		if sel == "" {
			continue
		}

		matches := matchSubject(available, sel)
		if len(matches) == 0 {
			return nil, fmt.Errorf("unknown subject %q (see 'sme-dl subjects')", sel)
		}
		for _, job := range matches {
			if !seen[job.ID] {
				seen[job.ID] = true
				picked = append(picked, job)
			}
		}
	}

	if len(picked) == 0 {
		return nil, errNoSelection
	}
	return picked, nil
}

func matchSubject(available []*model.SubjectJob, sel string) []*model.SubjectJob {
	if n, err := strconv.Atoi(sel); err == nil {
		if n < 1 || n > len(available) {
			return nil
		}
		return available[n-1 : n]
	}

	var out []*model.SubjectJob
	for _, job := range available {
		if strings.EqualFold(job.DisplayName(), sel) {
			return []*model.SubjectJob{job}
		}
		if strings.EqualFold(job.Title, sel) {
			out = append(out, job)
		}
	}
	return out
}

// printer writes progress lines to stdout. Per-chunk progress is skipped;
// verbose lines only show with --verbose.
func printer(verbose bool) download.Observer {
	return download.ObserverFuncs{
		Log: func(ev download.LogEvent) {
			if ev.Level == download.LevelProgress {
				return
			}
			if ev.Level == download.LevelVerbose && !verbose {
				return
			}

			prefix := ""
			switch ev.Level {
			case download.LevelError:
				prefix = "❌ "
			case download.LevelWarning:
				prefix = "⚠️  "
			case download.LevelSuccess:
				prefix = "✅ "
			case download.LevelInfo:
				prefix = "ℹ️  "
			default:
				prefix = "   "
			}

			fmt.Println(prefix + ev.Message)
		},
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
