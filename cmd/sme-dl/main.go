package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/iamfaazi/savemyexam-downloader/internal/config"
	"github.com/iamfaazi/savemyexam-downloader/internal/logging"
	"github.com/iamfaazi/savemyexam-downloader/internal/savemyexams"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// app carries what every subcommand needs after the root has loaded config.
type app struct {
	v        *viper.Viper
	settings *config.Settings

	configPath string
	envFile    string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if ctx.Err() != nil {
			os.Exit(130)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{v: config.NewViper()}

	root := &cobra.Command{
		Use:           "sme-dl",
		Short:         "Download revision notes and exam questions from Save My Exams",
		Long:          "sme-dl downloads the PDF revision notes and exam questions of your Save My Exams subjects.\n\nFor interactive mode, use: sme-tui",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "path to config file (default "+config.DefaultPath()+")")
	pf.StringVar(&a.envFile, "env-file", ".env", "file holding ACCOUNT_EMAIL and ACCOUNT_PASSWORD")
	pf.String("log-level", "", "diagnostic log level (debug, info, warn, error)")
	pf.String("db", "", "path to the run history database")
	_ = a.v.BindPFlag("log.level", pf.Lookup("log-level"))
	_ = a.v.BindPFlag("store.sqlite_path", pf.Lookup("db"))

	root.AddCommand(
		newSubjectsCmd(a),
		newDownloadCmd(a),
		newHistoryCmd(a),
	)
	return root
}

func (a *app) load() error {
	settings, err := config.LoadFrom(a.v, a.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	a.settings = settings

	return logging.Setup(settings.Log.Level, os.Stderr)
}

// login signs in with the credentials from the env file.
func (a *app) login(ctx context.Context) (*savemyexams.Session, error) {
	creds, err := config.LoadCredentials(a.envFile)
	if err != nil {
		return nil, err
	}

	session, err := savemyexams.Login(ctx, creds, a.settings.ToSiteOptions())
	if err != nil {
		return nil, err
	}
	log.Debug().Str("greeting", session.Greeting()).Msg("logged in")
	return session, nil
}
