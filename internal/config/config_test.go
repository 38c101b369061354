package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/iamfaazi/savemyexam-downloader/internal/download"
	"github.com/iamfaazi/savemyexam-downloader/internal/savemyexams"
	"github.com/stretchr/testify/require"
)

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()

	require.NoError(t, s.Validate())
	require.Equal(t, 1, s.Download.SubjectConcurrency)
	require.Equal(t, 1, s.Download.SectionConcurrencyDefault)
	require.Equal(t, 5, s.Download.DownloadConcurrencyDefault)
	require.Equal(t, 3, s.Retry.MaxAttempts)
	require.Equal(t, 1000, s.Retry.BackoffFloorMS)
	require.Equal(t, 5000, s.Retry.BackoffCeilMS)
	require.Equal(t, download.DefaultMaxPasses, s.Retry.MaxPasses)
	require.Equal(t, savemyexams.DefaultBaseURL, s.Site.BaseURL)
	require.Equal(t, "info", s.Log.Level)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestSaveThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg", "config.yaml")

	s := DefaultSettings()
	s.Download.Root = "/data/sme"
	s.Download.DownloadConcurrencyDefault = 8
	s.Retry.MaxPasses = 1
	s.Site.NavigationTimeout = 7 * time.Second
	require.NoError(t, s.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "/data/sme", loaded.Download.Root)
	require.Equal(t, 8, loaded.Download.DownloadConcurrencyDefault)
	require.Equal(t, 1, loaded.Retry.MaxPasses)
	require.Equal(t, 7*time.Second, loaded.Site.NavigationTimeout)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("retry:\n  max_attempts: 5\n"), 0644))

	s, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 5, s.Retry.MaxAttempts)
	require.Equal(t, 5000, s.Retry.BackoffCeilMS)
	require.Equal(t, 5, s.Download.DownloadConcurrencyDefault)
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("download:\n  root: /from/file\n"), 0644))

	t.Setenv("SME_DOWNLOAD_ROOT", "/from/env")
	t.Setenv("CONCURRENT_DOWNLOAD_LIMIT", "9")

	s, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "/from/env", s.Download.Root)
	require.Equal(t, 9, s.Download.DownloadConcurrencyDefault)
}

func TestLoad_InvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "download:\n  subject_concurrency: 0\nretry:\n  backoff_floor_ms: 9000\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))

	_, err := Load(path)
	require.ErrorContains(t, err, "subject_concurrency")
	require.ErrorContains(t, err, "backoff")
}

func TestConverters(t *testing.T) {
	s := DefaultSettings()
	s.Download.Root = "/data"
	s.Retry.BackoffFloorMS = 250
	s.Retry.BackoffCeilMS = 2000

	p := s.ToRetryPolicy()
	require.Equal(t, 250*time.Millisecond, p.Floor)
	require.Equal(t, 2*time.Second, p.Ceil)
	require.Equal(t, 3, p.MaxAttempts)

	opts := s.ToDriverOptions()
	require.Equal(t, "/data", opts.Root)
	require.Equal(t, p.Floor, opts.Retry.Floor)
	require.Equal(t, s.Retry.MaxPasses, opts.MaxPasses)

	adv := s.ToAdvisorConfig()
	require.Equal(t, 1, adv.SectionDefault)
	require.Equal(t, 5, adv.DownloadDefault)

	site := s.ToSiteOptions()
	require.Equal(t, savemyexams.DefaultBaseURL, site.BaseURL)
}

func TestLoadCredentials(t *testing.T) {
	t.Setenv(EnvEmail, "")
	t.Setenv(EnvPassword, "")

	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("ACCOUNT_EMAIL=student@example.com\nACCOUNT_PASSWORD=hunter2\n"), 0600))

	// godotenv does not override variables that are already set, even empty.
	os.Unsetenv(EnvEmail)
	os.Unsetenv(EnvPassword)

	creds, err := LoadCredentials(envFile)
	require.NoError(t, err)
	require.Equal(t, "student@example.com", creds.Email)
	require.Equal(t, "hunter2", creds.Password)
}

func TestLoadCredentials_Missing(t *testing.T) {
	t.Setenv(EnvEmail, "")
	t.Setenv(EnvPassword, "")

	_, err := LoadCredentials(filepath.Join(t.TempDir(), "absent.env"))
	require.ErrorIs(t, err, savemyexams.ErrMissingCredentials)
}
