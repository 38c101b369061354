package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/iamfaazi/savemyexam-downloader/internal/advisor"
	"github.com/iamfaazi/savemyexam-downloader/internal/download"
	"github.com/iamfaazi/savemyexam-downloader/internal/retry"
	"github.com/iamfaazi/savemyexam-downloader/internal/savemyexams"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// AppName names the per-user config directory.
const AppName = "savemyexam-downloader"

// EnvPrefix prefixes every environment override, e.g. SME_DOWNLOAD_ROOT.
const EnvPrefix = "SME"

// Settings holds all configuration options.
type Settings struct {
	Download DownloadSettings `mapstructure:"download" yaml:"download"`
	Retry    RetrySettings    `mapstructure:"retry" yaml:"retry"`
	Advisor  AdvisorSettings  `mapstructure:"advisor" yaml:"advisor"`
	Site     SiteSettings     `mapstructure:"site" yaml:"site"`
	Log      LogSettings      `mapstructure:"log" yaml:"log"`
	Store    StoreSettings    `mapstructure:"store" yaml:"store"`
}

type DownloadSettings struct {
	Root                       string `mapstructure:"root" yaml:"root"`
	SubjectConcurrency         int    `mapstructure:"subject_concurrency" yaml:"subject_concurrency"`
	SectionConcurrencyDefault  int    `mapstructure:"section_concurrency_default" yaml:"section_concurrency_default"`
	DownloadConcurrencyDefault int    `mapstructure:"download_concurrency_default" yaml:"download_concurrency_default"`
}

type RetrySettings struct {
	MaxAttempts    int `mapstructure:"max_attempts" yaml:"max_attempts"`
	BackoffFloorMS int `mapstructure:"backoff_floor_ms" yaml:"backoff_floor_ms"`
	BackoffCeilMS  int `mapstructure:"backoff_ceil_ms" yaml:"backoff_ceil_ms"`
	MaxPasses      int `mapstructure:"max_passes" yaml:"max_passes"`
}

type AdvisorSettings struct {
	ProbeURL      string        `mapstructure:"probe_url" yaml:"probe_url"`
	ProbeMaxBytes int64         `mapstructure:"probe_max_bytes" yaml:"probe_max_bytes"`
	ProbeTimeout  time.Duration `mapstructure:"probe_timeout" yaml:"probe_timeout"`
}

type SiteSettings struct {
	BaseURL           string        `mapstructure:"base_url" yaml:"base_url"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	UserAgent         string        `mapstructure:"user_agent" yaml:"user_agent"`
}

type LogSettings struct {
	Level string `mapstructure:"level" yaml:"level"`
}

type StoreSettings struct {
	SQLitePath string `mapstructure:"sqlite_path" yaml:"sqlite_path"`
}

// DefaultSettings returns settings with default values.
func DefaultSettings() *Settings {
	homeDir, _ := os.UserHomeDir()
	adv := advisor.DefaultConfig()
	policy := retry.DefaultPolicy()
	site := savemyexams.DefaultOptions()

	return &Settings{
		Download: DownloadSettings{
			Root:                       filepath.Join(homeDir, "Documents", "SaveMyExams"),
			SubjectConcurrency:         1,
			SectionConcurrencyDefault:  adv.SectionDefault,
			DownloadConcurrencyDefault: adv.DownloadDefault,
		},
		Retry: RetrySettings{
			MaxAttempts:    policy.MaxAttempts,
			BackoffFloorMS: int(policy.Floor / time.Millisecond),
			BackoffCeilMS:  int(policy.Ceil / time.Millisecond),
			MaxPasses:      download.DefaultMaxPasses,
		},
		Advisor: AdvisorSettings{
			ProbeURL:      adv.ProbeURL,
			ProbeMaxBytes: adv.ProbeMaxBytes,
			ProbeTimeout:  adv.ProbeTimeout,
		},
		Site: SiteSettings{
			BaseURL:           site.BaseURL,
			NavigationTimeout: site.NavigationTimeout,
			UserAgent:         site.UserAgent,
		},
		Log:   LogSettings{Level: "info"},
		Store: StoreSettings{SQLitePath: defaultStorePath()},
	}
}

// DefaultPath returns the per-user config file location.
func DefaultPath() string {
	return filepath.Join(configDir(), "config.yaml")
}

func defaultStorePath() string {
	return filepath.Join(configDir(), "history.db")
}

func configDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, AppName)
}

// NewViper returns a viper instance with every key defaulted and environment
// overrides enabled. Callers may bind command-line flags to it before Load.
func NewViper() *viper.Viper {
	v := viper.New()
	d := DefaultSettings()

	v.SetDefault("download.root", d.Download.Root)
	v.SetDefault("download.subject_concurrency", d.Download.SubjectConcurrency)
	v.SetDefault("download.section_concurrency_default", d.Download.SectionConcurrencyDefault)
	v.SetDefault("download.download_concurrency_default", d.Download.DownloadConcurrencyDefault)
	v.SetDefault("retry.max_attempts", d.Retry.MaxAttempts)
	v.SetDefault("retry.backoff_floor_ms", d.Retry.BackoffFloorMS)
	v.SetDefault("retry.backoff_ceil_ms", d.Retry.BackoffCeilMS)
	v.SetDefault("retry.max_passes", d.Retry.MaxPasses)
	v.SetDefault("advisor.probe_url", d.Advisor.ProbeURL)
	v.SetDefault("advisor.probe_max_bytes", d.Advisor.ProbeMaxBytes)
	v.SetDefault("advisor.probe_timeout", d.Advisor.ProbeTimeout)
	v.SetDefault("site.base_url", d.Site.BaseURL)
	v.SetDefault("site.navigation_timeout", d.Site.NavigationTimeout)
	v.SetDefault("site.user_agent", d.Site.UserAgent)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("store.sqlite_path", d.Store.SQLitePath)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Older setups configured the limits with these names.
	_ = v.BindEnv("download.section_concurrency_default", EnvPrefix+"_DOWNLOAD_SECTION_CONCURRENCY_DEFAULT", "CONCURRENT_SECTIONS_LIMIT")
	_ = v.BindEnv("download.download_concurrency_default", EnvPrefix+"_DOWNLOAD_DOWNLOAD_CONCURRENCY_DEFAULT", "CONCURRENT_DOWNLOAD_LIMIT")

	return v
}

// Load reads settings from a YAML file on top of the defaults. A missing file
// at the default location is not an error; a missing explicit path is.
func Load(path string) (*Settings, error) {
	return LoadFrom(NewViper(), path)
}

// LoadFrom is Load with a caller-prepared viper instance (see NewViper).
func LoadFrom(v *viper.Viper, path string) (*Settings, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	if _, err := os.Stat(path); err != nil {
		if !errors.Is(err, fs.ErrNotExist) || explicit {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
	} else {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks the settings for values the pipeline cannot run with.
func (s *Settings) Validate() error {
	var errs []error
	if strings.TrimSpace(s.Download.Root) == "" {
		errs = append(errs, errors.New("download.root is required"))
	}
	if s.Download.SubjectConcurrency < 1 {
		errs = append(errs, errors.New("download.subject_concurrency must be at least 1"))
	}
	if s.Download.SectionConcurrencyDefault < 1 {
		errs = append(errs, errors.New("download.section_concurrency_default must be at least 1"))
	}
	if s.Download.DownloadConcurrencyDefault < 1 {
		errs = append(errs, errors.New("download.download_concurrency_default must be at least 1"))
	}
	if s.Retry.MaxAttempts < 1 {
		errs = append(errs, errors.New("retry.max_attempts must be at least 1"))
	}
	if s.Retry.BackoffFloorMS < 0 || s.Retry.BackoffCeilMS < s.Retry.BackoffFloorMS {
		errs = append(errs, errors.New("retry backoff must satisfy 0 <= backoff_floor_ms <= backoff_ceil_ms"))
	}
	if s.Retry.MaxPasses < 0 {
		errs = append(errs, errors.New("retry.max_passes must not be negative"))
	}
	if s.Site.BaseURL == "" {
		errs = append(errs, errors.New("site.base_url is required"))
	}
	return errors.Join(errs...)
}

// Save writes settings to a YAML file.
func (s *Settings) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := yaml.Marshal(s)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ToRetryPolicy converts settings to the leaf retry policy.
func (s *Settings) ToRetryPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts: s.Retry.MaxAttempts,
		Floor:       time.Duration(s.Retry.BackoffFloorMS) * time.Millisecond,
		Ceil:        time.Duration(s.Retry.BackoffCeilMS) * time.Millisecond,
		Factor:      retry.DefaultFactor,
	}
}

// ToAdvisorConfig converts settings to the concurrency advisor config.
func (s *Settings) ToAdvisorConfig() advisor.Config {
	return advisor.Config{
		SectionDefault:  s.Download.SectionConcurrencyDefault,
		DownloadDefault: s.Download.DownloadConcurrencyDefault,
		ProbeURL:        s.Advisor.ProbeURL,
		ProbeMaxBytes:   s.Advisor.ProbeMaxBytes,
		ProbeTimeout:    s.Advisor.ProbeTimeout,
	}
}

// ToDriverOptions converts settings to pipeline driver options.
func (s *Settings) ToDriverOptions() download.Options {
	return download.Options{
		Root:               s.Download.Root,
		SubjectConcurrency: s.Download.SubjectConcurrency,
		Retry:              s.ToRetryPolicy(),
		MaxPasses:          s.Retry.MaxPasses,
	}
}

// ToSiteOptions converts settings to session options.
func (s *Settings) ToSiteOptions() savemyexams.Options {
	return savemyexams.Options{
		BaseURL:           s.Site.BaseURL,
		NavigationTimeout: s.Site.NavigationTimeout,
		UserAgent:         s.Site.UserAgent,
	}
}

// Credential environment variables.
const (
	EnvEmail    = "ACCOUNT_EMAIL"
	EnvPassword = "ACCOUNT_PASSWORD"
)

// LoadCredentials reads the account credentials from the environment after
// loading envFile (a .env file) if it exists. Variables already set in the
// environment win over the file.
func LoadCredentials(envFile string) (savemyexams.Credentials, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return savemyexams.Credentials{}, fmt.Errorf("read %s: %w", envFile, err)
		}
	}

	creds := savemyexams.Credentials{
		Email:    strings.TrimSpace(os.Getenv(EnvEmail)),
		Password: os.Getenv(EnvPassword),
	}
	if creds.Email == "" || creds.Password == "" {
		return creds, fmt.Errorf("%w: set %s and %s", savemyexams.ErrMissingCredentials, EnvEmail, EnvPassword)
	}
	return creds, nil
}
