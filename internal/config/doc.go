// Package config provides configuration management for savemyexam-downloader.
//
// This package handles:
//   - Loading settings from a YAML file with viper, over built-in defaults
//   - Environment overrides with the SME_ prefix (SME_DOWNLOAD_ROOT, ...)
//   - Reading account credentials from a .env file
//   - Conversion to the retry, advisor, driver and site configs
//
// # Default Settings
//
// Use DefaultSettings() to get sensible defaults:
//
//	settings := config.DefaultSettings()
//	// Downloads to ~/Documents/SaveMyExams
//	// One subject at a time, 1 section and 5 downloads in parallel
//	// 3 attempts per file with 1s to 5s backoff, 3 retry passes
//
// # Loading from File
//
//	settings, err := config.Load("") // ~/.config/savemyexam-downloader/config.yaml
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Command-line flags can be bound first:
//
//	v := config.NewViper()
//	_ = v.BindPFlag("download.root", cmd.Flags().Lookup("root"))
//	settings, err := config.LoadFrom(v, path)
//
// # Credentials
//
//	creds, err := config.LoadCredentials(".env") // ACCOUNT_EMAIL, ACCOUNT_PASSWORD
//
// # Saving Settings
//
//	settings.Download.Root = "/data/sme"
//	err := settings.Save(config.DefaultPath())
package config
