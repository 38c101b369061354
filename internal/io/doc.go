// Package ioutils provides file system helpers for the downloader.
//
// All helpers take an afero.Fs so the download pipeline can run against the
// real disk (afero.NewOsFs) or an in-memory tree in tests
// (afero.NewMemMapFs).
//
//	// Ensure directory exists
//	err := ioutils.EnsureDir(fs, "/downloads/Biology/Exam Questions")
//
//	// Check for an already downloaded file
//	ok, err := ioutils.Exists(fs, "/downloads/Biology/Exam Questions/Cells/Osmosis.pdf")
//
// Failures are reported as *FilesystemError, which the pipeline treats as
// non-retryable.
package ioutils
