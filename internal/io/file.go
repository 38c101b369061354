package ioutils

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/afero"
)

// FilesystemError reports a failure to create a directory or file.
//
// Filesystem errors are not transient; callers abandon the affected node
// instead of retrying it.
type FilesystemError struct {
	Op   string
	Path string
	Err  error
}

func (e *FilesystemError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FilesystemError) Unwrap() error {
	return e.Err
}

// EnsureDir creates a directory and all parent directories if they don't exist.
//
// Directories are created with mode 0755 (rwxr-xr-x).
// If the directory already exists, no error is returned.
//
// Example:
//
//	err := EnsureDir(afero.NewOsFs(), "/downloads/Biology/Revision Notes")
func EnsureDir(fsys afero.Fs, path string) error {
	if err := fsys.MkdirAll(path, 0755); err != nil {
		return &FilesystemError{Op: "mkdir", Path: path, Err: err}
	}
	return nil
}

// Exists reports whether path exists.
//
// Any error other than "does not exist" is returned as a FilesystemError so
// a broken disk is not mistaken for a missing file.
func Exists(fsys afero.Fs, path string) (bool, error) {
	_, err := fsys.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, &FilesystemError{Op: "stat", Path: path, Err: err}
}

// RemoveIfExists deletes path, ignoring "does not exist".
func RemoveIfExists(fsys afero.Fs, path string) error {
	if err := fsys.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return &FilesystemError{Op: "remove", Path: path, Err: err}
	}
	return nil
}
