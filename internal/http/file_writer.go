package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"path/filepath"

	ioutils "github.com/iamfaazi/savemyexam-downloader/internal/io"
	"github.com/spf13/afero"
)

// partPattern names the temporary file a transfer is written to. The
// random component keeps sibling leaves with the same sanitized title from
// sharing one part file.
const partPattern = ".*.part"

// Outcome tells how a successful Download finished.
type Outcome int

const (
	// OutcomeDownloaded means the file was transferred.
	OutcomeDownloaded Outcome = iota
	// OutcomeExists means the destination was already present.
	OutcomeExists
)

// ProgressWriter wraps a writer to track download progress.
//
// Example:
//
//	pw := &ProgressWriter{
//	    Writer: file,
//	    Total:  contentLength,
//	    OnUpdate: func(written, total int64) {
//	        fmt.Printf("%d / %d bytes\n", written, total)
//	    },
//	}
//	io.Copy(pw, response.Body)
type ProgressWriter struct {
	// Writer is the underlying writer to write data to.
	Writer io.Writer

	// Total is the expected total bytes (from Content-Length header).
	Total int64

	// Written is the current number of bytes written.
	Written int64

	// OnUpdate is called after each Write with current progress.
	OnUpdate func(written, total int64)
}

// Write implements io.Writer, tracking progress and calling OnUpdate.
func (pw *ProgressWriter) Write(p []byte) (int, error) {
	n, err := pw.Writer.Write(p)
	pw.Written += int64(n)
	if pw.OnUpdate != nil {
		pw.OnUpdate(pw.Written, pw.Total)
	}
	return n, err
}

// Percent returns written/total·100 rounded to two decimals.
func Percent(written, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(written)/float64(total)*10000) / 100
}

// FileWriter streams remote files to disk.
//
// Downloads go to "<dest>.<random>.part" first and are renamed only once
// every expected byte has arrived, so a file at dest is always complete.
type FileWriter struct {
	client *Client
	fs     afero.Fs
}

// NewFileWriter creates a FileWriter writing through fs.
func NewFileWriter(client *Client, fs afero.Fs) *FileWriter {
	return &FileWriter{client: client, fs: fs}
}

// Download fetches location into dest, reporting percent progress.
//
// An existing dest short-circuits with OutcomeExists and no request. A
// response without Content-Length is rejected before anything is written.
// Failures are *TransferError for network problems and
// *ioutils.FilesystemError for local ones.
func (w *FileWriter) Download(ctx context.Context, location, dest string, onProgress func(percent float64)) (Outcome, error) {
	exists, err := ioutils.Exists(w.fs, dest)
	if err != nil {
		return 0, err
	}
	if exists {
		return OutcomeExists, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return 0, &TransferError{Kind: NetworkError, URL: location, Err: err}
	}
	// Without this the transport asks for gzip and hides Content-Length
	// when the server compresses.
	req.Header.Set("Accept-Encoding", "identity")

	resp, err := w.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, statusError(resp, location)
	}
	if resp.ContentLength < 0 {
		return 0, &TransferError{
			Kind: IncompleteTransfer,
			URL:  location,
			Err:  fmt.Errorf("no Content-Length header"),
		}
	}

	if err := w.stream(resp.Body, resp.ContentLength, location, dest, onProgress); err != nil {
		return 0, err
	}
	return OutcomeDownloaded, nil
}

func (w *FileWriter) stream(body io.Reader, total int64, location, dest string, onProgress func(float64)) (err error) {
	file, err := afero.TempFile(w.fs, filepath.Dir(dest), filepath.Base(dest)+partPattern)
	if err != nil {
		return &ioutils.FilesystemError{Op: "create", Path: dest, Err: err}
	}
	part := file.Name()
	defer func() {
		if err != nil {
			_ = ioutils.RemoveIfExists(w.fs, part)
		}
	}()

	fw := &writeRecorder{Writer: file}
	pw := &ProgressWriter{Writer: fw, Total: total}
	if onProgress != nil {
		pw.OnUpdate = func(written, total int64) {
			onProgress(Percent(written, total))
		}
	}

	_, copyErr := io.Copy(pw, body)
	closeErr := file.Close()

	switch {
	case fw.err != nil:
		return &ioutils.FilesystemError{Op: "write", Path: part, Err: fw.err}
	case errors.Is(copyErr, io.ErrUnexpectedEOF):
		return &TransferError{Kind: IncompleteTransfer, URL: location, Err: copyErr}
	case copyErr != nil:
		return &TransferError{Kind: NetworkError, URL: location, Err: copyErr}
	case closeErr != nil:
		return &ioutils.FilesystemError{Op: "close", Path: part, Err: closeErr}
	case pw.Written != total:
		return &TransferError{
			Kind: IncompleteTransfer,
			URL:  location,
			Err:  fmt.Errorf("received %d of %d bytes", pw.Written, total),
		}
	}

	if err := w.fs.Rename(part, dest); err != nil {
		return &ioutils.FilesystemError{Op: "rename", Path: dest, Err: err}
	}
	return nil
}

// writeRecorder remembers the first write error so disk failures can be
// told apart from a broken response body.
type writeRecorder struct {
	io.Writer
	err error
}

func (w *writeRecorder) Write(p []byte) (int, error) {
	n, err := w.Writer.Write(p)
	if err != nil && w.err == nil {
		w.err = err
	}
	return n, err
}
