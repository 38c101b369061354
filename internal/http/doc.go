// Package http provides the HTTP client and the streaming file writer used
// by the download pipeline.
//
// The Client in this package handles:
//   - User-Agent headers and an optional cookie jar for logged-in sessions
//   - Mapping of HTTP failures onto TransferError kinds
//   - Throughput probing for the concurrency advisor
//
// # Basic Usage
//
//	client := http.NewClient(http.WithCookieJar(jar))
//
//	// Fetch HTML page
//	html, err := client.GetString(ctx, "https://www.savemyexams.com/members")
//
// # Streaming downloads
//
// FileWriter streams a file to disk through an afero.Fs, reporting percent
// progress after every chunk:
//
//	w := http.NewFileWriter(client, afero.NewOsFs())
//	outcome, err := w.Download(ctx, pdfURL, "/downloads/Cells.pdf", func(p float64) {
//	    fmt.Printf("%.2f%%\r", p)
//	})
//
// A destination that already exists is reported as OutcomeExists without any
// request. Transfers are written to a temporary ".part" file and renamed on
// success.
//
// # Errors
//
// Network failures are *TransferError values and match ErrNetwork,
// ErrRateLimited or ErrIncompleteTransfer with errors.Is. Local failures are
// *ioutils.FilesystemError.
package http
