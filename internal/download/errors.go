package download

import (
	"errors"
	"fmt"

	"github.com/iamfaazi/savemyexam-downloader/internal/model"
)

var (
	// ErrSetup is returned when the run cannot start at all, e.g. the
	// destination root cannot be created.
	ErrSetup = errors.New("pipeline setup failed")

	// ErrNoDownloadLink is returned by locators when a leaf page carries no
	// download link. It is not retried.
	ErrNoDownloadLink = errors.New("no download link found")
)

// DiscoveryError reports that the children of a node could not be listed.
// The node's subtree is skipped; siblings continue.
type DiscoveryError struct {
	Node *model.ResourceNode
	Err  error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("discover %s %q: %v", e.Node.Kind, e.Node.Title, e.Err)
}

func (e *DiscoveryError) Unwrap() error {
	return e.Err
}
