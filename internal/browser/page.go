package browser

import (
	"context"
	"errors"
	"time"
)

// ErrWaitTimeout is returned when a selector does not become visible within
// the allotted wait window.
var ErrWaitTimeout = errors.New("timed out waiting for selector")

// Entry is a single item scraped from a listing on the page, e.g. one course
// box or one assignment link.
type Entry struct {
	Label string `json:"label"`
	Href  string `json:"href"`
}

// Page is the minimal browser control surface the submission pipeline needs.
// It is the single shared resource of a run; callers must not use it from
// more than one goroutine at a time.
//
// Selectors are CSS by default. A selector starting with '/' is treated as
// an XPath expression.
type Page interface {
	// Navigate loads the given URL and waits for the navigation to settle.
	Navigate(ctx context.Context, url string) error

	// Reload reloads the current page.
	Reload(ctx context.Context) error

	// Location returns the current page URL.
	Location(ctx context.Context) (string, error)

	// WaitVisible blocks until the selector is visible or the timeout
	// elapses, in which case it returns ErrWaitTimeout.
	WaitVisible(ctx context.Context, sel string, timeout time.Duration) error

	// Visible probes whether the selector becomes visible within the
	// timeout. A timeout is reported as (false, nil), not an error.
	Visible(ctx context.Context, sel string, timeout time.Duration) (bool, error)

	// Click clicks the first element matching the selector.
	Click(ctx context.Context, sel string) error

	// Fill types the given value into the element matching the selector.
	Fill(ctx context.Context, sel, value string) error

	// Check ensures a checkbox or radio matching the selector is checked.
	Check(ctx context.Context, sel string) error

	// Text returns the visible text of the first element matching the selector.
	Text(ctx context.Context, sel string) (string, error)

	// Listing scrapes all elements matching itemSel into entries. If
	// labelSel is non-empty, the label is taken from that child selector,
	// otherwise from the element's own text. Href is the element's href
	// attribute, empty when absent.
	Listing(ctx context.Context, itemSel, labelSel string) ([]Entry, error)

	// Upload attaches the given file to the file input matching the selector.
	Upload(ctx context.Context, sel, path string) error
}
