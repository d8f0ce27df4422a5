// Package resolve locates a course and an assignment on the platform by
// fuzzy name match: case-insensitive substring containment against the live
// listings. Listings are seasonal, so they are re-fetched on every
// invocation and never cached across runs.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vk/gradepilot/internal/browser"
	"github.com/vk/gradepilot/internal/ctxlog"
)

// ErrNotFound is returned when a query matches no listing. The offending
// query is echoed in the wrapping message; a wrong guess is never
// substituted.
var ErrNotFound = errors.New("no listing matched the query")

// Match is a resolved listing entry.
type Match struct {
	Entry browser.Entry

	// Ambiguous is set when more than one listing matched and the
	// shortest-name tie-break picked this one. The tie-break is a
	// heuristic, not a guarantee of intent, so callers surface it as a
	// warning.
	Ambiguous bool

	// Candidates holds the display names of every match when Ambiguous.
	Candidates []string
}

// Select applies the matching rule to a scraped listing: case-insensitive
// substring; a unique match wins; zero matches fail; multiple matches pick
// the shortest display name, ties broken by first-encountered order.
func Select(query string, entries []browser.Entry) (Match, error) {
	q := strings.ToLower(query)
	var matches []browser.Entry
	for _, e := range entries {
		if strings.Contains(strings.ToLower(e.Label), q) {
			matches = append(matches, e)
		}
	}

	switch len(matches) {
	case 0:
		return Match{}, fmt.Errorf("%q: %w", query, ErrNotFound)
	case 1:
		return Match{Entry: matches[0]}, nil
	}

	best := matches[0]
	for _, e := range matches[1:] {
		if len(e.Label) < len(best.Label) {
			best = e
		}
	}
	names := make([]string, len(matches))
	for i, e := range matches {
		names[i] = e.Label
	}
	return Match{Entry: best, Ambiguous: true, Candidates: names}, nil
}

// Resolver performs the two-level course-then-assignment resolution against
// the live page.
type Resolver struct {
	page        browser.Page
	stepTimeout time.Duration
}

// NewResolver builds a resolver over an authenticated page.
func NewResolver(page browser.Page, stepTimeout time.Duration) *Resolver {
	return &Resolver{page: page, stepTimeout: stepTimeout}
}

// FindCourse fetches the course listing fresh, selects the course matching
// query and navigates into it.
func (r *Resolver) FindCourse(ctx context.Context, query string) (Match, error) {
	logger := ctxlog.FromContext(ctx)

	if err := r.page.Navigate(ctx, browser.BaseURL); err != nil {
		return Match{}, err
	}
	if err := r.page.WaitVisible(ctx, browser.SelCourseBox, r.stepTimeout); err != nil {
		return Match{}, fmt.Errorf("course listing never rendered: %w", err)
	}

	entries, err := r.page.Listing(ctx, browser.SelCourseBox, browser.SelCourseShortname)
	if err != nil {
		return Match{}, err
	}
	m, err := Select(query, entries)
	if err != nil {
		return Match{}, fmt.Errorf("course %w", err)
	}
	r.warnAmbiguous(ctx, "course", query, m)
	logger.Info("Course found.", "query", query, "course", m.Entry.Label)

	if err := r.page.Navigate(ctx, browser.BaseURL+m.Entry.Href); err != nil {
		return Match{}, err
	}
	if err := r.page.WaitVisible(ctx, browser.SelAssignmentLink, r.stepTimeout); err != nil {
		return Match{}, fmt.Errorf("assignment listing never rendered: %w", err)
	}
	return m, nil
}

// FindAssignment selects the assignment matching query on the current course
// page and navigates to it.
func (r *Resolver) FindAssignment(ctx context.Context, query string) (Match, error) {
	logger := ctxlog.FromContext(ctx)

	entries, err := r.page.Listing(ctx, browser.SelAssignmentLink, "")
	if err != nil {
		return Match{}, err
	}
	m, err := Select(query, entries)
	if err != nil {
		return Match{}, fmt.Errorf("assignment %w", err)
	}
	r.warnAmbiguous(ctx, "assignment", query, m)
	logger.Info("Assignment found.", "query", query, "assignment", m.Entry.Label)

	if err := r.page.Navigate(ctx, browser.BaseURL+m.Entry.Href); err != nil {
		return Match{}, err
	}
	if err := r.page.WaitVisible(ctx, browser.SelSubmitButton, r.stepTimeout); err != nil {
		return Match{}, fmt.Errorf("assignment page never rendered a submit control: %w", err)
	}
	return m, nil
}

func (r *Resolver) warnAmbiguous(ctx context.Context, kind, query string, m Match) {
	if !m.Ambiguous {
		return
	}
	ctxlog.FromContext(ctx).Warn("Query matched several listings; picked the shortest name. Verify this is the intended target.",
		"kind", kind, "query", query, "picked", m.Entry.Label, "candidates", m.Candidates)
}
