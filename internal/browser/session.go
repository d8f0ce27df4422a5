// Package browser owns the single controllable Chrome instance a run drives.
// It wraps chromedp behind the Page interface so the pipeline stages never
// touch the CDP layer directly.
package browser

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/vk/gradepilot/internal/ctxlog"
)

// Options configures a browser session.
type Options struct {
	// ProfileDir is the persistent user-data directory. Empty launches an
	// ephemeral profile that leaves no session behind.
	ProfileDir string

	// Headless runs Chrome without a visible window.
	Headless bool

	// NavTimeout bounds page navigations and reloads. Defaults to 30s.
	NavTimeout time.Duration

	// ActionTimeout bounds simple interactions (click, fill, text).
	// Defaults to 10s.
	ActionTimeout time.Duration
}

// Session is the chromedp-backed implementation of Page. It owns the browser
// process and a single tab for the lifetime of a run.
type Session struct {
	opts        Options
	tab         context.Context
	tabCancel   context.CancelFunc
	allocCancel context.CancelFunc
}

var _ Page = (*Session)(nil)

// NewSession launches Chrome and opens the tab used for the whole run.
func NewSession(ctx context.Context, opts Options) (*Session, error) {
	if opts.NavTimeout <= 0 {
		opts.NavTimeout = 30 * time.Second
	}
	if opts.ActionTimeout <= 0 {
		opts.ActionTimeout = 10 * time.Second
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.NoSandbox,
	)
	if opts.ProfileDir != "" {
		allocOpts = append(allocOpts, chromedp.UserDataDir(opts.ProfileDir))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	tab, tabCancel := chromedp.NewContext(allocCtx)

	// Auto-accept JavaScript dialogs. An unexpected confirm() would
	// otherwise block every following CDP action until its timeout.
	chromedp.ListenTarget(tab, func(ev any) {
		if _, ok := ev.(*page.EventJavascriptDialogOpening); ok {
			go func() {
				_ = chromedp.Run(tab, page.HandleJavaScriptDialog(true))
			}()
		}
	})

	// An empty Run forces the browser to actually start so launch failures
	// surface here instead of at the first navigation.
	if err := chromedp.Run(tab); err != nil {
		tabCancel()
		allocCancel()
		return nil, fmt.Errorf("launching browser: %w", err)
	}

	ctxlog.FromContext(ctx).Debug("Browser session started.",
		"headless", opts.Headless, "profile", opts.ProfileDir)

	return &Session{
		opts:        opts,
		tab:         tab,
		tabCancel:   tabCancel,
		allocCancel: allocCancel,
	}, nil
}

// Close shuts the tab and the browser process down. Safe to call once.
func (s *Session) Close() {
	s.tabCancel()
	s.allocCancel()
}

// run executes chromedp actions against the session tab with a bounded wait.
// The caller context is only consulted for early cancellation; chromedp
// actions must run on the session's own context chain.
func (s *Session) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tctx, cancel := context.WithTimeout(s.tab, timeout)
	defer cancel()
	err := chromedp.Run(tctx, actions...)
	if err != nil && s.tab.Err() != nil {
		// The tab context dying mid-action means the browser window was
		// closed under us.
		return fmt.Errorf("browser closed: %w", err)
	}
	return err
}

// selOpts picks the query strategy for a selector. Selectors starting with
// '/' are XPath, everything else CSS.
func selOpts(sel string) chromedp.QueryOption {
	if strings.HasPrefix(sel, "/") {
		return chromedp.BySearch
	}
	return chromedp.ByQuery
}

// Navigate implements Page.
func (s *Session) Navigate(ctx context.Context, url string) error {
	if err := s.run(ctx, s.opts.NavTimeout, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigating to %s: %w", url, err)
	}
	return nil
}

// Reload implements Page.
func (s *Session) Reload(ctx context.Context) error {
	if err := s.run(ctx, s.opts.NavTimeout, chromedp.Reload()); err != nil {
		return fmt.Errorf("reloading page: %w", err)
	}
	return nil
}

// Location implements Page.
func (s *Session) Location(ctx context.Context) (string, error) {
	var url string
	if err := s.run(ctx, s.opts.ActionTimeout, chromedp.Location(&url)); err != nil {
		return "", fmt.Errorf("reading page location: %w", err)
	}
	return url, nil
}

// WaitVisible implements Page.
func (s *Session) WaitVisible(ctx context.Context, sel string, timeout time.Duration) error {
	err := s.run(ctx, timeout, chromedp.WaitVisible(sel, selOpts(sel)))
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%q after %s: %w", sel, timeout, ErrWaitTimeout)
	}
	return err
}

// Visible implements Page.
func (s *Session) Visible(ctx context.Context, sel string, timeout time.Duration) (bool, error) {
	err := s.WaitVisible(ctx, sel, timeout)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, ErrWaitTimeout) {
		return false, nil
	}
	return false, err
}

// Click implements Page.
func (s *Session) Click(ctx context.Context, sel string) error {
	if err := s.run(ctx, s.opts.ActionTimeout, chromedp.Click(sel, selOpts(sel))); err != nil {
		return fmt.Errorf("clicking %q: %w", sel, err)
	}
	return nil
}

// Fill implements Page.
func (s *Session) Fill(ctx context.Context, sel, value string) error {
	if err := s.run(ctx, s.opts.ActionTimeout, chromedp.SendKeys(sel, value, selOpts(sel))); err != nil {
		return fmt.Errorf("filling %q: %w", sel, err)
	}
	return nil
}

// Check implements Page. It clicks the control only when it is not already
// checked, so re-running is harmless.
func (s *Session) Check(ctx context.Context, sel string) error {
	js := fmt.Sprintf(`(() => {
		const el = document.querySelector(%q);
		if (el && !el.checked) { el.click(); }
		return el != null;
	})()`, sel)
	var found bool
	if err := s.run(ctx, s.opts.ActionTimeout, chromedp.Evaluate(js, &found)); err != nil {
		return fmt.Errorf("checking %q: %w", sel, err)
	}
	if !found {
		return fmt.Errorf("checking %q: %w", sel, ErrWaitTimeout)
	}
	return nil
}

// Text implements Page.
func (s *Session) Text(ctx context.Context, sel string) (string, error) {
	var out string
	if err := s.run(ctx, s.opts.ActionTimeout, chromedp.Text(sel, &out, selOpts(sel))); err != nil {
		return "", fmt.Errorf("reading text of %q: %w", sel, err)
	}
	return strings.TrimSpace(out), nil
}

// Listing implements Page. It scrapes in a single Evaluate round trip since
// listings can hold dozens of entries.
func (s *Session) Listing(ctx context.Context, itemSel, labelSel string) ([]Entry, error) {
	js := fmt.Sprintf(`Array.from(document.querySelectorAll(%q)).map(el => {
		let label = el.innerText;
		const labelSel = %q;
		if (labelSel !== "") {
			const child = el.querySelector(labelSel);
			label = child ? child.innerText : "";
		}
		return { label: label.trim(), href: el.getAttribute("href") || "" };
	})`, itemSel, labelSel)

	var entries []Entry
	if err := s.run(ctx, s.opts.ActionTimeout, chromedp.Evaluate(js, &entries)); err != nil {
		return nil, fmt.Errorf("scraping listing %q: %w", itemSel, err)
	}
	return entries, nil
}

// Upload implements Page. The path is made absolute because Chrome resolves
// upload paths against its own working directory, not ours.
func (s *Session) Upload(ctx context.Context, sel, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolving upload path: %w", err)
	}
	if err := s.run(ctx, s.opts.ActionTimeout, chromedp.SetUploadFiles(sel, []string{abs}, selOpts(sel))); err != nil {
		return fmt.Errorf("attaching %s to %q: %w", path, sel, err)
	}
	return nil
}
