package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vk/gradepilot/internal/browser"
)

// FakePage is a scriptable in-memory browser.Page. Selectors are visible or
// not according to the script; waits return immediately instead of sleeping,
// so tests stay fast while exercising the same timeout classification as the
// real session.
type FakePage struct {
	mu sync.Mutex

	visible      map[string]bool
	visibleAfter map[string]int
	texts        map[string]string
	listings     map[string][]browser.Entry

	// Recorded interactions, in order.
	Navigations []string
	Filled      map[string]string
	Clicked     []string
	Checked     []string
	Uploads     []string
	Reloads     int

	// NavigateErr fails every navigation when set.
	NavigateErr error

	// OnNavigate and OnClick let a scenario mutate page state in response
	// to the pipeline's actions.
	OnNavigate func(url string)
	OnClick    func(sel string)
}

var _ browser.Page = (*FakePage)(nil)

// NewFakePage returns an empty page where nothing is visible.
func NewFakePage() *FakePage {
	return &FakePage{
		visible:      map[string]bool{},
		visibleAfter: map[string]int{},
		texts:        map[string]string{},
		listings:     map[string][]browser.Entry{},
		Filled:       map[string]string{},
	}
}

// SetVisible scripts a selector's visibility.
func (p *FakePage) SetVisible(sel string, v bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.visible[sel] = v
}

// SetVisibleAfter makes a selector become visible after n visibility probes.
func (p *FakePage) SetVisibleAfter(sel string, n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.visibleAfter[sel] = n
}

// SetText scripts the text content of a selector.
func (p *FakePage) SetText(sel, text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.texts[sel] = text
}

// SetListing scripts the entries scraped for an item selector.
func (p *FakePage) SetListing(itemSel string, entries []browser.Entry) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listings[itemSel] = entries
}

// Navigate implements browser.Page.
func (p *FakePage) Navigate(ctx context.Context, url string) error {
	p.mu.Lock()
	p.Navigations = append(p.Navigations, url)
	err := p.NavigateErr
	hook := p.OnNavigate
	p.mu.Unlock()
	if err != nil {
		return err
	}
	if hook != nil {
		hook(url)
	}
	return nil
}

// Reload implements browser.Page.
func (p *FakePage) Reload(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Reloads++
	return nil
}

// Location implements browser.Page.
func (p *FakePage) Location(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.Navigations) == 0 {
		return "about:blank", nil
	}
	return p.Navigations[len(p.Navigations)-1], nil
}

// probe consumes one visibility attempt for sel.
func (p *FakePage) probe(sel string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.visible[sel] {
		return true
	}
	if n, ok := p.visibleAfter[sel]; ok {
		if n <= 1 {
			p.visible[sel] = true
			delete(p.visibleAfter, sel)
			return true
		}
		p.visibleAfter[sel] = n - 1
	}
	return false
}

// WaitVisible implements browser.Page. A miss reports the full timeout as
// elapsed without actually sleeping.
func (p *FakePage) WaitVisible(ctx context.Context, sel string, timeout time.Duration) error {
	if p.probe(sel) {
		return nil
	}
	return fmt.Errorf("%q after %s: %w", sel, timeout, browser.ErrWaitTimeout)
}

// Visible implements browser.Page.
func (p *FakePage) Visible(ctx context.Context, sel string, timeout time.Duration) (bool, error) {
	return p.probe(sel), nil
}

// Click implements browser.Page.
func (p *FakePage) Click(ctx context.Context, sel string) error {
	p.mu.Lock()
	p.Clicked = append(p.Clicked, sel)
	hook := p.OnClick
	p.mu.Unlock()
	if hook != nil {
		hook(sel)
	}
	return nil
}

// Fill implements browser.Page.
func (p *FakePage) Fill(ctx context.Context, sel, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Filled[sel] = value
	return nil
}

// Check implements browser.Page.
func (p *FakePage) Check(ctx context.Context, sel string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Checked = append(p.Checked, sel)
	return nil
}

// Text implements browser.Page.
func (p *FakePage) Text(ctx context.Context, sel string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.texts[sel], nil
}

// Listing implements browser.Page.
func (p *FakePage) Listing(ctx context.Context, itemSel, labelSel string) ([]browser.Entry, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.listings[itemSel], nil
}

// Upload implements browser.Page.
func (p *FakePage) Upload(ctx context.Context, sel, path string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Uploads = append(p.Uploads, path)
	return nil
}
