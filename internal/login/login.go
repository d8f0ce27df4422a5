// Package login drives the browser through institutional SSO authentication.
// It is a state machine over an authentication surface the tool does not
// control, so every decision is made on rendered UI markers with bounded
// waits, never on URLs alone.
package login

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff"

	"github.com/vk/gradepilot/internal/browser"
	"github.com/vk/gradepilot/internal/creds"
	"github.com/vk/gradepilot/internal/ctxlog"
	"github.com/vk/gradepilot/internal/session"
)

// ErrAuthenticationRejected means the SSO form reported the credentials as
// invalid. It is fatal for the run: retrying the same bad input cannot
// succeed.
var ErrAuthenticationRejected = errors.New("sso rejected the credentials")

// ErrLoginTimeout means the authenticated marker never appeared within the
// wait budget. That covers MFA screens left unanswered, consent pages and
// stale sessions whose cookies look valid but no longer grant access.
var ErrLoginTimeout = errors.New("login did not complete in time")

// errNotYetAuthenticated signals one more probe round inside the bounded
// marker wait.
var errNotYetAuthenticated = errors.New("not yet authenticated")

// State enumerates the machine's positions.
type State int

const (
	StateInit State = iota
	StateCheckingSession
	StateAwaitingSSO
	StateSessionValid
	StateEnteringCredentials
	StateAwaitingMFAOrRedirect
	StateLoggedIn
	StateFailed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateInit:
		return "Init"
	case StateCheckingSession:
		return "CheckingSession"
	case StateAwaitingSSO:
		return "AwaitingSSO"
	case StateSessionValid:
		return "SessionValid"
	case StateEnteringCredentials:
		return "EnteringCredentials"
	case StateAwaitingMFAOrRedirect:
		return "AwaitingMFAOrRedirect"
	case StateLoggedIn:
		return "LoggedIn"
	case StateFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// CredentialSource yields the credential pair when the machine needs it.
// creds.Resolver satisfies it.
type CredentialSource interface {
	Resolve(ctx context.Context) (creds.Credentials, string, error)
}

// Options selects the login mode and the wait budgets.
type Options struct {
	// FreshLogin skips session reuse and invalidates the stored profile.
	FreshLogin bool

	// ManualLogin suspends the machine while a human completes the flow in
	// the browser window. Credentials are never read in this mode.
	ManualLogin bool

	// LoginTimeout bounds the wait for the authenticated marker after
	// credentials are submitted (MFA, consent screens, redirects).
	LoginTimeout time.Duration

	// ManualLoginTimeout is the generous outer bound for a human-driven
	// flow.
	ManualLoginTimeout time.Duration

	// StepTimeout bounds the individual marker probes.
	StepTimeout time.Duration
}

// PrepareSession invalidates the stored profile when the mode demands it.
// It must run before the browser launches, since the browser holds the
// profile directory open for the rest of the run.
func PrepareSession(ctx context.Context, store *session.Store, opts Options) error {
	if !opts.FreshLogin && !opts.ManualLogin {
		return nil
	}
	ctxlog.FromContext(ctx).Info("Invalidating saved session before login.")
	return store.Clear()
}

// Machine is the login state machine. One machine drives one run.
type Machine struct {
	page  browser.Page
	creds CredentialSource
	opts  Options
	state State
}

// NewMachine builds a machine over an already-launched page.
func NewMachine(page browser.Page, credsSrc CredentialSource, opts Options) *Machine {
	return &Machine{page: page, creds: credsSrc, opts: opts}
}

// State returns the machine's current state.
func (m *Machine) State() State { return m.state }

func (m *Machine) set(ctx context.Context, s State) {
	ctxlog.FromContext(ctx).Debug("Login state transition.", "from", m.state.String(), "to", s.String())
	m.state = s
}

// Run drives the machine to LoggedIn or to a terminal failure.
func (m *Machine) Run(ctx context.Context) (err error) {
	defer func() {
		if err != nil {
			m.set(ctx, StateFailed)
		}
	}()
	logger := ctxlog.FromContext(ctx)
	m.set(ctx, StateInit)

	// Navigating to the SSO entry point serves both purposes: with a live
	// session it redirects straight to the authenticated landing page, and
	// without one it lands on the SSO form.
	if m.opts.FreshLogin || m.opts.ManualLogin {
		m.set(ctx, StateAwaitingSSO)
		if err := m.page.Navigate(ctx, browser.SSOEntryURL); err != nil {
			return err
		}
	} else {
		m.set(ctx, StateCheckingSession)
		if err := m.page.Navigate(ctx, browser.SSOEntryURL); err != nil {
			return err
		}
		authenticated, err := m.page.Visible(ctx, browser.SelAuthenticatedMarker, m.opts.StepTimeout)
		if err != nil {
			return err
		}
		if authenticated {
			logger.Info("Reusing saved session.")
			m.set(ctx, StateSessionValid)
			m.set(ctx, StateLoggedIn)
			return nil
		}
		m.set(ctx, StateAwaitingSSO)
	}

	if m.opts.ManualLogin {
		logger.Info("Waiting for manual login to complete in the browser window...")
		if err := m.page.WaitVisible(ctx, browser.SelAuthenticatedMarker, m.opts.ManualLoginTimeout); err != nil {
			if errors.Is(err, browser.ErrWaitTimeout) {
				return fmt.Errorf("manual login: %w", ErrLoginTimeout)
			}
			return err
		}
		logger.Info("Manual login detected as complete.")
		m.set(ctx, StateLoggedIn)
		return nil
	}

	formVisible, err := m.page.Visible(ctx, browser.SelSSOUsername, m.opts.StepTimeout)
	if err != nil {
		return err
	}
	if !formVisible {
		// Neither the authenticated marker nor the SSO form rendered. A
		// session that looks valid but no longer grants access ends up
		// here too.
		return fmt.Errorf("sso login form never appeared: %w", ErrLoginTimeout)
	}

	m.set(ctx, StateEnteringCredentials)
	pair, source, err := m.creds.Resolve(ctx)
	if err != nil {
		return err
	}
	logger.Info("Submitting credentials to SSO.", "source", source)

	if err := m.page.Fill(ctx, browser.SelSSOUsername, pair.Username); err != nil {
		return err
	}
	if err := m.page.Fill(ctx, browser.SelSSOPassword, pair.Password); err != nil {
		return err
	}
	// Remember-me is best-effort; institutional themes vary.
	if err := m.page.Check(ctx, browser.SelSSORememberMe); err != nil {
		logger.Debug("Remember-me checkbox not found, continuing.")
	}
	if err := m.page.Click(ctx, browser.SelSSOLoginBtn); err != nil {
		return err
	}

	m.set(ctx, StateAwaitingMFAOrRedirect)
	if err := m.awaitAuthenticated(ctx); err != nil {
		return err
	}
	m.set(ctx, StateLoggedIn)
	return nil
}

// awaitAuthenticated polls for the authenticated marker until the login
// budget runs out, surfacing an SSO credential rejection as soon as the form
// reports one.
func (m *Machine) awaitAuthenticated(ctx context.Context) error {
	dctx, cancel := context.WithTimeout(ctx, m.opts.LoginTimeout)
	defer cancel()

	probe := func() error {
		rejected, err := m.page.Visible(dctx, browser.SelSSOLoginError, time.Second)
		if err != nil {
			return backoff.Permanent(err)
		}
		if rejected {
			detail, _ := m.page.Text(dctx, browser.SelSSOLoginError)
			return backoff.Permanent(fmt.Errorf("sso reported %q: %w", detail, ErrAuthenticationRejected))
		}

		authenticated, err := m.page.Visible(dctx, browser.SelAuthenticatedMarker, 2*time.Second)
		if err != nil {
			return backoff.Permanent(err)
		}
		if !authenticated {
			return errNotYetAuthenticated
		}
		return nil
	}

	err := backoff.Retry(probe, backoff.WithContext(backoff.NewConstantBackOff(time.Second), dctx))
	if err != nil {
		if errors.Is(err, ErrAuthenticationRejected) {
			return err
		}
		if errors.Is(err, errNotYetAuthenticated) || dctx.Err() != nil {
			return fmt.Errorf("no authenticated marker within %s: %w", m.opts.LoginTimeout, ErrLoginTimeout)
		}
		return err
	}
	return nil
}
