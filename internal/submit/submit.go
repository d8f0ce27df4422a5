// Package submit uploads the bundled archive to the resolved assignment.
// Whether the assignment already has a submission decides the UI path; that
// probing is concentrated in DetectState so interface drift touches one
// place only.
package submit

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/vk/gradepilot/internal/browser"
	"github.com/vk/gradepilot/internal/ctxlog"
)

// ErrNoPriorSubmission means the assignment page rendered neither a
// new-submission control nor a resubmission control. The platform does not
// render an upload form for assignments with zero prior submissions; making
// at least one manual submission first is a documented precondition.
var ErrNoPriorSubmission = errors.New("assignment has no prior submission to resubmit against")

// ErrSubmissionUnconfirmed means the upload was sent but the success marker
// never appeared within the wait window. The submission may or may not have
// landed; the user must verify manually. Silently assuming success would
// risk a false "submitted" report.
var ErrSubmissionUnconfirmed = errors.New("submission not confirmed by the platform")

// State is the detected submission UI state of the assignment page.
type State int

const (
	StateNoPrior State = iota
	StateNewSubmission
	StateResubmission
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateNewSubmission:
		return "NewSubmission"
	case StateResubmission:
		return "Resubmission"
	default:
		return "NoPrior"
	}
}

// Status classifies the outcome of an upload.
type Status int

const (
	StatusUnknown Status = iota
	StatusAccepted
	StatusRejected
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusAccepted:
		return "Accepted"
	case StatusRejected:
		return "Rejected"
	default:
		return "Unknown"
	}
}

// Result is the submission receipt.
type Result struct {
	Status        Status
	Timestamp     time.Time
	FileName      string
	FileSizeBytes int64
}

// Driver performs the upload against an assignment page the resolver already
// navigated to.
type Driver struct {
	page        browser.Page
	stepTimeout time.Duration
}

// NewDriver builds a driver over the shared page.
func NewDriver(page browser.Page, stepTimeout time.Duration) *Driver {
	return &Driver{page: page, stepTimeout: stepTimeout}
}

// DetectState probes the assignment page for the submission controls. The
// resubmission control wins when both are present, since resubmitting is the
// correct flow for an assignment with history.
func (d *Driver) DetectState(ctx context.Context) (State, error) {
	resub, err := d.page.Visible(ctx, browser.SelResubmitButton, 2*time.Second)
	if err != nil {
		return StateNoPrior, err
	}
	if resub {
		return StateResubmission, nil
	}
	fresh, err := d.page.Visible(ctx, browser.SelSubmitButton, 2*time.Second)
	if err != nil {
		return StateNoPrior, err
	}
	if fresh {
		return StateNewSubmission, nil
	}
	return StateNoPrior, nil
}

// Submit uploads the archive and waits for the platform to confirm
// acceptance.
func (d *Driver) Submit(ctx context.Context, archivePath string) (Result, error) {
	logger := ctxlog.FromContext(ctx)

	info, err := os.Stat(archivePath)
	if err != nil {
		return Result{}, fmt.Errorf("stat archive: %w", err)
	}
	result := Result{
		Status:        StatusUnknown,
		FileName:      filepath.Base(archivePath),
		FileSizeBytes: info.Size(),
	}

	state, err := d.DetectState(ctx)
	if err != nil {
		return result, err
	}
	logger.Debug("Submission state detected.", "state", state.String())

	switch state {
	case StateResubmission:
		if err := d.page.Click(ctx, browser.SelResubmitButton); err != nil {
			return result, err
		}
	case StateNewSubmission:
		if err := d.page.Click(ctx, browser.SelSubmitButton); err != nil {
			return result, err
		}
	default:
		return result, fmt.Errorf("no submission control on the page: %w", ErrNoPriorSubmission)
	}

	if err := d.page.WaitVisible(ctx, browser.SelUploadMethod, d.stepTimeout); err != nil {
		return result, fmt.Errorf("upload dialog never opened: %w", err)
	}
	if err := d.page.Check(ctx, browser.SelUploadMethod); err != nil {
		return result, err
	}

	logger.Info("Uploading archive.", "file", result.FileName, "bytes", result.FileSizeBytes)
	if err := d.page.Upload(ctx, browser.SelFileInput, archivePath); err != nil {
		return result, err
	}

	if err := d.page.WaitVisible(ctx, browser.SelUploadConfirm, d.stepTimeout); err != nil {
		return result, fmt.Errorf("upload button never appeared: %w", err)
	}
	if err := d.page.Click(ctx, browser.SelUploadConfirm); err != nil {
		return result, err
	}
	result.Timestamp = time.Now()

	confirmed, err := d.page.Visible(ctx, browser.SelSubmissionView, d.stepTimeout)
	if err != nil {
		return result, err
	}
	if !confirmed {
		// Distinguish an outright platform rejection from plain silence.
		if rejected, rerr := d.page.Visible(ctx, browser.SelPlatformAlert, time.Second); rerr == nil && rejected {
			result.Status = StatusRejected
			detail, _ := d.page.Text(ctx, browser.SelPlatformAlert)
			return result, fmt.Errorf("platform rejected the upload (%s): %w", detail, ErrSubmissionUnconfirmed)
		}
		return result, fmt.Errorf("no confirmation within %s: %w", d.stepTimeout, ErrSubmissionUnconfirmed)
	}

	result.Status = StatusAccepted
	logger.Info("Submission accepted.", "file", result.FileName)
	return result, nil
}
