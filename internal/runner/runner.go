// Package runner sequences the submission pipeline: bundle, login, resolve
// course, resolve assignment, upload, and optionally poll for a grade. Each
// stage depends on the completed state of the previous one, so the pipeline
// is strictly sequential over the single shared browser resource.
package runner

import (
	"context"
	"fmt"

	"github.com/vk/gradepilot/internal/browser"
	"github.com/vk/gradepilot/internal/bundle"
	"github.com/vk/gradepilot/internal/config"
	"github.com/vk/gradepilot/internal/ctxlog"
	"github.com/vk/gradepilot/internal/grade"
	"github.com/vk/gradepilot/internal/login"
	"github.com/vk/gradepilot/internal/progress"
	"github.com/vk/gradepilot/internal/resolve"
	"github.com/vk/gradepilot/internal/submit"
)

// Outcome is the end-to-end result handed back to the presentation layer.
type Outcome struct {
	Course     string
	Assignment string
	Manifest   bundle.Manifest
	Submission submit.Result
	// Grade is nil when grade polling was skipped.
	Grade *grade.Result
}

// Runner owns one run. The page is borrowed for the duration; the runner
// never closes it.
type Runner struct {
	cfg   config.Run
	root  string
	page  browser.Page
	creds login.CredentialSource
	sink  progress.Sink
}

// New builds a runner. root is the project directory the bundler expands
// patterns against.
func New(cfg config.Run, root string, page browser.Page, credsSrc login.CredentialSource, sink progress.Sink) *Runner {
	return &Runner{cfg: cfg, root: root, page: page, creds: credsSrc, sink: sink}
}

// TotalSteps returns the number of narrated steps for this configuration.
func (r *Runner) TotalSteps() int {
	if r.cfg.NotifyWhenGraded {
		return 6
	}
	return 5
}

// Run executes the pipeline. Fatal errors carry the failed step index so the
// user can resume mentally where the automation left off.
func (r *Runner) Run(ctx context.Context) (*Outcome, error) {
	logger := ctxlog.FromContext(ctx)
	tracker := progress.NewTracker(r.sink, r.TotalSteps())
	out := &Outcome{}

	var archivePath string
	err := r.step(ctx, tracker, "bundle files", func(ctx context.Context) error {
		var err error
		out.Manifest, archivePath, err = bundle.Build(ctx, r.root, bundle.Spec{
			Include: r.cfg.Bundle,
			Output:  r.cfg.Output,
		})
		return err
	})
	if err != nil {
		return out, err
	}

	err = r.step(ctx, tracker, "log in", func(ctx context.Context) error {
		machine := login.NewMachine(r.page, r.creds, login.Options{
			FreshLogin:         r.cfg.AlwaysFreshLogin,
			ManualLogin:        r.cfg.ManualLogin,
			LoginTimeout:       r.cfg.LoginTimeout,
			ManualLoginTimeout: r.cfg.ManualLoginTimeout,
			StepTimeout:        r.cfg.StepTimeout,
		})
		return machine.Run(ctx)
	})
	if err != nil {
		return out, err
	}

	resolver := resolve.NewResolver(r.page, r.cfg.StepTimeout)

	err = r.step(ctx, tracker, "find course", func(ctx context.Context) error {
		m, err := resolver.FindCourse(ctx, r.cfg.Course)
		if err != nil {
			return err
		}
		out.Course = m.Entry.Label
		return nil
	})
	if err != nil {
		return out, err
	}

	err = r.step(ctx, tracker, "find assignment", func(ctx context.Context) error {
		m, err := resolver.FindAssignment(ctx, r.cfg.Assignment)
		if err != nil {
			return err
		}
		out.Assignment = m.Entry.Label
		return nil
	})
	if err != nil {
		return out, err
	}

	err = r.step(ctx, tracker, "upload submission", func(ctx context.Context) error {
		driver := submit.NewDriver(r.page, r.cfg.StepTimeout)
		var err error
		out.Submission, err = driver.Submit(ctx, archivePath)
		return err
	})
	if err != nil {
		return out, err
	}

	logger.Info("Submission receipt.",
		"course", out.Course,
		"assignment", out.Assignment,
		"file", out.Submission.FileName,
		"bytes", out.Submission.FileSizeBytes,
		"time", out.Submission.Timestamp)

	if r.cfg.NotifyWhenGraded {
		err = r.step(ctx, tracker, "wait for grade", func(ctx context.Context) error {
			poller := grade.NewPoller(r.page, r.cfg.PollInterval)
			g, err := poller.Poll(ctx, r.cfg.GradeTimeout)
			if err != nil {
				return err
			}
			out.Grade = &g
			return nil
		})
		if err != nil {
			return out, err
		}
	}

	return out, nil
}

// step narrates one pipeline stage through the progress sink and annotates
// failures with the step position.
func (r *Runner) step(ctx context.Context, tracker *progress.Tracker, label string, fn func(context.Context) error) error {
	done := tracker.Step(ctx, label)
	err := fn(ctx)
	done(err)
	if err != nil {
		return fmt.Errorf("step %d/%d (%s): %w", tracker.Index(), r.TotalSteps(), label, err)
	}
	return nil
}
