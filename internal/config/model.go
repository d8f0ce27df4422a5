// Package config loads the run configuration file (gradepilot.hcl) and
// resolves it, together with CLI overrides, into the immutable Run struct the
// engine consumes. The core never reads files or environment itself; it is
// handed a finished Run.
package config

import (
	"errors"
	"fmt"
	"time"
)

// DefaultFile is the config file looked up in the working directory when no
// explicit path is given.
const DefaultFile = "gradepilot.hcl"

// Run is the fully resolved, immutable configuration of one submission run.
type Run struct {
	// Course and Assignment are the fuzzy queries resolved against the
	// platform listings.
	Course     string
	Assignment string

	// Output is the archive file name. Bundle is the include pattern list.
	Output string
	Bundle []string

	Headless         bool
	NotifyWhenGraded bool
	AlwaysFreshLogin bool
	ManualLogin      bool
	NoSessionSave    bool

	// Step timeouts are independent so a slow institutional SSO does not
	// share a budget with grade polling.
	LoginTimeout       time.Duration
	ManualLoginTimeout time.Duration
	StepTimeout        time.Duration
	GradeTimeout       time.Duration
	PollInterval       time.Duration
}

// Defaults returns a Run populated with every default value. Course and
// Assignment have no default; they must come from the file or flags.
func Defaults() Run {
	return Run{
		Output:             "submission.zip",
		Bundle:             []string{"*"},
		NotifyWhenGraded:   true,
		LoginTimeout:       90 * time.Second,
		ManualLoginTimeout: 5 * time.Minute,
		StepTimeout:        15 * time.Second,
		GradeTimeout:       4 * time.Minute,
		PollInterval:       5 * time.Second,
	}
}

// Validate checks the resolved Run is complete enough to start a pipeline.
func (r *Run) Validate() error {
	if r.Course == "" {
		return errors.New("course is required (set it in gradepilot.hcl or pass --course)")
	}
	if r.Assignment == "" {
		return errors.New("assignment is required (set it in gradepilot.hcl or pass --assignment)")
	}
	if r.Output == "" {
		return errors.New("output archive name cannot be empty")
	}
	if len(r.Bundle) == 0 {
		return errors.New("at least one bundle pattern is required")
	}
	for _, d := range []struct {
		name  string
		value time.Duration
	}{
		{"login_timeout", r.LoginTimeout},
		{"manual_login_timeout", r.ManualLoginTimeout},
		{"step_timeout", r.StepTimeout},
		{"grade_timeout", r.GradeTimeout},
		{"poll_interval", r.PollInterval},
	} {
		if d.value <= 0 {
			return fmt.Errorf("%s must be positive", d.name)
		}
	}
	return nil
}
