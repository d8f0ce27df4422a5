package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/vk/gradepilot/internal/browser"
	"github.com/vk/gradepilot/internal/bundle"
	"github.com/vk/gradepilot/internal/config"
	"github.com/vk/gradepilot/internal/creds"
	"github.com/vk/gradepilot/internal/ctxlog"
	"github.com/vk/gradepilot/internal/login"
	"github.com/vk/gradepilot/internal/progress"
	"github.com/vk/gradepilot/internal/runner"
	"github.com/vk/gradepilot/internal/session"
)

// Run executes the selected mode: init, validate, bundle-only, or the full
// submission pipeline.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	if a.config.Init {
		path := a.config.ConfigPath
		if path == "" {
			path = config.DefaultFile
		}
		if err := config.WriteExample(path); err != nil {
			return err
		}
		fmt.Fprintf(a.outW, "Created %s. Fill in course and assignment, then run gradepilot.\n", path)
		return nil
	}

	run, err := a.resolveRun(ctx)
	if err != nil {
		return err
	}

	root, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("resolving working directory: %w", err)
	}

	switch {
	case a.config.Validate:
		return a.validate(ctx, run)
	case a.config.BundleOnly:
		return a.bundleOnly(ctx, run, root)
	default:
		return a.submit(ctx, run, root)
	}
}

// resolveRun loads the config file when present and lays the CLI flags over
// it. Flags always win; the file only fills what the flags left unset.
func (a *App) resolveRun(ctx context.Context) (*config.Run, error) {
	var run *config.Run

	path := a.config.ConfigPath
	if path == "" {
		if _, err := os.Stat(config.DefaultFile); err == nil {
			path = config.DefaultFile
		}
	}
	if path != "" {
		loaded, err := config.Load(ctx, path)
		if err != nil {
			return nil, err
		}
		run = loaded
	} else {
		defaults := config.Defaults()
		run = &defaults
	}

	if a.config.Course != "" {
		run.Course = a.config.Course
	}
	if a.config.Assignment != "" {
		run.Assignment = a.config.Assignment
	}
	if a.config.Output != "" {
		run.Output = a.config.Output
	}
	if len(a.config.Bundle) > 0 {
		run.Bundle = a.config.Bundle
	}
	if a.config.Headless {
		run.Headless = true
	}
	if a.config.NoGradeWait {
		run.NotifyWhenGraded = false
	}
	if a.config.FreshLogin {
		run.AlwaysFreshLogin = true
	}
	if a.config.ManualLogin {
		run.ManualLogin = true
	}
	if a.config.NoSessionSave {
		run.NoSessionSave = true
	}
	// Manual login always starts from a clean slate.
	if run.ManualLogin {
		run.AlwaysFreshLogin = true
	}
	return run, nil
}

// credentialChain assembles the credential priority chain. The interactive tail is
// dropped in headless runs so the resolver fails instead of hanging.
func (a *App) credentialChain(run *config.Run) *creds.Resolver {
	var override *creds.Credentials
	if a.config.Username != "" || a.config.Password != "" {
		override = &creds.Credentials{Username: a.config.Username, Password: a.config.Password}
	}

	userPath, err := creds.DefaultUserPath()
	if err != nil {
		a.logger.Warn("User secrets path unavailable, skipping that source.", "error", err)
	}

	var prompt creds.Source
	if !run.Headless {
		prompt = &creds.Prompt{UserPath: userPath, ProjectPath: creds.ProjectSecretsFile}
	}
	return creds.NewResolver(creds.DefaultChain(override, userPath, creds.ProjectSecretsFile, prompt)...)
}

// submit runs the full pipeline against a live browser.
func (a *App) submit(ctx context.Context, run *config.Run, root string) error {
	if err := run.Validate(); err != nil {
		return err
	}

	store, err := session.DefaultStore()
	if err != nil {
		return err
	}

	loginOpts := login.Options{
		FreshLogin:  run.AlwaysFreshLogin,
		ManualLogin: run.ManualLogin,
	}
	if err := login.PrepareSession(ctx, store, loginOpts); err != nil {
		return err
	}
	if err := store.Ensure(); err != nil {
		return err
	}

	sess, err := browser.NewSession(ctx, browser.Options{
		ProfileDir:    store.ProfilePath(),
		Headless:      run.Headless,
		NavTimeout:    30 * time.Second,
		ActionTimeout: run.StepTimeout,
	})
	if err != nil {
		return err
	}
	defer func() {
		sess.Close()
		if run.NoSessionSave {
			if err := store.Clear(); err != nil {
				a.logger.Warn("Clearing session after run failed.", "error", err)
			}
		}
	}()

	r := runner.New(*run, root, sess, a.credentialChain(run), &progress.LogSink{Logger: a.logger})
	out, err := r.Run(ctx)
	if err != nil {
		return err
	}

	a.printReceipt(out)
	return nil
}

// bundleOnly builds the archive and prints the manifest without touching the
// platform. Useful for checking patterns in CI.
func (a *App) bundleOnly(ctx context.Context, run *config.Run, root string) error {
	manifest, archivePath, err := bundle.Build(ctx, root, bundle.Spec{
		Include: run.Bundle,
		Output:  run.Output,
	})
	if err != nil {
		return err
	}
	for _, rel := range manifest {
		fmt.Fprintln(a.outW, rel)
	}
	fmt.Fprintf(a.outW, "Created %s (%d files)\n", archivePath, len(manifest))
	return nil
}

// validate reports the resolved configuration and whether credentials would
// resolve without prompting.
func (a *App) validate(ctx context.Context, run *config.Run) error {
	fmt.Fprintf(a.outW, "course:             %s\n", orUnset(run.Course))
	fmt.Fprintf(a.outW, "assignment:         %s\n", orUnset(run.Assignment))
	fmt.Fprintf(a.outW, "output:             %s\n", run.Output)
	fmt.Fprintf(a.outW, "bundle:             %v\n", run.Bundle)
	fmt.Fprintf(a.outW, "headless:           %v\n", run.Headless)
	fmt.Fprintf(a.outW, "notify_when_graded: %v\n", run.NotifyWhenGraded)
	fmt.Fprintf(a.outW, "always_fresh_login: %v\n", run.AlwaysFreshLogin)
	fmt.Fprintf(a.outW, "manual_login:       %v\n", run.ManualLogin)
	fmt.Fprintf(a.outW, "no_session_save:    %v\n", run.NoSessionSave)

	// Probe the chain without its interactive tail.
	var override *creds.Credentials
	if a.config.Username != "" || a.config.Password != "" {
		override = &creds.Credentials{Username: a.config.Username, Password: a.config.Password}
	}
	userPath, _ := creds.DefaultUserPath()
	resolver := creds.NewResolver(creds.DefaultChain(override, userPath, creds.ProjectSecretsFile, nil)...)
	if _, source, err := resolver.Resolve(ctx); err == nil {
		fmt.Fprintf(a.outW, "credentials:        available (%s)\n", source)
	} else {
		fmt.Fprintf(a.outW, "credentials:        not set; an interactive prompt would be required\n")
	}

	if err := run.Validate(); err != nil {
		return fmt.Errorf("configuration invalid: %w", err)
	}
	fmt.Fprintln(a.outW, "Configuration is valid.")
	return nil
}

func orUnset(v string) string {
	if v == "" {
		return "(not set)"
	}
	return v
}

// printReceipt writes the human submission summary.
func (a *App) printReceipt(out *runner.Outcome) {
	fmt.Fprintf(a.outW, "\nSubmitted to %q > %q\n", out.Course, out.Assignment)
	fmt.Fprintf(a.outW, "File: %s (%d bytes, %d files)\n",
		out.Submission.FileName, out.Submission.FileSizeBytes, len(out.Manifest))
	fmt.Fprintf(a.outW, "Time: %s\n", out.Submission.Timestamp.Format("03:04 PM, January 02"))

	switch {
	case out.Grade == nil:
		// Grade polling skipped.
	case out.Grade.Available:
		fmt.Fprintf(a.outW, "Grade: %s (returned after %s)\n", out.Grade.Raw, out.Grade.Elapsed.Round(time.Second))
	default:
		fmt.Fprintf(a.outW, "No grade within %s; check the platform later.\n", out.Grade.Elapsed.Round(time.Second))
	}
}
