// Package cli parses command-line arguments into an app.Config. It owns the
// usage text and exit codes; no submission logic lives here.
package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/vk/gradepilot/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// stringList collects a repeatable flag.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

// Parse processes command-line arguments. It returns a populated app.Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("gradepilot", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
gradepilot - automated assignment submission through institutional SSO.

Usage:
  gradepilot [options]

Reads gradepilot.hcl from the working directory when present; flags override
file values.

Options:
`)
		flagSet.PrintDefaults()
	}

	var bundle stringList
	courseFlag := flagSet.String("course", "", "Course name to match, e.g. CAB201.")
	assignmentFlag := flagSet.String("assignment", "", "Assignment name to match, e.g. 'Assignment 2'.")
	fileFlag := flagSet.String("file", "", "Output archive name. Default: submission.zip.")
	flagSet.Var(&bundle, "bundle", "File pattern to bundle. Repeatable.")
	configFlag := flagSet.String("config", "", "Path to the config file.")
	usernameFlag := flagSet.String("username", "", "SSO username. Prefer the environment or secrets files.")
	passwordFlag := flagSet.String("password", "", "SSO password. Prefer the environment or secrets files.")
	headlessFlag := flagSet.Bool("headless", false, "Run the browser without a window.")
	noGradeWaitFlag := flagSet.Bool("no-grade-wait", false, "Do not wait for a grade after submitting.")
	freshLoginFlag := flagSet.Bool("fresh-login", false, "Ignore any saved session and log in from scratch.")
	manualLoginFlag := flagSet.Bool("manual-login", false, "Open the browser and let you complete the login yourself.")
	noSessionSaveFlag := flagSet.Bool("no-session-save", false, "Discard the browser session after the run.")
	initFlag := flagSet.Bool("init", false, "Write an example gradepilot.hcl and exit.")
	validateFlag := flagSet.Bool("validate", false, "Check the configuration and exit.")
	bundleOnlyFlag := flagSet.Bool("bundle-only", false, "Build the archive and print the manifest without submitting.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	if flagSet.NArg() > 0 {
		return nil, false, &ExitError{Code: 2, Message: fmt.Sprintf("unexpected argument: %s", flagSet.Arg(0))}
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(app.Config{
		ConfigPath:    *configFlag,
		Course:        *courseFlag,
		Assignment:    *assignmentFlag,
		Output:        *fileFlag,
		Bundle:        bundle,
		Username:      *usernameFlag,
		Password:      *passwordFlag,
		Headless:      *headlessFlag,
		NoGradeWait:   *noGradeWaitFlag,
		FreshLogin:    *freshLoginFlag,
		ManualLogin:   *manualLoginFlag,
		NoSessionSave: *noSessionSaveFlag,
		Init:          *initFlag,
		Validate:      *validateFlag,
		BundleOnly:    *bundleOnlyFlag,
		LogFormat:     logFormat,
		LogLevel:      logLevel,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.")
	return config, false, nil
}
