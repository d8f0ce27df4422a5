package config

import (
	"fmt"
	"os"
)

// exampleFile is the config written by --init. It doubles as the reference
// for every supported attribute.
const exampleFile = `# gradepilot run configuration.
# Values may reference environment variables, e.g. course = env.COURSE

course     = "CAB201"
assignment = "Assignment 1"

# Archive name and include patterns. Patterns without a "/" match file names
# anywhere in the tree; patterns with a "/" match relative paths, and ** is
# supported ("src/**/*.cs").
output = "submission.zip"
bundle = ["*.cs", "*.csproj"]

# Behavior.
headless           = false
notify_when_graded = true

# Security.
always_fresh_login = false
manual_login       = false
no_session_save    = false

# Step timeouts. Each suspension point has its own bounded wait.
# login_timeout        = "90s"
# manual_login_timeout = "5m"
# step_timeout         = "15s"
# grade_timeout        = "4m"
# poll_interval        = "5s"
`

// WriteExample writes the annotated example config. It refuses to overwrite
// an existing file; initializing must never destroy a tuned config.
func WriteExample(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists, refusing to overwrite", path)
	}
	if err := os.WriteFile(path, []byte(exampleFile), 0o644); err != nil {
		return fmt.Errorf("writing example config: %w", err)
	}
	return nil
}
