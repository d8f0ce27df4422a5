package app

import "errors"

// Config holds the CLI-level inputs of a run. File-derived values are
// resolved later in Run; this struct only carries what the flags said.
type Config struct {
	// ConfigPath is an explicit config file path; empty means the default
	// file in the working directory, which may be absent.
	ConfigPath string

	Course     string
	Assignment string
	Output     string
	Bundle     []string

	Username string
	Password string

	Headless      bool
	NoGradeWait   bool
	FreshLogin    bool
	ManualLogin   bool
	NoSessionSave bool

	// Modes. At most one may be set; none means a full submission run.
	Init       bool
	Validate   bool
	BundleOnly bool

	LogFormat string
	LogLevel  string
}

// NewConfig validates the flag combination.
func NewConfig(cfg Config) (*Config, error) {
	modes := 0
	for _, m := range []bool{cfg.Init, cfg.Validate, cfg.BundleOnly} {
		if m {
			modes++
		}
	}
	if modes > 1 {
		return nil, errors.New("--init, --validate and --bundle-only are mutually exclusive")
	}
	if cfg.ManualLogin && (cfg.Username != "" || cfg.Password != "") {
		return nil, errors.New("--manual-login never uses credentials; drop --username/--password")
	}
	return &cfg, nil
}
