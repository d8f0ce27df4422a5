package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/gradepilot/internal/ctxlog"
)

// fileConfig is the HCL schema of gradepilot.hcl. Booleans are pointers so
// an unset attribute is distinguishable from an explicit false and does not
// clobber the default.
type fileConfig struct {
	Course     string   `hcl:"course,optional"`
	Assignment string   `hcl:"assignment,optional"`
	Output     string   `hcl:"output,optional"`
	Bundle     []string `hcl:"bundle,optional"`

	Headless         *bool `hcl:"headless,optional"`
	NotifyWhenGraded *bool `hcl:"notify_when_graded,optional"`
	AlwaysFreshLogin *bool `hcl:"always_fresh_login,optional"`
	ManualLogin      *bool `hcl:"manual_login,optional"`
	NoSessionSave    *bool `hcl:"no_session_save,optional"`

	LoginTimeout       string `hcl:"login_timeout,optional"`
	ManualLoginTimeout string `hcl:"manual_login_timeout,optional"`
	StepTimeout        string `hcl:"step_timeout,optional"`
	GradeTimeout       string `hcl:"grade_timeout,optional"`
	PollInterval       string `hcl:"poll_interval,optional"`
}

// Load parses the config file at path and applies it over Defaults().
// Attribute values may reference process environment variables as env.NAME.
func Load(ctx context.Context, path string) (*Run, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Config loader started.", "path", path)

	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parsing %s: %w", path, diags)
	}

	var fc fileConfig
	if diags := gohcl.DecodeBody(file.Body, envEvalContext(), &fc); diags.HasErrors() {
		return nil, fmt.Errorf("decoding %s: %w", path, diags)
	}

	run := Defaults()
	if err := fc.apply(&run); err != nil {
		return nil, fmt.Errorf("in %s: %w", path, err)
	}
	logger.Debug("Config file applied over defaults.")
	return &run, nil
}

// envEvalContext exposes the process environment as env.NAME so secrets and
// machine-specific values can stay out of the file itself.
func envEvalContext() *hcl.EvalContext {
	vars := map[string]cty.Value{}
	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		vars[k] = cty.StringVal(v)
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"env": cty.ObjectVal(vars),
		},
	}
}

func (fc *fileConfig) apply(run *Run) error {
	if fc.Course != "" {
		run.Course = fc.Course
	}
	if fc.Assignment != "" {
		run.Assignment = fc.Assignment
	}
	if fc.Output != "" {
		run.Output = fc.Output
	}
	if len(fc.Bundle) > 0 {
		run.Bundle = fc.Bundle
	}
	applyBool(fc.Headless, &run.Headless)
	applyBool(fc.NotifyWhenGraded, &run.NotifyWhenGraded)
	applyBool(fc.AlwaysFreshLogin, &run.AlwaysFreshLogin)
	applyBool(fc.ManualLogin, &run.ManualLogin)
	applyBool(fc.NoSessionSave, &run.NoSessionSave)

	for _, d := range []struct {
		name  string
		raw   string
		field *time.Duration
	}{
		{"login_timeout", fc.LoginTimeout, &run.LoginTimeout},
		{"manual_login_timeout", fc.ManualLoginTimeout, &run.ManualLoginTimeout},
		{"step_timeout", fc.StepTimeout, &run.StepTimeout},
		{"grade_timeout", fc.GradeTimeout, &run.GradeTimeout},
		{"poll_interval", fc.PollInterval, &run.PollInterval},
	} {
		if d.raw == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("%s: %w", d.name, err)
		}
		*d.field = parsed
	}
	return nil
}

func applyBool(src *bool, dst *bool) {
	if src != nil {
		*dst = *src
	}
}
