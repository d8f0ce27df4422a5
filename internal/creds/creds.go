// Package creds resolves the credentials used for SSO login from a strict
// priority chain: explicit override, process environment, user-level secrets
// file, project-level secrets file, interactive prompt. The first source
// yielding both a username and a password wins; fields from different
// sources are never mixed.
package creds

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/vk/gradepilot/internal/ctxlog"
)

// Environment variable names consulted by the environment source and written
// by the secrets files.
const (
	EnvUsername = "GRADEPILOT_USERNAME"
	EnvPassword = "GRADEPILOT_PASSWORD"
)

// ProjectSecretsFile is the per-project secrets file name, resolved relative
// to the working directory.
const ProjectSecretsFile = ".gradepilot.env"

// ErrCredentialsUnavailable is returned when the whole chain is exhausted
// without producing a complete credential pair, or when the interactive
// source is reached in a non-interactive run.
var ErrCredentialsUnavailable = errors.New("no usable credentials found")

// Credentials is a username/password pair. It is held in memory for the
// duration of a run and never logged.
type Credentials struct {
	Username string
	Password string
}

// Complete reports whether both fields are non-empty.
func (c Credentials) Complete() bool {
	return c.Username != "" && c.Password != ""
}

// LogValue redacts the pair so an accidental slog of Credentials never
// leaks the password.
func (c Credentials) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("username", c.Username),
		slog.String("password", "[redacted]"),
	)
}

// Source is one link of the priority chain. A source reports a miss by
// returning incomplete credentials with a nil error; errors abort the chain.
type Source interface {
	Name() string
	Lookup(ctx context.Context) (Credentials, error)
}

// Resolver walks a source chain in order.
type Resolver struct {
	sources []Source
}

// NewResolver builds a resolver over the given sources, consulted in order.
func NewResolver(sources ...Source) *Resolver {
	return &Resolver{sources: sources}
}

// Resolve returns the first complete credential pair in the chain together
// with the name of the source that produced it.
func (r *Resolver) Resolve(ctx context.Context) (Credentials, string, error) {
	logger := ctxlog.FromContext(ctx)
	for _, src := range r.sources {
		c, err := src.Lookup(ctx)
		if err != nil {
			return Credentials{}, "", fmt.Errorf("credential source %s: %w", src.Name(), err)
		}
		if c.Complete() {
			logger.Debug("Credentials resolved.", "source", src.Name())
			return c, src.Name(), nil
		}
		logger.Debug("Credential source yielded nothing, trying next.", "source", src.Name())
	}
	return Credentials{}, "", ErrCredentialsUnavailable
}

// DefaultUserPath returns the user-level secrets file location, e.g.
// ~/.config/gradepilot/credentials.env on Linux.
func DefaultUserPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locating user config dir: %w", err)
	}
	return filepath.Join(dir, "gradepilot", "credentials.env"), nil
}

// DefaultChain assembles the standard five-source chain. A nil
// override skips the first link. promptIn/promptOut of nil disable the
// interactive tail (headless callers).
func DefaultChain(override *Credentials, userPath, projectPath string, prompt Source) []Source {
	var chain []Source
	if override != nil {
		chain = append(chain, &Static{Creds: *override})
	}
	chain = append(chain,
		&Env{},
		&File{Path: userPath, Label: "user secrets file"},
		&File{Path: projectPath, Label: "project secrets file"},
	)
	if prompt != nil {
		chain = append(chain, prompt)
	}
	return chain
}
