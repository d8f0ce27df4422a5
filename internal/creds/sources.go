package creds

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"golang.org/x/term"

	"github.com/vk/gradepilot/internal/ctxlog"
)

// Static serves an explicit call-site override, typically CLI flags.
type Static struct {
	Creds Credentials
}

// Name implements Source.
func (s *Static) Name() string { return "explicit override" }

// Lookup implements Source.
func (s *Static) Lookup(context.Context) (Credentials, error) {
	return s.Creds, nil
}

// Env reads the process environment.
type Env struct{}

// Name implements Source.
func (e *Env) Name() string { return "environment" }

// Lookup implements Source.
func (e *Env) Lookup(context.Context) (Credentials, error) {
	return Credentials{
		Username: os.Getenv(EnvUsername),
		Password: os.Getenv(EnvPassword),
	}, nil
}

// File reads a KEY=value secrets file. A missing file is a miss, not an
// error, so optional project files cost nothing.
type File struct {
	Path  string
	Label string
}

// Name implements Source.
func (f *File) Name() string {
	if f.Label != "" {
		return f.Label
	}
	return f.Path
}

// Lookup implements Source.
func (f *File) Lookup(ctx context.Context) (Credentials, error) {
	if f.Path == "" {
		return Credentials{}, nil
	}
	if _, err := os.Stat(f.Path); err != nil {
		if os.IsNotExist(err) {
			return Credentials{}, nil
		}
		return Credentials{}, fmt.Errorf("reading %s: %w", f.Path, err)
	}
	values, err := godotenv.Read(f.Path)
	if err != nil {
		return Credentials{}, fmt.Errorf("parsing %s: %w", f.Path, err)
	}
	return Credentials{
		Username: values[EnvUsername],
		Password: values[EnvPassword],
	}, nil
}

// Prompt asks the user interactively. It is always the last link of the
// chain; reaching it in a non-interactive run fails with
// ErrCredentialsUnavailable rather than hanging on a read that can never
// complete.
type Prompt struct {
	In  *os.File
	Out io.Writer

	// UserPath and ProjectPath are offered as save targets after a
	// successful prompt. Saving is optional.
	UserPath    string
	ProjectPath string
}

// Name implements Source.
func (p *Prompt) Name() string { return "interactive prompt" }

// Lookup implements Source.
func (p *Prompt) Lookup(ctx context.Context) (Credentials, error) {
	in := p.In
	if in == nil {
		in = os.Stdin
	}
	out := p.Out
	if out == nil {
		out = os.Stderr
	}

	if !term.IsTerminal(int(in.Fd())) {
		return Credentials{}, ErrCredentialsUnavailable
	}

	reader := bufio.NewReader(in)

	fmt.Fprint(out, "Username: ")
	username, err := reader.ReadString('\n')
	if err != nil {
		return Credentials{}, fmt.Errorf("reading username: %w", err)
	}
	username = strings.TrimSpace(username)

	fmt.Fprint(out, "Password: ")
	password, err := term.ReadPassword(int(in.Fd()))
	fmt.Fprintln(out)
	if err != nil {
		return Credentials{}, fmt.Errorf("reading password: %w", err)
	}

	c := Credentials{Username: username, Password: strings.TrimSpace(string(password))}
	if !c.Complete() {
		return Credentials{}, ErrCredentialsUnavailable
	}

	fmt.Fprint(out, "Save credentials? [u]ser store / [p]roject store / [n]o: ")
	choice, err := reader.ReadString('\n')
	if err != nil {
		// The pair itself is good; a failed save prompt should not sink
		// the run.
		return c, nil
	}

	var target string
	switch strings.ToLower(strings.TrimSpace(choice)) {
	case "u", "user":
		target = p.UserPath
	case "p", "project":
		target = p.ProjectPath
	}
	if target != "" {
		if err := Save(target, c); err != nil {
			ctxlog.FromContext(ctx).Warn("Saving credentials failed, continuing with in-memory pair.", "path", target, "error", err)
		} else {
			fmt.Fprintf(out, "Saved to %s\n", target)
		}
	}
	return c, nil
}
