package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/gradepilot/internal/testutil"
)

func TestParsePopulatesConfig(t *testing.T) {
	var buf testutil.SafeBuffer
	cfg, shouldExit, err := Parse([]string{
		"--course", "CAB202",
		"--assignment", "T6Q1",
		"--bundle", "*.cpp",
		"--bundle", "*.h",
		"--file", "work.zip",
		"--headless",
		"--no-grade-wait",
		"--log-format", "json",
		"--log-level", "debug",
	}, &buf)
	require.NoError(t, err)
	require.False(t, shouldExit)

	assert.Equal(t, "CAB202", cfg.Course)
	assert.Equal(t, "T6Q1", cfg.Assignment)
	assert.Equal(t, []string{"*.cpp", "*.h"}, cfg.Bundle)
	assert.Equal(t, "work.zip", cfg.Output)
	assert.True(t, cfg.Headless)
	assert.True(t, cfg.NoGradeWait)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestParseDefaults(t *testing.T) {
	var buf testutil.SafeBuffer
	cfg, shouldExit, err := Parse(nil, &buf)
	require.NoError(t, err)
	require.False(t, shouldExit)

	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.Bundle)
	assert.False(t, cfg.Headless)
}

func TestParseHelpExitsCleanly(t *testing.T) {
	var buf testutil.SafeBuffer
	cfg, shouldExit, err := Parse([]string{"--help"}, &buf)
	require.NoError(t, err)
	assert.True(t, shouldExit)
	assert.Nil(t, cfg)
	assert.Contains(t, buf.String(), "Usage:")
}

func TestParseRejectsPositionalArguments(t *testing.T) {
	var buf testutil.SafeBuffer
	_, _, err := Parse([]string{"submit"}, &buf)

	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 2, exitErr.Code)
	assert.Contains(t, exitErr.Message, "unexpected argument")
}

func TestParseRejectsInvalidLogSettings(t *testing.T) {
	var buf testutil.SafeBuffer

	_, _, err := Parse([]string{"--log-format", "yaml"}, &buf)
	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 2, exitErr.Code)

	_, _, err = Parse([]string{"--log-level", "verbose"}, &buf)
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 2, exitErr.Code)
}

func TestParseRejectsConflictingModes(t *testing.T) {
	var buf testutil.SafeBuffer
	_, _, err := Parse([]string{"--init", "--validate"}, &buf)

	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Contains(t, exitErr.Message, "mutually exclusive")
}

func TestParseRejectsManualLoginWithCredentials(t *testing.T) {
	var buf testutil.SafeBuffer
	_, _, err := Parse([]string{"--manual-login", "--username", "u"}, &buf)

	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Contains(t, exitErr.Message, "manual-login")
}
