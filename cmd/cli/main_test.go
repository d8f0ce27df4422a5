package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/gradepilot/internal/cli"
	"github.com/vk/gradepilot/internal/testutil"
)

func TestRunHelpExitsCleanly(t *testing.T) {
	var buf testutil.SafeBuffer
	require.NoError(t, run(&buf, []string{"--help"}))
	assert.Contains(t, buf.String(), "Usage:")
}

func TestRunInvalidFlagReturnsExitError(t *testing.T) {
	var buf testutil.SafeBuffer
	err := run(&buf, []string{"--log-level", "verbose"})

	var exitErr *cli.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 2, exitErr.Code)
}

func TestRunInitCreatesConfig(t *testing.T) {
	t.Chdir(t.TempDir())

	var buf testutil.SafeBuffer
	require.NoError(t, run(&buf, []string{"--init"}))
	assert.FileExists(t, "gradepilot.hcl")
}
