package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), DefaultFile)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAppliesFileOverDefaults(t *testing.T) {
	path := writeConfig(t, `
course     = "CAB202"
assignment = "T6Q1"
bundle     = ["*.cpp", "*.h"]
headless   = true
grade_timeout = "90s"
`)

	run, err := Load(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "CAB202", run.Course)
	assert.Equal(t, "T6Q1", run.Assignment)
	assert.Equal(t, []string{"*.cpp", "*.h"}, run.Bundle)
	assert.True(t, run.Headless)
	assert.Equal(t, 90*time.Second, run.GradeTimeout)

	// Untouched attributes keep their defaults.
	assert.Equal(t, "submission.zip", run.Output)
	assert.True(t, run.NotifyWhenGraded)
	assert.Equal(t, 15*time.Second, run.StepTimeout)
}

func TestLoadExplicitFalseOverridesDefault(t *testing.T) {
	path := writeConfig(t, `notify_when_graded = false`)

	run, err := Load(context.Background(), path)
	require.NoError(t, err)
	assert.False(t, run.NotifyWhenGraded)
}

func TestLoadInterpolatesEnvironment(t *testing.T) {
	t.Setenv("GRADEPILOT_TEST_COURSE", "IFB104")
	path := writeConfig(t, `course = env.GRADEPILOT_TEST_COURSE`)

	run, err := Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "IFB104", run.Course)
}

func TestLoadRejectsBadDuration(t *testing.T) {
	path := writeConfig(t, `login_timeout = "ninety seconds"`)

	_, err := Load(context.Background(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "login_timeout")
}

func TestLoadRejectsUnknownAttribute(t *testing.T) {
	path := writeConfig(t, `no_such_attribute = true`)

	_, err := Load(context.Background(), path)
	require.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(context.Background(), filepath.Join(t.TempDir(), DefaultFile))
	require.Error(t, err)
}

func TestValidateRequiresCourseAndAssignment(t *testing.T) {
	run := Defaults()
	require.ErrorContains(t, run.Validate(), "course")

	run.Course = "CAB202"
	require.ErrorContains(t, run.Validate(), "assignment")

	run.Assignment = "T6Q1"
	require.NoError(t, run.Validate())
}

func TestValidateRejectsNonPositiveTimeouts(t *testing.T) {
	run := Defaults()
	run.Course = "CAB202"
	run.Assignment = "T6Q1"
	run.PollInterval = 0
	require.ErrorContains(t, run.Validate(), "poll_interval")
}

func TestWriteExampleProducesLoadableConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFile)
	require.NoError(t, WriteExample(path))

	run, err := Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "CAB201", run.Course)
	require.NoError(t, run.Validate())
}

func TestWriteExampleRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFile)
	require.NoError(t, os.WriteFile(path, []byte(`course = "tuned"`), 0o644))

	err := WriteExample(path)
	require.ErrorContains(t, err, "refusing to overwrite")
}
