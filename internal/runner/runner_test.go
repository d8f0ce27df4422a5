package runner

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/gradepilot/internal/browser"
	"github.com/vk/gradepilot/internal/bundle"
	"github.com/vk/gradepilot/internal/config"
	"github.com/vk/gradepilot/internal/creds"
	"github.com/vk/gradepilot/internal/progress"
	"github.com/vk/gradepilot/internal/resolve"
	"github.com/vk/gradepilot/internal/submit"
	"github.com/vk/gradepilot/internal/testutil"
)

type countingSource struct {
	calls int
}

func (c *countingSource) Resolve(context.Context) (creds.Credentials, string, error) {
	c.calls++
	return creds.Credentials{Username: "u", Password: "p"}, "test source", nil
}

func testConfig() config.Run {
	cfg := config.Defaults()
	cfg.Course = "cab202"
	cfg.Assignment = "t6q1"
	cfg.Bundle = []string{"*.cpp", "*.h"}
	cfg.LoginTimeout = 50 * time.Millisecond
	cfg.StepTimeout = 50 * time.Millisecond
	cfg.PollInterval = time.Millisecond
	cfg.GradeTimeout = 20 * time.Millisecond
	return cfg
}

// scriptedPage sets up a page where a saved session is live and the whole
// submission flow succeeds.
func scriptedPage() *testutil.FakePage {
	page := testutil.NewFakePage()
	page.SetVisible(browser.SelAuthenticatedMarker, true)
	page.SetVisible(browser.SelAssignmentLink, true)
	page.SetListing(browser.SelCourseBox, []browser.Entry{
		{Label: "CAB202_24se2", Href: "/courses/123"},
		{Label: "MATH101_24se2", Href: "/courses/77"},
	})
	page.SetListing(browser.SelAssignmentLink, []browser.Entry{
		{Label: "T6Q1 Extra Credit", Href: "/courses/123/assignments/8"},
		{Label: "T6Q1", Href: "/courses/123/assignments/9"},
	})
	page.SetVisible(browser.SelSubmitButton, true)
	page.SetVisible(browser.SelResubmitButton, true)
	page.SetVisible(browser.SelUploadMethod, true)
	page.SetVisible(browser.SelUploadConfirm, true)
	page.SetVisible(browser.SelSubmissionView, true)
	page.SetVisible(browser.SelGradeTotalScore, true)
	page.SetText(browser.SelGradeTotalScore, "10.0 / 10.0")
	return page
}

func TestRunFullPipeline(t *testing.T) {
	root := testutil.WriteProjectFiles(t, map[string]string{
		"main.cpp":  "int main() {}",
		"util.h":    "#pragma once",
		"notes.txt": "not code",
	})
	page := scriptedPage()
	src := &countingSource{}
	var events []progress.Event
	sink := progress.SinkFunc(func(e progress.Event) { events = append(events, e) })

	r := New(testConfig(), root, page, src, sink)
	out, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, bundle.Manifest{"main.cpp", "util.h"}, out.Manifest)
	assert.Equal(t, "CAB202_24se2", out.Course)
	assert.Equal(t, "T6Q1", out.Assignment, "shortest name wins the ambiguous match")
	assert.Equal(t, submit.StatusAccepted, out.Submission.Status)
	require.NotNil(t, out.Grade)
	assert.True(t, out.Grade.Available)
	assert.Equal(t, 10.0, out.Grade.ScoreObtained)

	// A live saved session never touches credentials.
	assert.Zero(t, src.calls)

	// Six steps, each narrated as started then terminal.
	require.Len(t, events, 12)
	labels := []string{"bundle files", "log in", "find course", "find assignment", "upload submission", "wait for grade"}
	for i, label := range labels {
		started, terminal := events[2*i], events[2*i+1]
		assert.Equal(t, i+1, started.StepIndex)
		assert.Equal(t, 6, started.TotalSteps)
		assert.Equal(t, label, started.Label)
		assert.Equal(t, progress.StatusStarted, started.Status)
		assert.Equal(t, progress.StatusCompleted, terminal.Status)
	}
}

func TestRunSkipsGradePollingWhenDisabled(t *testing.T) {
	root := testutil.WriteProjectFiles(t, map[string]string{"main.cpp": "x"})
	page := scriptedPage()
	cfg := testConfig()
	cfg.NotifyWhenGraded = false

	var events []progress.Event
	r := New(cfg, root, page, &countingSource{}, progress.SinkFunc(func(e progress.Event) { events = append(events, e) }))
	out, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Nil(t, out.Grade)
	assert.Zero(t, page.Reloads)
	assert.Len(t, events, 10)
	assert.Equal(t, 5, events[0].TotalSteps)
}

func TestRunFailedStepCarriesItsPosition(t *testing.T) {
	root := testutil.WriteProjectFiles(t, map[string]string{"main.cpp": "x"})
	page := scriptedPage()
	cfg := testConfig()
	cfg.Course = "ifb999"

	var events []progress.Event
	r := New(cfg, root, page, &countingSource{}, progress.SinkFunc(func(e progress.Event) { events = append(events, e) }))
	_, err := r.Run(context.Background())
	require.ErrorIs(t, err, resolve.ErrNotFound)
	assert.Contains(t, err.Error(), "step 3/6 (find course)")

	last := events[len(events)-1]
	assert.Equal(t, progress.StatusFailed, last.Status)
	assert.Equal(t, 3, last.StepIndex)
}

func TestRunEmptyManifestStopsBeforeTheBrowser(t *testing.T) {
	root := testutil.WriteProjectFiles(t, map[string]string{"notes.txt": "x"})
	page := scriptedPage()

	r := New(testConfig(), root, page, &countingSource{}, progress.SinkFunc(func(progress.Event) {}))
	_, err := r.Run(context.Background())
	require.ErrorIs(t, err, bundle.ErrEmptyManifest)
	assert.Contains(t, err.Error(), "step 1/6 (bundle files)")
	assert.Empty(t, page.Navigations)
}
