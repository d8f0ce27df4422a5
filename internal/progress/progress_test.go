package progress

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/gradepilot/internal/testutil"
)

func TestTrackerSequencesEvents(t *testing.T) {
	var events []Event
	tracker := NewTracker(SinkFunc(func(e Event) { events = append(events, e) }), 2)
	ctx := context.Background()

	done := tracker.Step(ctx, "first")
	done(nil)
	done = tracker.Step(ctx, "second")
	done(errors.New("boom"))

	require.Len(t, events, 4)

	assert.Equal(t, 1, events[0].StepIndex)
	assert.Equal(t, StatusStarted, events[0].Status)
	assert.Equal(t, "first", events[0].Label)
	assert.Equal(t, 2, events[0].TotalSteps)

	assert.Equal(t, StatusCompleted, events[1].Status)
	assert.NoError(t, events[1].Err)

	assert.Equal(t, 2, events[2].StepIndex)
	assert.Equal(t, StatusStarted, events[2].Status)

	assert.Equal(t, StatusFailed, events[3].Status)
	assert.EqualError(t, events[3].Err, "boom")
	assert.Equal(t, 2, tracker.Index())
}

func TestLogSinkRendersAllStatuses(t *testing.T) {
	var buf testutil.SafeBuffer
	sink := &LogSink{Logger: slog.New(slog.NewTextHandler(&buf, nil))}

	sink.Publish(Event{StepIndex: 1, TotalSteps: 3, Label: "bundle files", Status: StatusStarted})
	sink.Publish(Event{StepIndex: 1, TotalSteps: 3, Label: "bundle files", Status: StatusCompleted})
	sink.Publish(Event{StepIndex: 2, TotalSteps: 3, Label: "log in", Status: StatusFailed, Err: errors.New("boom")})

	out := buf.String()
	assert.Contains(t, out, "Step started.")
	assert.Contains(t, out, "Step completed.")
	assert.Contains(t, out, "Step failed.")
	assert.Contains(t, out, "boom")
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "started", StatusStarted.String())
	assert.Equal(t, "completed", StatusCompleted.String())
	assert.Equal(t, "failed", StatusFailed.String())
}
