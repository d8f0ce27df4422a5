// Package progress defines the one-way step event stream the engine emits
// for the presentation layer. Rendering is assumed fast, so publishing is
// fire-and-forget with no backpressure.
package progress

import (
	"context"
	"log/slog"
	"time"

	"github.com/vk/gradepilot/internal/ctxlog"
)

// Status describes the lifecycle of a single pipeline step.
type Status int

const (
	StatusStarted Status = iota
	StatusCompleted
	StatusFailed
)

// String returns the human-readable status label.
func (s Status) String() string {
	switch s {
	case StatusStarted:
		return "started"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Event is a single entry in the step narration of a run.
type Event struct {
	StepIndex  int
	TotalSteps int
	Label      string
	Status     Status
	Timestamp  time.Time
	// Duration is set on Completed and Failed events.
	Duration time.Duration
	// Err is set on Failed events.
	Err error
}

// Sink consumes step events. Implementations must be fast and must not
// block the pipeline.
type Sink interface {
	Publish(Event)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(Event)

// Publish implements Sink.
func (f SinkFunc) Publish(e Event) { f(e) }

// LogSink renders events through a slog.Logger. It is the default sink when
// no presentation layer is attached.
type LogSink struct {
	Logger *slog.Logger
}

// Publish implements Sink.
func (s *LogSink) Publish(e Event) {
	attrs := []any{"step", e.StepIndex, "of", e.TotalSteps, "label", e.Label}
	switch e.Status {
	case StatusStarted:
		s.Logger.Info("Step started.", attrs...)
	case StatusCompleted:
		s.Logger.Info("Step completed.", append(attrs, "duration", e.Duration)...)
	case StatusFailed:
		s.Logger.Error("Step failed.", append(attrs, "duration", e.Duration, "error", e.Err)...)
	}
}

// Tracker sequences events for a fixed number of steps, stamping indices,
// timestamps and durations so callers only name the step.
type Tracker struct {
	sink  Sink
	total int
	index int
}

// NewTracker returns a tracker for a run of total steps.
func NewTracker(sink Sink, total int) *Tracker {
	return &Tracker{sink: sink, total: total}
}

// Step publishes a Started event for the next step and returns a completion
// function. Call it with nil for success or the failure error.
func (t *Tracker) Step(ctx context.Context, label string) func(error) {
	t.index++
	index := t.index
	started := time.Now()

	ctxlog.FromContext(ctx).Debug("Pipeline step starting.", "step", index, "label", label)
	t.sink.Publish(Event{
		StepIndex:  index,
		TotalSteps: t.total,
		Label:      label,
		Status:     StatusStarted,
		Timestamp:  started,
	})

	return func(err error) {
		e := Event{
			StepIndex:  index,
			TotalSteps: t.total,
			Label:      label,
			Status:     StatusCompleted,
			Timestamp:  time.Now(),
			Duration:   time.Since(started),
		}
		if err != nil {
			e.Status = StatusFailed
			e.Err = err
		}
		t.sink.Publish(e)
	}
}

// Index returns the index of the most recently started step.
func (t *Tracker) Index() int { return t.index }
