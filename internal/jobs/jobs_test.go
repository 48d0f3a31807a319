package jobs

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/nguyentantai21042004/chapter-flow/internal/bridge"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBusSince(t *testing.T) {
	bus := NewEventBus(3)
	bus.Publish(Event{Phase: PhaseStatus, Message: "1"})
	bus.Publish(Event{Phase: PhaseStatus, Message: "2"})
	bus.Publish(Event{Phase: PhaseStatus, Message: "3"})

	events := bus.Since(1)
	require.Len(t, events, 2)
	assert.Equal(t, int64(2), events[0].Seq)
	assert.Equal(t, int64(3), events[1].Seq)
	assert.False(t, events[0].Time.IsZero())
}

func TestEventBusCapsHistory(t *testing.T) {
	bus := NewEventBus(2)
	for i := 1; i <= 3; i++ {
		bus.Publish(Event{Message: fmt.Sprint(i)})
	}

	events := bus.Since(0)
	require.Len(t, events, 2)
	assert.Equal(t, "2", events[0].Message)
	assert.Equal(t, "3", events[1].Message)
}

func TestEventBusSubscribe(t *testing.T) {
	bus := NewEventBus(10)
	ch, stop := bus.Subscribe(4)

	bus.Publish(Event{JobID: "a", Message: "hello"})
	got := <-ch
	assert.Equal(t, "hello", got.Message)

	stop()
	stop()
	_, open := <-ch
	assert.False(t, open)
	_, ok := bus.Publish(Event{JobID: "a"})
	assert.True(t, ok)
}

func TestEventBusSilence(t *testing.T) {
	bus := NewEventBus(10)
	bus.Silence("job-1")

	_, ok := bus.Publish(Event{JobID: "job-1", Message: "late"})
	assert.False(t, ok)
	_, ok = bus.Publish(Event{JobID: "job-2", Message: "other"})
	assert.True(t, ok)
	assert.Len(t, bus.Since(0), 1)
}

func TestEventBusProgressAdapter(t *testing.T) {
	bus := NewEventBus(10)
	idx := 2
	report := bus.Progress("job", "talk.mp4", &idx)

	report(bridge.Progress{ID: "job", Stage: bridge.StageTranscribe, Percent: 40, Message: "decoding"})

	events := bus.Since(0)
	require.Len(t, events, 1)
	assert.Equal(t, PhaseTranscribing, events[0].Phase)
	require.NotNil(t, events[0].Percent)
	assert.Equal(t, 40, *events[0].Percent)
	assert.Equal(t, "talk.mp4", events[0].Filename)
	assert.Equal(t, 2, *events[0].ItemIndex)
}

func TestRegistryLifecycle(t *testing.T) {
	r := NewRegistry(nil)

	job, _ := r.Start(context.Background(), KindChapters, "talk.mp4")
	assert.Equal(t, StatusPending, job.Status)

	require.NoError(t, r.Transition(job.ID, StatusRunning))
	got, ok := r.Get(job.ID)
	require.True(t, ok)
	assert.Equal(t, StatusRunning, got.Status)
	assert.Len(t, r.List(), 1)

	final, err := r.Finish(job.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, final.Status)

	_, ok = r.Get(job.ID)
	assert.False(t, ok)
	assert.Empty(t, r.List())
	_, err = r.Finish(job.ID, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRegistryRejectsInvalidTransitions(t *testing.T) {
	r := NewRegistry(nil)
	job, _ := r.Start(context.Background(), KindSections, "x")

	assert.ErrorIs(t, r.Transition(job.ID, StatusCompleted), ErrInvalidTransition)
	require.NoError(t, r.Transition(job.ID, StatusRunning))
	require.NoError(t, r.Transition(job.ID, StatusRunning))
	assert.ErrorIs(t, r.Transition(job.ID, StatusPending), ErrInvalidTransition)
	assert.ErrorIs(t, r.Transition("missing", StatusRunning), ErrNotFound)
}

func TestRegistryFinishClassifiesErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Status
	}{
		{"success", nil, StatusCompleted},
		{"failure", errors.New("boom"), StatusFailed},
		{"bridge cancelled", fmt.Errorf("transcribe: %w", bridge.ErrCancelled), StatusCancelled},
		{"context cancelled", context.Canceled, StatusCancelled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry(nil)
			job, _ := r.Start(context.Background(), KindTranscription, "a.mp4")
			require.NoError(t, r.Transition(job.ID, StatusRunning))

			final, err := r.Finish(job.ID, tt.err)
			require.NoError(t, err)
			assert.Equal(t, tt.want, final.Status)
			if tt.want == StatusFailed {
				assert.Equal(t, "boom", final.Error)
			}
		})
	}
}

func TestRegistryCancel(t *testing.T) {
	bus := NewEventBus(50)
	r := NewRegistry(bus)

	job, ctx := r.Start(context.Background(), KindTranscription, "a.mp4")
	require.NoError(t, r.Transition(job.ID, StatusRunning))
	progress := bus.Progress(job.ID, "a.mp4", nil)
	progress(bridge.Progress{Stage: bridge.StageTranscribe, Percent: 10})

	require.NoError(t, r.Cancel(job.ID))
	assert.ErrorIs(t, ctx.Err(), context.Canceled)

	before := len(bus.Since(0))
	progress(bridge.Progress{Stage: bridge.StageTranscribe, Percent: 50})
	final, err := r.Finish(job.ID, errors.New("killed"))
	require.NoError(t, err)

	assert.Equal(t, StatusCancelled, final.Status)
	assert.Len(t, bus.Since(0), before)

	last := bus.Since(0)[before-1]
	assert.Equal(t, StatusCancelled, last.Status)
	assert.ErrorIs(t, r.Cancel("missing"), ErrNotFound)
}

func TestRegistryCancelAll(t *testing.T) {
	r := NewRegistry(nil)
	_, ctx1 := r.Start(context.Background(), KindProcess, "a")
	_, ctx2 := r.Start(context.Background(), KindProcess, "b")

	r.CancelAll()
	assert.Error(t, ctx1.Err())
	assert.Error(t, ctx2.Err())
	for _, j := range r.List() {
		assert.Equal(t, StatusCancelled, j.Status)
	}
}

func TestIDFromContext(t *testing.T) {
	r := NewRegistry(NewEventBus(0))
	job, ctx := r.Start(context.Background(), KindMetadata, "x")

	assert.Equal(t, job.ID, IDFromContext(ctx))
	assert.Equal(t, "", IDFromContext(context.Background()))
}

func TestRegistryCancelCascadesToChildren(t *testing.T) {
	bus := NewEventBus(100)
	r := NewRegistry(bus)

	parent, parentCtx := r.Start(context.Background(), KindProcess, "a.mp4")
	child, childCtx := r.Start(parentCtx, KindTranscription, "a.mp4")
	grandchild, _ := r.Start(childCtx, KindChapters, "a.mp4")
	other, otherCtx := r.Start(context.Background(), KindProcess, "b.mp4")
	assert.Equal(t, parent.ID, child.Parent)
	assert.Equal(t, child.ID, grandchild.Parent)

	progress := bus.Progress(child.ID, "a.mp4", nil)
	require.NoError(t, r.Cancel(parent.ID))
	assert.ErrorIs(t, childCtx.Err(), context.Canceled)
	assert.NoError(t, otherCtx.Err())

	got, ok := r.Get(grandchild.ID)
	require.True(t, ok)
	assert.Equal(t, StatusCancelled, got.Status)

	before := len(bus.Since(0))
	progress(bridge.Progress{Stage: bridge.StageTranscribe, Percent: 70, Message: "late line"})
	_, err := r.Finish(child.ID, childCtx.Err())
	require.NoError(t, err)
	late, _ := r.Start(parentCtx, KindMetadata, "a.mp4")
	assert.Len(t, bus.Since(0), before, "no events after cancelling the parent")

	_, ok = r.Get(late.ID)
	assert.True(t, ok)
	got, _ = r.Get(other.ID)
	assert.Equal(t, StatusPending, got.Status)
}
