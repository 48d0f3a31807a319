package jobs

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nguyentantai21042004/chapter-flow/internal/bridge"
	"github.com/nguyentantai21042004/chapter-flow/internal/metrics"
)

// Status tracks a job through its lifecycle
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether no further transition is possible
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// Kind names the operation a job performs
type Kind string

const (
	KindTranscription Kind = "transcription"
	KindChapters      Kind = "chapters"
	KindSections      Kind = "sections"
	KindMetadata      Kind = "metadata"
	KindProcess       Kind = "process"
	KindCompilation   Kind = "compilation"
)

var (
	ErrCancelled         = bridge.ErrCancelled
	ErrNotFound          = errors.New("job not found")
	ErrInvalidTransition = errors.New("invalid job transition")
)

// Job is a snapshot of one registered job
type Job struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	Source    string    `json:"source"`
	Parent    string    `json:"parentId,omitempty"`
	Status    Status    `json:"status"`
	Error     string    `json:"error,omitempty"`
	StartedAt time.Time `json:"startedAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type entry struct {
	job    Job
	cancel context.CancelFunc
}

// Registry owns every live job. Jobs are inserted on Start and removed on Finish.
type Registry struct {
	mu   sync.Mutex
	jobs map[string]*entry
	bus  *EventBus
	now  func() time.Time
}

func NewRegistry(bus *EventBus) *Registry {
	if bus == nil {
		bus = NewEventBus(0)
	}
	return &Registry{jobs: make(map[string]*entry), bus: bus, now: time.Now}
}

func (r *Registry) Bus() *EventBus {
	return r.bus
}

// Start registers a pending job and returns it with a context that Cancel will end.
// A job started under another job's context becomes its child.
func (r *Registry) Start(ctx context.Context, kind Kind, source string) (Job, context.Context) {
	parent := IDFromContext(ctx)
	ctx, cancel := context.WithCancel(ctx)
	now := r.now().UTC()
	job := Job{
		ID:        uuid.NewString(),
		Kind:      kind,
		Source:    source,
		Parent:    parent,
		Status:    StatusPending,
		StartedAt: now,
		UpdatedAt: now,
	}

	r.mu.Lock()
	r.jobs[job.ID] = &entry{job: job, cancel: cancel}
	r.mu.Unlock()

	if parent != "" && r.bus.Silenced(parent) {
		r.bus.Silence(job.ID)
	}
	r.publishStatus(job, "")
	return job, context.WithValue(ctx, jobIDKey{}, job.ID)
}

type jobIDKey struct{}

// IDFromContext returns the id of the job whose context ctx derives from, or ""
func IDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(jobIDKey{}).(string)
	return id
}

// Transition applies one validated state change
func (r *Registry) Transition(id string, status Status) error {
	r.mu.Lock()
	e, ok := r.jobs[id]
	if !ok {
		r.mu.Unlock()
		return ErrNotFound
	}
	if e.job.Status == status {
		r.mu.Unlock()
		return nil
	}
	if !validTransition(e.job.Status, status) {
		from := e.job.Status
		r.mu.Unlock()
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, status)
	}
	e.job.Status = status
	e.job.UpdatedAt = r.now().UTC()
	job := e.job
	r.mu.Unlock()

	r.publishStatus(job, "")
	return nil
}

// Cancel marks a live job and all of its descendants cancelled, silences their events
// and ends their contexts
func (r *Registry) Cancel(id string) error {
	r.mu.Lock()
	e, ok := r.jobs[id]
	if !ok {
		r.mu.Unlock()
		return ErrNotFound
	}
	if e.job.Status.Terminal() {
		r.mu.Unlock()
		return nil
	}

	var (
		cancelled []*entry
		snapshots []Job
	)
	now := r.now().UTC()
	for _, d := range r.subtree(id) {
		if d.job.Status.Terminal() {
			continue
		}
		d.job.Status = StatusCancelled
		d.job.UpdatedAt = now
		cancelled = append(cancelled, d)
		snapshots = append(snapshots, d.job)
	}
	r.mu.Unlock()

	for _, job := range snapshots {
		r.publishStatus(job, "cancelled")
		r.bus.Silence(job.ID)
	}
	for _, d := range cancelled {
		d.cancel()
	}
	return nil
}

// Subtree returns id followed by the ids of its live descendants
func (r *Registry) Subtree(id string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[id]; !ok {
		return nil
	}
	var ids []string
	for _, e := range r.subtree(id) {
		ids = append(ids, e.job.ID)
	}
	return ids
}

// subtree returns the entry for id followed by every live descendant. Caller holds r.mu.
func (r *Registry) subtree(id string) []*entry {
	out := []*entry{r.jobs[id]}
	ids := map[string]bool{id: true}
	for grew := true; grew; {
		grew = false
		for _, e := range r.jobs {
			if !ids[e.job.ID] && ids[e.job.Parent] {
				ids[e.job.ID] = true
				out = append(out, e)
				grew = true
			}
		}
	}
	return out
}

// Finish records the outcome derived from err and removes the job
func (r *Registry) Finish(id string, err error) (Job, error) {
	r.mu.Lock()
	e, ok := r.jobs[id]
	if !ok {
		r.mu.Unlock()
		return Job{}, ErrNotFound
	}
	delete(r.jobs, id)

	switch {
	case e.job.Status == StatusCancelled, IsCancelled(err):
		e.job.Status = StatusCancelled
	case err != nil:
		e.job.Status = StatusFailed
		e.job.Error = err.Error()
	default:
		e.job.Status = StatusCompleted
	}
	e.job.UpdatedAt = r.now().UTC()
	job := e.job
	r.mu.Unlock()

	e.cancel()
	metrics.RecordJob(string(job.Kind), string(job.Status))
	r.publishStatus(job, job.Error)
	return job, nil
}

func (r *Registry) Get(id string) (Job, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.jobs[id]
	if !ok {
		return Job{}, false
	}
	return e.job, true
}

// List returns live jobs oldest first
func (r *Registry) List() []Job {
	r.mu.Lock()
	out := make([]Job, 0, len(r.jobs))
	for _, e := range r.jobs {
		out = append(out, e.job)
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out
}

// CancelAll cancels every live job
func (r *Registry) CancelAll() {
	for _, j := range r.List() {
		_ = r.Cancel(j.ID)
	}
}

func (r *Registry) publishStatus(job Job, message string) {
	r.bus.Publish(Event{JobID: job.ID, Phase: PhaseStatus, Status: job.Status, Message: message, Filename: job.Source})
}

// IsCancelled reports whether err is a cancellation outcome rather than a failure
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled)
}

func validTransition(from, to Status) bool {
	switch from {
	case StatusPending:
		return to == StatusRunning || to == StatusFailed || to == StatusCancelled
	case StatusRunning:
		return to == StatusCompleted || to == StatusFailed || to == StatusCancelled
	default:
		return false
	}
}
