package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/nguyentantai21042004/chapter-flow/internal/llm"
	"github.com/nguyentantai21042004/chapter-flow/internal/metrics"
)

var ErrQueueClosed = errors.New("generation queue closed")

// Work is one unit of model generation
type Work func(ctx context.Context) (string, error)

// Handle is the caller's view of a queued generation job
type Handle struct {
	ID string

	ctx      context.Context
	work     Work
	position atomic.Int32
	done     chan struct{}
	text     string
	err      error
}

// Position is the number of jobs ahead of this one plus one while waiting, and 0 once started
func (h *Handle) Position() int {
	return int(h.position.Load())
}

// Done is closed when the result is available
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Wait blocks for the result. Leaving early through ctx does not remove the job;
// a job whose own context is already done when it reaches the head is skipped.
func (h *Handle) Wait(ctx context.Context) (string, error) {
	select {
	case <-h.done:
		return h.text, h.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (h *Handle) finish(text string, err error) {
	h.text, h.err = text, err
	h.position.Store(0)
	close(h.done)
}

// PositionFunc is told the new position of every waiting job whenever the queue moves
type PositionFunc func(id string, position int)

// Queue executes at most one job at a time, strictly in submission order
type Queue struct {
	mu         sync.Mutex
	pending    []*Handle
	running    bool
	closed     bool
	onPosition PositionFunc

	wake    chan struct{}
	quit    chan struct{}
	stopped chan struct{}
}

func NewQueue() *Queue {
	q := &Queue{
		wake:    make(chan struct{}, 1),
		quit:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go q.loop()
	return q
}

func (q *Queue) OnPosition(fn PositionFunc) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.onPosition = fn
}

// Enqueue appends work and returns immediately
func (q *Queue) Enqueue(ctx context.Context, work Work) (*Handle, error) {
	h := &Handle{ID: uuid.NewString(), ctx: ctx, work: work, done: make(chan struct{})}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil, ErrQueueClosed
	}
	q.pending = append(q.pending, h)
	updates, notify := q.positionsLocked()
	q.mu.Unlock()

	notifyPositions(notify, updates)
	select {
	case q.wake <- struct{}{}:
	default:
	}
	return h, nil
}

// Do enqueues work and waits for its result
func (q *Queue) Do(ctx context.Context, work Work) (string, error) {
	h, err := q.Enqueue(ctx, work)
	if err != nil {
		return "", err
	}
	return h.Wait(ctx)
}

// Len is the number of jobs waiting, excluding the running one
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

func (q *Queue) Running() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.running
}

// Close fails every waiting job with ErrQueueClosed and waits for the running one
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		<-q.stopped
		return
	}
	q.closed = true
	pending := q.pending
	q.pending = nil
	q.mu.Unlock()

	for _, h := range pending {
		h.finish("", ErrQueueClosed)
	}
	metrics.SetQueueDepth(0)
	close(q.quit)
	<-q.stopped
}

func (q *Queue) loop() {
	defer close(q.stopped)
	for {
		h, ok := q.next()
		if !ok {
			return
		}
		q.execute(h)
	}
}

func (q *Queue) next() (*Handle, bool) {
	for {
		q.mu.Lock()
		if q.closed {
			q.running = false
			q.mu.Unlock()
			return nil, false
		}
		if len(q.pending) > 0 {
			h := q.pending[0]
			q.pending = q.pending[1:]
			q.running = true
			h.position.Store(0)
			updates, notify := q.positionsLocked()
			q.mu.Unlock()

			notifyPositions(notify, updates)
			return h, true
		}
		q.running = false
		q.mu.Unlock()

		select {
		case <-q.wake:
		case <-q.quit:
		}
	}
}

func (q *Queue) execute(h *Handle) {
	if err := h.ctx.Err(); err != nil {
		h.finish("", err)
		return
	}

	var (
		text string
		err  error
	)
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("generation job panicked: %v", r)
			}
		}()
		text, err = h.work(h.ctx)
	}()
	h.finish(text, err)
}

type positionUpdate struct {
	id       string
	position int
}

func (q *Queue) positionsLocked() ([]positionUpdate, PositionFunc) {
	metrics.SetQueueDepth(len(q.pending))
	var updates []positionUpdate
	for i, h := range q.pending {
		h.position.Store(int32(i + 1))
		if q.onPosition != nil {
			updates = append(updates, positionUpdate{id: h.ID, position: i + 1})
		}
	}
	return updates, q.onPosition
}

func notifyPositions(fn PositionFunc, updates []positionUpdate) {
	if fn == nil {
		return
	}
	for _, u := range updates {
		fn(u.id, u.position)
	}
}

// Serialize routes every completion of c through q
func Serialize(q *Queue, c llm.Completer) llm.Completer {
	return llm.CompleterFunc(func(ctx context.Context, prompt, model string) (string, error) {
		return q.Do(ctx, func(ctx context.Context) (string, error) {
			return c.Complete(ctx, prompt, model)
		})
	})
}
