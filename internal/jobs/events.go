package jobs

import (
	"sync"
	"time"

	"github.com/nguyentantai21042004/chapter-flow/internal/bridge"
)

// Phases are an open set; consumers ignore phases they do not know.
const (
	PhaseStatus       = "status"
	PhaseQueued       = "queued"
	PhaseExtracting   = bridge.StageExtract
	PhaseTranscribing = bridge.StageTranscribe
	PhaseGenerating   = "generating"
	PhaseSaving       = "saving"
)

const defaultMaxEvents = 500

// Event is one sequenced progress message
type Event struct {
	Seq       int64     `json:"seq"`
	Time      time.Time `json:"time"`
	JobID     string    `json:"jobId"`
	Phase     string    `json:"phase"`
	Status    Status    `json:"status,omitempty"`
	Message   string    `json:"message,omitempty"`
	Percent   *int      `json:"percent,omitempty"`
	Filename  string    `json:"filename,omitempty"`
	ItemIndex *int      `json:"itemIndex,omitempty"`
}

// EventBus keeps a bounded history of events and fans them out to live subscribers.
// Events for a cancelled job are dropped.
type EventBus struct {
	mu          sync.RWMutex
	nextSeq     int64
	maxEvents   int
	events      []Event
	subscribers map[int]chan Event
	nextSub     int

	cancelled      map[string]struct{}
	cancelledOrder []string
}

func NewEventBus(maxEvents int) *EventBus {
	if maxEvents <= 0 {
		maxEvents = defaultMaxEvents
	}
	return &EventBus{
		maxEvents:   maxEvents,
		events:      make([]Event, 0, maxEvents),
		subscribers: make(map[int]chan Event),
		cancelled:   make(map[string]struct{}),
	}
}

// Publish assigns a sequence number and timestamp. It reports false when the event was dropped.
func (b *EventBus) Publish(event Event) (Event, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.cancelled[event.JobID]; ok && event.JobID != "" {
		return event, false
	}

	b.nextSeq++
	event.Seq = b.nextSeq
	if event.Time.IsZero() {
		event.Time = time.Now().UTC()
	}

	b.events = append(b.events, event)
	if len(b.events) > b.maxEvents {
		trim := len(b.events) - b.maxEvents
		b.events = append([]Event(nil), b.events[trim:]...)
	}

	for _, ch := range b.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
	return event, true
}

// Since returns events with sequence strictly greater than seq
func (b *EventBus) Since(seq int64) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]Event, 0, len(b.events))
	for _, event := range b.events {
		if event.Seq > seq {
			out = append(out, event)
		}
	}
	return out
}

// Subscribe returns a channel of live events and a function that ends the subscription.
// Slow subscribers miss events rather than blocking publishers.
func (b *EventBus) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 64
	}
	ch := make(chan Event, buffer)

	b.mu.Lock()
	id := b.nextSub
	b.nextSub++
	b.subscribers[id] = ch
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subscribers, id)
			b.mu.Unlock()
			close(ch)
		})
	}
}

// Silence drops every later event for jobID
func (b *EventBus) Silence(jobID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.cancelled[jobID]; ok {
		return
	}
	b.cancelled[jobID] = struct{}{}
	b.cancelledOrder = append(b.cancelledOrder, jobID)
	if len(b.cancelledOrder) > b.maxEvents {
		delete(b.cancelled, b.cancelledOrder[0])
		b.cancelledOrder = b.cancelledOrder[1:]
	}
}

// Silenced reports whether events for jobID are being dropped
func (b *EventBus) Silenced(jobID string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.cancelled[jobID]
	return ok
}

// Progress adapts bridge progress for jobID into bus events
func (b *EventBus) Progress(jobID, filename string, itemIndex *int) bridge.ProgressFunc {
	return func(p bridge.Progress) {
		percent := p.Percent
		b.Publish(Event{
			JobID:     jobID,
			Phase:     p.Stage,
			Message:   p.Message,
			Percent:   &percent,
			Filename:  filename,
			ItemIndex: itemIndex,
		})
	}
}
