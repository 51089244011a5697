// Package feed records the events a handler saw and fans them out to live subscribers.
package feed

import (
	"sync"
	"time"

	"go-stream-listener/internal/infrastructure/stream"
)

// DefaultCapacity is used when New is given a non-positive capacity.
const DefaultCapacity = 256

// Record is one event as stored in a Feed.
type Record struct {
	Seq         uint64    `json:"seq"`
	Kind        string    `json:"kind"`
	Body        string    `json:"body,omitempty"`
	Description string    `json:"description,omitempty"`
	ReceivedAt  time.Time `json:"received_at"`
}

// Feed keeps the last capacity records and a set of subscribers. Slow subscribers are
// dropped instead of blocking the publisher.
type Feed struct {
	mu       sync.RWMutex
	capacity int
	history  []Record
	seq      uint64
	subs     map[chan Record]struct{}
	buffer   int
	closed   bool
	done     chan struct{}
}

// New returns an open Feed keeping the last capacity records.
func New(capacity int) *Feed {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Feed{
		capacity: capacity,
		subs:     make(map[chan Record]struct{}),
		buffer:   capacity,
		done:     make(chan struct{}),
	}
}

// Publish appends ev and hands it to every subscriber. Publishing to a closed feed is
// a no-op and returns false.
func (f *Feed) Publish(ev stream.Event) (Record, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return Record{}, false
	}

	f.seq++
	rec := Record{
		Seq:         f.seq,
		Kind:        ev.Kind.String(),
		Body:        ev.Body,
		Description: ev.Description,
		ReceivedAt:  time.Now().UTC(),
	}

	f.history = append(f.history, rec)
	if len(f.history) > f.capacity {
		f.history = f.history[len(f.history)-f.capacity:]
	}

	for ch := range f.subs {
		select {
		case ch <- rec:
		default:
			delete(f.subs, ch)
			close(ch)
		}
	}
	return rec, true
}

// Subscribe returns the current history and a channel of later records. The channel is
// closed when the feed closes, when the subscriber falls behind, or after cancel.
func (f *Feed) Subscribe() ([]Record, <-chan Record, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	snapshot := append([]Record(nil), f.history...)
	ch := make(chan Record, f.buffer)
	if f.closed {
		close(ch)
		return snapshot, ch, func() {}
	}
	f.subs[ch] = struct{}{}

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			if _, ok := f.subs[ch]; ok {
				delete(f.subs, ch)
				close(ch)
			}
		})
	}
	return snapshot, ch, cancel
}

// History returns a copy of the stored records, oldest first.
func (f *Feed) History() []Record {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]Record(nil), f.history...)
}

// Len is the total number of records ever published, including evicted ones.
func (f *Feed) Len() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.seq
}

// SubscriberCount returns the number of live subscribers.
func (f *Feed) SubscriberCount() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subs)
}

// Close ends every subscription. It is safe to call more than once.
func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return
	}
	f.closed = true
	for ch := range f.subs {
		close(ch)
	}
	f.subs = make(map[chan Record]struct{})
	close(f.done)
}

// Done is closed once the feed is closed.
func (f *Feed) Done() <-chan struct{} {
	return f.done
}

// IsClosed reports whether Close was called.
func (f *Feed) IsClosed() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.closed
}
