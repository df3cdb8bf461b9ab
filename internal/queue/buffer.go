package queue

import (
	"errors"
	"fmt"
	"sync"

	"github.com/matheus3301/chatlog/internal/event"
)

// ErrClosed is returned by Push after Close.
var ErrClosed = errors.New("queue: buffer closed")

// Policy decides what happens to a push when a bounded buffer is full.
// The producer is never blocked.
type Policy string

const (
	DropOldest Policy = "drop-oldest"
	DropNewest Policy = "drop-newest"
)

// ParsePolicy maps a config value to a Policy. Empty means DropOldest.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case "", DropOldest:
		return DropOldest, nil
	case DropNewest:
		return DropNewest, nil
	}
	return "", fmt.Errorf("unknown overflow policy %q", s)
}

// Options configures a Buffer. The zero value is an unbounded buffer.
type Options struct {
	// MaxPending caps the number of buffered events; 0 means unbounded.
	MaxPending int
	Policy     Policy
	// OnDrop is called, with the buffer lock released, for every event discarded
	// by the overflow policy.
	OnDrop func(evt event.Event, reason string)
}

// compactAt is the consumed-prefix length after which Pop shifts the backing array.
const compactAt = 64

// Buffer is a FIFO of events shared by exactly one producer and one consumer.
// Push and Pop are O(1) amortised and never block.
type Buffer struct {
	mu     sync.Mutex
	items  []event.Event
	head   int
	closed bool
	opts   Options
	notify chan struct{}
}

// New creates an empty buffer.
func New(opts Options) *Buffer {
	if opts.Policy == "" {
		opts.Policy = DropOldest
	}
	return &Buffer{
		opts:   opts,
		notify: make(chan struct{}, 1),
	}
}

// Push appends evt at the back.
func (b *Buffer) Push(evt event.Event) error {
	var (
		dropped event.Event
		reason  string
	)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrClosed
	}
	if limit := b.opts.MaxPending; limit > 0 && b.lenLocked() >= limit {
		switch b.opts.Policy {
		case DropNewest:
			b.mu.Unlock()
			b.dropped(evt, string(DropNewest))
			return nil
		default:
			dropped, _ = b.popLocked()
			reason = string(DropOldest)
		}
	}
	b.items = append(b.items, evt)
	b.mu.Unlock()

	if reason != "" {
		b.dropped(dropped, reason)
	}

	select {
	case b.notify <- struct{}{}:
	default:
	}
	return nil
}

// Pop removes and returns the oldest event. ok is false when the buffer is empty.
func (b *Buffer) Pop() (evt event.Event, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.popLocked()
}

// Len returns the number of buffered events.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lenLocked()
}

// Ready receives a value after a Push on an empty or non-empty buffer.
// A receive is a hint only; callers must still check Pop.
func (b *Buffer) Ready() <-chan struct{} {
	return b.notify
}

// Close rejects further pushes. Events already buffered can still be popped.
func (b *Buffer) Close() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
}

func (b *Buffer) lenLocked() int {
	return len(b.items) - b.head
}

func (b *Buffer) popLocked() (event.Event, bool) {
	if b.head == len(b.items) {
		return event.Event{}, false
	}
	evt := b.items[b.head]
	b.items[b.head] = event.Event{}
	b.head++

	switch {
	case b.head == len(b.items):
		b.items = b.items[:0]
		b.head = 0
	case b.head >= compactAt && b.head*2 >= len(b.items):
		n := copy(b.items, b.items[b.head:])
		clear(b.items[n:])
		b.items = b.items[:n]
		b.head = 0
	}
	return evt, true
}

func (b *Buffer) dropped(evt event.Event, reason string) {
	if b.opts.OnDrop != nil {
		b.opts.OnDrop(evt, reason)
	}
}
