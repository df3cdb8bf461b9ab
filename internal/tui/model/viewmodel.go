package model

import (
	"context"
	"sync"

	"github.com/matheus3301/chatlog/internal/store"
)

// PollLimit caps how many archived messages a single Poll fetches.
const PollLimit = 500

// Source is the read side of the message archive.
type Source interface {
	ListRecent(limit int) ([]store.Message, error)
	ListSince(afterID int64, limit int) ([]store.Message, error)
}

// StatusFunc reports the daemon state, e.g. "SERVING".
type StatusFunc func(ctx context.Context) (string, error)

// ViewModel tails the archive and caches daemon status for the UI.
type ViewModel struct {
	mu sync.RWMutex

	src    Source
	status StatusFunc

	lastID int64
	seen   int
	state  string
	paused bool

	Flash Flash
}

// NewViewModel creates a view model over src. status may be nil.
func NewViewModel(src Source, status StatusFunc) *ViewModel {
	return &ViewModel{src: src, status: status, state: "UNKNOWN"}
}

// LoadBacklog returns the last n archived messages and positions the tail
// after them.
func (vm *ViewModel) LoadBacklog(n int) ([]store.Message, error) {
	msgs, err := vm.src.ListRecent(n)
	if err != nil {
		return nil, err
	}
	vm.advance(msgs)
	return msgs, nil
}

// Poll returns messages archived since the previous call. It returns nothing
// while paused; those messages are delivered after Resume.
func (vm *ViewModel) Poll() ([]store.Message, error) {
	vm.mu.RLock()
	paused, after := vm.paused, vm.lastID
	vm.mu.RUnlock()
	if paused {
		return nil, nil
	}

	msgs, err := vm.src.ListSince(after, PollLimit)
	if err != nil {
		return nil, err
	}
	vm.advance(msgs)
	return msgs, nil
}

func (vm *ViewModel) advance(msgs []store.Message) {
	if len(msgs) == 0 {
		return
	}
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if last := msgs[len(msgs)-1].ID; last > vm.lastID {
		vm.lastID = last
	}
	vm.seen += len(msgs)
}

// LoadStatus refreshes the cached daemon state. An unreachable daemon is
// reported as STOPPED.
func (vm *ViewModel) LoadStatus(ctx context.Context) {
	if vm.status == nil {
		return
	}
	st, err := vm.status(ctx)
	if err != nil {
		st = "STOPPED"
	}
	vm.mu.Lock()
	vm.state = st
	vm.mu.Unlock()
}

// Status returns the last known daemon state.
func (vm *ViewModel) Status() string {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.state
}

// Seen returns how many messages have been shown since start.
func (vm *ViewModel) Seen() int {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.seen
}

// TogglePause flips the paused flag and returns the new value.
func (vm *ViewModel) TogglePause() bool {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.paused = !vm.paused
	return vm.paused
}
