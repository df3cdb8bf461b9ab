package model

import (
	"sync"
	"time"
)

// Flash holds one transient notification for the status bar.
type Flash struct {
	mu      sync.RWMutex
	message string
	expires time.Time
	now     func() time.Time
}

// Set stores msg until d has elapsed.
func (f *Flash) Set(msg string, d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.message = msg
	f.expires = f.clock().Add(d)
}

// Get returns the current message, or "" once it has expired.
func (f *Flash) Get() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.clock().After(f.expires) {
		return ""
	}
	return f.message
}

func (f *Flash) clock() time.Time {
	if f.now != nil {
		return f.now()
	}
	return time.Now()
}
