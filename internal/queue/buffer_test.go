package queue

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/matheus3301/chatlog/internal/event"
)

func evt(s string) event.Event {
	return event.Event{Topic: "chat/messages", Payload: []byte(s)}
}

func TestFIFO(t *testing.T) {
	b := New(Options{})
	for _, s := range []string{"A", "B", "C"} {
		if err := b.Push(evt(s)); err != nil {
			t.Fatalf("Push(%s) error = %v", s, err)
		}
	}
	for _, want := range []string{"A", "B", "C"} {
		got, ok := b.Pop()
		if !ok {
			t.Fatalf("Pop() ok = false, want %s", want)
		}
		if got.Text() != want {
			t.Errorf("Pop() = %q, want %q", got.Text(), want)
		}
	}
	if _, ok := b.Pop(); ok {
		t.Error("Pop() on empty buffer returned ok = true")
	}
}

func TestUnboundedGrowth(t *testing.T) {
	b := New(Options{})
	const n = 10000
	for i := 0; i < n; i++ {
		_ = b.Push(evt(fmt.Sprint(i)))
	}
	if b.Len() != n {
		t.Fatalf("Len() = %d, want %d", b.Len(), n)
	}
	// Interleave pops and pushes so compaction runs with a live tail.
	for i := 0; i < n; i++ {
		got, ok := b.Pop()
		if !ok || got.Text() != fmt.Sprint(i) {
			t.Fatalf("Pop() #%d = %q, %v", i, got.Text(), ok)
		}
		if i%3 == 0 {
			_ = b.Push(evt(fmt.Sprint(n + i)))
		}
	}
	for i := 0; i < n; i += 3 {
		got, ok := b.Pop()
		if !ok || got.Text() != fmt.Sprint(n+i) {
			t.Fatalf("tail Pop() = %q, %v, want %d", got.Text(), ok, n+i)
		}
	}
	if b.Len() != 0 {
		t.Errorf("Len() = %d, want 0", b.Len())
	}
}

func TestReadySignalsPush(t *testing.T) {
	b := New(Options{})
	select {
	case <-b.Ready():
		t.Fatal("Ready fired before any push")
	default:
	}
	_ = b.Push(evt("x"))
	_ = b.Push(evt("y"))
	select {
	case <-b.Ready():
	default:
		t.Fatal("Ready did not fire after push")
	}
}

func TestDropOldest(t *testing.T) {
	var dropped []string
	b := New(Options{MaxPending: 2, Policy: DropOldest, OnDrop: func(e event.Event, reason string) {
		if reason != string(DropOldest) {
			t.Errorf("reason = %q, want %q", reason, DropOldest)
		}
		dropped = append(dropped, e.Text())
	}})
	for _, s := range []string{"A", "B", "C"} {
		_ = b.Push(evt(s))
	}
	if len(dropped) != 1 || dropped[0] != "A" {
		t.Errorf("dropped = %v, want [A]", dropped)
	}
	first, _ := b.Pop()
	if first.Text() != "B" {
		t.Errorf("Pop() = %q, want B", first.Text())
	}
}

func TestDropNewest(t *testing.T) {
	var dropped []string
	b := New(Options{MaxPending: 1, Policy: DropNewest, OnDrop: func(e event.Event, _ string) {
		dropped = append(dropped, e.Text())
	}})
	_ = b.Push(evt("A"))
	_ = b.Push(evt("B"))
	if b.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", b.Len())
	}
	got, _ := b.Pop()
	if got.Text() != "A" {
		t.Errorf("Pop() = %q, want A", got.Text())
	}
	if len(dropped) != 1 || dropped[0] != "B" {
		t.Errorf("dropped = %v, want [B]", dropped)
	}
}

func TestPushAfterClose(t *testing.T) {
	b := New(Options{})
	_ = b.Push(evt("A"))
	b.Close()
	if err := b.Push(evt("B")); !errors.Is(err, ErrClosed) {
		t.Errorf("Push() after Close error = %v, want ErrClosed", err)
	}
	if got, ok := b.Pop(); !ok || got.Text() != "A" {
		t.Errorf("Pop() after Close = %q, %v, want A", got.Text(), ok)
	}
}

func TestConcurrentProducerConsumerKeepsOrder(t *testing.T) {
	b := New(Options{})
	const n = 5000

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			_ = b.Push(evt(fmt.Sprint(i)))
		}
	}()

	next := 0
	for next < n {
		got, ok := b.Pop()
		if !ok {
			<-b.Ready()
			continue
		}
		if got.Text() != fmt.Sprint(next) {
			t.Fatalf("Pop() = %q, want %d", got.Text(), next)
		}
		next++
	}
	wg.Wait()
}

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    Policy
		wantErr bool
	}{
		{"", DropOldest, false},
		{"drop-oldest", DropOldest, false},
		{"drop-newest", DropNewest, false},
		{"block", "", true},
	}
	for _, tt := range tests {
		got, err := ParsePolicy(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParsePolicy(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParsePolicy(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
