package drain

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/matheus3301/chatlog/internal/event"
	"github.com/matheus3301/chatlog/internal/handler"
	"github.com/matheus3301/chatlog/internal/queue"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// recorder records handled payloads and flags overlapping invocations.
type recorder struct {
	mu       sync.Mutex
	seen     []string
	active   atomic.Int32
	overlaps atomic.Int32
	failOn   string
	delay    time.Duration
}

func (r *recorder) Handle(_ context.Context, evt event.Event) error {
	if r.active.Add(1) > 1 {
		r.overlaps.Add(1)
	}
	defer r.active.Add(-1)

	if r.delay > 0 {
		time.Sleep(r.delay)
	}

	r.mu.Lock()
	r.seen = append(r.seen, evt.Text())
	r.mu.Unlock()

	if evt.Text() == r.failOn {
		return errors.New("write failed")
	}
	return nil
}

func (r *recorder) handled() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.seen...)
}

func push(t *testing.T, buf *queue.Buffer, payloads ...string) {
	t.Helper()
	for _, p := range payloads {
		if err := buf.Push(event.Event{Topic: "chat/messages", Payload: []byte(p)}); err != nil {
			t.Fatal(err)
		}
	}
}

func waitProcessed(t *testing.T, l *Loop, n uint64) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if l.Stats().Processed >= n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("processed = %d, want %d", l.Stats().Processed, n)
}

func TestHandlesEveryEventInDeliveryOrder(t *testing.T) {
	buf := queue.New(queue.Options{})
	rec := &recorder{delay: time.Millisecond}
	l := New(buf, rec, 5*time.Millisecond, zap.NewNop())
	l.Start(context.Background())
	defer l.Stop()

	var want []string
	for i := 0; i < 50; i++ {
		p := fmt.Sprintf("m%02d", i)
		want = append(want, p)
		push(t, buf, p)
	}
	waitProcessed(t, l, uint64(len(want)))

	got := rec.handled()
	if len(got) != len(want) {
		t.Fatalf("handled %d events, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("handled[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if n := rec.overlaps.Load(); n != 0 {
		t.Errorf("overlapping handler calls = %d, want 0", n)
	}
}

func TestBurstBeforeDrainKeepsOrder(t *testing.T) {
	buf := queue.New(queue.Options{})
	rec := &recorder{}
	push(t, buf, "A", "B", "C")

	l := New(buf, rec, time.Millisecond, zap.NewNop())
	l.Start(context.Background())
	defer l.Stop()
	waitProcessed(t, l, 3)

	got := rec.handled()
	if fmt.Sprint(got) != "[A B C]" {
		t.Errorf("handled = %v, want [A B C]", got)
	}
}

func TestIdleLoopConsumesNothing(t *testing.T) {
	buf := queue.New(queue.Options{})
	rec := &recorder{}
	l := New(buf, rec, 5*time.Millisecond, zap.NewNop())
	l.Start(context.Background())

	time.Sleep(100 * time.Millisecond)
	l.Stop()

	if got := rec.handled(); len(got) != 0 {
		t.Errorf("handled = %v, want none", got)
	}
	if s := l.Stats(); s.Processed != 0 {
		t.Errorf("processed = %d, want 0", s.Processed)
	}
}

func TestFailureDoesNotStopLoop(t *testing.T) {
	buf := queue.New(queue.Options{})
	rec := &recorder{failOn: "B"}
	l := New(buf, rec, time.Millisecond, zap.NewNop())
	l.Start(context.Background())
	defer l.Stop()

	push(t, buf, "A", "B", "C")
	waitProcessed(t, l, 3)

	if got := rec.handled(); fmt.Sprint(got) != "[A B C]" {
		t.Errorf("handled = %v, want [A B C]", got)
	}
	s := l.Stats()
	if s.Failed != 1 {
		t.Errorf("failed = %d, want 1", s.Failed)
	}
	if buf.Len() != 0 {
		t.Errorf("buffer len = %d, want 0; failed event must be removed", buf.Len())
	}
}

func TestPanicCountsAsFailure(t *testing.T) {
	buf := queue.New(queue.Options{})
	var calls atomic.Int32
	h := handler.Func(func(_ context.Context, evt event.Event) error {
		calls.Add(1)
		if evt.Text() == "boom" {
			panic("boom")
		}
		return nil
	})
	l := New(buf, h, time.Millisecond, zap.NewNop())
	l.Start(context.Background())
	defer l.Stop()

	push(t, buf, "boom", "ok")
	waitProcessed(t, l, 2)

	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
	if l.Stats().Failed != 1 {
		t.Errorf("failed = %d, want 1", l.Stats().Failed)
	}
}

func TestPushWakesIdleLoop(t *testing.T) {
	buf := queue.New(queue.Options{})
	rec := &recorder{}
	// An idle interval far longer than the wait below: only the push can wake it.
	l := New(buf, rec, time.Hour, zap.NewNop())
	l.Start(context.Background())
	defer l.Stop()

	time.Sleep(20 * time.Millisecond)
	push(t, buf, "wake")
	waitProcessed(t, l, 1)
}

func TestStopWaitsForInFlightEvent(t *testing.T) {
	buf := queue.New(queue.Options{})
	entered := make(chan struct{})
	release := make(chan struct{})
	h := handler.Func(func(context.Context, event.Event) error {
		close(entered)
		<-release
		return nil
	})
	l := New(buf, h, time.Millisecond, zap.NewNop())
	l.Start(context.Background())
	push(t, buf, "slow")
	<-entered

	if !l.InFlight() {
		t.Error("InFlight() = false during handler call")
	}

	stopped := make(chan struct{})
	go func() {
		l.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned while a handler call was in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return after the handler finished")
	}
	if l.InFlight() {
		t.Error("InFlight() = true after Stop")
	}
}

func TestRunReturnsContextError(t *testing.T) {
	l := New(queue.New(queue.Options{}), &recorder{}, time.Millisecond, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())

	errc := make(chan error, 1)
	go func() { errc <- l.Run(ctx) }()
	cancel()

	select {
	case err := <-errc:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run() error = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRunIsNotRestartable(t *testing.T) {
	l := New(queue.New(queue.Options{}), &recorder{}, time.Millisecond, zap.NewNop())
	l.Start(context.Background())
	l.Stop()

	if err := l.Run(context.Background()); !errors.Is(err, ErrAlreadyRun) {
		t.Errorf("second Run() error = %v, want ErrAlreadyRun", err)
	}
}

func TestStopWithoutStart(t *testing.T) {
	l := New(queue.New(queue.Options{}), &recorder{}, 0, zap.NewNop())
	l.Stop()
	if l.idle != DefaultIdleInterval {
		t.Errorf("idle = %v, want %v", l.idle, DefaultIdleInterval)
	}
}
