package drain

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/matheus3301/chatlog/internal/event"
	"github.com/matheus3301/chatlog/internal/handler"
	"github.com/matheus3301/chatlog/internal/metrics"
	"github.com/matheus3301/chatlog/internal/queue"
	"go.uber.org/zap"
)

// DefaultIdleInterval is how long the loop sleeps on an empty buffer when no
// push wakes it earlier.
const DefaultIdleInterval = 50 * time.Millisecond

// ErrAlreadyRun is returned by Run on a loop that has already been run.
var ErrAlreadyRun = errors.New("drain: loop already run")

// Loop is the single consumer of a Buffer. It hands events to the handler one at
// a time, in buffer order, and waits for each to finish before taking the next.
type Loop struct {
	buf     *queue.Buffer
	handler handler.Handler
	idle    time.Duration
	logger  *zap.Logger

	ran       atomic.Bool
	inFlight  atomic.Bool
	processed atomic.Uint64
	failed    atomic.Uint64

	cancel context.CancelFunc
	done   chan struct{}
}

// Stats is a snapshot of loop counters.
type Stats struct {
	Processed uint64
	Failed    uint64
}

// New creates a loop draining buf into h. A non-positive idle uses DefaultIdleInterval.
func New(buf *queue.Buffer, h handler.Handler, idle time.Duration, logger *zap.Logger) *Loop {
	if idle <= 0 {
		idle = DefaultIdleInterval
	}
	return &Loop{
		buf:     buf,
		handler: h,
		idle:    idle,
		logger:  logger,
	}
}

// Run drains the buffer until ctx is done and returns ctx.Err(). ctx is checked
// while idle and after each handler call, never during one.
func (l *Loop) Run(ctx context.Context) error {
	if !l.ran.CompareAndSwap(false, true) {
		return ErrAlreadyRun
	}

	timer := time.NewTimer(l.idle)
	defer timer.Stop()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		evt, ok := l.buf.Pop()
		if ok {
			l.dispatch(ctx, evt)
			continue
		}

		timer.Reset(l.idle)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.buf.Ready():
		case <-timer.C:
		}
		timer.Stop()
	}
}

// Start runs the loop in a background goroutine.
func (l *Loop) Start(ctx context.Context) {
	ctx, l.cancel = context.WithCancel(ctx)
	l.done = make(chan struct{})

	go func() {
		defer close(l.done)
		if err := l.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			l.logger.Error("drain loop exited", zap.Error(err))
		}
	}()
}

// Stop cancels a started loop and waits for the in-flight event, if any.
func (l *Loop) Stop() {
	if l.cancel == nil {
		return
	}
	l.cancel()
	<-l.done
}

// InFlight reports whether a handler call is in progress.
func (l *Loop) InFlight() bool {
	return l.inFlight.Load()
}

// Stats returns the processed and failed counts.
func (l *Loop) Stats() Stats {
	return Stats{
		Processed: l.processed.Load(),
		Failed:    l.failed.Load(),
	}
}

func (l *Loop) dispatch(ctx context.Context, evt event.Event) {
	metrics.QueueDepth.Set(float64(l.buf.Len()))

	l.inFlight.Store(true)
	start := time.Now()
	err := l.invoke(ctx, evt)
	metrics.HandlerDuration.Observe(time.Since(start).Seconds())
	l.inFlight.Store(false)

	l.processed.Add(1)
	metrics.EventsProcessedTotal.Inc()

	if err != nil {
		l.failed.Add(1)
		metrics.HandlerFailuresTotal.Inc()
		l.logger.Warn("event handling failed",
			zap.String("event_id", evt.ID),
			zap.String("topic", evt.Topic),
			zap.Error(err),
		)
	}
}

func (l *Loop) invoke(ctx context.Context, evt event.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return l.handler.Handle(ctx, evt)
}
