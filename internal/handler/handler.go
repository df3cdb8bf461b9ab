package handler

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/matheus3301/chatlog/internal/event"
	"github.com/matheus3301/chatlog/internal/store"
	"go.uber.org/multierr"
)

// Handler processes one event. It returns only after all of its side effects
// have been attempted; a non-nil error reports that at least one failed.
type Handler interface {
	Handle(ctx context.Context, evt event.Event) error
}

// Func adapts a plain function to Handler.
type Func func(ctx context.Context, evt event.Event) error

// Handle calls f.
func (f Func) Handle(ctx context.Context, evt event.Event) error {
	return f(ctx, evt)
}

// Appender is an append-only line sink.
type Appender interface {
	Append(line []byte) error
}

// MessageWriter persists archived messages.
type MessageWriter interface {
	InsertMessage(m *store.Message) error
}

// Sequence runs every step in order, even after a failure, and combines the errors.
func Sequence(steps ...Handler) Handler {
	return Func(func(ctx context.Context, evt event.Event) error {
		var err error
		for _, step := range steps {
			err = multierr.Append(err, step.Handle(ctx, evt))
		}
		return err
	})
}

// Console writes a one-line, quoted trace of the event to w.
func Console(w io.Writer) Handler {
	return Func(func(_ context.Context, evt event.Event) error {
		if _, err := fmt.Fprintf(w, "message received (%s): %q\n", evt.Topic, evt.Payload); err != nil {
			return fmt.Errorf("console: %w", err)
		}
		return nil
	})
}

// Append writes the raw payload as one line to a.
func Append(a Appender) Handler {
	return Func(func(_ context.Context, evt event.Event) error {
		if err := a.Append(evt.Payload); err != nil {
			return fmt.Errorf("append log: %w", err)
		}
		return nil
	})
}

// Archive records the event in the message archive.
func Archive(w MessageWriter) Handler {
	return Func(func(_ context.Context, evt event.Event) error {
		err := w.InsertMessage(&store.Message{
			EventID:     evt.ID,
			Topic:       evt.Topic,
			Payload:     evt.Payload,
			ReceivedAt:  evt.ReceivedAt.UnixMilli(),
			ProcessedAt: time.Now().UnixMilli(),
		})
		if err != nil {
			return fmt.Errorf("archive message: %w", err)
		}
		return nil
	})
}
