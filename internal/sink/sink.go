package sink

import (
	"time"

	"github.com/google/uuid"
	"github.com/matheus3301/chatlog/internal/event"
	"github.com/matheus3301/chatlog/internal/metrics"
	"github.com/matheus3301/chatlog/internal/queue"
	"go.uber.org/zap"
)

// Sink receives delivery callbacks from the bus client and buffers each message.
// OnMessage never blocks and never inspects the payload.
type Sink struct {
	buf    *queue.Buffer
	logger *zap.Logger
	now    func() time.Time
}

// New creates a sink appending to buf.
func New(buf *queue.Buffer, logger *zap.Logger) *Sink {
	return &Sink{
		buf:    buf,
		logger: logger,
		now:    time.Now,
	}
}

// OnMessage buffers one delivered message. The payload is copied because bus
// clients may reuse their read buffers after the callback returns.
func (s *Sink) OnMessage(topic string, payload []byte) {
	evt := event.Event{
		ID:         uuid.NewString(),
		Topic:      topic,
		Payload:    append([]byte(nil), payload...),
		ReceivedAt: s.now(),
	}
	if err := s.buf.Push(evt); err != nil {
		metrics.IncDropped("closed")
		s.logger.Debug("message arrived after shutdown", zap.String("topic", topic), zap.Error(err))
		return
	}
	metrics.EventsReceivedTotal.Inc()
	metrics.QueueDepth.Set(float64(s.buf.Len()))
}
