package event

import "time"

// Event is one message delivered by the bus client for the subscribed topic.
// It is treated as immutable once created.
type Event struct {
	ID         string
	Topic      string
	Payload    []byte
	ReceivedAt time.Time
}

// Text returns the payload as a string without interpreting it.
func (e Event) Text() string {
	return string(e.Payload)
}
