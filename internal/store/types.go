package store

// Message is one archived event. Timestamps are Unix milliseconds.
type Message struct {
	ID          int64
	EventID     string
	Topic       string
	Payload     []byte
	ReceivedAt  int64
	ProcessedAt int64
}
