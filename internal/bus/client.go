package bus

import (
	"context"
	"sync"

	"github.com/matheus3301/chatlog/internal/broker"
)

// Client exposes a Bus through the broker.Client contract.
type Client struct {
	bus *Bus

	mu        sync.Mutex
	connected bool
	unsubs    []func()
}

// NewClient returns a client attached to b.
func NewClient(b *Bus) *Client {
	return &Client{bus: b}
}

// Connect marks the client connected. It never fails.
func (c *Client) Connect(_ context.Context) error {
	c.mu.Lock()
	c.connected = true
	c.mu.Unlock()
	return nil
}

// Subscribe registers fn for filter.
func (c *Client) Subscribe(_ context.Context, filter string, fn broker.MessageFunc) error {
	if err := broker.ValidateFilter(filter); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return broker.ErrNotConnected
	}
	c.unsubs = append(c.unsubs, c.bus.Subscribe(filter, fn))
	return nil
}

// Publish sends payload to topic on the bus.
func (c *Client) Publish(_ context.Context, topic string, payload []byte) error {
	c.mu.Lock()
	connected := c.connected
	c.mu.Unlock()
	if !connected {
		return broker.ErrNotConnected
	}
	c.bus.Publish(topic, payload)
	return nil
}

// Close removes every subscription made through this client.
func (c *Client) Close() error {
	c.mu.Lock()
	unsubs := c.unsubs
	c.unsubs = nil
	c.connected = false
	c.mu.Unlock()

	for _, unsub := range unsubs {
		unsub()
	}
	return nil
}

var (
	_ broker.Client    = (*Client)(nil)
	_ broker.Publisher = (*Client)(nil)
)
