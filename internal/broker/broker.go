// Package broker defines the bus client contract the daemon subscribes through.
// Implementations live in subpackages (mqtt, amqp) and in internal/bus for the
// in-process transport.
package broker

import (
	"context"
	"errors"
	"time"
)

// ErrNotConnected is returned by Subscribe and Publish before Connect succeeds.
var ErrNotConnected = errors.New("broker: not connected")

// MessageFunc receives one delivered message. Implementations call it
// sequentially, in delivery order, only for topics matching the subscription.
type MessageFunc func(topic string, payload []byte)

// Client is a publish/subscribe bus connection.
type Client interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context, filter string, fn MessageFunc) error
	Close() error
}

// Publisher sends a payload to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}

// Options holds the connection settings shared by network transports.
type Options struct {
	URI            string
	ClientID       string
	Exchange       string
	QoS            byte
	ConnectTimeout time.Duration
	// OnConnectionLost, when set, is called once if an established connection drops.
	OnConnectionLost func(err error)
}

// DefaultConnectTimeout bounds Connect and Subscribe when the context has no deadline.
const DefaultConnectTimeout = 10 * time.Second

// Timeout returns the configured connect timeout or the default.
func (o Options) Timeout() time.Duration {
	if o.ConnectTimeout > 0 {
		return o.ConnectTimeout
	}
	return DefaultConnectTimeout
}
