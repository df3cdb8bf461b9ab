package mqtt

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/matheus3301/chatlog/internal/broker"
	"go.uber.org/zap"
)

// DefaultURI is the broker used when none is configured.
const DefaultURI = "tcp://localhost:1883"

// Client is a broker.Client backed by an MQTT connection.
type Client struct {
	opts   broker.Options
	logger *zap.Logger

	mu     sync.Mutex
	client paho.Client
}

// New creates an unconnected MQTT client.
func New(opts broker.Options, logger *zap.Logger) *Client {
	if opts.URI == "" {
		opts.URI = DefaultURI
	}
	return &Client{opts: opts, logger: logger}
}

// NormalizeURI adds the tcp scheme to bare host:port addresses.
func NormalizeURI(uri string) string {
	if !strings.Contains(uri, "://") {
		return "tcp://" + uri
	}
	return uri
}

// Connect opens the MQTT session. Auto-reconnect is disabled: a dropped
// connection is reported through OnConnectionLost.
func (c *Client) Connect(ctx context.Context) error {
	uri := NormalizeURI(c.opts.URI)
	po := paho.NewClientOptions().
		AddBroker(uri).
		SetClientID(c.opts.ClientID).
		SetCleanSession(true).
		SetOrderMatters(true).
		SetAutoReconnect(false).
		SetConnectTimeout(c.opts.Timeout()).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			c.logger.Warn("mqtt connection lost", zap.String("broker", uri), zap.Error(err))
			if c.opts.OnConnectionLost != nil {
				c.opts.OnConnectionLost(err)
			}
		})

	client := paho.NewClient(po)
	c.logger.Info("connecting to mqtt broker", zap.String("broker", uri))
	if err := wait(ctx, client.Connect(), c.opts.Timeout()); err != nil {
		return fmt.Errorf("mqtt connect %s: %w", uri, err)
	}

	c.mu.Lock()
	c.client = client
	c.mu.Unlock()
	c.logger.Info("connected to mqtt broker", zap.String("broker", uri))
	return nil
}

// Subscribe subscribes to filter. fn is called in delivery order.
func (c *Client) Subscribe(ctx context.Context, filter string, fn broker.MessageFunc) error {
	client, err := c.connected()
	if err != nil {
		return err
	}
	if err := wait(ctx, client.Subscribe(filter, c.opts.QoS, deliver(fn)), c.opts.Timeout()); err != nil {
		return fmt.Errorf("mqtt subscribe %q: %w", filter, err)
	}
	c.logger.Info("subscribed", zap.String("topic", filter), zap.Uint8("qos", c.opts.QoS))
	return nil
}

// Publish sends payload to topic and waits for the broker to accept it.
func (c *Client) Publish(ctx context.Context, topic string, payload []byte) error {
	client, err := c.connected()
	if err != nil {
		return err
	}
	if err := wait(ctx, client.Publish(topic, c.opts.QoS, false, payload), c.opts.Timeout()); err != nil {
		return fmt.Errorf("mqtt publish %q: %w", topic, err)
	}
	return nil
}

// Close disconnects, giving in-flight work a short grace period.
func (c *Client) Close() error {
	c.mu.Lock()
	client := c.client
	c.client = nil
	c.mu.Unlock()

	if client != nil && client.IsConnected() {
		client.Disconnect(250)
	}
	return nil
}

func (c *Client) connected() (paho.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client == nil {
		return nil, broker.ErrNotConnected
	}
	return c.client, nil
}

func deliver(fn broker.MessageFunc) paho.MessageHandler {
	return func(_ paho.Client, msg paho.Message) {
		fn(msg.Topic(), msg.Payload())
	}
}

func wait(ctx context.Context, tok paho.Token, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-tok.Done():
		return tok.Error()
	case <-timer.C:
		return fmt.Errorf("timed out after %s", timeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

var (
	_ broker.Client    = (*Client)(nil)
	_ broker.Publisher = (*Client)(nil)
)
