package mqtt

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/matheus3301/chatlog/internal/broker"
	"go.uber.org/zap"
)

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m *fakeMessage) Duplicate() bool   { return false }
func (m *fakeMessage) Qos() byte         { return 0 }
func (m *fakeMessage) Retained() bool    { return false }
func (m *fakeMessage) Topic() string     { return m.topic }
func (m *fakeMessage) MessageID() uint16 { return 1 }
func (m *fakeMessage) Payload() []byte   { return m.payload }
func (m *fakeMessage) Ack()              {}

func TestNormalizeURI(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"localhost:1883", "tcp://localhost:1883"},
		{"tcp://broker:1883", "tcp://broker:1883"},
		{"mqtt://localhost:1883", "mqtt://localhost:1883"},
		{"ssl://broker:8883", "ssl://broker:8883"},
	}
	for _, tt := range tests {
		if got := NormalizeURI(tt.in); got != tt.want {
			t.Errorf("NormalizeURI(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNewDefaultsURI(t *testing.T) {
	c := New(broker.Options{}, zap.NewNop())
	if c.opts.URI != DefaultURI {
		t.Errorf("URI = %q, want %q", c.opts.URI, DefaultURI)
	}
}

func TestDeliverPassesTopicAndPayload(t *testing.T) {
	var topic, payload string
	h := deliver(func(tp string, p []byte) {
		topic, payload = tp, string(p)
	})
	h(nil, &fakeMessage{topic: "chat/messages", payload: []byte("hello")})

	if topic != "chat/messages" || payload != "hello" {
		t.Errorf("delivered (%q, %q), want (chat/messages, hello)", topic, payload)
	}
}

func TestSubscribeBeforeConnect(t *testing.T) {
	c := New(broker.Options{}, zap.NewNop())
	err := c.Subscribe(context.Background(), "chat/messages", func(string, []byte) {})
	if !errors.Is(err, broker.ErrNotConnected) {
		t.Errorf("Subscribe() error = %v, want ErrNotConnected", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close() on unconnected client error = %v", err)
	}
}

func TestConnectFailsWhenBrokerUnreachable(t *testing.T) {
	// Grab a free port and release it so nothing is listening there.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()

	c := New(broker.Options{URI: addr, ClientID: "chatlog-test", ConnectTimeout: 2 * time.Second}, zap.NewNop())
	if err := c.Connect(context.Background()); err == nil {
		_ = c.Close()
		t.Fatal("Connect() to a closed port should fail")
	}
}
