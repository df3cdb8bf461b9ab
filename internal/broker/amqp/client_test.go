package amqp

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/matheus3301/chatlog/internal/broker"
	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

func TestNewDefaults(t *testing.T) {
	c := New(broker.Options{}, zap.NewNop())
	if c.opts.URI != DefaultURI {
		t.Errorf("URI = %q, want %q", c.opts.URI, DefaultURI)
	}
	if c.opts.Exchange != DefaultExchange {
		t.Errorf("Exchange = %q, want %q", c.opts.Exchange, DefaultExchange)
	}
}

func TestConsumeTranslatesRoutingKeysInOrder(t *testing.T) {
	deliveries := make(chan amqp.Delivery, 3)
	deliveries <- amqp.Delivery{RoutingKey: "chat.messages", Body: []byte("A")}
	deliveries <- amqp.Delivery{RoutingKey: "chat.messages", Body: []byte("B")}
	deliveries <- amqp.Delivery{RoutingKey: "chat.messages", Body: []byte("C")}
	close(deliveries)

	var got []string
	consume(deliveries, func(topic string, payload []byte) {
		if topic != "chat/messages" {
			t.Errorf("topic = %q, want chat/messages", topic)
		}
		got = append(got, string(payload))
	})

	if len(got) != 3 || got[0] != "A" || got[1] != "B" || got[2] != "C" {
		t.Errorf("got %v, want [A B C]", got)
	}
}

func TestSubscribeBeforeConnect(t *testing.T) {
	c := New(broker.Options{}, zap.NewNop())
	err := c.Subscribe(context.Background(), "chat/messages", func(string, []byte) {})
	if !errors.Is(err, broker.ErrNotConnected) {
		t.Errorf("Subscribe() error = %v, want ErrNotConnected", err)
	}
	if err := c.Publish(context.Background(), "chat/messages", nil); !errors.Is(err, broker.ErrNotConnected) {
		t.Errorf("Publish() error = %v, want ErrNotConnected", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestConnectFailsWhenBrokerUnreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()

	c := New(broker.Options{URI: "amqp://guest:guest@" + addr + "/", ConnectTimeout: time.Second}, zap.NewNop())
	if err := c.Connect(context.Background()); err == nil {
		_ = c.Close()
		t.Fatal("Connect() to a closed port should fail")
	}
}
