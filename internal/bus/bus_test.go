package bus

import (
	"context"
	"errors"
	"testing"

	"github.com/matheus3301/chatlog/internal/broker"
)

type received struct {
	topic   string
	payload string
}

func collect(dst *[]received) broker.MessageFunc {
	return func(topic string, payload []byte) {
		*dst = append(*dst, received{topic, string(payload)})
	}
}

func TestPublishSubscribe(t *testing.T) {
	b := New()
	var got []received
	unsub := b.Subscribe("chat/messages", collect(&got))
	defer unsub()

	if n := b.Publish("chat/messages", []byte("hello")); n != 1 {
		t.Errorf("Publish reached %d subscribers, want 1", n)
	}

	if len(got) != 1 || got[0] != (received{"chat/messages", "hello"}) {
		t.Errorf("got %v, want [{chat/messages hello}]", got)
	}
}

func TestTopicFiltering(t *testing.T) {
	b := New()
	var got []received
	unsub := b.Subscribe("chat/messages", collect(&got))
	defer unsub()

	b.Publish("chat/other", []byte("nope"))
	b.Publish("chat/messages", []byte("yes"))

	if len(got) != 1 || got[0].payload != "yes" {
		t.Errorf("got %v, want only the chat/messages payload", got)
	}
}

func TestPublishOrder(t *testing.T) {
	b := New()
	var got []received
	unsub := b.Subscribe("chat/#", collect(&got))
	defer unsub()

	for _, p := range []string{"A", "B", "C"} {
		b.Publish("chat/messages", []byte(p))
	}
	if len(got) != 3 || got[0].payload != "A" || got[1].payload != "B" || got[2].payload != "C" {
		t.Errorf("got %v, want A, B, C in order", got)
	}
}

func TestUnsubscribe(t *testing.T) {
	b := New()
	var got []received
	unsub := b.Subscribe("chat/messages", collect(&got))
	unsub()

	b.Publish("chat/messages", []byte("late"))

	if len(got) != 0 {
		t.Errorf("received %v after unsubscribe", got)
	}
}

func TestClientRequiresConnect(t *testing.T) {
	c := NewClient(New())
	err := c.Subscribe(context.Background(), "chat/messages", func(string, []byte) {})
	if !errors.Is(err, broker.ErrNotConnected) {
		t.Errorf("Subscribe() before Connect error = %v, want ErrNotConnected", err)
	}
	if err := c.Publish(context.Background(), "chat/messages", nil); !errors.Is(err, broker.ErrNotConnected) {
		t.Errorf("Publish() before Connect error = %v, want ErrNotConnected", err)
	}
}

func TestClientRejectsInvalidFilter(t *testing.T) {
	c := NewClient(New())
	_ = c.Connect(context.Background())
	if err := c.Subscribe(context.Background(), "chat/#/x", func(string, []byte) {}); err == nil {
		t.Error("Subscribe() with invalid filter should fail")
	}
}

func TestClientCloseUnsubscribes(t *testing.T) {
	b := New()
	c := NewClient(b)
	ctx := context.Background()
	if err := c.Connect(ctx); err != nil {
		t.Fatal(err)
	}
	var got []received
	if err := c.Subscribe(ctx, "chat/messages", collect(&got)); err != nil {
		t.Fatal(err)
	}

	pub := NewClient(b)
	_ = pub.Connect(ctx)
	_ = pub.Publish(ctx, "chat/messages", []byte("one"))
	_ = c.Close()
	_ = pub.Publish(ctx, "chat/messages", []byte("two"))

	if len(got) != 1 || got[0].payload != "one" {
		t.Errorf("got %v, want only the message published before Close", got)
	}
}
