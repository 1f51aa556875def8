package eventbus

import (
	"testing"
	"time"

	"ampgate/core/events"
)

func TestPublishSubscribe(t *testing.T) {
	b := New()
	sub := b.Subscribe()
	b.Publish(events.CommandIssued{Amps: 6})
	select {
	case e := <-sub:
		cmd, ok := e.(events.CommandIssued)
		if !ok || cmd.Amps != 6 {
			t.Fatalf("unexpected event %#v", e)
		}
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestPublishNonBlocking(t *testing.T) {
	b := New()
	sub := b.Subscribe()
	// Overflow the buffered channel; Publish must not block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			b.Publish(events.OvercurrentDetected{Amps: float64(i)})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on slow subscriber")
	}
	_ = sub
}

func TestUnsubscribeAndClose(t *testing.T) {
	b := New()
	sub := b.Subscribe()
	b.Unsubscribe(sub)
	if _, ok := <-sub; ok {
		t.Fatal("channel not closed on unsubscribe")
	}
	other := b.Subscribe()
	b.Close()
	if _, ok := <-other; ok {
		t.Fatal("channel not closed on bus close")
	}
	// Publishing after close is a no-op.
	b.Publish(events.SessionRecovered{})
}
