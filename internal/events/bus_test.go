package events

import (
	"sync"
	"testing"
	"time"
)

func TestPublishSubscribe(t *testing.T) {
	bus := New()

	var mu sync.Mutex
	var got []SessionEndedEvent
	done := make(chan struct{})

	unsub := bus.Subscribe(func(e SessionEndedEvent) {
		mu.Lock()
		got = append(got, e)
		mu.Unlock()
		close(done)
	})
	defer unsub()

	bus.Publish(SessionEndedEvent{RemoteAddr: "10.0.0.5:1234", Reason: "transport_failed", Frames: 12})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event delivery")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 {
		t.Fatalf("expected 1 event, got %d", len(got))
	}
	if got[0].Reason != "transport_failed" || got[0].Frames != 12 {
		t.Errorf("unexpected event payload: %+v", got[0])
	}
}

func TestSubscribeUnknownHandlerIsNoop(t *testing.T) {
	bus := New()
	unsub := bus.Subscribe(func(s string) {})
	// Should not panic and must return a callable unsubscribe.
	unsub()
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	bus := New()

	delivered := make(chan ThroughputEvent, 4)
	unsub := bus.Subscribe(func(e ThroughputEvent) {
		delivered <- e
	})

	bus.Publish(ThroughputEvent{FPS: 30})
	select {
	case <-delivered:
	case <-time.After(2 * time.Second):
		t.Fatal("first event not delivered")
	}

	unsub()
	bus.Publish(ThroughputEvent{FPS: 15})

	select {
	case e := <-delivered:
		t.Fatalf("event delivered after unsubscribe: %+v", e)
	case <-time.After(100 * time.Millisecond):
	}
}
