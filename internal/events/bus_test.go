package events

import (
	"context"
	"testing"
	"time"
)

func TestBusPublishReachesOwnerSubscriber(t *testing.T) {
	bus := NewBus()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub := bus.Subscribe(ctx, "u1")

	go bus.Publish(Event{ConversationID: "c1", OwnerID: "u1", Role: "assistant", Content: "hi"})

	select {
	case evt := <-sub:
		if evt.Content != "hi" || evt.ConversationID != "c1" {
			t.Fatalf("unexpected event: %+v", evt)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timeout waiting for event")
	}
}

func TestBusScopesByOwner(t *testing.T) {
	bus := NewBus()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mine := bus.Subscribe(ctx, "alice")
	theirs := bus.Subscribe(ctx, "bob")

	bus.Publish(Event{ConversationID: "c1", OwnerID: "alice", Role: "user", Content: "secret"})

	select {
	case evt := <-mine:
		if evt.Content != "secret" {
			t.Fatalf("unexpected event: %+v", evt)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timeout waiting for own event")
	}

	select {
	case evt := <-theirs:
		t.Fatalf("event leaked across owners: %+v", evt)
	default:
	}
}

func TestBusUnsubscribeOnContextDone(t *testing.T) {
	bus := NewBus()
	ctx, cancel := context.WithCancel(context.Background())

	sub := bus.Subscribe(ctx, "u1")
	cancel()

	deadline := time.After(2 * time.Second)
	for bus.SubscriberCount() != 0 {
		select {
		case <-deadline:
			t.Fatalf("subscriber not removed after cancel")
		case <-time.After(10 * time.Millisecond):
		}
	}

	if _, ok := <-sub; ok {
		t.Fatalf("expected closed channel after cancel")
	}
}
