package events

import "testing"

func TestPublishDeliversToSubscribers(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(EventPlaylistLocked)
	other := bus.Subscribe(EventAdAired)

	bus.Publish(EventPlaylistLocked, Payload{"hour": 6})

	select {
	case p := <-sub:
		if p["hour"] != 6 {
			t.Fatalf("unexpected payload: %v", p)
		}
	default:
		t.Fatal("expected payload")
	}

	select {
	case p := <-other:
		t.Fatalf("unexpected delivery to other topic: %v", p)
	default:
	}
}

func TestPublishDropsWhenSubscriberIsFull(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(EventPlaylistLocked)
	for i := 0; i < cap(sub)+5; i++ {
		bus.Publish(EventPlaylistLocked, Payload{"i": i})
	}
	if len(sub) != cap(sub) {
		t.Fatalf("expected full buffer, got %d", len(sub))
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(EventAdAired)
	bus.Unsubscribe(EventAdAired, sub)

	if _, ok := <-sub; ok {
		t.Fatal("expected closed channel")
	}
	bus.Publish(EventAdAired, Payload{})
}
