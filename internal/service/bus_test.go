package service

import "testing"

func TestEventBusFanOut(t *testing.T) {
	bus := NewEventBus()
	a, b := bus.Subscribe(), bus.Subscribe()
	bus.Publish(Event{Resource: ResourceLayers, Action: ActionUpdated, ID: "faults"})

	for _, ch := range []chan Event{a, b} {
		if e := <-ch; e.ID != "faults" || e.Action != ActionUpdated {
			t.Errorf("event = %+v", e)
		}
	}
	bus.Unsubscribe(a)
	if bus.Subscribers() != 1 {
		t.Errorf("subscribers = %d", bus.Subscribers())
	}
	if _, ok := <-a; ok {
		t.Error("unsubscribed channel must be closed")
	}
}

func TestEventBusDropsForSlowSubscriber(t *testing.T) {
	bus := NewEventBus()
	ch := bus.Subscribe()
	for i := 0; i < 100; i++ {
		bus.Publish(Event{Resource: ResourcePermalink, Action: ActionUpdated})
	}
	if len(ch) != cap(ch) {
		t.Errorf("buffered = %d, want %d", len(ch), cap(ch))
	}
}
