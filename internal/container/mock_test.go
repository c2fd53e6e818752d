package container

import (
	"context"
	"testing"
)

func TestMockEngineEmitDeliversToSubscribers(t *testing.T) {
	m := NewMockEngine()

	var first, second []Event
	if _, err := m.SubscribeEvents(context.Background(), func(ev Event) {
		first = append(first, ev)
	}); err != nil {
		t.Fatalf("SubscribeEvents: %v", err)
	}
	if _, err := m.SubscribeEvents(context.Background(), func(ev Event) {
		second = append(second, ev)
	}); err != nil {
		t.Fatalf("SubscribeEvents: %v", err)
	}

	m.Emit(Event{ContainerID: "c1", Action: "die"})
	m.Emit(Event{ContainerID: "c1", Action: "start"})

	if len(first) != 2 || len(second) != 2 {
		t.Fatalf("deliveries = %d/%d, want 2/2", len(first), len(second))
	}
	if first[0].Action != "die" || first[1].Action != "start" {
		t.Errorf("event order = %s, %s", first[0].Action, first[1].Action)
	}
}

func TestMockEngineEmitWithoutSubscribers(t *testing.T) {
	m := NewMockEngine()
	m.Emit(Event{ContainerID: "c1", Action: "die"})
}
