package hublink

import "testing"

func TestListenersDeliverInOrder(t *testing.T) {
	var set listenerSet

	var order []int
	set.subscribe(func(Event) { order = append(order, 1) })
	set.subscribe(func(Event) { order = append(order, 2) })
	set.subscribe(func(Event) { order = append(order, 3) })

	set.emit(Event{Kind: EventConnected})

	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Errorf("delivery order = %v, want [1 2 3]", order)
	}
}

func TestListenerUnsubscribe(t *testing.T) {
	var set listenerSet

	kept, dropped := 0, 0
	set.subscribe(func(Event) { kept++ })
	cancel := set.subscribe(func(Event) { dropped++ })

	set.emit(Event{Kind: EventConnected})
	cancel()
	cancel() // second cancel is a no-op
	set.emit(Event{Kind: EventDisconnected, Reason: ReasonEnd})

	if kept != 2 {
		t.Errorf("kept listener ran %d times, want 2", kept)
	}
	if dropped != 1 {
		t.Errorf("cancelled listener ran %d times, want 1", dropped)
	}
}

func TestListenerMayResubscribeDuringEmit(t *testing.T) {
	var set listenerSet

	reentered := false
	set.subscribe(func(ev Event) {
		if ev.Kind == EventConnected {
			set.subscribe(func(Event) { reentered = true })
		}
	})

	set.emit(Event{Kind: EventConnected})
	set.emit(Event{Kind: EventDisconnected})

	if !reentered {
		t.Error("listener registered during emit never ran")
	}
}

func TestEventKindString(t *testing.T) {
	tests := []struct {
		kind EventKind
		want string
	}{
		{EventConnected, "connected"},
		{EventDisconnected, "disconnected"},
		{EventReconnecting, "reconnecting"},
		{EventError, "error"},
		{EventKind(200), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("EventKind(%d).String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}
