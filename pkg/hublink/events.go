package hublink

import "sync"

// EventKind identifies a lifecycle notification. The set is closed.
type EventKind uint8

const (
	// EventConnected fires once per successful handshake. No payload.
	EventConnected EventKind = iota

	// EventDisconnected fires when the session drops ("failed") or is
	// ended by the application ("end"). Reason is set.
	EventDisconnected

	// EventReconnecting fires when a recovery attempt begins. Attempt is
	// set to the running attempt count.
	EventReconnecting

	// EventError fires for every surfaced engine error. Err is set.
	EventError
)

// Disconnect reasons.
const (
	ReasonFailed = "failed"
	ReasonEnd    = "end"
)

// String returns the string representation of the event kind.
func (k EventKind) String() string {
	switch k {
	case EventConnected:
		return "connected"
	case EventDisconnected:
		return "disconnected"
	case EventReconnecting:
		return "reconnecting"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is one lifecycle notification. Kind selects which payload
// fields are meaningful.
type Event struct {
	Kind    EventKind
	Reason  string // EventDisconnected
	Attempt int    // EventReconnecting
	Err     *Error // EventError
}

// listener is one subscription in registration order.
type listener struct {
	id int
	fn func(Event)
}

// listenerSet delivers events synchronously, in registration order, to
// the subscribers present at emission time. No buffering, no replay.
type listenerSet struct {
	mu     sync.Mutex
	nextID int
	subs   []listener
}

// subscribe registers fn and returns its cancel function. Cancelling
// twice is a no-op.
func (s *listenerSet) subscribe(fn func(Event)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs = append(s.subs, listener{id: id, fn: fn})
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, l := range s.subs {
			if l.id == id {
				s.subs = append(s.subs[:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

// emit delivers ev to the current subscribers. Callbacks run on the
// emitting goroutine, outside the set's lock, so a subscriber may call
// back into the client.
func (s *listenerSet) emit(ev Event) {
	s.mu.Lock()
	subs := make([]listener, len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()

	for _, l := range subs {
		l.fn(ev)
	}
}
