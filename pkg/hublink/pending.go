package hublink

import (
	"encoding/json"
	"sync"
	"time"
)

// callResult settles a pending invocation: exactly one of result or err.
type callResult struct {
	result json.RawMessage
	err    error
}

// pendingCall is one in-flight client invocation.
type pendingCall struct {
	timer *time.Timer
	done  chan callResult // buffered; settle never blocks
}

// pendingRegistry tracks in-flight calls by correlation id. The id
// counter is shared with fire-and-forget invocations and resets to zero
// on every transport open.
//
// A correlation id settles at most once: whichever of {matching
// response, timeout} removes the map entry first wins, under the
// registry lock. The loser finds no entry and is a no-op.
type pendingRegistry struct {
	mu     sync.Mutex
	nextID int64
	calls  map[int64]*pendingCall
}

// alloc consumes the next correlation id without registering an entry.
// Used by fire-and-forget invocations; a server response to such an id
// hits the unknown-id path of settle and is dropped.
func (r *pendingRegistry) alloc() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextID
	r.nextID++
	return id
}

// allocate consumes the next correlation id, registers an entry and
// starts its timeout timer. The returned channel receives exactly one
// result.
//
// The counter rewinds on every transport open, so a fresh id can
// collide with an entry still in flight from the previous transport.
// That entry's response can no longer arrive; it is settled with the
// timeout failure here, before the id is reassigned.
func (r *pendingRegistry) allocate(timeout time.Duration) (int64, <-chan callResult) {
	r.mu.Lock()

	id := r.nextID
	r.nextID++

	if r.calls == nil {
		r.calls = make(map[int64]*pendingCall)
	}
	stale := r.calls[id]
	if stale != nil {
		stale.timer.Stop()
	}

	pc := &pendingCall{done: make(chan callResult, 1)}
	pc.timer = time.AfterFunc(timeout, func() { r.expire(id, pc) })
	r.calls[id] = pc
	r.mu.Unlock()

	if stale != nil {
		stale.done <- callResult{err: ErrCallTimeout}
	}
	return id, pc.done
}

// expire removes pc and settles it with ErrCallTimeout. A no-op if a
// response already settled it, or if the id has since been reassigned
// to a newer call: the timer settles only the entry it was armed for.
func (r *pendingRegistry) expire(id int64, pc *pendingCall) {
	r.mu.Lock()
	ok := r.calls[id] == pc
	if ok {
		delete(r.calls, id)
	}
	r.mu.Unlock()

	if ok {
		pc.done <- callResult{err: ErrCallTimeout}
	}
}

// settle resolves the entry for id with the server's response. Unknown
// ids (late responses after timeout, duplicates, replies to
// fire-and-forget invocations) are ignored.
func (r *pendingRegistry) settle(id int64, errMsg string, result json.RawMessage) {
	r.mu.Lock()
	pc, ok := r.calls[id]
	if ok {
		pc.timer.Stop()
		delete(r.calls, id)
	}
	r.mu.Unlock()

	if !ok {
		return
	}
	if errMsg != "" {
		pc.done <- callResult{err: &RemoteError{Message: errMsg}}
		return
	}
	pc.done <- callResult{result: result}
}

// reset rewinds the id counter. In-flight entries keep their ids and
// their timers.
func (r *pendingRegistry) reset() {
	r.mu.Lock()
	r.nextID = 0
	r.mu.Unlock()
}

// size reports the number of in-flight entries.
func (r *pendingRegistry) size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}
