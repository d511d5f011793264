package hublink

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestPendingSettleDeliversResult(t *testing.T) {
	var reg pendingRegistry

	id, done := reg.allocate(time.Second)
	reg.settle(id, "", json.RawMessage(`42`))

	select {
	case res := <-done:
		if res.err != nil {
			t.Fatalf("unexpected error: %v", res.err)
		}
		if string(res.result) != "42" {
			t.Errorf("result = %s, want 42", res.result)
		}
	case <-time.After(time.Second):
		t.Fatal("settle did not deliver")
	}

	if reg.size() != 0 {
		t.Errorf("size after settle = %d, want 0", reg.size())
	}
}

func TestPendingSettleDeliversRemoteError(t *testing.T) {
	var reg pendingRegistry

	id, done := reg.allocate(time.Second)
	reg.settle(id, "boom", nil)

	res := <-done
	var remote *RemoteError
	if !errors.As(res.err, &remote) {
		t.Fatalf("err = %v, want *RemoteError", res.err)
	}
	if remote.Message != "boom" {
		t.Errorf("message = %q, want %q", remote.Message, "boom")
	}
}

func TestPendingTimeoutExpires(t *testing.T) {
	var reg pendingRegistry

	_, done := reg.allocate(10 * time.Millisecond)

	select {
	case res := <-done:
		if !errors.Is(res.err, ErrCallTimeout) {
			t.Fatalf("err = %v, want ErrCallTimeout", res.err)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout did not fire")
	}

	if reg.size() != 0 {
		t.Errorf("size after timeout = %d, want 0", reg.size())
	}
}

func TestPendingSettleAtMostOnce(t *testing.T) {
	var reg pendingRegistry

	id, done := reg.allocate(time.Second)
	reg.settle(id, "", json.RawMessage(`1`))
	// Second settle finds no entry and must not deliver again.
	reg.settle(id, "", json.RawMessage(`2`))

	res := <-done
	if string(res.result) != "1" {
		t.Errorf("result = %s, want 1", res.result)
	}
	select {
	case extra := <-done:
		t.Fatalf("unexpected second delivery: %+v", extra)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestPendingLateResponseAfterTimeoutDropped(t *testing.T) {
	var reg pendingRegistry

	id, done := reg.allocate(5 * time.Millisecond)

	res := <-done
	if !errors.Is(res.err, ErrCallTimeout) {
		t.Fatalf("err = %v, want ErrCallTimeout", res.err)
	}

	// The late response targets an id that timeout already removed.
	reg.settle(id, "", json.RawMessage(`"late"`))
	select {
	case extra := <-done:
		t.Fatalf("late response delivered: %+v", extra)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestPendingUnknownIDIsNoop(t *testing.T) {
	var reg pendingRegistry
	reg.settle(99, "", json.RawMessage(`true`))
	if reg.size() != 0 {
		t.Errorf("size = %d, want 0", reg.size())
	}
}

func TestPendingSharedIDCounter(t *testing.T) {
	var reg pendingRegistry

	if id := reg.alloc(); id != 0 {
		t.Fatalf("first alloc = %d, want 0", id)
	}
	id, _ := reg.allocate(time.Second)
	if id != 1 {
		t.Fatalf("allocate after alloc = %d, want 1", id)
	}
	if next := reg.alloc(); next != 2 {
		t.Fatalf("alloc after allocate = %d, want 2", next)
	}
}

func TestPendingReusedIDAfterResetKeepsCallsIndependent(t *testing.T) {
	var reg pendingRegistry

	// An entry left in flight across a transport cycle: the counter
	// rewinds and the next allocation lands on its id.
	oldID, oldDone := reg.allocate(50 * time.Millisecond)
	reg.reset()
	newID, newDone := reg.allocate(10 * time.Second)
	if newID != oldID {
		t.Fatalf("ids = %d and %d, want a collision", oldID, newID)
	}

	// The displaced call settles immediately: its response can no longer
	// arrive on the old transport.
	select {
	case res := <-oldDone:
		if !errors.Is(res.err, ErrCallTimeout) {
			t.Fatalf("displaced call err = %v, want ErrCallTimeout", res.err)
		}
	case <-time.After(time.Second):
		t.Fatal("displaced call never settled")
	}

	// The displaced call's timer must not settle the new call, even past
	// the old deadline.
	select {
	case res := <-newDone:
		t.Fatalf("new call settled by the old timer: %+v", res)
	case <-time.After(150 * time.Millisecond):
	}

	reg.settle(newID, "", json.RawMessage(`"ok"`))
	res := <-newDone
	if res.err != nil || string(res.result) != `"ok"` {
		t.Errorf("new call settled with (%s, %v), want (\"ok\", nil)", res.result, res.err)
	}
	if reg.size() != 0 {
		t.Errorf("size = %d, want 0", reg.size())
	}
}

func TestPendingResetRewindsCounterOnly(t *testing.T) {
	var reg pendingRegistry

	id, done := reg.allocate(time.Second)
	reg.alloc()
	reg.reset()

	if next := reg.alloc(); next != 0 {
		t.Errorf("alloc after reset = %d, want 0", next)
	}
	// The in-flight entry survives reset and still settles.
	reg.settle(id, "", json.RawMessage(`"kept"`))
	res := <-done
	if string(res.result) != `"kept"` {
		t.Errorf("result = %s, want %q", res.result, `"kept"`)
	}
}
