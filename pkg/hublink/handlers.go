package hublink

import (
	"encoding/json"
	"sync"
)

// PushHandler receives the argument array of a server-initiated hub
// call. Arguments pass through undecoded.
type PushHandler func(args []json.RawMessage)

// handlerRegistry maps hub → method → handler. Registration overwrites;
// there is no multi-subscriber fan-out per (hub, method) pair.
type handlerRegistry struct {
	mu   sync.RWMutex
	hubs map[string]map[string]PushHandler
}

func (r *handlerRegistry) register(hub, method string, fn PushHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.hubs == nil {
		r.hubs = make(map[string]map[string]PushHandler)
	}
	methods := r.hubs[hub]
	if methods == nil {
		methods = make(map[string]PushHandler)
		r.hubs[hub] = methods
	}
	methods[method] = fn
}

// dispatch invokes the handler for an exact (hub, method) match. A push
// for an unregistered pair is dropped silently; the server broadcasts to
// every client regardless of what each one listens to.
func (r *handlerRegistry) dispatch(hub, method string, args []json.RawMessage) {
	r.mu.RLock()
	var fn PushHandler
	if methods, ok := r.hubs[hub]; ok {
		fn = methods[method]
	}
	r.mu.RUnlock()

	if fn != nil {
		fn(args)
	}
}
