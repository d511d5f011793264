package hublink

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/hublink-dev/hublink/pkg/protocol"
)

// State is the externally observable connection state.
type State int32

const (
	// StateDisconnected is the initial state and the resting state
	// between attempts.
	StateDisconnected State = iota

	// StateConnected means the handshake completed and hub traffic
	// flows.
	StateConnected

	// StateReconnecting means a recovery attempt is in progress.
	StateReconnecting
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}

// closeThrottleTimeout caps the call timeout after a transport drop
// until the session re-stabilizes on the next successful connect.
const closeThrottleTimeout = time.Second

// abortTimeout bounds the best-effort abort exchange during End.
const abortTimeout = 5 * time.Second

// Client is the connection engine: it owns the session record, drives
// the handshake, keeps the heartbeat, recovers from failures, and
// multiplexes hub RPC over the transport.
//
// A Client is created once and reused across reconnects; the session
// fields mutate in place. All methods are safe for concurrent use.
type Client struct {
	opts    Options
	logger  *slog.Logger
	metrics *Metrics
	tracer  trace.Tracer
	http    HTTPDoer
	dialer  Dialer

	mu             sync.Mutex
	state          State
	token          string // issued by negotiate, required by start/connect/abort
	connectionID   string // issued by negotiate
	connectionData string // normalized hub list, frozen by the bound flag
	bound          bool

	transport    Transport
	transportGen uint64 // bumping detaches a replaced transport's events

	keepAlive  time.Duration // 0 disables the heartbeat for this session
	hbInterval time.Duration
	hbTimer    *time.Timer
	hbGen      uint64

	reconnectTimer *time.Timer
	attempts       int

	callTimeoutOverride time.Duration
	baseCtx             context.Context
	ended               bool // set by End; blocks in-flight recovery from resurrecting

	lastMsg atomic.Int64 // unix nanos of the last inbound frame

	pending   pendingRegistry
	handlers  handlerRegistry
	listeners listenerSet
}

// New creates a Client from opts. Nothing touches the network until
// Start.
func New(opts Options) *Client {
	opts.withDefaults()
	return &Client{
		opts:    opts,
		logger:  opts.Logger,
		metrics: opts.Metrics,
		tracer:  newTracer(),
		http:    opts.HTTPClient,
		dialer:  opts.Dialer,
		baseCtx: context.Background(),
	}
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ConnectionID returns the id issued by the last negotiate, empty before
// the first successful negotiate.
func (c *Client) ConnectionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectionID
}

// Subscribe registers fn for lifecycle notifications and returns its
// cancel function. Delivery is synchronous and in emission order; late
// subscribers see no replay.
func (c *Client) Subscribe(fn func(Event)) func() {
	return c.listeners.subscribe(fn)
}

// On registers the handler for server pushes addressed to (hub, method).
// A later registration for the same pair replaces the earlier one.
func (c *Client) On(hub, method string, fn PushHandler) {
	c.handlers.register(hub, method, fn)
}

// Start validates the configuration, then drives the full handshake:
// negotiate, transport connect, start. Validation failures are fatal and
// skip the handshake entirely; handshake failures are surfaced through
// the Error event and recovered per the error's policy. The context is
// retained for the exchanges of automatic recovery attempts.
func (c *Client) Start(ctx context.Context) error {
	c.mu.Lock()
	if err := c.bindLocked(); err != nil {
		c.mu.Unlock()
		c.metrics.recordError(err.Code)
		c.emit(Event{Kind: EventError, Err: err})
		return err
	}
	c.baseCtx = ctx
	c.ended = false
	c.mu.Unlock()

	return c.run(ctx)
}

// bindLocked validates the options and normalizes the hub list into
// connectionData. One-time: the bound flag makes later Starts (and full
// restarts) reuse the frozen form. Caller holds c.mu.
func (c *Client) bindLocked() *Error {
	if c.bound {
		return nil
	}
	if c.opts.URL == "" {
		return newError(CodeInvalidURL, nil)
	}
	if !strings.HasPrefix(c.opts.URL, "http://") && !strings.HasPrefix(c.opts.URL, "https://") {
		return newError(CodeInvalidProtocol, nil)
	}
	if len(c.opts.Hubs) == 0 {
		return newError(CodeNoHub, nil)
	}

	data, err := protocol.ConnectionData(c.opts.Hubs)
	if err != nil {
		return newError(CodeNoHub, err)
	}
	c.connectionData = data
	c.bound = true
	return nil
}

// run performs the full handshake from negotiate. Used by Start and by
// full-restart recovery.
func (c *Client) run(ctx context.Context) error {
	neg, cerr := c.negotiate(ctx)
	if cerr != nil {
		return c.fail(cerr)
	}

	c.mu.Lock()
	c.token = neg.ConnectionToken
	c.connectionID = neg.ConnectionID
	if neg.KeepAliveTimeout != nil {
		c.keepAlive = time.Duration(*neg.KeepAliveTimeout * float64(time.Second))
		c.hbInterval = c.keepAlive / 4
	} else {
		c.keepAlive = 0
		c.hbInterval = 0
	}
	keepAlive := c.keepAlive
	c.mu.Unlock()

	c.logger.Debug("negotiate complete",
		"connection_id", neg.ConnectionID,
		"keep_alive", keepAlive)

	return c.connect(ctx)
}

// connect opens the transport and finishes the handshake with the start
// exchange. Used by run and by transport-only recovery.
func (c *Client) connect(ctx context.Context) error {
	tr, err := c.dialer.Dial(ctx, c.connectURL(), c.opts.Headers)
	if err != nil {
		var hs *HandshakeStatusError
		if errors.As(err, &hs) && unauthorizedStatus(hs.Status) {
			return c.fail(newError(CodeUnauthorized, err))
		}
		return c.fail(newError(CodeConnectError, err))
	}

	c.mu.Lock()
	if c.ended {
		c.mu.Unlock()
		tr.Close()
		return nil
	}
	c.detachTransportLocked()
	c.transportGen++
	gen := c.transportGen
	c.transport = tr
	c.pending.reset()
	c.callTimeoutOverride = 0
	c.mu.Unlock()

	go c.readLoop(tr, gen)

	if cerr := c.startExchange(ctx); cerr != nil {
		return c.fail(cerr)
	}

	c.mu.Lock()
	c.state = StateConnected
	c.attempts = 0
	c.mu.Unlock()

	c.metrics.recordConnect()
	c.logger.Info("connected", "connection_id", c.ConnectionID())
	c.emit(Event{Kind: EventConnected})

	c.mu.Lock()
	c.touchLastMessage()
	c.startHeartbeatLocked()
	c.mu.Unlock()

	return nil
}

// fail records a handshake-path failure: state goes to Disconnected, the
// error is surfaced, and recovery, if the code has any, is scheduled
// strictly after emission.
func (c *Client) fail(cerr *Error) error {
	c.mu.Lock()
	c.state = StateDisconnected
	c.mu.Unlock()

	c.metrics.recordError(cerr.Code)
	c.logger.Error("connection error", "code", cerr.Code, "error", cerr)
	c.emit(Event{Kind: EventError, Err: cerr})

	switch cerr.Code.Recovery() {
	case RecoveryRestart:
		c.scheduleReconnect(true)
	case RecoveryReconnect:
		c.scheduleReconnect(false)
	}
	return cerr
}

// raiseSocketError surfaces a transport send failure. No recovery is
// attached to this code; if the socket is truly gone the read loop will
// observe the close and trigger one.
func (c *Client) raiseSocketError(err error) *Error {
	cerr := newError(CodeSocketError, err)
	c.metrics.recordError(cerr.Code)
	c.logger.Error("socket error", "error", err)
	c.emit(Event{Kind: EventError, Err: cerr})
	return cerr
}

// readLoop pumps inbound frames from one transport generation. It exits
// when the transport closes; a stale generation means the engine already
// replaced or detached this transport and the exit is silent.
func (c *Client) readLoop(tr Transport, gen uint64) {
	for {
		msg, err := tr.ReadMessage()
		if err != nil {
			c.onTransportClosed(gen, err)
			return
		}
		c.onMessage(gen, msg)
	}
}

// onMessage routes one inbound frame: refresh the liveness timestamp
// first, unconditionally, then dispatch pushes or settle responses.
func (c *Client) onMessage(gen uint64, raw []byte) {
	c.mu.Lock()
	if gen != c.transportGen {
		c.mu.Unlock()
		return
	}
	c.touchLastMessage()
	c.mu.Unlock()

	frame := protocol.DecodeFrame(raw)
	c.metrics.recordFrame(frame.Kind.String())

	switch frame.Kind {
	case protocol.FrameKeepalive:
		// Liveness only.

	case protocol.FramePush:
		for _, m := range frame.Messages {
			c.handlers.dispatch(m.Hub, m.Method, m.Args)
		}

	case protocol.FrameResponse:
		c.pending.settle(frame.ID, frame.Error, frame.Result)

	default:
		c.logger.Debug("dropped frame", "payload_bytes", len(raw))
	}
}

// onTransportClosed handles the transport's close event: throttle the
// next call's timeout, drop to Disconnected, announce the failure, then
// recover with a transport-only reconnect.
func (c *Client) onTransportClosed(gen uint64, err error) {
	c.mu.Lock()
	if gen != c.transportGen {
		c.mu.Unlock()
		return
	}
	c.transportGen++
	c.transport = nil
	c.callTimeoutOverride = closeThrottleTimeout
	c.state = StateDisconnected
	c.stopHeartbeatLocked()
	c.mu.Unlock()

	c.metrics.recordDisconnect()
	c.logger.Warn("transport closed", "error", err)
	c.emit(Event{Kind: EventDisconnected, Reason: ReasonFailed})

	c.scheduleReconnect(false)
}

// Call invokes a hub method and waits for the correlated response, the
// call timeout, or ctx cancellation, whichever comes first. Arguments
// marshal to JSON and pass through opaquely.
func (c *Client) Call(ctx context.Context, hub, method string, args ...any) (json.RawMessage, error) {
	rawArgs, err := marshalArgs(args)
	if err != nil {
		return nil, err
	}

	ctx, span := c.startSpan(ctx, "hublink.call",
		attribute.String("hub", hub),
		attribute.String("method", method))

	c.mu.Lock()
	timeout := c.opts.CallTimeout
	if c.callTimeoutOverride > 0 {
		timeout = c.callTimeoutOverride
	}
	tr := c.transport
	c.mu.Unlock()

	id, done := c.pending.allocate(timeout)

	payload, err := protocol.EncodeInvocation(hub, method, rawArgs, id)
	if err != nil {
		c.pending.settle(id, err.Error(), nil)
		<-done
		endSpan(span, err)
		return nil, err
	}

	if tr != nil {
		if err := tr.Send(string(payload)); err != nil {
			c.raiseSocketError(err)
		}
	}

	began := time.Now()
	select {
	case res := <-done:
		c.metrics.recordCall(time.Since(began), errors.Is(res.err, ErrCallTimeout))
		endSpan(span, res.err)
		return res.result, res.err
	case <-ctx.Done():
		// The pending entry stays and settles by response or timeout.
		endSpan(span, ctx.Err())
		return nil, ctx.Err()
	}
}

// Invoke fires a hub method without tracking a response. It consumes a
// correlation id from the shared counter but registers nothing, so any
// server reply to it is dropped.
func (c *Client) Invoke(hub, method string, args ...any) error {
	rawArgs, err := marshalArgs(args)
	if err != nil {
		return err
	}

	id := c.pending.alloc()
	payload, err := protocol.EncodeInvocation(hub, method, rawArgs, id)
	if err != nil {
		return err
	}

	c.mu.Lock()
	tr := c.transport
	c.mu.Unlock()

	if tr == nil {
		return nil
	}
	if err := tr.Send(string(payload)); err != nil {
		return c.raiseSocketError(err)
	}
	return nil
}

// End shuts the session down: announce the end, tell the server
// (best-effort), cancel every engine timer, and close the transport.
// In-flight calls are not cancelled; they settle on their own timeout.
// A client that never started is a no-op.
//
// The ended flag is set even when no transport is live: a recovery
// attempt may be mid-dial with its timer already consumed, and the
// flag is what makes connect discard the transport that dial returns.
func (c *Client) End() {
	c.mu.Lock()
	if !c.bound {
		c.mu.Unlock()
		return
	}

	tr := c.transport
	c.transport = nil
	c.transportGen++ // detach the read loop before the close below
	c.ended = true
	c.cancelReconnectLocked()
	c.stopHeartbeatLocked()
	c.state = StateDisconnected
	c.mu.Unlock()

	if tr != nil {
		c.emit(Event{Kind: EventDisconnected, Reason: ReasonEnd})
		// End is commonly called after the Start context is already
		// cancelled, so the abort exchange gets its own deadline.
		ctx, cancel := context.WithTimeout(context.Background(), abortTimeout)
		c.abort(ctx)
		cancel()
		tr.Close()
	}

	c.logger.Info("session ended")
}

// detachTransportLocked force-closes the current transport, if any,
// after detaching its events. Caller holds c.mu.
func (c *Client) detachTransportLocked() {
	if c.transport == nil {
		return
	}
	tr := c.transport
	c.transport = nil
	c.transportGen++
	// Close after the generation bump so the read loop's exit is silent.
	go tr.Close()
}

// touchLastMessage refreshes the liveness timestamp.
func (c *Client) touchLastMessage() {
	c.lastMsg.Store(time.Now().UnixNano())
}

// lastMessageAt returns the time of the last inbound frame.
func (c *Client) lastMessageAt() time.Time {
	return time.Unix(0, c.lastMsg.Load())
}

// emit delivers one lifecycle notification. Never called with c.mu held.
func (c *Client) emit(ev Event) {
	c.listeners.emit(ev)
}

// marshalArgs JSON-encodes each argument for opaque passthrough.
func marshalArgs(args []any) ([]json.RawMessage, error) {
	raw := make([]json.RawMessage, 0, len(args))
	for _, a := range args {
		b, err := json.Marshal(a)
		if err != nil {
			return nil, err
		}
		raw = append(raw, b)
	}
	return raw, nil
}
