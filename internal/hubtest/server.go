package hubtest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/hublink-dev/hublink/pkg/protocol"
)

// Fixed identifiers the fake hands out on negotiate.
const (
	ConnectionToken = "fake-token"
	ConnectionID    = "fake-conn-id"
)

// Options shapes the fake server's behavior. The zero value is a
// healthy endpoint without keep-alive.
type Options struct {
	// KeepAliveTimeout, when set, is returned from negotiate in seconds
	// and enables the client's heartbeat.
	KeepAliveTimeout *float64

	// DisableWebSockets makes negotiate answer TryWebSockets:false.
	DisableWebSockets bool

	// NegotiateStatus overrides the negotiate HTTP status (0 = 200).
	NegotiateStatus int

	// StartStatus overrides the start HTTP status (0 = 200).
	StartStatus int

	// StartResponse overrides the start body's Response value
	// ("" = "started").
	StartResponse string

	// RejectConnect refuses the WebSocket upgrade with 503.
	RejectConnect bool
}

// Server is the fake endpoint. Create with New, stop with Close.
type Server struct {
	opts Options
	http *httptest.Server

	upgrader websocket.Upgrader

	mu      sync.Mutex
	conn    *websocket.Conn
	writeMu sync.Mutex

	connected   chan struct{}
	invocations chan protocol.Invocation

	negotiates atomic.Int32
	starts     atomic.Int32
	aborts     atomic.Int32

	queryMu   sync.Mutex
	lastQuery url.Values
}

// New starts the fake endpoint.
func New(opts Options) *Server {
	s := &Server{
		opts:        opts,
		connected:   make(chan struct{}, 16),
		invocations: make(chan protocol.Invocation, 64),
	}

	r := chi.NewRouter()
	r.Get("/negotiate", s.handleNegotiate)
	r.Get("/start", s.handleStart)
	r.Post("/abort", s.handleAbort)
	r.Get("/connect", s.handleConnect)

	s.http = httptest.NewServer(r)
	return s
}

// URL returns the endpoint base, suitable for Options.URL.
func (s *Server) URL() string {
	return s.http.URL
}

// Close tears the fake down, dropping any live transport.
func (s *Server) Close() {
	s.DropConnection()
	s.http.Close()
}

// Connected signals each completed WebSocket upgrade.
func (s *Server) Connected() <-chan struct{} {
	return s.connected
}

// Invocations receives every decoded client invocation in arrival order.
func (s *Server) Invocations() <-chan protocol.Invocation {
	return s.invocations
}

// NegotiateCount reports how many negotiate exchanges were served.
func (s *Server) NegotiateCount() int {
	return int(s.negotiates.Load())
}

// StartCount reports how many start exchanges were served.
func (s *Server) StartCount() int {
	return int(s.starts.Load())
}

// AbortCount reports how many abort exchanges were served.
func (s *Server) AbortCount() int {
	return int(s.aborts.Load())
}

// LastQuery returns the query of the most recent exchange.
func (s *Server) LastQuery() url.Values {
	s.queryMu.Lock()
	defer s.queryMu.Unlock()
	return s.lastQuery
}

// Push sends a one-message push batch to the connected client.
func (s *Server) Push(hub, method string, args ...any) error {
	raw, err := marshalArgs(args)
	if err != nil {
		return err
	}
	batch := struct {
		Messages []protocol.PushMessage `json:"M"`
	}{
		Messages: []protocol.PushMessage{{Hub: hub, Method: method, Args: raw}},
	}
	payload, err := json.Marshal(batch)
	if err != nil {
		return err
	}
	return s.send(payload)
}

// Respond answers a client invocation with a result.
func (s *Server) Respond(id int64, result any) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(struct {
		ID     int64           `json:"I"`
		Result json.RawMessage `json:"R"`
	}{ID: id, Result: raw})
	if err != nil {
		return err
	}
	return s.send(payload)
}

// RespondError answers a client invocation with a hub error.
func (s *Server) RespondError(id int64, message string) error {
	payload, err := json.Marshal(struct {
		ID    int64  `json:"I"`
		Error string `json:"E"`
	}{ID: id, Error: message})
	if err != nil {
		return err
	}
	return s.send(payload)
}

// SendKeepalive sends the literal {} frame.
func (s *Server) SendKeepalive() error {
	return s.send([]byte("{}"))
}

// SendRaw sends an arbitrary text frame.
func (s *Server) SendRaw(payload string) error {
	return s.send([]byte(payload))
}

// DropConnection closes the live transport without a close handshake,
// as a crashing server would.
func (s *Server) DropConnection() {
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()
	if conn != nil {
		conn.Close()
	}
}

func (s *Server) send(payload []byte) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("hubtest: no client connected")
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return conn.WriteMessage(websocket.TextMessage, payload)
}

func (s *Server) recordQuery(r *http.Request) {
	s.queryMu.Lock()
	s.lastQuery = r.URL.Query()
	s.queryMu.Unlock()
}

func (s *Server) handleNegotiate(w http.ResponseWriter, r *http.Request) {
	s.negotiates.Add(1)
	s.recordQuery(r)

	if s.opts.NegotiateStatus != 0 && s.opts.NegotiateStatus != http.StatusOK {
		w.WriteHeader(s.opts.NegotiateStatus)
		return
	}

	resp := protocol.NegotiateResponse{
		URL:              "/signalr",
		ConnectionToken:  ConnectionToken,
		ConnectionID:     ConnectionID,
		ProtocolVersion:  r.URL.Query().Get("clientProtocol"),
		TryWebSockets:    !s.opts.DisableWebSockets,
		KeepAliveTimeout: s.opts.KeepAliveTimeout,
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	s.starts.Add(1)
	s.recordQuery(r)

	if s.opts.StartStatus != 0 && s.opts.StartStatus != http.StatusOK {
		w.WriteHeader(s.opts.StartStatus)
		return
	}

	response := s.opts.StartResponse
	if response == "" {
		response = protocol.StartedResponse
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(protocol.StartResponse{Response: response})
}

func (s *Server) handleAbort(w http.ResponseWriter, r *http.Request) {
	s.aborts.Add(1)
	s.recordQuery(r)
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	s.recordQuery(r)

	if s.opts.RejectConnect {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	s.mu.Lock()
	old := s.conn
	s.conn = conn
	s.mu.Unlock()
	if old != nil {
		old.Close()
	}

	s.connected <- struct{}{}

	go s.readLoop(conn)
}

// readLoop decodes client invocations until the socket drops.
func (s *Server) readLoop(conn *websocket.Conn) {
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var inv protocol.Invocation
		if err := json.Unmarshal(msg, &inv); err != nil {
			continue
		}
		select {
		case s.invocations <- inv:
		default:
		}
	}
}

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
