package hublink

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// Transport is one open persistent connection. The connection engine is
// the only owner: it installs exactly one reader and is the only caller
// of Close.
type Transport interface {
	// Send writes one text frame. It fails if the transport is no longer
	// open.
	Send(text string) error

	// ReadMessage blocks for the next inbound frame. A non-nil error
	// means the transport is closed; the reader must not be called again.
	ReadMessage() ([]byte, error)

	// Close tears the connection down. Safe to call more than once.
	Close() error
}

// Dialer opens Transports. Swappable for tests and for platforms with
// their own socket shim.
type Dialer interface {
	Dial(ctx context.Context, url string, header http.Header) (Transport, error)
}

// HandshakeStatusError reports an HTTP status received instead of a
// successful WebSocket upgrade. The engine uses it to tell an
// unauthorized dial from a plain connect failure.
type HandshakeStatusError struct {
	Status int
}

// Error implements the error interface.
func (e *HandshakeStatusError) Error() string {
	return fmt.Sprintf("websocket handshake rejected with status %d", e.Status)
}

// WebsocketDialer is the default Dialer, backed by gorilla/websocket.
type WebsocketDialer struct {
	// Dialer overrides the underlying websocket dialer. Defaults to
	// websocket.DefaultDialer.
	Dialer *websocket.Dialer
}

// Dial opens a websocket connection to url.
func (d *WebsocketDialer) Dial(ctx context.Context, url string, header http.Header) (Transport, error) {
	wd := d.Dialer
	if wd == nil {
		wd = websocket.DefaultDialer
	}

	conn, resp, err := wd.DialContext(ctx, url, header)
	if resp != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			return nil, &HandshakeStatusError{Status: resp.StatusCode}
		}
		return nil, err
	}

	return &wsTransport{conn: conn}, nil
}

// wsTransport adapts a gorilla connection to the Transport interface.
// Writes are serialized; gorilla allows one concurrent writer only.
type wsTransport struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (t *wsTransport) Send(text string) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	return t.conn.WriteMessage(websocket.TextMessage, []byte(text))
}

func (t *wsTransport) ReadMessage() ([]byte, error) {
	_, msg, err := t.conn.ReadMessage()
	return msg, err
}

func (t *wsTransport) Close() error {
	t.writeMu.Lock()
	t.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	t.writeMu.Unlock()
	return t.conn.Close()
}
