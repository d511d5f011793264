package hublink

import (
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// Defaults applied by New when the corresponding option is zero.
const (
	// DefaultProtocol is the clientProtocol query value. It is an opaque
	// version label; nothing ever computes with it.
	DefaultProtocol = "1.5"

	// DefaultCallTimeout bounds how long Call waits for a correlated
	// response.
	DefaultCallTimeout = 5 * time.Second

	// DefaultReconnectDelay is the pause before a recovery attempt.
	DefaultReconnectDelay = 5 * time.Second

	// DefaultRequestTimeout bounds each negotiate/start/abort exchange.
	DefaultRequestTimeout = 30 * time.Second
)

// HTTPDoer issues the negotiate/start/abort exchanges. *http.Client
// satisfies it; the default client does not follow redirects, because a
// 302 must surface as unauthorized rather than be chased.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Options configures a Client. The snapshot is immutable after New;
// the hub list is normalized once, on the first Start.
type Options struct {
	// URL is the endpoint base, e.g. "https://example.com/signalr".
	// Required; must be http- or https-prefixed.
	URL string

	// Hubs are the hub names announced in connectionData on every
	// handshake exchange. At least one is required.
	Hubs []string

	// Query is appended to every exchange and to the transport URL.
	Query url.Values

	// Headers are sent on every exchange and on the transport dial.
	Headers http.Header

	// Protocol is the clientProtocol value. Default "1.5".
	Protocol string

	// CallTimeout bounds Call. Default 5s.
	CallTimeout time.Duration

	// ReconnectDelay is the pause before each recovery attempt.
	// Default 5s.
	ReconnectDelay time.Duration

	// Logger receives engine logs. Default slog.Default().
	Logger *slog.Logger

	// Metrics receives instrumentation. Nil disables it.
	Metrics *Metrics

	// HTTPClient overrides the exchange client.
	HTTPClient HTTPDoer

	// Dialer overrides the transport dialer.
	Dialer Dialer
}

// withDefaults fills unset options in place.
func (o *Options) withDefaults() {
	if o.Protocol == "" {
		o.Protocol = DefaultProtocol
	}
	if o.CallTimeout <= 0 {
		o.CallTimeout = DefaultCallTimeout
	}
	if o.ReconnectDelay <= 0 {
		o.ReconnectDelay = DefaultReconnectDelay
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.HTTPClient == nil {
		o.HTTPClient = &http.Client{
			Timeout: DefaultRequestTimeout,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		}
	}
	if o.Dialer == nil {
		o.Dialer = &WebsocketDialer{}
	}
}
