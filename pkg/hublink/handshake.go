package hublink

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/hublink-dev/hublink/pkg/protocol"
)

// tidValue is sent on the transport URL. The upstream protocol requires
// the parameter; servers ignore its value.
const tidValue = "10"

// unauthorizedStatus reports whether an HTTP status maps to the
// unauthorized code. The mapping holds for every exchange.
func unauthorizedStatus(status int) bool {
	return status == http.StatusFound ||
		status == http.StatusUnauthorized ||
		status == http.StatusForbidden
}

// baseQuery builds the query parameters shared by every exchange:
// the configured parameters plus connectionData and clientProtocol.
func (c *Client) baseQuery() url.Values {
	q := url.Values{}
	for k, vs := range c.opts.Query {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	c.mu.Lock()
	q.Set("connectionData", c.connectionData)
	c.mu.Unlock()
	q.Set("clientProtocol", c.opts.Protocol)
	return q
}

// transportQuery extends the base query with the parameters the
// connect/start/abort exchanges require.
func (c *Client) transportQuery() url.Values {
	q := c.baseQuery()
	q.Set("transport", "webSockets")
	c.mu.Lock()
	q.Set("connectionToken", c.token)
	c.mu.Unlock()
	return q
}

// exchangeURL renders {base}/{endpoint}?{query}.
func (c *Client) exchangeURL(endpoint string, q url.Values) string {
	base := strings.TrimRight(c.opts.URL, "/")
	return base + "/" + endpoint + "?" + q.Encode()
}

// connectURL renders the transport URL: the base with its http prefix
// swapped for ws, plus the transport query and tid.
func (c *Client) connectURL() string {
	q := c.transportQuery()
	q.Set("tid", tidValue)
	base := strings.TrimRight(c.opts.URL, "/")
	wsBase := "ws" + strings.TrimPrefix(base, "http")
	return wsBase + "/connect?" + q.Encode()
}

// doExchange performs one HTTP request with the configured headers and
// returns the status and body. Network-level failures return err.
func (c *Client) doExchange(ctx context.Context, method, rawURL string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return 0, nil, err
	}
	for k, vs := range c.opts.Headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, body, nil
}

// negotiate performs the negotiate exchange and validates the response:
// the server must offer WebSockets and must issue a token and id.
func (c *Client) negotiate(ctx context.Context) (*protocol.NegotiateResponse, *Error) {
	ctx, span := c.startSpan(ctx, "hublink.negotiate",
		attribute.String("url", c.opts.URL))

	status, body, err := c.doExchange(ctx, http.MethodGet, c.exchangeURL("negotiate", c.baseQuery()))
	if err != nil {
		cerr := newError(CodeNegotiateError, err)
		endSpan(span, cerr)
		return nil, cerr
	}
	if unauthorizedStatus(status) {
		cerr := newError(CodeUnauthorized, fmt.Errorf("negotiate returned status %d", status))
		endSpan(span, cerr)
		return nil, cerr
	}
	if status != http.StatusOK {
		cerr := newError(CodeNegotiateError, fmt.Errorf("negotiate returned status %d", status))
		endSpan(span, cerr)
		return nil, cerr
	}

	neg, err := decodeNegotiate(body)
	if err != nil {
		cerr := newError(CodeNegotiateError, err)
		endSpan(span, cerr)
		return nil, cerr
	}
	if !neg.TryWebSockets {
		cerr := newError(CodeUnsupportedWebsocket, nil)
		endSpan(span, cerr)
		return nil, cerr
	}

	endSpan(span, nil)
	return neg, nil
}

func decodeNegotiate(body []byte) (*protocol.NegotiateResponse, error) {
	var neg protocol.NegotiateResponse
	if err := json.Unmarshal(body, &neg); err != nil {
		return nil, fmt.Errorf("decode negotiate response: %w", err)
	}
	if neg.ConnectionToken == "" || neg.ConnectionID == "" {
		return nil, fmt.Errorf("negotiate response missing connection token or id")
	}
	return &neg, nil
}

// startExchange confirms the server is ready to receive invocations.
// Issued only after the transport is open.
func (c *Client) startExchange(ctx context.Context) *Error {
	ctx, span := c.startSpan(ctx, "hublink.start")

	status, body, err := c.doExchange(ctx, http.MethodGet, c.exchangeURL("start", c.transportQuery()))
	if err != nil {
		cerr := newError(CodeStartError, err)
		endSpan(span, cerr)
		return cerr
	}
	if unauthorizedStatus(status) {
		cerr := newError(CodeUnauthorized, fmt.Errorf("start returned status %d", status))
		endSpan(span, cerr)
		return cerr
	}
	if status != http.StatusOK {
		cerr := newError(CodeStartError, fmt.Errorf("start returned status %d", status))
		endSpan(span, cerr)
		return cerr
	}

	var sr protocol.StartResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		cerr := newError(CodeStartError, fmt.Errorf("decode start response: %w", err))
		endSpan(span, cerr)
		return cerr
	}
	if sr.Response != protocol.StartedResponse {
		cerr := newError(CodeStartError, fmt.Errorf("start response %q", sr.Response))
		endSpan(span, cerr)
		return cerr
	}

	endSpan(span, nil)
	return nil
}

// abort tells the server the session is over. Best-effort: failures are
// logged under the abortError code and never surfaced to End's caller.
func (c *Client) abort(ctx context.Context) {
	status, _, err := c.doExchange(ctx, http.MethodPost, c.exchangeURL("abort", c.transportQuery()))
	if err != nil {
		c.logger.Debug("abort failed", "code", CodeAbortError, "error", err)
		return
	}
	if status != http.StatusOK {
		c.logger.Debug("abort failed", "code", CodeAbortError, "status", status)
	}
}
