package hublink

import (
	"errors"
	"fmt"
)

// Code identifies a connection-engine error. The set is closed: every
// error surfaced through the Error event carries exactly one of these.
type Code string

const (
	// CodeInvalidURL means Options.URL is empty.
	CodeInvalidURL Code = "invalidURL"

	// CodeInvalidProtocol means Options.URL is not http- or https-prefixed.
	CodeInvalidProtocol Code = "invalidProtocol"

	// CodeNoHub means Options.Hubs is empty.
	CodeNoHub Code = "noHub"

	// CodeUnsupportedWebsocket means the server's negotiate response did
	// not offer the WebSocket transport.
	CodeUnsupportedWebsocket Code = "unsupportedWebsocket"

	// CodeUnauthorized means an exchange returned HTTP 302, 401 or 403.
	CodeUnauthorized Code = "unauthorized"

	// CodeNegotiateError means the negotiate exchange failed.
	CodeNegotiateError Code = "negotiateError"

	// CodeStartError means the start exchange failed.
	CodeStartError Code = "startError"

	// CodeConnectError means the transport could not be opened.
	CodeConnectError Code = "connectError"

	// CodeConnectLost means the heartbeat saw no server activity within
	// the keep-alive window.
	CodeConnectLost Code = "connectLost"

	// CodeSocketError means a transport-level send failed.
	CodeSocketError Code = "socketError"

	// CodeAbortError means the abort exchange failed. Never surfaced to
	// the caller of End; logged only.
	CodeAbortError Code = "abortError"
)

// Recovery is the automatic action the engine takes after surfacing an
// error with a given code.
type Recovery uint8

const (
	// RecoveryNone: the error is terminal for this attempt; nothing is
	// scheduled.
	RecoveryNone Recovery = iota

	// RecoveryRestart: re-run the full handshake from negotiate.
	RecoveryRestart

	// RecoveryReconnect: re-open only the transport, reusing the session
	// token from the previous negotiate.
	RecoveryReconnect
)

// errorTemplate describes a registered error code.
type errorTemplate struct {
	Message  string
	Recovery Recovery
}

// registry maps every code to its message and recovery policy. The
// recovery column is part of the protocol contract, not a tuning knob.
var registry = map[Code]errorTemplate{
	CodeInvalidURL:           {"connection URL is empty", RecoveryNone},
	CodeInvalidProtocol:      {"connection URL must start with http:// or https://", RecoveryNone},
	CodeNoHub:                {"no hubs configured", RecoveryNone},
	CodeUnsupportedWebsocket: {"server does not support the WebSocket transport", RecoveryNone},
	CodeUnauthorized:         {"server rejected the request as unauthorized", RecoveryNone},
	CodeNegotiateError:       {"negotiate request failed", RecoveryRestart},
	CodeStartError:           {"start request failed", RecoveryReconnect},
	CodeConnectError:         {"transport connect failed", RecoveryRestart},
	CodeConnectLost:          {"connection lost: no server activity within the keep-alive window", RecoveryReconnect},
	CodeSocketError:          {"transport send failed", RecoveryNone},
	CodeAbortError:           {"abort request failed", RecoveryNone},
}

// Recovery returns the automatic recovery policy for the code.
func (c Code) Recovery() Recovery {
	return registry[c].Recovery
}

// Error is a connection-engine error: a code from the closed taxonomy
// plus a human-readable message and the underlying cause, if any.
type Error struct {
	Code    Code
	Message string
	Wrapped error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Wrapped
}

// newError creates an Error for a registered code, wrapping cause.
func newError(code Code, cause error) *Error {
	return &Error{
		Code:    code,
		Message: registry[code].Message,
		Wrapped: cause,
	}
}

// RemoteError is a hub-level failure: the server answered an invocation
// with an E field. It is returned from Call, not raised as a lifecycle
// error.
type RemoteError struct {
	Message string
}

// Error implements the error interface.
func (e *RemoteError) Error() string {
	return "hub error: " + e.Message
}

// ErrCallTimeout is returned from Call when no response arrives within
// the call timeout. The pending invocation is removed; a response that
// arrives later is dropped.
var ErrCallTimeout = errors.New("hublink: call timed out")
