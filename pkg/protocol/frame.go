package protocol

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// FrameKind classifies an inbound frame.
type FrameKind uint8

const (
	// FrameKeepalive is the literal {} payload. It carries no data but
	// still counts as server activity.
	FrameKeepalive FrameKind = iota

	// FramePush is a batch of server-initiated hub calls.
	FramePush

	// FrameResponse is the correlated reply to a client invocation.
	FrameResponse

	// FrameOther is any other well-formed or malformed payload (init
	// frames, group tokens, garbage). Callers drop these silently.
	FrameOther
)

// String returns the string representation of the frame kind.
func (k FrameKind) String() string {
	switch k {
	case FrameKeepalive:
		return "keepalive"
	case FramePush:
		return "push"
	case FrameResponse:
		return "response"
	default:
		return "other"
	}
}

// Invocation is the outbound client → server envelope.
type Invocation struct {
	Hub    string            `json:"H"`
	Method string            `json:"M"`
	Args   []json.RawMessage `json:"A"`
	ID     int64             `json:"I"`
}

// PushMessage is one server-initiated hub call inside a push batch.
type PushMessage struct {
	Hub    string            `json:"H"`
	Method string            `json:"M"`
	Args   []json.RawMessage `json:"A"`
}

// Frame is the result of classifying one inbound payload.
// Messages is set for FramePush; ID, Error and Result for FrameResponse.
type Frame struct {
	Kind     FrameKind
	Messages []PushMessage
	ID       int64
	Error    string
	Result   json.RawMessage
}

// EncodeInvocation serializes an outbound invocation envelope. The
// argument array is always emitted, as [] when empty; servers reject
// envelopes without A.
func EncodeInvocation(hub, method string, args []json.RawMessage, id int64) ([]byte, error) {
	if args == nil {
		args = []json.RawMessage{}
	}
	return json.Marshal(&Invocation{Hub: hub, Method: method, Args: args, ID: id})
}

var keepalivePayload = []byte("{}")

// inboundEnvelope is the superset of fields DecodeFrame inspects. The
// correlation id stays raw because servers send both 7 and "7".
type inboundEnvelope struct {
	Messages []PushMessage   `json:"M"`
	ID       json.RawMessage `json:"I"`
	Error    string          `json:"E"`
	Result   json.RawMessage `json:"R"`
}

// DecodeFrame classifies a raw inbound payload. It never fails: payloads
// that match no known shape come back as FrameOther, because the server
// legitimately sends frames this client does not consume.
func DecodeFrame(raw []byte) Frame {
	if bytes.Equal(raw, keepalivePayload) {
		return Frame{Kind: FrameKeepalive}
	}

	var env inboundEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Frame{Kind: FrameOther}
	}

	if len(env.Messages) > 0 {
		return Frame{Kind: FramePush, Messages: env.Messages}
	}

	if len(env.ID) > 0 {
		id, ok := decodeCorrelationID(env.ID)
		if !ok {
			return Frame{Kind: FrameOther}
		}
		return Frame{Kind: FrameResponse, ID: id, Error: env.Error, Result: env.Result}
	}

	return Frame{Kind: FrameOther}
}

// decodeCorrelationID accepts both the bare and the quoted numeric forms
// of the I field.
func decodeCorrelationID(raw json.RawMessage) (int64, bool) {
	s := string(raw)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
