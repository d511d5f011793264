// Package protocol implements the wire format of the legacy SignalR
// persistent-connection protocol (clientProtocol 1.x, hub mode).
//
// The protocol is JSON over a persistent text transport, bracketed by
// three plain HTTP exchanges (negotiate, start, abort). All hub traffic
// flows through two envelope shapes:
//
// Outbound invocation (client → server):
//
//	{"H":"chat","M":"Send","A":["hello"],"I":7}
//
// H is the hub name, M the method, A the argument array (always present,
// [] when empty) and I the correlation id linking the invocation to its
// eventual response.
//
// Inbound frames (server → client) come in three observable shapes:
//
//   - Push batch: {"M":[{"H":"chat","M":"addMessage","A":[...]}, ...]}
//     server-initiated hub calls, uncorrelated to any client request.
//   - Response: {"I":7,"R":...} or {"I":7,"E":"message"}, the reply to
//     a client invocation, matched by correlation id. Real servers emit
//     I both as a number and as a quoted number string.
//   - Keepalive: the literal two-byte payload {} carrying nothing.
//
// Servers also emit other shapes (the init frame {"C":...,"S":1,"M":[]}
// among them). DecodeFrame classifies those as FrameOther so the caller
// can drop them without treating them as an error.
//
// Argument payloads are never interpreted: they pass through as
// json.RawMessage in both directions.
package protocol
