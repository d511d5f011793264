// Package hubtest provides an in-process fake of a legacy SignalR
// endpoint for exercising the client engine: it serves the
// negotiate/start/abort exchanges, upgrades /connect to a WebSocket,
// records inbound invocations, and lets tests push messages, answer
// calls, drop the transport, or misbehave on any exchange.
package hubtest
