// Package hublink is a client for the legacy SignalR persistent-connection
// protocol: negotiate over HTTP, upgrade to a WebSocket transport, then
// multiplex bidirectional hub RPC over the socket.
//
// The package centers on the Client connection engine. It owns the
// connection state machine (Disconnected, Connected, Reconnecting),
// sequences the negotiate → connect → start handshake, keeps the session
// alive with a heartbeat against the server's keep-alive window, and
// recovers from failures with debounced, delayed reconnection: either a
// full handshake restart or a transport-only reconnect, depending on
// which stage failed.
//
// Basic usage:
//
//	client := hublink.New(hublink.Options{
//		URL:  "https://example.com/signalr",
//		Hubs: []string{"chat"},
//	})
//
//	cancel := client.Subscribe(func(ev hublink.Event) {
//		log.Println(ev)
//	})
//	defer cancel()
//
//	client.On("chat", "addMessage", func(args []json.RawMessage) {
//		// handle a server push
//	})
//
//	if err := client.Start(ctx); err != nil {
//		log.Fatal(err)
//	}
//	defer client.End()
//
//	result, err := client.Call(ctx, "chat", "Send", "hello")
//
// Lifecycle notifications (connected, disconnected, reconnecting, error)
// are delivered synchronously and in order to subscribers registered at
// emission time; there is no buffering or replay.
//
// All errors raised by the engine carry one of the closed set of Codes;
// each code has a fixed recovery policy (none, full restart, or
// transport-only reconnect) that the engine applies automatically after
// surfacing the error.
package hublink
