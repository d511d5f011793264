package hublink

import "time"

// Reconnection controller: debounced, delayed recovery. full selects
// between re-running the whole handshake from negotiate and re-opening
// only the transport with the existing session token.

// scheduleReconnect arms one recovery attempt after ReconnectDelay.
// Debounced: a pending timer or an attempt already in progress
// (state Reconnecting) absorbs further requests. An ended session
// never schedules again; a failure surfaced by an attempt that
// straddled End would otherwise re-arm the timer.
func (c *Client) scheduleReconnect(full bool) {
	c.mu.Lock()
	if c.ended || c.reconnectTimer != nil || c.state == StateReconnecting {
		c.mu.Unlock()
		return
	}

	c.stopHeartbeatLocked()
	c.detachTransportLocked()

	c.reconnectTimer = time.AfterFunc(c.opts.ReconnectDelay, func() {
		c.reconnectFire(full)
	})
	c.mu.Unlock()

	c.logger.Info("reconnect scheduled", "full_restart", full, "delay", c.opts.ReconnectDelay)
}

// reconnectFire runs when the delay elapses: it claims the timer handle,
// announces the attempt, then re-runs either the full handshake or the
// transport connect.
func (c *Client) reconnectFire(full bool) {
	c.mu.Lock()
	if c.reconnectTimer == nil {
		// Cancelled by End between firing and locking.
		c.mu.Unlock()
		return
	}
	c.reconnectTimer = nil
	c.attempts++
	attempt := c.attempts
	c.state = StateReconnecting
	ctx := c.baseCtx
	c.mu.Unlock()

	c.metrics.recordReconnectAttempt()
	c.logger.Info("reconnecting", "attempt", attempt, "full_restart", full)
	c.emit(Event{Kind: EventReconnecting, Attempt: attempt})

	if full {
		c.run(ctx)
		return
	}
	c.connect(ctx)
}

// cancelReconnectLocked stops a pending recovery attempt. Caller holds
// c.mu. Clearing the handle is what makes a concurrently fired
// reconnectFire back off.
func (c *Client) cancelReconnectLocked() {
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}
}
