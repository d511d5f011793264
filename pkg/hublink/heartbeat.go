package hublink

import "time"

// Heartbeat monitor. Enabled only when negotiate returned a
// KeepAliveTimeout; the check interval is a quarter of that window.
// There is never more than one live monitor per client: starting stops
// any previous one, and a generation counter invalidates ticks that were
// already in flight when the monitor was cancelled.

// startHeartbeatLocked arms the monitor. Caller holds c.mu.
func (c *Client) startHeartbeatLocked() {
	c.stopHeartbeatLocked()
	if c.keepAlive <= 0 {
		return
	}
	gen := c.hbGen
	c.hbTimer = time.AfterFunc(c.hbInterval, func() { c.heartbeatTick(gen) })
}

// stopHeartbeatLocked cancels the monitor. Synchronous and idempotent:
// bumping the generation makes any already-fired tick a no-op. Caller
// holds c.mu.
func (c *Client) stopHeartbeatLocked() {
	if c.hbTimer != nil {
		c.hbTimer.Stop()
		c.hbTimer = nil
	}
	c.hbGen++
}

// heartbeatTick checks time-since-last-message against the keep-alive
// window and either reschedules or declares the connection lost.
func (c *Client) heartbeatTick(gen uint64) {
	c.mu.Lock()
	if gen != c.hbGen {
		c.mu.Unlock()
		return
	}

	elapsed := time.Since(c.lastMessageAt())
	if elapsed <= c.keepAlive {
		c.hbTimer = time.AfterFunc(c.hbInterval, func() { c.heartbeatTick(gen) })
		c.mu.Unlock()
		return
	}

	c.hbTimer = nil
	c.hbGen++
	c.mu.Unlock()

	c.logger.Warn("keep-alive window exceeded", "elapsed", elapsed, "keep_alive", c.keepAlive)
	c.fail(newError(CodeConnectLost, nil))
}
