package live

import (
	"fmt"
	"slices"
	"time"
)

const minKeepaliveWake = time.Millisecond

// keepaliveLoop watches the activity timestamps. It only requests actions:
// a keepalive enqueue on outbound idleness, a teardown on receive silence.
func (c *Conn) keepaliveLoop() error {
	idle := c.opts.IdleSendInterval
	timeout := c.opts.ReceiveTimeout
	if idle <= 0 && timeout <= 0 {
		return nil
	}

	timer := time.NewTimer(c.nextKeepaliveWake(time.Now()))
	defer timer.Stop()

	for {
		select {
		case <-c.runCtx.Done():
			return nil
		case now := <-timer.C:
			if c.State() != StateOpen {
				timer.Reset(c.nextKeepaliveWake(now))
				continue
			}
			if timeout > 0 {
				if silence := now.Sub(c.lastRecvTime()); silence >= timeout {
					c.logger.Warn("receive timeout")
					c.requestTerminate(termination{
						state: StateErrored,
						err:   newError(KindTimeout, "receive", fmt.Errorf("no frame received for %s", silence.Truncate(time.Millisecond))),
					})
					return nil
				}
			}
			if idle > 0 && !c.keepAlivePending.Load() && now.Sub(c.lastSendTime()) >= idle {
				if c.queue.offer(Message{Kind: MessageKeepAlive}) {
					c.keepAlivePending.Store(true)
				}
			}
			timer.Reset(c.nextKeepaliveWake(now))
		}
	}
}

func (c *Conn) nextKeepaliveWake(now time.Time) time.Duration {
	var wakes []time.Duration
	if idle := c.opts.IdleSendInterval; idle > 0 {
		if c.keepAlivePending.Load() {
			wakes = append(wakes, idle)
		} else {
			wakes = append(wakes, c.lastSendTime().Add(idle).Sub(now))
		}
	}
	if timeout := c.opts.ReceiveTimeout; timeout > 0 {
		wakes = append(wakes, c.lastRecvTime().Add(timeout).Sub(now))
	}
	next := slices.Min(wakes)
	if next < minKeepaliveWake {
		next = minKeepaliveWake
	}
	return next
}

func (c *Conn) touchSend() {
	c.lastSend.Store(time.Now().UnixNano())
}

func (c *Conn) touchRecv() {
	c.lastRecv.Store(time.Now().UnixNano())
}

func (c *Conn) lastSendTime() time.Time {
	return time.Unix(0, c.lastSend.Load())
}

func (c *Conn) lastRecvTime() time.Time {
	return time.Unix(0, c.lastRecv.Load())
}
