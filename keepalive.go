package wsconn

import (
	"context"
	"time"
)

// keepAlive pings the peer right after the connection opens and then every
// pingInterval, until the connection leaves StateOpen. Ping failures are
// logged and counted but never reach the sink and never stop the loop.
func (c *socketConnection) keepAlive() {
	logger := c.logger.WithField("loop", "keep_alive")

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-timer.C:
		}

		if c.State() != StateOpen {
			return
		}

		c.ping(logger)
		timer.Reset(c.opts.pingInterval)
	}
}

func (c *socketConnection) ping(logger Logger) {
	ctx, cancel := context.WithTimeout(c.ctx, c.opts.pingTimeout)
	defer cancel()

	c.pingsSent.Add(1)

	if err := c.transport.Ping(ctx); err != nil {
		c.pingFailures.Add(1)
		logger.Warnf("%s", newOpError("ping", ErrPingFailed, err))
		return
	}

	logger.Debugln("ping sent")
}
