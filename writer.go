package wsconn

// enqueue hands m to the writer goroutine without blocking. Frames are written
// in the order they were enqueued. Frames queued before the connection opens
// wait for it, and are dropped if it never does.
func (c *socketConnection) enqueue(m Message) {
	if s := c.State(); s == StateClosing || s == StateClosed {
		c.logger.Debugf("dropping %s: connection is %s", m, s)
		return
	}

	select {
	case c.outbox <- m:
	default:
		// The caller may be inside a sink callback holding notifyMu.
		go c.sendFailed(ErrSendQueueFull)
	}
}

func (c *socketConnection) startWriter() {
	c.writerOnce.Do(func() {
		go c.writeLoop()
	})
}

func (c *socketConnection) writeLoop() {
	for {
		select {
		case <-c.stop:
			return
		case m := <-c.outbox:
			c.write(m)
		}
	}
}

func (c *socketConnection) write(m Message) {
	var err error

	switch m.Type() {
	case TextMessage:
		err = c.transport.SendText(c.ctx, m.Text())
	case BinaryMessage:
		err = c.transport.SendBinary(c.ctx, m.Data())
	}

	if err != nil {
		c.sendFailed(err)
		return
	}

	c.messagesSent.Add(1)
}

// sendFailed reports a failed send while the connection is open. The
// connection state is left untouched.
func (c *socketConnection) sendFailed(err error) {
	c.sendFailures.Add(1)

	opErr := newOpError("send", ErrSendFailed, err)
	c.logger.Warnf("%s", opErr)

	c.notifyOpen(func(s Sink) { s.OnError(c, opErr) })
}
