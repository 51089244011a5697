package stream

func (c *Connection) handleOpen() {
	c.dispatch(Opened())
}

func (c *Connection) handleMessage(payload any) {
	c.dispatch(Message(RenderPayload(payload)))
}

func (c *Connection) handleError(err error) {
	c.dispatch(ErrorEvent(RenderError(err)))
}

// dispatch delivers one event to the handler. Nothing is delivered once the connection
// is closed, which covers notifications that were in flight when Stop was returned.
func (c *Connection) dispatch(ev Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateClosed {
		c.logger.Debugf("Dropping %s after close", ev.Kind)
		return
	}

	c.transitionLocked(ev)
	c.delivered++
	c.logger.Debugf("Dispatching %s", ev)

	if c.handler(ev) == Stop {
		c.closeLocked("handler returned stop after " + ev.Kind.String())
	}
}

func (c *Connection) transitionLocked(ev Event) {
	switch ev.Kind {
	case KindOpened:
		c.state = StateOpen
	case KindMessage:
		if c.state == StateConnecting || c.state == StateErrored {
			c.state = StateOpen
		}
	case KindError:
		c.state = StateErrored
	}
}
