package transport

import "sync"

// callbacks stores the three registrations shared by every transport implementation.
type callbacks struct {
	mu        sync.RWMutex
	onOpen    func()
	onMessage func(any)
	onError   func(error)
}

func (c *callbacks) OnOpen(cb func()) {
	c.mu.Lock()
	c.onOpen = cb
	c.mu.Unlock()
}

func (c *callbacks) OnMessage(cb func(payload any)) {
	c.mu.Lock()
	c.onMessage = cb
	c.mu.Unlock()
}

func (c *callbacks) OnError(cb func(err error)) {
	c.mu.Lock()
	c.onError = cb
	c.mu.Unlock()
}

func (c *callbacks) emitOpen() {
	c.mu.RLock()
	cb := c.onOpen
	c.mu.RUnlock()
	if cb != nil {
		cb()
	}
}

func (c *callbacks) emitMessage(payload any) {
	c.mu.RLock()
	cb := c.onMessage
	c.mu.RUnlock()
	if cb != nil {
		cb(payload)
	}
}

func (c *callbacks) emitError(err error) {
	c.mu.RLock()
	cb := c.onError
	c.mu.RUnlock()
	if cb != nil {
		cb(err)
	}
}
