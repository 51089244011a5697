package stream

import (
	"context"
	"sync"
	"time"

	"go-stream-listener/internal/infrastructure/logger"
	"go-stream-listener/internal/infrastructure/transport"
)

// Connection is one streaming session: an address, its state and the single transport it
// owns. Notifications are dispatched to the handler one at a time under mu.
type Connection struct {
	id        string
	address   string
	createdAt time.Time

	mu        sync.Mutex
	state     State
	transport transport.Transport
	handler   Handler
	delivered int
	closeErr  error

	ctx    context.Context
	cancel context.CancelFunc

	logger logger.Logger
}

func newConnection(id, address string, t transport.Transport, h Handler, log logger.Logger) *Connection {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Connection{
		id:        id,
		address:   address,
		createdAt: time.Now(),
		state:     StateConnecting,
		transport: t,
		handler:   h,
		ctx:       ctx,
		cancel:    cancel,
		logger:    log.WithFields(logger.Fields{"connection_id": id, "address": address}),
	}

	// One handler serves all three registrations; each closure goes through the
	// connection, so dropping c.handler on close releases it for all of them.
	t.OnOpen(c.handleOpen)
	t.OnMessage(c.handleMessage)
	t.OnError(c.handleError)

	return c
}

// ID returns the connection's uuid.
func (c *Connection) ID() string { return c.id }

// Address returns the address the transport was acquired for.
func (c *Connection) Address() string { return c.address }

// CreatedAt returns when Connect built the connection.
func (c *Connection) CreatedAt() time.Time { return c.createdAt }

// State returns the current state.
func (c *Connection) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// IsClosed reports whether the connection reached Closed.
func (c *Connection) IsClosed() bool {
	return c.State() == StateClosed
}

// Delivered reports how many events reached the handler.
func (c *Connection) Delivered() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.delivered
}

// Context is cancelled once the connection is closed.
func (c *Connection) Context() context.Context {
	return c.ctx
}

// Done is closed once the connection is closed.
func (c *Connection) Done() <-chan struct{} {
	return c.ctx.Done()
}

// Close discards the connection. The transport is closed on the first call only; later
// calls return nil.
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateClosed {
		return nil
	}
	c.closeLocked("closed by caller")
	return c.closeErr
}

// closeLocked runs the one close action of the connection. c.mu must be held.
func (c *Connection) closeLocked(reason string) {
	c.closeErr = c.transport.Close()
	if c.closeErr != nil {
		c.logger.Errorf("Failed to close transport: %v", c.closeErr)
	}
	c.releaseLocked()
	c.logger.Infof("Connection closed: %s", reason)
}

// terminate marks the connection closed after the transport ended on its own. The
// transport is not closed again.
func (c *Connection) terminate(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateClosed {
		return
	}
	c.releaseLocked()
	if err != nil {
		c.logger.Warnf("Transport terminated: %v", err)
		return
	}
	c.logger.Info("Transport terminated")
}

func (c *Connection) releaseLocked() {
	c.state = StateClosed
	c.handler = nil
	c.cancel()
}
