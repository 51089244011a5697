package transport

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"go-stream-listener/internal/infrastructure/logger"
)

// WebSocketOptions configures the read-only websocket transport.
type WebSocketOptions struct {
	HandshakeTimeout time.Duration     `json:"handshake_timeout" yaml:"handshake_timeout"`
	ReadLimit        int64             `json:"read_limit"        yaml:"read_limit"`
	Headers          map[string]string `json:"headers"           yaml:"headers"`
}

type webSocketAcquirer struct {
	opts   WebSocketOptions
	logger logger.Logger
}

// NewWebSocketAcquirer returns an acquirer building WebSocketTransports with opts.
func NewWebSocketAcquirer(opts WebSocketOptions, log logger.Logger) Acquirer {
	return &webSocketAcquirer{opts: opts, logger: log.WithField("transport", "websocket")}
}

func (a *webSocketAcquirer) Acquire(address string) (Transport, error) {
	return NewWebSocketTransport(address, a.opts, a.logger)
}

// WebSocketTransport treats a websocket as a one-way stream. Text frames are raised as
// string payloads, binary frames as []byte. Nothing is ever written except the close frame.
type WebSocketTransport struct {
	callbacks

	address string
	header  http.Header
	dialer  *websocket.Dialer
	opts    WebSocketOptions
	logger  logger.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
}

var (
	_ Transport = (*WebSocketTransport)(nil)
	_ Runner    = (*WebSocketTransport)(nil)
)

// NewWebSocketTransport validates address and prepares the dialer. Nothing is dialed until Run.
func NewWebSocketTransport(address string, opts WebSocketOptions, log logger.Logger) (*WebSocketTransport, error) {
	u, err := parseAddress(address)
	if err != nil {
		return nil, err
	}
	if err := requireScheme(u, "ws", "wss"); err != nil {
		return nil, err
	}

	header := http.Header{}
	for k, v := range opts.Headers {
		header.Set(k, v)
	}
	timeout := opts.HandshakeTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &WebSocketTransport{
		address: u.String(),
		header:  header,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: timeout,
		},
		opts:   opts,
		logger: log.WithField("address", u.String()),
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

// Run dials, then reads frames until Close or the server hangs up. A normal close
// frame from the server ends Run without an error notification.
func (t *WebSocketTransport) Run() error {
	conn, resp, err := t.dialer.DialContext(t.ctx, t.address, t.header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		if t.isClosed() {
			return nil
		}
		t.emitError(err)
		t.Close()
		return fmt.Errorf("dial %s: %w", t.address, err)
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		conn.Close()
		return nil
	}
	t.conn = conn
	t.mu.Unlock()

	if t.opts.ReadLimit > 0 {
		conn.SetReadLimit(t.opts.ReadLimit)
	}

	t.emitOpen()

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if t.isClosed() {
				return nil
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				t.logger.Info("server closed websocket stream")
				t.Close()
				return nil
			}
			t.emitError(err)
			t.Close()
			return fmt.Errorf("read %s: %w", t.address, err)
		}

		switch messageType {
		case websocket.TextMessage:
			t.emitMessage(string(data))
		case websocket.BinaryMessage:
			t.emitMessage(data)
		}
	}
}

// Close sends a normal close frame and closes the socket. Later calls do nothing.
func (t *WebSocketTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true
	t.cancel()

	if t.conn == nil {
		return nil
	}
	_ = t.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	return t.conn.Close()
}

func (t *WebSocketTransport) isClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}
