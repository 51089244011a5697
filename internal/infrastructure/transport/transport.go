// Package transport holds the streaming transports a connection can be driven by.
//
// A Transport raises three kinds of notifications (open, message, error) to callbacks
// registered before it starts, and can be closed. Transports that need a goroutine to pump
// the network also implement Runner; the caller schedules Run once the callbacks are in place.
package transport

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"go-stream-listener/internal/infrastructure/logger"
)

var (
	ErrInvalidAddress    = errors.New("invalid stream address")
	ErrUnsupportedScheme = errors.New("unsupported stream scheme")
	ErrClosed            = errors.New("transport closed")
)

// Transport is the capability a connection needs from a streaming implementation.
type Transport interface {
	OnOpen(cb func())
	// OnMessage receives the payload of one server-pushed message. Text payloads are
	// delivered as string, anything else as its native value.
	OnMessage(cb func(payload any))
	OnError(cb func(err error))
	// Close releases the stream. Calling it more than once has no further effect.
	Close() error
}

// Runner is implemented by transports that pump the network on their own goroutine. Run
// blocks until the transport is closed or gives up, and raises every notification from
// that single goroutine.
type Runner interface {
	Run() error
}

// Acquirer constructs a Transport bound to an address without doing any network I/O.
type Acquirer interface {
	Acquire(address string) (Transport, error)
}

// AcquirerFunc adapts a plain function to Acquirer.
type AcquirerFunc func(address string) (Transport, error)

// Acquire calls f(address).
func (f AcquirerFunc) Acquire(address string) (Transport, error) {
	return f(address)
}

// Registry dispatches acquisition by URL scheme.
type Registry struct {
	schemes map[string]Acquirer
}

// NewRegistry returns a Registry with no schemes registered.
func NewRegistry() *Registry {
	return &Registry{schemes: make(map[string]Acquirer)}
}

// NewDefaultRegistry wires the SSE transport to http/https and the websocket transport
// to ws/wss.
func NewDefaultRegistry(sseOpts SSEOptions, wsOpts WebSocketOptions, log logger.Logger) *Registry {
	r := NewRegistry()
	sse := NewSSEAcquirer(sseOpts, log)
	ws := NewWebSocketAcquirer(wsOpts, log)
	r.Register(sse, "http", "https")
	r.Register(ws, "ws", "wss")
	return r
}

// Register makes a serve the given schemes, replacing any earlier registration.
func (r *Registry) Register(a Acquirer, schemes ...string) {
	for _, s := range schemes {
		r.schemes[strings.ToLower(s)] = a
	}
}

// Schemes returns the registered schemes in sorted order.
func (r *Registry) Schemes() []string {
	out := make([]string, 0, len(r.schemes))
	for s := range r.schemes {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Acquire picks the acquirer registered for the address's scheme.
func (r *Registry) Acquire(address string) (Transport, error) {
	u, err := parseAddress(address)
	if err != nil {
		return nil, err
	}
	a, ok := r.schemes[strings.ToLower(u.Scheme)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}
	return a.Acquire(address)
}

// parseAddress accepts absolute URLs with a host.
func parseAddress(address string) (*url.URL, error) {
	if strings.TrimSpace(address) == "" {
		return nil, fmt.Errorf("%w: empty address", ErrInvalidAddress)
	}
	u, err := url.Parse(address)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: %q is not an absolute url", ErrInvalidAddress, address)
	}
	return u, nil
}

func requireScheme(u *url.URL, schemes ...string) error {
	for _, s := range schemes {
		if strings.EqualFold(u.Scheme, s) {
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
}
