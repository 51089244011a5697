package transport

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/launchdarkly/eventsource"

	"go-stream-listener/internal/infrastructure/logger"
)

// SSEOptions configures the text/event-stream transport. Zero values leave the
// eventsource defaults in place.
type SSEOptions struct {
	InitialRetry         time.Duration     `json:"initial_retry"          yaml:"initial_retry"`
	MaxRetryDelay        time.Duration     `json:"max_retry_delay"        yaml:"max_retry_delay"`
	ReadTimeout          time.Duration     `json:"read_timeout"           yaml:"read_timeout"`
	FirstConnectionRetry time.Duration     `json:"first_connection_retry" yaml:"first_connection_retry"` // negative retries forever
	LastEventID          string            `json:"last_event_id"          yaml:"last_event_id"`
	Headers              map[string]string `json:"headers"                yaml:"headers"`
	HTTPClient           *http.Client      `json:"-"                      yaml:"-"`
}

type sseAcquirer struct {
	opts   SSEOptions
	logger logger.Logger
}

// NewSSEAcquirer returns an acquirer building SSETransports with opts.
func NewSSEAcquirer(opts SSEOptions, log logger.Logger) Acquirer {
	return &sseAcquirer{opts: opts, logger: log.WithField("transport", "sse")}
}

func (a *sseAcquirer) Acquire(address string) (Transport, error) {
	return NewSSETransport(address, a.opts, a.logger)
}

// SSETransport drives an eventsource.Stream. Only events on the default "message"
// channel are raised; named events are skipped.
type SSETransport struct {
	callbacks

	request *http.Request
	opts    SSEOptions
	logger  logger.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	stream *eventsource.Stream
	closed bool
	done   chan struct{}
}

var (
	_ Transport = (*SSETransport)(nil)
	_ Runner    = (*SSETransport)(nil)
)

// NewSSETransport validates address and prepares the request. Nothing is sent until Run.
func NewSSETransport(address string, opts SSEOptions, log logger.Logger) (*SSETransport, error) {
	u, err := parseAddress(address)
	if err != nil {
		return nil, err
	}
	if err := requireScheme(u, "http", "https"); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}

	return &SSETransport{
		request: req,
		opts:    opts,
		logger:  log.WithField("address", u.String()),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}, nil
}

func (t *SSETransport) streamOptions() []eventsource.StreamOption {
	opts := []eventsource.StreamOption{
		eventsource.StreamOptionLogger(streamLogger{t.logger}),
	}
	if t.opts.InitialRetry > 0 {
		opts = append(opts, eventsource.StreamOptionInitialRetry(t.opts.InitialRetry))
	}
	if t.opts.MaxRetryDelay > 0 {
		opts = append(opts, eventsource.StreamOptionUseBackoff(t.opts.MaxRetryDelay))
	}
	if t.opts.ReadTimeout > 0 {
		opts = append(opts, eventsource.StreamOptionReadTimeout(t.opts.ReadTimeout))
	}
	if t.opts.FirstConnectionRetry != 0 {
		opts = append(opts, eventsource.StreamOptionCanRetryFirstConnection(t.opts.FirstConnectionRetry))
	}
	if t.opts.LastEventID != "" {
		opts = append(opts, eventsource.StreamOptionLastEventID(t.opts.LastEventID))
	}
	if t.opts.HTTPClient != nil {
		opts = append(opts, eventsource.StreamOptionHTTPClient(t.opts.HTTPClient))
	}
	return opts
}

// Run subscribes and pumps the stream until Close. A failed first subscription is
// raised as an error notification and ends the transport.
func (t *SSETransport) Run() error {
	stream, err := eventsource.SubscribeWithRequestAndOptions(t.request, t.streamOptions()...)
	if err != nil {
		if t.isClosed() {
			return nil
		}
		t.emitError(err)
		t.Close()
		return fmt.Errorf("subscribe %s: %w", t.request.URL, err)
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		stream.Close()
		return nil
	}
	t.stream = stream
	t.mu.Unlock()

	t.emitOpen()

	for {
		select {
		case <-t.done:
			return nil

		case ev, ok := <-stream.Events:
			if !ok {
				return nil
			}
			if name := ev.Event(); name != "" && name != "message" {
				t.logger.Debugf("skipping named event %q", name)
				continue
			}
			t.emitMessage(ev.Data())

		case err, ok := <-stream.Errors:
			if !ok {
				return nil
			}
			if err != nil {
				t.emitError(err)
			}
		}
	}
}

// Close ends the stream and makes Run return. Later calls do nothing.
func (t *SSETransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true
	close(t.done)
	t.cancel()
	if t.stream != nil {
		t.stream.Close()
	}
	return nil
}

func (t *SSETransport) isClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// streamLogger adapts logger.Logger to the eventsource Logger interface.
type streamLogger struct {
	logger logger.Logger
}

func (l streamLogger) Println(args ...interface{}) {
	l.logger.Debug(fmt.Sprint(args...))
}

func (l streamLogger) Printf(format string, args ...interface{}) {
	l.logger.Debugf(format, args...)
}
