package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// HTTPServer runs an http.Server until Stop.
type HTTPServer struct {
	addr    string
	handler http.Handler

	mu  sync.Mutex
	srv *http.Server
}

var _ Server = (*HTTPServer)(nil)

// NewHTTPServer creates a server for handler on addr.
func NewHTTPServer(addr string, handler http.Handler) *HTTPServer {
	return &HTTPServer{
		addr:    addr,
		handler: handler,
	}
}

// Start serves until Stop. WriteTimeout is left unset because relay responses are
// long-lived streams.
func (h *HTTPServer) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:        h.addr,
		Handler:     h.handler,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
		BaseContext: func(net.Listener) context.Context { return ctx },
	}
	h.mu.Lock()
	h.srv = srv
	h.mu.Unlock()

	var eg errgroup.Group
	eg.Go(func() error {
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}

		return nil
	})

	return eg.Wait()
}

// Stop shuts the server down gracefully, bounded by ctx.
func (h *HTTPServer) Stop(ctx context.Context) error {
	h.mu.Lock()
	srv := h.srv
	h.mu.Unlock()

	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}
