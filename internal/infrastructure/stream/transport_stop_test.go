package stream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/launchdarkly/go-test-helpers/v2/httphelpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-stream-listener/internal/infrastructure/logger"
	"go-stream-listener/internal/infrastructure/transport"
)

func newRegistryManager(t *testing.T) *Manager {
	t.Helper()
	log := logger.NewNopLogger()
	m := NewManager(transport.NewDefaultRegistry(transport.SSEOptions{}, transport.WebSocketOptions{}, log), log)
	require.NoError(t, m.Start(context.Background()))
	return m
}

func waitClosed(t *testing.T, conn *Connection) {
	t.Helper()
	select {
	case <-conn.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("connection did not close after Stop")
	}
}

func stopManager(t *testing.T, m *Manager) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, m.Stop(ctx))
}

func TestSSEStopFromHandler(t *testing.T) {
	streamHandler, streamControl := httphelpers.SSEHandler(nil)
	defer streamControl.Close()
	httpServer := httptest.NewServer(streamHandler)
	defer httpServer.Close()

	m := newRegistryManager(t)
	opened := make(chan struct{})
	rec := &recorder{stopWhen: func(ev Event) bool {
		if ev.Kind == KindOpened {
			select {
			case <-opened:
			default:
				close(opened)
			}
		}
		return ev.Kind == KindMessage
	}}

	conn, err := m.Connect(httpServer.URL, rec.handle)
	require.NoError(t, err)

	select {
	case <-opened:
	case <-time.After(5 * time.Second):
		t.Fatal("stream did not open")
	}
	streamControl.Send(httphelpers.SSEEvent{Data: "hello"})
	streamControl.Send(httphelpers.SSEEvent{Data: "world"})

	waitClosed(t, conn)
	stopManager(t, m)

	assert.Equal(t, []Event{Opened(), Message("hello")}, rec.seen())
	assert.Equal(t, StateClosed, conn.State())
}

func TestWebSocketStopFromHandler(t *testing.T) {
	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		ws.WriteMessage(websocket.TextMessage, []byte("hello"))
		ws.WriteMessage(websocket.TextMessage, []byte("world"))
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	m := newRegistryManager(t)
	rec := &recorder{stopWhen: func(ev Event) bool { return ev.Kind == KindMessage }}

	conn, err := m.Connect("ws"+strings.TrimPrefix(srv.URL, "http"), rec.handle)
	require.NoError(t, err)

	waitClosed(t, conn)
	stopManager(t, m)

	assert.Equal(t, []Event{Opened(), Message("hello")}, rec.seen())
	assert.Equal(t, StateClosed, conn.State())
}
