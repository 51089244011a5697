package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-stream-listener/internal/application/facade"
	"go-stream-listener/internal/infrastructure/logger"
	"go-stream-listener/internal/infrastructure/stream"
	"go-stream-listener/internal/infrastructure/transport"
)

type fixture struct {
	router  *gin.Engine
	manager *stream.Manager
	acq     *transport.MemoryAcquirer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	acq := transport.NewMemoryAcquirer()
	m := stream.NewManager(acq, logger.NewNopLogger())
	require.NoError(t, m.Start(context.Background()))
	t.Cleanup(func() { m.Stop(context.Background()) })

	svc := facade.NewStreamApplicationService(m, 16, logger.NewNopLogger())
	router := gin.New()
	InitStreamRouter(logger.NewNopLogger(), svc, router.Group(""))
	return &fixture{router: router, manager: m, acq: acq}
}

func (f *fixture) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestOpenStream(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPost, "/api/v1/streams", `{"name":"ticks","address":"https://example.com/ticks","max_events":2}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var resp StreamResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ticks", resp.Name)
	assert.Equal(t, "connecting", resp.State)
	assert.Equal(t, 2, resp.Policy.MaxEvents)
	assert.Equal(t, "/api/v1/streams/"+resp.ID, w.Header().Get("Location"))
}

func TestOpenStreamValidation(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPost, "/api/v1/streams", `{"name":"x"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(http.MethodPost, "/api/v1/streams", `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(http.MethodPost, "/api/v1/streams", `{"address":"::not-a-url"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "acquire transport")
}

func TestOpenStreamWhenManagerStopped(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.manager.Stop(context.Background()))

	w := f.do(http.MethodPost, "/api/v1/streams", `{"address":"https://example.com/x"}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestStreamLifecycle(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPost, "/api/v1/streams", `{"address":"https://example.com/x","stop_on":"bye"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var created StreamResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	mem := f.acq.Last()
	mem.Open()
	mem.Message("hello")

	w = f.do(http.MethodGet, "/api/v1/streams/"+created.ID, "")
	require.Equal(t, http.StatusOK, w.Code)
	var detail StreamResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &detail))
	assert.Equal(t, "open", detail.State)
	assert.Equal(t, 2, detail.Delivered)

	w = f.do(http.MethodGet, "/api/v1/streams/"+created.ID+"/events", "")
	require.Equal(t, http.StatusOK, w.Code)
	var events EventsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &events))
	require.Len(t, events.Events, 2)
	assert.Equal(t, uint64(2), events.Total)
	assert.Equal(t, "opened", events.Events[0].Kind)
	assert.Equal(t, "hello", events.Events[1].Body)

	w = f.do(http.MethodGet, "/api/v1/streams", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total_streams":1`)

	w = f.do(http.MethodDelete, "/api/v1/streams/"+created.ID, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, 1, mem.CloseCalls())

	w = f.do(http.MethodDelete, "/api/v1/streams/"+created.ID, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = f.do(http.MethodGet, "/api/v1/streams/"+created.ID, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = f.do(http.MethodGet, "/api/v1/streams/"+created.ID+"/events", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
