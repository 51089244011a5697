package sse

import (
	"net/http"
	"strconv"

	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"

	"go-stream-listener/internal/application/facade"
	"go-stream-listener/internal/infrastructure/feed"
	"go-stream-listener/internal/infrastructure/logger"
)

// RelayHandler re-publishes a subscription's events to local SSE clients.
type RelayHandler struct {
	service *facade.StreamApplicationService
	logger  logger.Logger
}

// NewRelayHandler creates a RelayHandler backed by service.
func NewRelayHandler(service *facade.StreamApplicationService, logger logger.Logger) *RelayHandler {
	return &RelayHandler{
		service: service,
		logger:  logger.WithField("handler", "sse_relay"),
	}
}

// Relay writes the stored history, then live records, then a "closed" event once the
// upstream connection is gone. A client that falls behind the feed gets a "dropped"
// event instead and the response ends.
func (h *RelayHandler) Relay(c *gin.Context) {
	id := c.Param("id")
	sub, ok := h.service.Get(id)
	if !ok {
		c.Writer.Header().Del("Content-Type")
		c.JSON(http.StatusNotFound, gin.H{"error": "Stream not found"})
		return
	}

	history, records, cancel := sub.Feed().Subscribe()
	defer cancel()

	w := c.Writer
	w.WriteHeader(http.StatusOK)
	h.logger.Infof("Relay client attached to %s", id)

	for _, rec := range history {
		if err := encode(w, rec); err != nil {
			h.logger.Errorf("Failed to write relay event: %v", err)
			return
		}
	}
	w.Flush()

	for {
		select {
		case <-c.Request.Context().Done():
			h.logger.Infof("Relay client detached from %s", id)
			return

		case rec, ok := <-records:
			if !ok && !sub.Feed().IsClosed() {
				// The feed dropped this client for falling behind; upstream is still live.
				h.logger.Warnf("Relay client of %s fell behind and was dropped", id)
				sse.Encode(w, sse.Event{
					Event: "dropped",
					Data: gin.H{
						"id":     sub.ID,
						"reason": "client fell behind",
					},
				})
				w.Flush()
				return
			}
			if !ok {
				sse.Encode(w, sse.Event{
					Event: "closed",
					Data: gin.H{
						"id":    sub.ID,
						"state": sub.State().String(),
					},
				})
				w.Flush()
				return
			}
			if err := encode(w, rec); err != nil {
				h.logger.Errorf("Failed to write relay event: %v", err)
				return
			}
			w.Flush()
		}
	}
}

func encode(w gin.ResponseWriter, rec feed.Record) error {
	return sse.Encode(w, sse.Event{
		Id:    strconv.FormatUint(rec.Seq, 10),
		Event: rec.Kind,
		Data:  rec,
	})
}
