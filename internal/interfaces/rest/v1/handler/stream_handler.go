package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"go-stream-listener/internal/application/facade"
	"go-stream-listener/internal/infrastructure/feed"
	"go-stream-listener/internal/infrastructure/logger"
	"go-stream-listener/internal/infrastructure/stream"
)

// StreamHandler serves the REST API over stream subscriptions.
type StreamHandler struct {
	service *facade.StreamApplicationService
	logger  logger.Logger
}

// OpenStreamRequest is the body of POST /api/v1/streams.
type OpenStreamRequest struct {
	Name        string `json:"name"`
	Address     string `json:"address" binding:"required"`
	StopOn      string `json:"stop_on"`
	MaxEvents   int    `json:"max_events" binding:"min=0"`
	StopOnError bool   `json:"stop_on_error"`
}

// StreamResponse describes one subscription.
type StreamResponse struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Address   string        `json:"address"`
	State     string        `json:"state"`
	Delivered int           `json:"delivered"`
	Policy    facade.Policy `json:"policy"`
	CreatedAt time.Time     `json:"created_at"`
}

// EventsResponse is the recorded history of a subscription.
type EventsResponse struct {
	ID     string        `json:"id"`
	Total  uint64        `json:"total"`
	Events []feed.Record `json:"events"`
}

// NewStreamHandler creates a StreamHandler backed by service.
func NewStreamHandler(service *facade.StreamApplicationService, logger logger.Logger) *StreamHandler {
	return &StreamHandler{
		service: service,
		logger:  logger.WithField("handler", "stream"),
	}
}

func toResponse(sub *facade.Subscription) StreamResponse {
	return StreamResponse{
		ID:        sub.ID,
		Name:      sub.Name,
		Address:   sub.Address,
		State:     sub.State().String(),
		Delivered: sub.Delivered(),
		Policy:    sub.Policy,
		CreatedAt: sub.CreatedAt,
	}
}

// Open starts listening to an upstream stream.
func (h *StreamHandler) Open(c *gin.Context) {
	var req OpenStreamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Errorf("Invalid request format: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid stream request",
		})
		return
	}

	sub, err := h.service.Open(req.Name, req.Address, facade.Policy{
		StopOn:      req.StopOn,
		MaxEvents:   req.MaxEvents,
		StopOnError: req.StopOnError,
	})
	switch {
	case errors.Is(err, stream.ErrManagerNotRunning):
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "Service temporarily unavailable",
		})
		return
	case errors.Is(err, stream.ErrAcquisitionFailed):
		h.logger.Warnf("Failed to open stream %s: %v", req.Address, err)
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": err.Error(),
		})
		return
	case err != nil:
		h.logger.Errorf("Failed to open stream %s: %v", req.Address, err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to open stream",
		})
		return
	}

	c.Header("Location", "/api/v1/streams/"+sub.ID)
	c.JSON(http.StatusCreated, toResponse(sub))
}

// List returns every subscription, oldest first.
func (h *StreamHandler) List(c *gin.Context) {
	subs := h.service.List()
	streams := make([]StreamResponse, len(subs))
	for i, sub := range subs {
		streams[i] = toResponse(sub)
	}

	c.JSON(http.StatusOK, gin.H{
		"total_streams": len(streams),
		"streams":       streams,
	})
}

// Get returns one subscription.
func (h *StreamHandler) Get(c *gin.Context) {
	sub, ok := h.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, toResponse(sub))
}

// Events returns the subscription's recorded history.
func (h *StreamHandler) Events(c *gin.Context) {
	sub, ok := h.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, EventsResponse{
		ID:     sub.ID,
		Total:  sub.Feed().Len(),
		Events: sub.Feed().History(),
	})
}

// Close stops the subscription and forgets it.
func (h *StreamHandler) Close(c *gin.Context) {
	id := c.Param("id")
	if err := h.service.Close(id); err != nil {
		if errors.Is(err, stream.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Stream not found"})
			return
		}
		h.logger.Errorf("Failed to close stream %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to close stream"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *StreamHandler) lookup(c *gin.Context) (*facade.Subscription, bool) {
	sub, ok := h.service.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Stream not found"})
		return nil, false
	}
	return sub, true
}
