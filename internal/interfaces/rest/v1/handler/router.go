package handler

import (
	"github.com/gin-gonic/gin"

	"go-stream-listener/internal/application/facade"
	"go-stream-listener/internal/infrastructure/logger"
)

// InitStreamRouter registers the /api/v1/streams routes on rg.
func InitStreamRouter(logger logger.Logger, service *facade.StreamApplicationService, rg *gin.RouterGroup) {
	streamHandler := NewStreamHandler(service, logger)

	apiGroup := rg.Group("/api/v1/streams")
	apiGroup.POST("", streamHandler.Open)
	apiGroup.GET("", streamHandler.List)
	apiGroup.GET("/:id", streamHandler.Get)
	apiGroup.GET("/:id/events", streamHandler.Events)
	apiGroup.DELETE("/:id", streamHandler.Close)
}
