package sse

import (
	"github.com/gin-gonic/gin"

	"go-stream-listener/internal/application/facade"
	"go-stream-listener/internal/infrastructure/logger"
)

// InitSSERouter registers the /sse relay routes on rg.
func InitSSERouter(logger logger.Logger, service *facade.StreamApplicationService, rg *gin.RouterGroup) {
	relayHandler := NewRelayHandler(service, logger)

	sseGroup := rg.Group("/sse")
	sseGroup.GET("/:id", SSEHeadersMiddleware(), relayHandler.Relay)
}
