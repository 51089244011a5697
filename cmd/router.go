package main

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"go-stream-listener/internal/application/facade"
	"go-stream-listener/internal/infrastructure/logger"
	"go-stream-listener/internal/interfaces/rest/v1/handler"
	"go-stream-listener/internal/interfaces/sse"
)

// InitRouter builds the gin engine with the status, REST and relay routes.
func InitRouter(service *facade.StreamApplicationService, log logger.Logger) http.Handler {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	rootGroup := router.Group("")

	rootGroup.GET("/hub/status", func(c *gin.Context) {
		running := service.IsRunning()
		status := "healthy"
		if !running {
			status = "degraded"
		}
		c.JSON(http.StatusOK, gin.H{
			"status":          status,
			"manager_running": running,
			"connections":     service.ConnectionCount(),
		})
	})

	handler.InitStreamRouter(log, service, rootGroup)
	sse.InitSSERouter(log, service, rootGroup)

	return router
}
