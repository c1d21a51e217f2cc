package api

import (
	"github.com/gin-gonic/gin"
)

// NewServer creates the status HTTP server with all routes configured.
func NewServer(handler *Handler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", handler.HealthCheck)
	r.GET("/stats", handler.GetStats)
	r.GET("/feeds", handler.ListFeeds)

	return r
}
