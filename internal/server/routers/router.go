package routers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pos/orderqueue/internal/server/handlers/queue"
	"pos/orderqueue/internal/server/middlewares"
	"pos/orderqueue/pkg/logger"
)

// SetupRoutes 配置所有路由
func SetupRoutes(queueHandler *queue.Handler, metricsHandler http.Handler, log logger.Logger) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middlewares.Logger(log))
	r.Use(middlewares.ErrorHandler(log))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "orderqueue",
		})
	})

	if metricsHandler != nil {
		r.GET("/metrics", gin.WrapH(metricsHandler))
	}

	api := r.Group("/api")
	{
		api.GET("/queue", queueHandler.GetQueue)
		api.GET("/orders/:id/events", queueHandler.ListEvents)
	}

	return r
}
