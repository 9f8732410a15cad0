package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pos/orderqueue/pkg/ginx"
	"pos/orderqueue/pkg/logger"
)

// ErrorHandler 统一错误处理中间件
func ErrorHandler(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last()
		log.Errorf(c.Request.Context(), "[Server] request failed: %v", err)
		if !c.Writer.Written() {
			ginx.Error(c, http.StatusInternalServerError, err.Error())
		}
	}
}
