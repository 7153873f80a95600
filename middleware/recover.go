package middleware

import (
	"food-ordering-api/apperror"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Recover middleware
func Recover(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error("PANIC recovered",
					zap.Any("error", rec),
					zap.String("path", c.Request.URL.Path),
					zap.String("method", c.Request.Method),
					zap.Stack("stack"),
				)
				AbortWithError(c, apperror.New(apperror.Internal, "internal server error"))
			}
		}()
		c.Next()
	}
}
