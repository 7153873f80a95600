package middleware

import (
	"time"

	"food-ordering-api/apperror"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Logger middleware
func Logger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("query", c.Request.URL.RawQuery),
			zap.Int("status", c.Writer.Status()),
			zap.Int("bytes", c.Writer.Size()),
			zap.Duration("duration", time.Since(start)),
			zap.String("ip", c.ClientIP()),
			zap.String("user_agent", c.Request.UserAgent()),
		}
		if uid := GetUserID(c); uid != "" {
			fields = append(fields, zap.String("user_id", uid))
		}

		if err := c.Errors.Last(); err != nil {
			fields = append(fields, zap.Error(err.Err))
			if apperror.KindOf(err.Err) == apperror.Internal {
				logger.Error("HTTP request", fields...)
				return
			}
		}
		logger.Info("HTTP request", fields...)
	}
}
