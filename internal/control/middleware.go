package control

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// requestLogger logs each request through a structured *logrus.Entry
// rather than the standard logger, so request fields interleave with
// the rest of the node's logs.
func requestLogger(log *logrus.Entry) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start),
			"client":   c.ClientIP(),
		}).Info("request")
	}
}

// recovery turns a panic inside a handler into a 500 envelope instead
// of crashing the daemon.
func recovery(log *logrus.Entry) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if v := recover(); v != nil {
				log.WithField("panic", v).Error("recovered panic in handler")
				fail(c, 500, "internal server error", nil)
				c.Abort()
			}
		}()
		c.Next()
	}
}
