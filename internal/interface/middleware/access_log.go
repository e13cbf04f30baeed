package middleware

import (
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/user-management-api/pkg/response"
)

const MsgInternal = "internal server error"

// AccessLog writes one structured line per request. Query strings and
// headers are not logged since they may carry credentials.
func AccessLog(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := logrus.Fields{
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"route":       c.FullPath(),
			"status":      status,
			"duration_ms": float64(time.Since(start).Microseconds()) / 1000,
			"ip":          clientIP(c),
			"request_id":  c.GetString(response.RequestIDKey),
		}
		if id, ok := IdentityFrom(c.Request.Context()); ok {
			fields["user_id"] = id.UserID
		}

		entry := logger.WithFields(fields)
		switch {
		case status >= http.StatusInternalServerError:
			entry.Error("http_request")
		case status >= http.StatusBadRequest:
			entry.Warn("http_request")
		default:
			entry.Info("http_request")
		}
	}
}

// Recovery converts panics into a JSON 500 and logs the stack.
func Recovery(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.WithFields(logrus.Fields{
					"panic":      rec,
					"method":     c.Request.Method,
					"path":       c.Request.URL.Path,
					"request_id": c.GetString(response.RequestIDKey),
					"stack":      string(debug.Stack()),
				}).Error("panic recovered")
				if !c.Writer.Written() {
					response.Error(c, http.StatusInternalServerError, MsgInternal, nil)
					return
				}
				c.Abort()
			}
		}()
		c.Next()
	}
}
