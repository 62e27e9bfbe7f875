package httpapi

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/cuadra-dev/cuadra/internal/apperr"
	"github.com/cuadra-dev/cuadra/internal/logger"
)

// HeaderRequestID carries the request ID in and out.
const HeaderRequestID = "X-Request-ID"

// codeInternal is reported for errors outside the apperr taxonomy.
const codeInternal = "INTERNAL"

// requestID tags the request context logger with a request ID, taken from
// the client or generated.
func requestID(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" {
			id = uuid.New().String()
		}
		ctx := logger.WithLogger(c.Request.Context(), log.With("request_id", id))
		c.Request = c.Request.WithContext(ctx)
		c.Set("request_id", id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

// accessLog logs each request with timing and status.
func accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info(c.Request.Context(), "http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"query", c.Request.URL.RawQuery,
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		)
	}
}

// recovery turns a panic into a 500 without exposing details.
func recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error(c.Request.Context(), "panic recovered",
					"error", r,
					"stack", string(debug.Stack()),
				)
				_ = c.Error(fmt.Errorf("panic: %v", r))
				c.Abort()
			}
		}()
		c.Next()
	}
}

// errorHandler renders the last handler error as an ErrorResponse.
// Handlers only register errors with c.Error.
func errorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err

		if code := apperr.CodeOf(err); code != "" {
			status := apperr.HTTPStatus(err)
			if apperr.IsFault(err) {
				logger.Error(c.Request.Context(), "request fault", "code", code, "error", err, "fault", true)
			} else {
				logger.Debug(c.Request.Context(), "request rejected", "code", code, "error", err)
			}
			c.JSON(status, ErrorResponse{Code: code, Message: err.Error()})
			return
		}

		logger.Error(c.Request.Context(), "unhandled error", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    codeInternal,
			Message: "internal server error",
		})
	}
}
