package server

import (
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/paperia/internal/common"
)

const (
	headerRequestID    = "X-Request-ID"
	headerOrganization = "X-Organization-ID"
)

// requestContext tags every request with an id and the optional tenant
// header so services and log lines can pick them up from the context.
func requestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := strings.TrimSpace(c.GetHeader(headerRequestID))
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Header(headerRequestID, rid)

		ctx := common.WithRequestID(c.Request.Context(), rid)
		if org := strings.TrimSpace(c.GetHeader(headerOrganization)); org != "" {
			ctx = common.WithOrganizationID(ctx, org)
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// observe records metrics and an access log line per request. The route
// template, not the raw path, is used as the metric label.
func observe(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		elapsed := time.Since(start)

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		httpRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, route).Observe(elapsed.Seconds())

		level := slog.LevelInfo
		if status >= 500 {
			level = slog.LevelError
		}
		logger.Log(c.Request.Context(), level, "http.request",
			"request_id", common.RequestIDFromContext(c.Request.Context()),
			"method", c.Request.Method,
			"route", route,
			"status", status,
			"elapsed_ms", elapsed.Milliseconds(),
		)
	}
}

// recovery turns panics into 500s and logs them.
func recovery(logger *slog.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, err any) {
		logger.Error("http.panic", "request_id", common.RequestIDFromContext(c.Request.Context()), "panic", err)
		c.AbortWithStatusJSON(500, common.ErrorEnvelope{Status: "error", Message: "internal error"})
	})
}
