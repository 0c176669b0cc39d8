package gateway

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/example/storefront/pkg/apperr"
	"github.com/example/storefront/pkg/metrics"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	// CustomerHeader carries the caller's Telegram user id, set by the mini app.
	CustomerHeader = "X-Telegram-Id"

	customerKey = "customer_id"
)

func loggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

func metricsMiddleware(rec *metrics.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		rec.ObserveRequest(c.Request.Method+" "+route,
			strconv.Itoa(c.Writer.Status()),
			float64(time.Since(start).Microseconds())/1000)
	}
}

// customerMiddleware resolves the caller identity attached by the front-end.
func customerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(CustomerHeader))
		if raw == "" {
			abortWithError(c, apperr.New(apperr.Unauthorized, "auth", "%s header is required", CustomerHeader))
			return
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			abortWithError(c, apperr.New(apperr.Validation, "auth", "invalid %s header", CustomerHeader))
			return
		}
		c.Set(customerKey, id)
		c.Next()
	}
}

func adminMiddleware(adminID int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if adminID == 0 || customerID(c) != adminID {
			abortWithError(c, apperr.New(apperr.Forbidden, "auth", "Admin access required"))
			return
		}
		c.Next()
	}
}

func customerID(c *gin.Context) int64 {
	return c.GetInt64(customerKey)
}

func abortWithError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	c.AbortWithStatusJSON(statusFor(kind), errorResponse{
		Error: apperr.Message(err),
		Kind:  kind.String(),
	})
}

func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.Validation:
		return http.StatusBadRequest
	case apperr.Unauthorized:
		return http.StatusUnauthorized
	case apperr.Forbidden:
		return http.StatusForbidden
	case apperr.NotFound:
		return http.StatusNotFound
	case apperr.InvalidState:
		return http.StatusConflict
	case apperr.Configuration:
		return http.StatusPreconditionFailed
	case apperr.Gateway, apperr.GatewayProtocol:
		return http.StatusBadGateway
	case apperr.GatewayUnavailable:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// respondError writes err using its kind. Server-side failures are logged
// and their detail is not sent to the client.
func (g *Gateway) respondError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	status := statusFor(kind)
	if status >= http.StatusInternalServerError {
		g.logger.Error("Request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("kind", kind.String()),
			zap.Error(err))
	}
	abortWithError(c, err)
}
