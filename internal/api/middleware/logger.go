package middleware

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// sensitiveParams lists query parameter names whose values must be redacted from logs.
var sensitiveParams = map[string]bool{
	"token":    true,
	"key":      true,
	"secret":   true,
	"password": true,
	"email":    true,
}

// redactQueryString replaces values of known sensitive query parameters with [REDACTED].
func redactQueryString(rawQuery string) string {
	if rawQuery == "" {
		return ""
	}

	params, err := url.ParseQuery(rawQuery)
	if err != nil {
		return rawQuery
	}

	redacted := false
	for name, values := range params {
		if sensitiveParams[strings.ToLower(name)] {
			for i := range values {
				values[i] = "[REDACTED]"
			}
			params[name] = values
			redacted = true
		}
	}

	if !redacted {
		return rawQuery
	}

	return params.Encode()
}

// probePaths are polled by load balancers and scrapers; successful hits log at debug.
var probePaths = map[string]bool{
	"/healthz":    true,
	"/healthz/db": true,
	"/metrics":    true,
}

// RequestObserver records request latency. Implemented by internal/metrics.
type RequestObserver interface {
	ObserveRequest(method, route, status string, seconds float64)
}

// RequestLogger returns a middleware that logs HTTP requests using zerolog and,
// when obs is non-nil, records their latency.
func RequestLogger(logger zerolog.Logger, obs RequestObserver) gin.HandlerFunc {
	log := logger.With().Str("component", "http").Logger()

	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := redactQueryString(c.Request.URL.RawQuery)

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		if obs != nil {
			route := c.FullPath()
			if route == "" {
				route = "unmatched"
			}
			obs.ObserveRequest(c.Request.Method, route, strconv.Itoa(status), latency.Seconds())
		}

		var event *zerolog.Event
		switch {
		case status >= 500:
			event = log.Error()
		case status >= 400:
			event = log.Warn()
		case probePaths[path]:
			event = log.Debug()
		default:
			event = log.Info()
		}

		if session := GetSession(c); session != nil {
			event = event.Str("admin_id", session.AdminID.String())
		}

		event.
			Str("method", c.Request.Method).
			Str("path", path).
			Str("query", query).
			Int("status", status).
			Dur("latency", latency).
			Str("client_ip", c.ClientIP()).
			Int("body_size", c.Writer.Size()).
			Msg("request")
	}
}
