// Package middleware provides HTTP middleware for the sitecontrol API.
package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/zapfragrance/sitecontrol/internal/auth"
)

// ContextKey is the type for context keys used by this package.
type ContextKey string

// SessionContextKey is the gin context key for the authenticated admin session.
const SessionContextKey ContextKey = "admin_session"

// SessionCookies reads the session id from the request cookie.
type SessionCookies interface {
	GetSessionID(r *http.Request) (uuid.UUID, error)
	Clear(r *http.Request, w http.ResponseWriter) error
}

// SessionLookup resolves a session id to a live session.
type SessionLookup interface {
	Lookup(ctx context.Context, id uuid.UUID) (*auth.Session, bool)
}

// AuthMiddleware returns a Gin middleware that requires a live admin session.
// The session id is attached to the request context for downstream checks.
func AuthMiddleware(cookies SessionCookies, guard SessionLookup, logger zerolog.Logger) gin.HandlerFunc {
	log := logger.With().Str("component", "auth_middleware").Logger()

	return func(c *gin.Context) {
		id, err := cookies.GetSessionID(c.Request)
		if err != nil {
			log.Debug().Err(err).Str("path", c.Request.URL.Path).Msg("unauthenticated request")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}

		session, ok := guard.Lookup(c.Request.Context(), id)
		if !ok {
			log.Debug().Str("session_id", id.String()).Msg("session expired or unknown, clearing cookie")
			if clearErr := cookies.Clear(c.Request, c.Writer); clearErr != nil {
				log.Warn().Err(clearErr).Msg("failed to clear stale session")
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "session expired, please log in again"})
			return
		}

		c.Request = c.Request.WithContext(auth.WithSessionID(c.Request.Context(), session.ID))
		c.Set(string(SessionContextKey), session)

		log.Debug().
			Str("admin_id", session.AdminID.String()).
			Str("path", c.Request.URL.Path).
			Msg("authenticated request")

		c.Next()
	}
}

// GetSession retrieves the authenticated admin session from the Gin context.
// Returns nil if no session is present.
func GetSession(c *gin.Context) *auth.Session {
	v, exists := c.Get(string(SessionContextKey))
	if !exists {
		return nil
	}
	s, ok := v.(*auth.Session)
	if !ok {
		return nil
	}
	return s
}
