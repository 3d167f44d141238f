package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/zapfragrance/sitecontrol/internal/models"
)

// AuditStore persists audit log entries.
type AuditStore interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// auditedRoutes maps method and route pattern to the audited action.
var auditedRoutes = map[string]models.AuditAction{
	http.MethodPatch + " /api/v1/settings":             models.AuditActionUpdate,
	http.MethodPost + " /api/v1/settings/reset":        models.AuditActionReset,
	http.MethodPost + " /api/v1/settings/save":         models.AuditActionSave,
	http.MethodPost + " /api/v1/settings/assets/:role": models.AuditActionUploadAsset,
	http.MethodPost + " /api/v1/auth/logout":           models.AuditActionSignOut,
}

// auditAction returns the action recorded for a request, or "" when it is not audited.
func auditAction(method, route string) models.AuditAction {
	return auditedRoutes[method+" "+route]
}

// AuditMiddleware records admin changes to the site settings. It must run after
// AuthMiddleware so the session is known. Entries are written asynchronously.
func AuditMiddleware(store AuditStore, logger zerolog.Logger) gin.HandlerFunc {
	log := logger.With().Str("component", "audit_middleware").Logger()

	return func(c *gin.Context) {
		c.Next()

		action := auditAction(c.Request.Method, c.FullPath())
		if action == "" {
			return
		}

		// Logout removes the session before we get here, so read it from the gin context.
		session := GetSession(c)
		if session == nil {
			return
		}

		entry := models.NewAuditLog(session.AdminID, session.Email, action, c.Writer.Status()).
			WithRequestInfo(c.ClientIP(), c.Request.UserAgent())

		go func(entry *models.AuditLog) {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := store.CreateAuditLog(ctx, entry); err != nil {
				log.Error().Err(err).
					Str("action", string(entry.Action)).
					Str("admin", entry.AdminEmail).
					Msg("failed to create audit log")
			}
		}(entry)
	}
}
