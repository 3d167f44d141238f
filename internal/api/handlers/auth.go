// Package handlers provides HTTP handlers for the sitecontrol API.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/zapfragrance/sitecontrol/internal/api/middleware"
	"github.com/zapfragrance/sitecontrol/internal/auth"
	"github.com/zapfragrance/sitecontrol/internal/models"
)

// AuthGuard opens and closes admin sessions.
type AuthGuard interface {
	SignIn(ctx context.Context, creds auth.Credentials) (*auth.Session, error)
	SignOut(ctx context.Context, id uuid.UUID) error
}

// SessionCookieWriter writes and clears the admin session cookie.
type SessionCookieWriter interface {
	SetSessionID(r *http.Request, w http.ResponseWriter, id uuid.UUID) error
	Clear(r *http.Request, w http.ResponseWriter) error
}

// AuthHandler handles authentication-related HTTP endpoints.
type AuthHandler struct {
	guard   AuthGuard
	cookies SessionCookieWriter
	logger  zerolog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(guard AuthGuard, cookies SessionCookieWriter, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		guard:   guard,
		cookies: cookies,
		logger:  logger.With().Str("component", "auth_handler").Logger(),
	}
}

// RegisterPublicRoutes registers the login route. limiter may be nil.
func (h *AuthHandler) RegisterPublicRoutes(r *gin.RouterGroup, limiter gin.HandlerFunc) {
	handlers := []gin.HandlerFunc{h.Login}
	if limiter != nil {
		handlers = append([]gin.HandlerFunc{limiter}, handlers...)
	}
	r.POST("/auth/login", handlers...)
}

// RegisterRoutes registers session routes on an authenticated group.
func (h *AuthHandler) RegisterRoutes(r *gin.RouterGroup) {
	a := r.Group("/auth")
	{
		a.POST("/logout", h.Logout)
		a.GET("/session", h.Session)
	}
}

// SessionResponse describes the caller's admin session.
type SessionResponse struct {
	AdminID         uuid.UUID `json:"admin_id"`
	Email           string    `json:"email"`
	AuthenticatedAt time.Time `json:"authenticated_at"`
	ExpiresAt       time.Time `json:"expires_at"`
}

func newSessionResponse(s *auth.Session) SessionResponse {
	return SessionResponse{
		AdminID:         s.AdminID,
		Email:           s.Email,
		AuthenticatedAt: s.AuthenticatedAt,
		ExpiresAt:       s.ExpiresAt,
	}
}

// Login signs an admin in with email and password.
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.PasswordLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return
	}

	session, err := h.guard.SignIn(c.Request.Context(), auth.Credentials{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
			return
		}
		h.logger.Error().Err(err).Msg("sign in failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "sign in failed"})
		return
	}

	if err := h.cookies.SetSessionID(c.Request, c.Writer, session.ID); err != nil {
		h.logger.Error().Err(err).Msg("failed to write session cookie")
		if signOutErr := h.guard.SignOut(c.Request.Context(), session.ID); signOutErr != nil {
			h.logger.Warn().Err(signOutErr).Msg("failed to discard orphaned session")
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "sign in failed"})
		return
	}

	c.JSON(http.StatusOK, newSessionResponse(session))
}

// Logout ends the caller's session and clears the cookie.
// POST /api/v1/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	session := middleware.GetSession(c)
	if session == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	if err := h.guard.SignOut(c.Request.Context(), session.ID); err != nil {
		h.logger.Error().Err(err).Msg("sign out failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "sign out failed"})
		return
	}
	if err := h.cookies.Clear(c.Request, c.Writer); err != nil {
		h.logger.Warn().Err(err).Msg("failed to clear session cookie")
	}

	c.JSON(http.StatusOK, gin.H{"message": "signed out"})
}

// Session returns the caller's session.
// GET /api/v1/auth/session
func (h *AuthHandler) Session(c *gin.Context) {
	session := middleware.GetSession(c)
	if session == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	c.JSON(http.StatusOK, newSessionResponse(session))
}
