package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/zapfragrance/sitecontrol/internal/api/middleware"
	"github.com/zapfragrance/sitecontrol/internal/branding"
	"github.com/zapfragrance/sitecontrol/internal/models"
	"github.com/zapfragrance/sitecontrol/internal/settings"
	"github.com/zapfragrance/sitecontrol/internal/theme"
)

// SettingsManager is the settings state the handlers read and mutate.
type SettingsManager interface {
	Snapshot() models.SiteSettings
	Ready() bool
	SetField(ctx context.Context, field models.Field, value string) error
	Reset(ctx context.Context) error
	Save(ctx context.Context) error
	UploadAsset(ctx context.Context, asset models.UploadedAsset) (string, error)
}

// SettingsStream upgrades a request to the live settings stream.
type SettingsStream interface {
	HandleWebSocket(w http.ResponseWriter, r *http.Request)
}

// SettingsHandler handles site settings HTTP endpoints.
type SettingsHandler struct {
	manager        SettingsManager
	stream         SettingsStream
	maxUploadBytes int64
	logger         zerolog.Logger
}

// NewSettingsHandler creates a new SettingsHandler. stream may be nil.
func NewSettingsHandler(manager SettingsManager, stream SettingsStream, maxUploadBytes int64, logger zerolog.Logger) *SettingsHandler {
	return &SettingsHandler{
		manager:        manager,
		stream:         stream,
		maxUploadBytes: maxUploadBytes,
		logger:         logger.With().Str("component", "settings_handler").Logger(),
	}
}

// RegisterPublicRoutes registers the read-only settings routes.
func (h *SettingsHandler) RegisterPublicRoutes(r *gin.RouterGroup) {
	r.GET("/settings", h.Get)
	if h.stream != nil {
		r.GET("/settings/stream", h.Stream)
	}
}

// RegisterRoutes registers the admin settings routes on an authenticated group.
func (h *SettingsHandler) RegisterRoutes(r *gin.RouterGroup) {
	s := r.Group("/settings")
	{
		s.PATCH("", h.Update)
		s.POST("/reset", h.Reset)
		s.POST("/save", h.Save)
		s.POST("/assets/:role", h.UploadAsset)
	}
}

// SettingsResponse is the settings snapshot with its derived presentation variables.
type SettingsResponse struct {
	Settings  models.SiteSettings `json:"settings"`
	Variables theme.Variables     `json:"variables"`
	Ready     bool                `json:"ready"`
}

// UpdateSettingsRequest is the request body for changing any subset of fields.
type UpdateSettingsRequest struct {
	AccentColor   *string `json:"accent_color,omitempty"`
	DayImageURL   *string `json:"day_image_url,omitempty"`
	NightImageURL *string `json:"night_image_url,omitempty"`
	ThemeMode     *string `json:"theme_mode,omitempty"`
}

// changes returns the requested field updates in a fixed order.
func (r UpdateSettingsRequest) changes() []fieldChange {
	var out []fieldChange
	add := func(f models.Field, v *string) {
		if v != nil {
			out = append(out, fieldChange{field: f, value: *v})
		}
	}
	add(models.FieldAccentColor, r.AccentColor)
	add(models.FieldDayImageURL, r.DayImageURL)
	add(models.FieldNightImageURL, r.NightImageURL)
	add(models.FieldDisplayMode, r.ThemeMode)
	return out
}

type fieldChange struct {
	field models.Field
	value string
}

// UploadAssetResponse is returned after a successful image upload.
type UploadAssetResponse struct {
	Role models.AssetRole `json:"role"`
	URL  string           `json:"url"`
}

func (h *SettingsHandler) respond(c *gin.Context) {
	s := h.manager.Snapshot()
	c.JSON(http.StatusOK, SettingsResponse{
		Settings:  s,
		Variables: theme.DeriveVariables(s),
		Ready:     h.manager.Ready(),
	})
}

// Get returns the current settings.
// GET /api/v1/settings
func (h *SettingsHandler) Get(c *gin.Context) {
	h.respond(c)
}

// ThemeCSS renders the derived variables as a stylesheet.
// GET /theme.css
func (h *SettingsHandler) ThemeCSS(c *gin.Context) {
	css := theme.DeriveVariables(h.manager.Snapshot()).CSS()
	c.Header("Cache-Control", "no-cache")
	c.Data(http.StatusOK, "text/css; charset=utf-8", []byte(css))
}

// Stream upgrades to the live settings WebSocket.
// GET /api/v1/settings/stream
func (h *SettingsHandler) Stream(c *gin.Context) {
	h.stream.HandleWebSocket(c.Writer, c.Request)
}

// Update changes the given fields in memory. Nothing is persisted until save.
// PATCH /api/v1/settings
func (h *SettingsHandler) Update(c *gin.Context) {
	var req UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	changes := req.changes()
	if len(changes) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no fields to update"})
		return
	}

	// Reject the whole request before touching state.
	for _, ch := range changes {
		if err := branding.ValidateField(ch.field, ch.value); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "field": ch.field})
			return
		}
	}

	for _, ch := range changes {
		if err := h.manager.SetField(c.Request.Context(), ch.field, ch.value); err != nil {
			h.writeError(c, err, "failed to update settings")
			return
		}
	}

	h.logger.Info().
		Str("admin", adminEmail(c)).
		Int("fields", len(changes)).
		Msg("site settings updated")
	h.respond(c)
}

// Reset restores the defaults in memory.
// POST /api/v1/settings/reset
func (h *SettingsHandler) Reset(c *gin.Context) {
	if err := h.manager.Reset(c.Request.Context()); err != nil {
		h.writeError(c, err, "failed to reset settings")
		return
	}
	h.respond(c)
}

// Save persists the current settings to the local cache and the remote store.
// POST /api/v1/settings/save
func (h *SettingsHandler) Save(c *gin.Context) {
	if err := h.manager.Save(c.Request.Context()); err != nil {
		h.writeError(c, err, "failed to save settings")
		return
	}
	h.logger.Info().Str("admin", adminEmail(c)).Msg("site settings saved")
	h.respond(c)
}

// UploadAsset stores a background image and points the role's field at it.
// POST /api/v1/settings/assets/:role
func (h *SettingsHandler) UploadAsset(c *gin.Context) {
	role := models.AssetRole(c.Param("role"))
	if !role.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "role must be day or night"})
		return
	}

	if h.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	}

	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart field 'file' is required"})
		return
	}

	f, err := fh.Open()
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to open uploaded file")
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable upload"})
		return
	}
	defer f.Close()

	url, err := h.manager.UploadAsset(c.Request.Context(), models.UploadedAsset{
		Role:        role,
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Body:        f,
	})
	if err != nil {
		h.writeError(c, err, "failed to upload asset")
		return
	}

	c.JSON(http.StatusOK, UploadAssetResponse{Role: role, URL: url})
}

// writeError maps settings errors onto HTTP statuses.
func (h *SettingsHandler) writeError(c *gin.Context, err error, msg string) {
	switch {
	case errors.Is(err, settings.ErrAuthFailed):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
	case errors.Is(err, settings.ErrValidationRejected):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, settings.ErrRemoteUnavailable), errors.Is(err, settings.ErrUploadFailed):
		h.logger.Error().Err(err).Msg(msg)
		c.JSON(http.StatusBadGateway, gin.H{"error": msg})
	default:
		h.logger.Error().Err(err).Msg(msg)
		c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
	}
}

func adminEmail(c *gin.Context) string {
	if s := middleware.GetSession(c); s != nil {
		return s.Email
	}
	return ""
}
