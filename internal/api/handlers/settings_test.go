package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zapfragrance/sitecontrol/internal/auth"
	"github.com/zapfragrance/sitecontrol/internal/models"
	"github.com/zapfragrance/sitecontrol/internal/settings"
	"github.com/zapfragrance/sitecontrol/internal/theme"
)

type mockSettingsManager struct {
	current   models.SiteSettings
	ready     bool
	setCalls  []string
	saveErr   error
	uploadErr error
	uploaded  []byte
	resets    int
	saves     int
}

func newMockSettingsManager() *mockSettingsManager {
	return &mockSettingsManager{current: models.DefaultSiteSettings(), ready: true}
}

func (m *mockSettingsManager) authorized(ctx context.Context) bool {
	_, ok := auth.SessionIDFromContext(ctx)
	return ok
}

func (m *mockSettingsManager) Snapshot() models.SiteSettings { return m.current }
func (m *mockSettingsManager) Ready() bool                   { return m.ready }

func (m *mockSettingsManager) SetField(ctx context.Context, field models.Field, value string) error {
	if !m.authorized(ctx) {
		return settings.ErrAuthFailed
	}
	m.setCalls = append(m.setCalls, string(field)+"="+value)
	switch field {
	case models.FieldAccentColor:
		m.current.AccentColor = value
	case models.FieldDayImageURL:
		m.current.DayImageURL = value
	case models.FieldNightImageURL:
		m.current.NightImageURL = value
	case models.FieldDisplayMode:
		m.current.DisplayMode = models.DisplayMode(value)
	}
	return nil
}

func (m *mockSettingsManager) Reset(ctx context.Context) error {
	if !m.authorized(ctx) {
		return settings.ErrAuthFailed
	}
	m.resets++
	m.current = models.DefaultSiteSettings()
	return nil
}

func (m *mockSettingsManager) Save(ctx context.Context) error {
	if !m.authorized(ctx) {
		return settings.ErrAuthFailed
	}
	m.saves++
	return m.saveErr
}

func (m *mockSettingsManager) UploadAsset(ctx context.Context, asset models.UploadedAsset) (string, error) {
	if !m.authorized(ctx) {
		return "", settings.ErrAuthFailed
	}
	if m.uploadErr != nil {
		return "", m.uploadErr
	}
	data, err := io.ReadAll(asset.Body)
	if err != nil {
		return "", err
	}
	m.uploaded = data
	url := "https://cdn.example.com/brand-assets/" + string(asset.Role) + "-x.jpg"
	if asset.Role == models.AssetRoleNight {
		m.current.NightImageURL = url
	} else {
		m.current.DayImageURL = url
	}
	return url, nil
}

func setupSettingsTestRouter(m *mockSettingsManager, session *auth.Session) http.Handler {
	r, api := SetupTestRouter()
	h := NewSettingsHandler(m, nil, 1<<20, zerolog.Nop())
	r.GET("/theme.css", h.ThemeCSS)
	h.RegisterPublicRoutes(api)

	admin := api.Group("")
	admin.Use(InjectSession(session))
	h.RegisterRoutes(admin)
	return r
}

func decodeSettings(t *testing.T, body []byte) SettingsResponse {
	t.Helper()
	var resp SettingsResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	return resp
}

func TestSettingsGet(t *testing.T) {
	m := newMockSettingsManager()
	m.current.DisplayMode = models.DisplayModeNight
	m.ready = false
	r := setupSettingsTestRouter(m, nil)

	resp := DoRequest(r, JSONRequest("GET", "/api/v1/settings", ""))
	require.Equal(t, http.StatusOK, resp.Code)

	got := decodeSettings(t, resp.Body.Bytes())
	assert.Equal(t, models.DisplayModeNight, got.Settings.DisplayMode)
	assert.False(t, got.Ready)
	assert.Equal(t, theme.NightPalette[theme.VarBgPrimary], got.Variables[theme.VarBgPrimary])
	assert.Equal(t, models.DefaultAccentColor, got.Variables[theme.VarBtnBg])
}

func TestThemeCSS(t *testing.T) {
	m := newMockSettingsManager()
	m.current.AccentColor = "#FF0000"
	r := setupSettingsTestRouter(m, nil)

	resp := DoRequest(r, JSONRequest("GET", "/theme.css", ""))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "text/css; charset=utf-8", resp.Header().Get("Content-Type"))

	body := resp.Body.String()
	assert.True(t, strings.HasPrefix(body, ":root {"))
	assert.Contains(t, body, "--brand-accent: #FF0000;")
	assert.Contains(t, body, "--brand-accent-light: #FF000020;")
}

func TestSettingsUpdate(t *testing.T) {
	t.Run("sets the given fields in order", func(t *testing.T) {
		m := newMockSettingsManager()
		r := setupSettingsTestRouter(m, testSession())

		resp := DoRequest(r, JSONRequest("PATCH", "/api/v1/settings", `{
			"theme_mode": "night",
			"accent_color": "#FF0000"
		}`))
		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

		assert.Equal(t, []string{"accent_color=#FF0000", "theme_mode=night"}, m.setCalls)
		got := decodeSettings(t, resp.Body.Bytes())
		assert.Equal(t, "#FF0000", got.Settings.AccentColor)
		assert.Equal(t, "#FF0000", got.Variables[theme.VarBtnBg])
		assert.Zero(t, m.saves)
	})

	t.Run("rejects invalid values without changing anything", func(t *testing.T) {
		tests := []struct {
			name string
			body string
		}{
			{"bad color", `{"accent_color": "red", "theme_mode": "night"}`},
			{"bad mode", `{"accent_color": "#FF0000", "theme_mode": "dusk"}`},
			{"bad url", `{"day_image_url": "ftp://example.com/a.jpg"}`},
			{"empty url", `{"night_image_url": ""}`},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				m := newMockSettingsManager()
				r := setupSettingsTestRouter(m, testSession())

				resp := DoRequest(r, JSONRequest("PATCH", "/api/v1/settings", tt.body))
				assert.Equal(t, http.StatusBadRequest, resp.Code)
				assert.Empty(t, m.setCalls)
			})
		}
	})

	t.Run("empty body", func(t *testing.T) {
		m := newMockSettingsManager()
		r := setupSettingsTestRouter(m, testSession())

		resp := DoRequest(r, JSONRequest("PATCH", "/api/v1/settings", `{}`))
		assert.Equal(t, http.StatusBadRequest, resp.Code)
	})

	t.Run("malformed json", func(t *testing.T) {
		m := newMockSettingsManager()
		r := setupSettingsTestRouter(m, testSession())

		resp := DoRequest(r, JSONRequest("PATCH", "/api/v1/settings", `{"accent_color":`))
		assert.Equal(t, http.StatusBadRequest, resp.Code)
	})

	t.Run("no session", func(t *testing.T) {
		m := newMockSettingsManager()
		r := setupSettingsTestRouter(m, nil)

		resp := DoRequest(r, JSONRequest("PATCH", "/api/v1/settings", `{"accent_color": "#FF0000"}`))
		assert.Equal(t, http.StatusUnauthorized, resp.Code)
		assert.Equal(t, models.DefaultAccentColor, m.current.AccentColor)
	})
}

func TestSettingsReset(t *testing.T) {
	m := newMockSettingsManager()
	m.current.AccentColor = "#000000"
	m.current.DisplayMode = models.DisplayModeNight
	r := setupSettingsTestRouter(m, testSession())

	resp := DoRequest(r, JSONRequest("POST", "/api/v1/settings/reset", ""))
	require.Equal(t, http.StatusOK, resp.Code)

	got := decodeSettings(t, resp.Body.Bytes())
	assert.Equal(t, models.DisplayModeUnset, got.Settings.DisplayMode)
	assert.Equal(t, models.DefaultAccentColor, got.Settings.AccentColor)
	assert.Equal(t, 1, m.resets)
}

func TestSettingsSave(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		m := newMockSettingsManager()
		r := setupSettingsTestRouter(m, testSession())

		resp := DoRequest(r, JSONRequest("POST", "/api/v1/settings/save", ""))
		assert.Equal(t, http.StatusOK, resp.Code)
		assert.Equal(t, 1, m.saves)
	})

	t.Run("remote unavailable is a bad gateway", func(t *testing.T) {
		m := newMockSettingsManager()
		m.saveErr = fmt.Errorf("save settings: %w: connection refused", settings.ErrRemoteUnavailable)
		r := setupSettingsTestRouter(m, testSession())

		resp := DoRequest(r, JSONRequest("POST", "/api/v1/settings/save", ""))
		assert.Equal(t, http.StatusBadGateway, resp.Code)
		assert.NotContains(t, resp.Body.String(), "connection refused")
	})

	t.Run("unexpected error", func(t *testing.T) {
		m := newMockSettingsManager()
		m.saveErr = fmt.Errorf("boom")
		r := setupSettingsTestRouter(m, testSession())

		resp := DoRequest(r, JSONRequest("POST", "/api/v1/settings/save", ""))
		assert.Equal(t, http.StatusInternalServerError, resp.Code)
	})

	t.Run("no session", func(t *testing.T) {
		m := newMockSettingsManager()
		r := setupSettingsTestRouter(m, nil)

		resp := DoRequest(r, JSONRequest("POST", "/api/v1/settings/save", ""))
		assert.Equal(t, http.StatusUnauthorized, resp.Code)
		assert.Zero(t, m.saves)
	})
}

func TestSettingsUploadAsset(t *testing.T) {
	t.Run("day upload", func(t *testing.T) {
		m := newMockSettingsManager()
		r := setupSettingsTestRouter(m, testSession())

		resp := DoRequest(r, MultipartRequest("/api/v1/settings/assets/day", "file", "beach.jpg", []byte("jpeg-bytes")))
		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

		var got UploadAssetResponse
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &got))
		assert.Equal(t, models.AssetRoleDay, got.Role)
		assert.Equal(t, m.current.DayImageURL, got.URL)
		assert.Equal(t, models.DefaultNightImageURL, m.current.NightImageURL)
		assert.Equal(t, []byte("jpeg-bytes"), m.uploaded)
	})

	t.Run("invalid role", func(t *testing.T) {
		m := newMockSettingsManager()
		r := setupSettingsTestRouter(m, testSession())

		resp := DoRequest(r, MultipartRequest("/api/v1/settings/assets/dusk", "file", "a.jpg", []byte("x")))
		assert.Equal(t, http.StatusBadRequest, resp.Code)
	})

	t.Run("missing file field", func(t *testing.T) {
		m := newMockSettingsManager()
		r := setupSettingsTestRouter(m, testSession())

		resp := DoRequest(r, MultipartRequest("/api/v1/settings/assets/night", "", "", nil))
		assert.Equal(t, http.StatusBadRequest, resp.Code)
	})

	t.Run("store failure is a bad gateway", func(t *testing.T) {
		m := newMockSettingsManager()
		m.uploadErr = fmt.Errorf("upload asset: %w: bucket missing", settings.ErrUploadFailed)
		r := setupSettingsTestRouter(m, testSession())

		resp := DoRequest(r, MultipartRequest("/api/v1/settings/assets/night", "file", "stars.png", []byte("png")))
		assert.Equal(t, http.StatusBadGateway, resp.Code)
		assert.Equal(t, models.DefaultNightImageURL, m.current.NightImageURL)
	})

	t.Run("no session", func(t *testing.T) {
		m := newMockSettingsManager()
		r := setupSettingsTestRouter(m, nil)

		resp := DoRequest(r, MultipartRequest("/api/v1/settings/assets/day", "file", "a.jpg", []byte("x")))
		assert.Equal(t, http.StatusUnauthorized, resp.Code)
	})
}
