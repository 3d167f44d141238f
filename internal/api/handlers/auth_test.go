package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zapfragrance/sitecontrol/internal/auth"
)

type mockAuthGuard struct {
	session   *auth.Session
	signInErr error
	signOuts  []uuid.UUID
	lastCreds auth.Credentials
}

func (m *mockAuthGuard) SignIn(_ context.Context, creds auth.Credentials) (*auth.Session, error) {
	m.lastCreds = creds
	if m.signInErr != nil {
		return nil, m.signInErr
	}
	return m.session, nil
}

func (m *mockAuthGuard) SignOut(_ context.Context, id uuid.UUID) error {
	m.signOuts = append(m.signOuts, id)
	return nil
}

type mockCookieWriter struct {
	setErr  error
	written uuid.UUID
	cleared int
}

func (m *mockCookieWriter) SetSessionID(_ *http.Request, w http.ResponseWriter, id uuid.UUID) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.written = id
	http.SetCookie(w, &http.Cookie{Name: "sitecontrol_session", Value: id.String()})
	return nil
}

func (m *mockCookieWriter) Clear(_ *http.Request, _ http.ResponseWriter) error {
	m.cleared++
	return nil
}

func setupAuthTestRouter(guard *mockAuthGuard, cookies *mockCookieWriter, session *auth.Session) http.Handler {
	r, api := SetupTestRouter()
	h := NewAuthHandler(guard, cookies, zerolog.Nop())
	h.RegisterPublicRoutes(api, nil)

	admin := api.Group("")
	admin.Use(InjectSession(session))
	h.RegisterRoutes(admin)
	return r
}

func TestAuthLogin(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		session := testSession()
		guard := &mockAuthGuard{session: session}
		cookies := &mockCookieWriter{}
		r := setupAuthTestRouter(guard, cookies, nil)

		resp := DoRequest(r, JSONRequest("POST", "/api/v1/auth/login",
			`{"email": "owner@zapfragrance.com", "password": "correct horse"}`))
		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

		var got SessionResponse
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &got))
		assert.Equal(t, session.AdminID, got.AdminID)
		assert.Equal(t, session.Email, got.Email)
		assert.WithinDuration(t, session.ExpiresAt, got.ExpiresAt, time.Second)
		assert.Equal(t, session.ID, cookies.written)
		assert.Equal(t, "correct horse", guard.lastCreds.Password)
		assert.NotEmpty(t, resp.Header().Get("Set-Cookie"))
	})

	t.Run("wrong password", func(t *testing.T) {
		guard := &mockAuthGuard{signInErr: auth.ErrInvalidCredentials}
		cookies := &mockCookieWriter{}
		r := setupAuthTestRouter(guard, cookies, nil)

		resp := DoRequest(r, JSONRequest("POST", "/api/v1/auth/login",
			`{"email": "owner@zapfragrance.com", "password": "nope"}`))
		assert.Equal(t, http.StatusUnauthorized, resp.Code)
		assert.Equal(t, uuid.Nil, cookies.written)
	})

	t.Run("store error", func(t *testing.T) {
		guard := &mockAuthGuard{signInErr: errors.New("db down")}
		r := setupAuthTestRouter(guard, &mockCookieWriter{}, nil)

		resp := DoRequest(r, JSONRequest("POST", "/api/v1/auth/login",
			`{"email": "owner@zapfragrance.com", "password": "x"}`))
		assert.Equal(t, http.StatusInternalServerError, resp.Code)
		assert.NotContains(t, resp.Body.String(), "db down")
	})

	t.Run("invalid body", func(t *testing.T) {
		tests := []struct {
			name string
			body string
		}{
			{"missing password", `{"email": "owner@zapfragrance.com"}`},
			{"bad email", `{"email": "owner", "password": "x"}`},
			{"not json", `email=owner`},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				guard := &mockAuthGuard{session: testSession()}
				r := setupAuthTestRouter(guard, &mockCookieWriter{}, nil)

				resp := DoRequest(r, JSONRequest("POST", "/api/v1/auth/login", tt.body))
				assert.Equal(t, http.StatusBadRequest, resp.Code)
				assert.Empty(t, guard.lastCreds.Email)
			})
		}
	})

	t.Run("cookie failure discards the session", func(t *testing.T) {
		session := testSession()
		guard := &mockAuthGuard{session: session}
		cookies := &mockCookieWriter{setErr: errors.New("encode failed")}
		r := setupAuthTestRouter(guard, cookies, nil)

		resp := DoRequest(r, JSONRequest("POST", "/api/v1/auth/login",
			`{"email": "owner@zapfragrance.com", "password": "x"}`))
		assert.Equal(t, http.StatusInternalServerError, resp.Code)
		assert.Equal(t, []uuid.UUID{session.ID}, guard.signOuts)
	})
}

func TestAuthLogout(t *testing.T) {
	t.Run("signs out and clears cookie", func(t *testing.T) {
		session := testSession()
		guard := &mockAuthGuard{}
		cookies := &mockCookieWriter{}
		r := setupAuthTestRouter(guard, cookies, session)

		resp := DoRequest(r, JSONRequest("POST", "/api/v1/auth/logout", ""))
		require.Equal(t, http.StatusOK, resp.Code)
		assert.Equal(t, []uuid.UUID{session.ID}, guard.signOuts)
		assert.Equal(t, 1, cookies.cleared)
	})

	t.Run("no session", func(t *testing.T) {
		guard := &mockAuthGuard{}
		r := setupAuthTestRouter(guard, &mockCookieWriter{}, nil)

		resp := DoRequest(r, JSONRequest("POST", "/api/v1/auth/logout", ""))
		assert.Equal(t, http.StatusUnauthorized, resp.Code)
		assert.Empty(t, guard.signOuts)
	})
}

func TestAuthSession(t *testing.T) {
	session := testSession()
	r := setupAuthTestRouter(&mockAuthGuard{}, &mockCookieWriter{}, session)

	resp := DoRequest(r, JSONRequest("GET", "/api/v1/auth/session", ""))
	require.Equal(t, http.StatusOK, resp.Code)

	var got SessionResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &got))
	assert.Equal(t, session.Email, got.Email)
	assert.Equal(t, session.AdminID, got.AdminID)
}
