package auth

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/rs/zerolog"
)

const (
	// CookieName is the name of the admin session cookie.
	CookieName = "sitecontrol_session"
	// sessionIDValue is the cookie value key holding the registry session id.
	sessionIDValue = "sid"
)

// CookieConfig holds session cookie configuration.
type CookieConfig struct {
	Secret     []byte
	MaxAge     int  // seconds
	Secure     bool // require HTTPS
	HTTPOnly   bool // prevent JavaScript access
	SameSite   http.SameSite
	CookiePath string
}

// DefaultCookieConfig returns a CookieConfig with secure defaults.
func DefaultCookieConfig(secret []byte, secure bool, maxAge int) CookieConfig {
	return CookieConfig{
		Secret:     secret,
		MaxAge:     maxAge,
		Secure:     secure,
		HTTPOnly:   true,
		SameSite:   http.SameSiteLaxMode,
		CookiePath: "/",
	}
}

// SessionStore keeps the opaque session id in a signed cookie.
type SessionStore struct {
	store  *sessions.CookieStore
	logger zerolog.Logger
}

// NewSessionStore creates a new cookie session store.
func NewSessionStore(cfg CookieConfig, logger zerolog.Logger) (*SessionStore, error) {
	if len(cfg.Secret) < 32 {
		return nil, fmt.Errorf("session secret must be at least 32 bytes")
	}

	store := sessions.NewCookieStore(cfg.Secret)
	store.Options = &sessions.Options{
		Path:     cfg.CookiePath,
		MaxAge:   cfg.MaxAge,
		HttpOnly: cfg.HTTPOnly,
		Secure:   cfg.Secure,
		SameSite: cfg.SameSite,
	}

	s := &SessionStore{
		store:  store,
		logger: logger.With().Str("component", "session_cookie").Logger(),
	}

	s.logger.Info().
		Bool("secure", cfg.Secure).
		Int("max_age", cfg.MaxAge).
		Msg("session store initialized")

	return s, nil
}

// SetSessionID writes the session id cookie.
func (s *SessionStore) SetSessionID(r *http.Request, w http.ResponseWriter, id uuid.UUID) error {
	session, err := s.store.Get(r, CookieName)
	if err != nil {
		// A cookie signed with a rotated secret yields a fresh session plus an error.
		s.logger.Debug().Err(err).Msg("replacing undecodable session cookie")
	}
	session.Values[sessionIDValue] = id.String()
	if err := session.Save(r, w); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// GetSessionID reads the session id from the request cookie.
func (s *SessionStore) GetSessionID(r *http.Request) (uuid.UUID, error) {
	session, err := s.store.Get(r, CookieName)
	if err != nil {
		return uuid.Nil, fmt.Errorf("get session: %w", err)
	}
	raw, ok := session.Values[sessionIDValue].(string)
	if !ok {
		return uuid.Nil, ErrSessionNotFound
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, ErrSessionNotFound
	}
	return id, nil
}

// Clear expires the session cookie.
func (s *SessionStore) Clear(r *http.Request, w http.ResponseWriter) error {
	session, err := s.store.Get(r, CookieName)
	if err != nil {
		s.logger.Debug().Err(err).Msg("clearing undecodable session cookie")
	}
	delete(session.Values, sessionIDValue)
	session.Options.MaxAge = -1
	if err := session.Save(r, w); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}
