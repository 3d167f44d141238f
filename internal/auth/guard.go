// Package auth gates admin operations behind an email/password session.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/zapfragrance/sitecontrol/internal/models"
)

var (
	// ErrInvalidCredentials is returned for an unknown email or wrong password.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrSessionNotFound is returned for unknown or expired sessions.
	ErrSessionNotFound = errors.New("session not found")
	// ErrAdminNotFound is returned by an AdminStore for unknown emails.
	ErrAdminNotFound = errors.New("admin not found")
)

// AdminStore looks up admin accounts.
type AdminStore interface {
	GetAdminByEmail(ctx context.Context, email string) (*models.Admin, error)
}

// Credentials are an email/password pair.
type Credentials struct {
	Email    string
	Password string
}

// EventType is the kind of session change.
type EventType string

const (
	EventSignedIn  EventType = "signed_in"
	EventSignedOut EventType = "signed_out"
	EventExpired   EventType = "expired"
)

// Event is pushed to subscribers when a session changes.
type Event struct {
	Type    EventType `json:"type"`
	Session Session   `json:"session"`
	At      time.Time `json:"at"`
}

// Recorder receives sign-in outcomes.
type Recorder interface {
	RecordSignIn(result string)
}

// GuardConfig holds guard configuration.
type GuardConfig struct {
	SessionTTL time.Duration
	// SweepSchedule is a cron spec for the expiry sweep.
	SweepSchedule string
}

// DefaultGuardConfig returns a GuardConfig with a 24h session lifetime.
func DefaultGuardConfig() GuardConfig {
	return GuardConfig{
		SessionTTL:    24 * time.Hour,
		SweepSchedule: "@every 1m",
	}
}

type sessionIDKey struct{}

// WithSessionID returns a context carrying the caller's session id.
func WithSessionID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, sessionIDKey{}, id)
}

// SessionIDFromContext returns the session id carried by ctx.
func SessionIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(sessionIDKey{}).(uuid.UUID)
	return id, ok && id != uuid.Nil
}

// Guard signs admins in and out and answers whether a context holds a live session.
type Guard struct {
	store    AdminStore
	registry Registry
	cfg      GuardConfig
	metrics  Recorder
	logger   zerolog.Logger
	now      func() time.Time

	cron *cron.Cron

	subMu     sync.Mutex
	subs      map[int]func(Event)
	nextSubID int
}

// NewGuard creates a Guard. metrics may be nil.
func NewGuard(store AdminStore, registry Registry, cfg GuardConfig, metrics Recorder, logger zerolog.Logger) *Guard {
	return &Guard{
		store:    store,
		registry: registry,
		cfg:      cfg,
		metrics:  metrics,
		logger:   logger.With().Str("component", "auth_guard").Logger(),
		now:      time.Now,
		subs:     make(map[int]func(Event)),
	}
}

func (g *Guard) record(result string) {
	if g.metrics != nil {
		g.metrics.RecordSignIn(result)
	}
}

// SignIn verifies the credentials and opens a new session.
func (g *Guard) SignIn(ctx context.Context, creds Credentials) (*Session, error) {
	email := strings.ToLower(strings.TrimSpace(creds.Email))

	admin, err := g.store.GetAdminByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrAdminNotFound) {
			g.logger.Debug().Str("email", email).Msg("admin not found for password login")
			g.record("invalid")
			return nil, ErrInvalidCredentials
		}
		g.record("error")
		return nil, fmt.Errorf("sign in: %w", err)
	}

	if err := VerifyPassword(creds.Password, admin.PasswordHash); err != nil {
		g.logger.Debug().Str("admin_id", admin.ID.String()).Msg("password verification failed")
		g.record("invalid")
		return nil, ErrInvalidCredentials
	}

	now := g.now()
	s := &Session{
		ID:              uuid.New(),
		AdminID:         admin.ID,
		Email:           admin.Email,
		AuthenticatedAt: now,
		ExpiresAt:       now.Add(g.cfg.SessionTTL),
	}
	if err := g.registry.Put(ctx, s); err != nil {
		g.record("error")
		return nil, fmt.Errorf("sign in: %w", err)
	}

	g.record("ok")
	g.logger.Info().
		Str("admin_id", admin.ID.String()).
		Str("email", admin.Email).
		Msg("admin signed in")
	g.publish(EventSignedIn, *s)
	return s, nil
}

// SignOut ends the session. Unknown ids are not an error.
func (g *Guard) SignOut(ctx context.Context, id uuid.UUID) error {
	s, err := g.registry.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil
		}
		return fmt.Errorf("sign out: %w", err)
	}
	if err := g.registry.Delete(ctx, id); err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	g.logger.Info().Str("admin_id", s.AdminID.String()).Msg("admin signed out")
	g.publish(EventSignedOut, *s)
	return nil
}

// Lookup returns the live session with the given id.
func (g *Guard) Lookup(ctx context.Context, id uuid.UUID) (*Session, bool) {
	s, err := g.registry.Get(ctx, id)
	if err != nil {
		if !errors.Is(err, ErrSessionNotFound) {
			g.logger.Warn().Err(err).Msg("failed to look up session")
		}
		return nil, false
	}
	if s.Expired(g.now()) {
		return nil, false
	}
	return s, true
}

// CurrentSession returns the live session whose id ctx carries.
func (g *Guard) CurrentSession(ctx context.Context) (*Session, bool) {
	id, ok := SessionIDFromContext(ctx)
	if !ok {
		return nil, false
	}
	return g.Lookup(ctx, id)
}

// Subscribe registers fn for session change events and returns an unsubscribe func.
func (g *Guard) Subscribe(fn func(Event)) func() {
	g.subMu.Lock()
	id := g.nextSubID
	g.nextSubID++
	g.subs[id] = fn
	g.subMu.Unlock()

	return func() {
		g.subMu.Lock()
		delete(g.subs, id)
		g.subMu.Unlock()
	}
}

func (g *Guard) publish(t EventType, s Session) {
	ev := Event{Type: t, Session: s, At: g.now()}

	g.subMu.Lock()
	fns := make([]func(Event), 0, len(g.subs))
	for _, fn := range g.subs {
		fns = append(fns, fn)
	}
	g.subMu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// SweepExpired removes expired sessions and returns how many were removed.
func (g *Guard) SweepExpired(ctx context.Context) int {
	sessions, err := g.registry.List(ctx)
	if err != nil {
		g.logger.Warn().Err(err).Msg("failed to list sessions for expiry sweep")
		return 0
	}

	now := g.now()
	removed := 0
	for _, s := range sessions {
		if !s.Expired(now) {
			continue
		}
		if err := g.registry.Delete(ctx, s.ID); err != nil {
			g.logger.Warn().Err(err).Str("session_id", s.ID.String()).Msg("failed to delete expired session")
			continue
		}
		removed++
		g.publish(EventExpired, *s)
	}
	if removed > 0 {
		g.logger.Info().Int("removed", removed).Msg("expired admin sessions removed")
	}
	return removed
}

// Start schedules the expiry sweep.
func (g *Guard) Start(ctx context.Context) error {
	g.cron = cron.New()
	if _, err := g.cron.AddFunc(g.cfg.SweepSchedule, func() {
		g.SweepExpired(ctx)
	}); err != nil {
		return fmt.Errorf("schedule session sweep %q: %w", g.cfg.SweepSchedule, err)
	}
	g.cron.Start()
	g.logger.Info().Str("schedule", g.cfg.SweepSchedule).Msg("session expiry sweep started")
	return nil
}

// Stop stops the expiry sweep and waits for a running sweep to finish.
func (g *Guard) Stop() {
	if g.cron == nil {
		return
	}
	<-g.cron.Stop().Done()
}
