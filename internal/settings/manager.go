// Package settings owns the authoritative in-memory site settings and their persistence.
package settings

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/zapfragrance/sitecontrol/internal/assets"
	"github.com/zapfragrance/sitecontrol/internal/auth"
	"github.com/zapfragrance/sitecontrol/internal/models"
)

// AssetStore stores uploaded images and hands out public URLs.
type AssetStore interface {
	Upload(ctx context.Context, path string, body io.Reader, contentType string) error
	PublicURL(path string) string
}

// SessionGuard reports the admin session carried by a request context.
type SessionGuard interface {
	CurrentSession(ctx context.Context) (*auth.Session, bool)
}

// Recorder receives operational counters. Implemented by internal/metrics.
type Recorder interface {
	RecordLoad(source string)
	RecordSave(target, result string)
	RecordUpload(role, result string)
}

type nopRecorder struct{}

func (nopRecorder) RecordLoad(string)           {}
func (nopRecorder) RecordSave(string, string)   {}
func (nopRecorder) RecordUpload(string, string) {}

// Config holds manager configuration.
type Config struct {
	Defaults         models.SiteSettings
	RemoteAttempts   int
	RemoteRetryDelay time.Duration
}

// DefaultConfig returns a Config with the built-in defaults and a single remote attempt.
func DefaultConfig() Config {
	return Config{
		Defaults:         models.DefaultSiteSettings(),
		RemoteAttempts:   1,
		RemoteRetryDelay: 500 * time.Millisecond,
	}
}

// Deps are the collaborators of a Manager.
type Deps struct {
	Remote  RemoteStore
	Cache   LocalCache
	Assets  AssetStore
	Guard   SessionGuard
	Metrics Recorder
}

// Manager holds the single in-memory SiteSettings. Mutations are in-memory only
// until Save is called.
type Manager struct {
	cfg     Config
	deps    Deps
	sources []Source
	logger  zerolog.Logger

	mu      sync.RWMutex
	current models.SiteSettings
	ready   atomic.Bool

	// pubMu is held from a state change until its subscribers have run, so
	// they observe changes in the order they were applied.
	pubMu sync.Mutex

	subMu       sync.Mutex
	subscribers map[int]func(models.SiteSettings)
	nextSubID   int
}

// NewManager creates a Manager holding the defaults. Call Load before serving.
func NewManager(cfg Config, deps Deps, logger zerolog.Logger) *Manager {
	if deps.Metrics == nil {
		deps.Metrics = nopRecorder{}
	}

	var sources []Source
	if deps.Remote != nil {
		sources = append(sources, WithRetry(NewRemoteSource(deps.Remote), cfg.RemoteAttempts, cfg.RemoteRetryDelay))
	}
	if deps.Cache != nil {
		sources = append(sources, NewCacheSource(deps.Cache))
	}

	return &Manager{
		cfg:         cfg,
		deps:        deps,
		sources:     sources,
		logger:      logger.With().Str("component", "settings_manager").Logger(),
		current:     cfg.Defaults,
		subscribers: make(map[int]func(models.SiteSettings)),
	}
}

// Load populates the settings from the first source that holds a record,
// falling back to defaults. It never fails and returns the name of the source used.
func (m *Manager) Load(ctx context.Context) string {
	resolved, source := m.cfg.Defaults, SourceDefaults

	for _, src := range m.sources {
		rec, err := src.Fetch(ctx)
		if err != nil {
			if errors.Is(err, ErrRecordAbsent) {
				m.logger.Debug().Str("source", src.Name()).Msg("no settings record, trying next source")
			} else {
				m.logger.Warn().Err(err).Str("source", src.Name()).Msg("failed to fetch settings, trying next source")
			}
			continue
		}
		resolved, source = rec.Resolve(m.cfg.Defaults), src.Name()
		break
	}

	m.commit(func(models.SiteSettings) (models.SiteSettings, bool) {
		m.ready.Store(true)
		return resolved, true
	})

	m.deps.Metrics.RecordLoad(source)
	m.logger.Info().
		Str("source", source).
		Str("theme_mode", string(resolved.DisplayMode)).
		Msg("site settings loaded")
	return source
}

// Ready reports whether Load has completed.
func (m *Manager) Ready() bool {
	return m.ready.Load()
}

// Snapshot returns a copy of the current settings.
func (m *Manager) Snapshot() models.SiteSettings {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Subscribe registers fn to receive the settings after every change. The returned
// function removes the subscription.
func (m *Manager) Subscribe(fn func(models.SiteSettings)) func() {
	m.subMu.Lock()
	id := m.nextSubID
	m.nextSubID++
	m.subscribers[id] = fn
	m.subMu.Unlock()

	return func() {
		m.subMu.Lock()
		delete(m.subscribers, id)
		m.subMu.Unlock()
	}
}

// commit applies fn to the current settings and, when it reports a change,
// stores the result and notifies subscribers before the next commit starts.
// Subscribers must not mutate the manager.
func (m *Manager) commit(fn func(models.SiteSettings) (models.SiteSettings, bool)) {
	m.pubMu.Lock()
	defer m.pubMu.Unlock()

	m.mu.Lock()
	next, changed := fn(m.current)
	if changed {
		m.current = next
	}
	m.mu.Unlock()

	if changed {
		m.notify(next)
	}
}

func (m *Manager) notify(s models.SiteSettings) {
	m.subMu.Lock()
	fns := make([]func(models.SiteSettings), 0, len(m.subscribers))
	for _, fn := range m.subscribers {
		fns = append(fns, fn)
	}
	m.subMu.Unlock()

	for _, fn := range fns {
		fn(s)
	}
}

func (m *Manager) authorize(ctx context.Context, op string) error {
	if m.deps.Guard != nil {
		if _, ok := m.deps.Guard.CurrentSession(ctx); ok {
			return nil
		}
	}
	m.logger.Warn().Str("operation", op).Msg("rejected settings mutation without admin session")
	return ErrAuthFailed
}

// SetField changes one field in memory. Values outside the field's allowed set
// are dropped and the field keeps its prior value.
func (m *Manager) SetField(ctx context.Context, field models.Field, value string) error {
	if err := m.authorize(ctx, "set_field"); err != nil {
		return err
	}

	valid := true
	m.commit(func(cur models.SiteSettings) (models.SiteSettings, bool) {
		next, ok := cur.With(field, value)
		valid = ok
		return next, ok && next != cur
	})

	if !valid {
		m.logger.Debug().Str("field", string(field)).Str("value", value).Msg("dropped invalid settings value")
	}
	return nil
}

// Reset restores every field to its default, including the unset display mode.
// Nothing is persisted.
func (m *Manager) Reset(ctx context.Context) error {
	if err := m.authorize(ctx, "reset"); err != nil {
		return err
	}

	next := m.cfg.Defaults
	next.DisplayMode = models.DisplayModeUnset

	m.commit(func(models.SiteSettings) (models.SiteSettings, bool) {
		return next, true
	})

	m.logger.Info().Msg("site settings reset to defaults")
	return nil
}

// Save writes the current settings to the local cache and then to the remote
// store. A local cache failure is logged only; a remote failure is returned.
// In-memory state is never rolled back.
func (m *Manager) Save(ctx context.Context) error {
	if err := m.authorize(ctx, "save"); err != nil {
		return err
	}

	snap := m.Snapshot()

	if m.deps.Cache != nil {
		if err := m.writeCache(ctx, snap); err != nil {
			m.deps.Metrics.RecordSave(SourceCache, "error")
			m.logger.Warn().Err(err).Msg("failed to write settings to local cache")
		} else {
			m.deps.Metrics.RecordSave(SourceCache, "ok")
		}
	}

	if m.deps.Remote == nil {
		return fmt.Errorf("save settings: %w: no remote store configured", ErrRemoteUnavailable)
	}

	rec := snap.Record()
	if err := m.deps.Remote.UpsertSiteSettings(ctx, &rec); err != nil {
		m.deps.Metrics.RecordSave(SourceRemote, "error")
		m.logger.Error().Err(err).Msg("failed to save settings to remote store")
		return fmt.Errorf("save settings: %w: %w", ErrRemoteUnavailable, err)
	}

	m.deps.Metrics.RecordSave(SourceRemote, "ok")
	m.logger.Info().
		Str("accent_color", snap.AccentColor).
		Str("theme_mode", string(snap.DisplayMode)).
		Msg("site settings saved")
	return nil
}

func (m *Manager) writeCache(ctx context.Context, s models.SiteSettings) error {
	data, err := encodeCacheBlob(s)
	if err != nil {
		return err
	}
	return m.deps.Cache.Write(ctx, CacheKey, data)
}

// UploadAsset sends the payload to the asset store and, on success, points the
// role's image field at the returned public URL.
func (m *Manager) UploadAsset(ctx context.Context, asset models.UploadedAsset) (string, error) {
	if err := m.authorize(ctx, "upload_asset"); err != nil {
		return "", err
	}
	if !asset.Role.Valid() {
		return "", fmt.Errorf("upload asset: role %q: %w", asset.Role, ErrValidationRejected)
	}
	if m.deps.Assets == nil {
		return "", fmt.Errorf("upload asset: %w: no asset store configured", ErrUploadFailed)
	}

	path := assets.ObjectPath(asset.Role, asset.Filename)
	if err := m.deps.Assets.Upload(ctx, path, asset.Body, asset.ContentType); err != nil {
		m.deps.Metrics.RecordUpload(string(asset.Role), "error")
		m.logger.Error().Err(err).Str("role", string(asset.Role)).Str("path", path).Msg("asset upload failed")
		return "", fmt.Errorf("upload asset: %w: %w", ErrUploadFailed, err)
	}

	url := m.deps.Assets.PublicURL(path)
	if err := m.SetField(ctx, asset.Role.Field(), url); err != nil {
		return "", err
	}

	m.deps.Metrics.RecordUpload(string(asset.Role), "ok")
	m.logger.Info().Str("role", string(asset.Role)).Str("url", url).Msg("asset uploaded")
	return url, nil
}
