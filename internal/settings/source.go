package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/zapfragrance/sitecontrol/internal/models"
)

// CacheKey is the single local cache key holding the settings blob.
const CacheKey = "zap_theme"

// Source names reported by Load.
const (
	SourceRemote   = "remote"
	SourceCache    = "local-cache"
	SourceDefaults = "defaults"
)

// RemoteStore is the singleton settings record in the hosted database.
type RemoteStore interface {
	// FetchSiteSettings returns nil with no error when the record does not exist.
	FetchSiteSettings(ctx context.Context) (*models.SettingsRecord, error)
	UpsertSiteSettings(ctx context.Context, rec *models.SettingsRecord) error
}

// LocalCache is on-device key/value storage.
type LocalCache interface {
	Read(ctx context.Context, key string) ([]byte, bool, error)
	Write(ctx context.Context, key string, data []byte) error
}

// Source is one step of the load fallback chain.
type Source interface {
	Name() string
	// Fetch returns ErrRecordAbsent when the source holds nothing.
	Fetch(ctx context.Context) (*models.SettingsRecord, error)
}

type remoteSource struct {
	store RemoteStore
}

// NewRemoteSource adapts a RemoteStore to the fallback chain.
func NewRemoteSource(store RemoteStore) Source {
	return &remoteSource{store: store}
}

func (s *remoteSource) Name() string { return SourceRemote }

func (s *remoteSource) Fetch(ctx context.Context) (*models.SettingsRecord, error) {
	rec, err := s.store.FetchSiteSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRemoteUnavailable, err)
	}
	if rec == nil {
		return nil, ErrRecordAbsent
	}
	return rec, nil
}

// cacheBlob is the JSON layout stored under CacheKey.
type cacheBlob struct {
	AccentColor string `json:"accentColor"`
	DayImage    string `json:"dayImage"`
	NightImage  string `json:"nightImage"`
	ThemeMode   string `json:"themeMode"`
}

func encodeCacheBlob(s models.SiteSettings) ([]byte, error) {
	return json.Marshal(cacheBlob{
		AccentColor: s.AccentColor,
		DayImage:    s.DayImageURL,
		NightImage:  s.NightImageURL,
		ThemeMode:   string(s.DisplayMode),
	})
}

func decodeCacheBlob(data []byte) (*models.SettingsRecord, error) {
	var blob cacheBlob
	if err := json.Unmarshal(data, &blob); err != nil {
		return nil, fmt.Errorf("decode cached settings: %w", err)
	}
	return &models.SettingsRecord{
		AccentColor:   blob.AccentColor,
		DayImageURL:   blob.DayImage,
		NightImageURL: blob.NightImage,
		ThemeMode:     blob.ThemeMode,
	}, nil
}

type cacheSource struct {
	cache LocalCache
}

// NewCacheSource adapts a LocalCache to the fallback chain.
func NewCacheSource(cache LocalCache) Source {
	return &cacheSource{cache: cache}
}

func (s *cacheSource) Name() string { return SourceCache }

func (s *cacheSource) Fetch(ctx context.Context) (*models.SettingsRecord, error) {
	data, ok, err := s.cache.Read(ctx, CacheKey)
	if err != nil {
		return nil, fmt.Errorf("read local cache: %w", err)
	}
	if !ok {
		return nil, ErrRecordAbsent
	}
	return decodeCacheBlob(data)
}

type retrySource struct {
	Source
	attempts int
	delay    time.Duration
}

// WithRetry retries src up to attempts times on failure. Absence is not retried.
func WithRetry(src Source, attempts int, delay time.Duration) Source {
	if attempts <= 1 {
		return src
	}
	return &retrySource{Source: src, attempts: attempts, delay: delay}
}

func (s *retrySource) Fetch(ctx context.Context) (*models.SettingsRecord, error) {
	var lastErr error
	for i := 0; i < s.attempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(s.delay):
			}
		}
		rec, err := s.Source.Fetch(ctx)
		if err == nil || errors.Is(err, ErrRecordAbsent) {
			return rec, err
		}
		lastErr = err
	}
	return nil, lastErr
}
