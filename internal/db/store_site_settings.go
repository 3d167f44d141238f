package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/zapfragrance/sitecontrol/internal/models"
)

// SiteSettingsID is the fixed primary key of the singleton settings row.
const SiteSettingsID = 1

// FetchSiteSettings returns the singleton settings row, or nil if it has never been saved.
// NULL columns come back as empty strings.
func (db *DB) FetchSiteSettings(ctx context.Context) (*models.SettingsRecord, error) {
	var (
		accent, day, night, mode *string
		rec                      models.SettingsRecord
	)
	err := db.Pool.QueryRow(ctx, `
		SELECT accent_color, day_image_url, night_image_url, theme_mode, updated_at
		FROM site_settings
		WHERE id = $1
	`, SiteSettingsID).Scan(&accent, &day, &night, &mode, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get site settings: %w", err)
	}

	rec.AccentColor = deref(accent)
	rec.DayImageURL = deref(day)
	rec.NightImageURL = deref(night)
	rec.ThemeMode = deref(mode)
	return &rec, nil
}

// UpsertSiteSettings creates or replaces the singleton settings row.
func (db *DB) UpsertSiteSettings(ctx context.Context, rec *models.SettingsRecord) error {
	rec.UpdatedAt = time.Now()
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO site_settings (id, accent_color, day_image_url, night_image_url, theme_mode, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			accent_color = EXCLUDED.accent_color,
			day_image_url = EXCLUDED.day_image_url,
			night_image_url = EXCLUDED.night_image_url,
			theme_mode = EXCLUDED.theme_mode,
			updated_at = EXCLUDED.updated_at
	`, SiteSettingsID, rec.AccentColor, rec.DayImageURL, rec.NightImageURL, rec.ThemeMode, rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert site settings: %w", err)
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
