package models

import (
	"io"
	"strings"
	"time"
)

// DisplayMode is the visitor-facing day/night selector.
type DisplayMode string

const (
	// DisplayModeDay renders the light palette and the day background.
	DisplayModeDay DisplayMode = "day"
	// DisplayModeNight renders the dark palette and the night background.
	DisplayModeNight DisplayMode = "night"
	// DisplayModeUnset means the visitor has not chosen yet and the entry prompt is shown.
	DisplayModeUnset DisplayMode = "unset"
)

// Valid reports whether m is one of the three known modes.
func (m DisplayMode) Valid() bool {
	switch m {
	case DisplayModeDay, DisplayModeNight, DisplayModeUnset:
		return true
	}
	return false
}

// ParseDisplayMode parses a mode case-insensitively.
func ParseDisplayMode(s string) (DisplayMode, bool) {
	m := DisplayMode(strings.ToLower(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", false
	}
	return m, true
}

// Default values used when no persisted value exists for a field.
const (
	DefaultAccentColor   = "#AA8C2C"
	DefaultDayImageURL   = "https://images.unsplash.com/photo-1519225421980-715cb0202128?q=80&w=1000&auto=format&fit=crop"
	DefaultNightImageURL = "https://images.unsplash.com/photo-1519741497674-611481863552?q=80&w=1000&auto=format&fit=crop"
)

// SiteSettings is the brand-wide configuration. Exactly one instance is authoritative.
type SiteSettings struct {
	AccentColor   string      `json:"accent_color" yaml:"accent_color"`
	DayImageURL   string      `json:"day_image_url" yaml:"day_image_url"`
	NightImageURL string      `json:"night_image_url" yaml:"night_image_url"`
	DisplayMode   DisplayMode `json:"theme_mode" yaml:"theme_mode"`
}

// DefaultSiteSettings returns the built-in settings.
func DefaultSiteSettings() SiteSettings {
	return SiteSettings{
		AccentColor:   DefaultAccentColor,
		DayImageURL:   DefaultDayImageURL,
		NightImageURL: DefaultNightImageURL,
		DisplayMode:   DisplayModeUnset,
	}
}

// IsNight reports whether the night palette applies.
func (s SiteSettings) IsNight() bool {
	return s.DisplayMode == DisplayModeNight
}

// Record converts the settings into their persisted shape.
func (s SiteSettings) Record() SettingsRecord {
	return SettingsRecord{
		AccentColor:   s.AccentColor,
		DayImageURL:   s.DayImageURL,
		NightImageURL: s.NightImageURL,
		ThemeMode:     string(s.DisplayMode),
	}
}

// SettingsRecord is the persisted form of SiteSettings as read from the remote
// store or the local cache. Any field may be empty.
type SettingsRecord struct {
	AccentColor   string
	DayImageURL   string
	NightImageURL string
	ThemeMode     string
	UpdatedAt     time.Time
}

// Resolve fills every empty or invalid field from defaults.
func (r SettingsRecord) Resolve(defaults SiteSettings) SiteSettings {
	out := defaults
	if r.AccentColor != "" {
		out.AccentColor = r.AccentColor
	}
	if r.DayImageURL != "" {
		out.DayImageURL = r.DayImageURL
	}
	if r.NightImageURL != "" {
		out.NightImageURL = r.NightImageURL
	}
	if mode, ok := ParseDisplayMode(r.ThemeMode); ok {
		out.DisplayMode = mode
	}
	return out
}

// Field names a single mutable settings field.
type Field string

const (
	FieldAccentColor   Field = "accent_color"
	FieldDayImageURL   Field = "day_image_url"
	FieldNightImageURL Field = "night_image_url"
	FieldDisplayMode   Field = "theme_mode"
)

// With returns s with field set to value, or false if the value is not
// allowed. Empty values and unknown fields are refused.
func (s SiteSettings) With(field Field, value string) (SiteSettings, bool) {
	switch field {
	case FieldAccentColor:
		if value == "" {
			return s, false
		}
		s.AccentColor = value
	case FieldDayImageURL:
		if value == "" {
			return s, false
		}
		s.DayImageURL = value
	case FieldNightImageURL:
		if value == "" {
			return s, false
		}
		s.NightImageURL = value
	case FieldDisplayMode:
		mode, ok := ParseDisplayMode(value)
		if !ok {
			return s, false
		}
		s.DisplayMode = mode
	default:
		return s, false
	}
	return s, true
}

// AssetRole selects which background image an upload replaces.
type AssetRole string

const (
	AssetRoleDay   AssetRole = "day"
	AssetRoleNight AssetRole = "night"
)

// Valid reports whether r is day or night.
func (r AssetRole) Valid() bool {
	return r == AssetRoleDay || r == AssetRoleNight
}

// Field returns the settings field an asset of this role is written to.
func (r AssetRole) Field() Field {
	if r == AssetRoleNight {
		return FieldNightImageURL
	}
	return FieldDayImageURL
}

// UploadedAsset is a transient upload payload. Body is consumed once.
type UploadedAsset struct {
	Role        AssetRole
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}
