// Package branding validates admin-supplied brand values before they reach the settings manager.
package branding

import (
	"fmt"
	"net/url"
	"regexp"

	"github.com/zapfragrance/sitecontrol/internal/models"
)

// hexColorRegex validates CSS hex color values (#RGB or #RRGGBB).
var hexColorRegex = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// ValidateColor validates that a color string is a valid hex color.
func ValidateColor(color string) error {
	if !hexColorRegex.MatchString(color) {
		return fmt.Errorf("invalid hex color %q: must be #RGB or #RRGGBB format", color)
	}
	return nil
}

// ValidateURL validates that a URL string is an absolute http(s) URL.
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("URL is required")
	}
	u, err := url.ParseRequestURI(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL %q: %w", rawURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid URL scheme %q: must be http or https", u.Scheme)
	}
	return nil
}

// ValidateDisplayMode validates that mode is day, night or unset.
func ValidateDisplayMode(mode string) error {
	if _, ok := models.ParseDisplayMode(mode); !ok {
		return fmt.Errorf("invalid theme mode %q: must be day, night or unset", mode)
	}
	return nil
}

// ValidateField validates a value for the given settings field.
func ValidateField(field models.Field, value string) error {
	switch field {
	case models.FieldAccentColor:
		return ValidateColor(value)
	case models.FieldDayImageURL, models.FieldNightImageURL:
		return ValidateURL(value)
	case models.FieldDisplayMode:
		return ValidateDisplayMode(value)
	default:
		return fmt.Errorf("unknown field %q", field)
	}
}
