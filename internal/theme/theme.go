// Package theme derives the named presentation variables for the current site settings.
package theme

import (
	"fmt"
	"sort"
	"strings"

	"github.com/zapfragrance/sitecontrol/internal/models"
)

// Variable names consumed by the presentation layer.
const (
	VarBrandAccent      = "--brand-accent"
	VarBrandAccentLight = "--brand-accent-light"
	VarBgPrimary        = "--bg-primary"
	VarTextPrimary      = "--text-primary"
	VarTextSecondary    = "--text-secondary"
	VarNavBg            = "--nav-bg"
	VarCardBg           = "--card-bg"
	VarCardBorder       = "--card-border"
	VarBtnBg            = "--btn-bg"
	VarBtnText          = "--btn-text"
	VarBtnHoverBg       = "--btn-hover-bg"
	VarBtnHoverText     = "--btn-hover-text"
)

// accentSlot marks a palette entry that is replaced by the accent colour.
const accentSlot = "accent"

// accentLightAlpha is appended to the accent hex to get the translucent variant.
const accentLightAlpha = "20"

// Palette is a fixed set of colour values for one display mode.
type Palette map[string]string

// DayPalette applies to day and unset modes.
var DayPalette = Palette{
	VarBgPrimary:     "#FAFAF9",
	VarTextPrimary:   "#1C1917",
	VarTextSecondary: "#78716C",
	VarNavBg:         "rgba(255, 255, 240, 0.8)",
	VarCardBg:        "rgba(255, 255, 255, 0.4)",
	VarCardBorder:    "#E7E5E4",
	VarBtnBg:         "#1C1917",
	VarBtnText:       "#F9F1D8",
	VarBtnHoverBg:    "transparent",
	VarBtnHoverText:  "#1C1917",
}

// NightPalette applies to night mode only.
var NightPalette = Palette{
	VarBgPrimary:     "#0C0A09",
	VarTextPrimary:   "#F5F5F4",
	VarTextSecondary: "#A8A29E",
	VarNavBg:         "rgba(12, 10, 9, 0.8)",
	VarCardBg:        "rgba(28, 25, 23, 0.6)",
	VarCardBorder:    "#44403C",
	VarBtnBg:         accentSlot,
	VarBtnText:       "#1C1917",
	VarBtnHoverBg:    "#F9F1D8",
	VarBtnHoverText:  "#1C1917",
}

// Variables maps variable names to values.
type Variables map[string]string

// DeriveVariables computes the presentation variables for s. It is pure.
func DeriveVariables(s models.SiteSettings) Variables {
	palette := DayPalette
	if s.IsNight() {
		palette = NightPalette
	}

	vars := make(Variables, len(palette)+2)
	vars[VarBrandAccent] = s.AccentColor
	vars[VarBrandAccentLight] = expandHex(s.AccentColor) + accentLightAlpha
	for name, value := range palette {
		if value == accentSlot {
			value = s.AccentColor
		}
		vars[name] = value
	}
	return vars
}

// expandHex turns #RGB into #RRGGBB so an alpha pair can be appended.
func expandHex(color string) string {
	if len(color) != 4 || color[0] != '#' {
		return color
	}
	return string([]byte{'#', color[1], color[1], color[2], color[2], color[3], color[3]})
}

// Names returns the variable names in sorted order.
func (v Variables) Names() []string {
	names := make([]string, 0, len(v))
	for name := range v {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CSS renders the variables as a :root rule.
func (v Variables) CSS() string {
	var b strings.Builder
	b.WriteString(":root {\n")
	for _, name := range v.Names() {
		fmt.Fprintf(&b, "  %s: %s;\n", name, v[name])
	}
	b.WriteString("}\n")
	return b.String()
}
