package theme

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zapfragrance/sitecontrol/internal/branding"
	"github.com/zapfragrance/sitecontrol/internal/models"
)

func TestDeriveVariables_Day(t *testing.T) {
	s := models.DefaultSiteSettings()
	s.DisplayMode = models.DisplayModeDay

	vars := DeriveVariables(s)
	assert.Equal(t, "#AA8C2C", vars[VarBrandAccent])
	assert.Equal(t, "#AA8C2C20", vars[VarBrandAccentLight])
	assert.Equal(t, "#FAFAF9", vars[VarBgPrimary])
	assert.Equal(t, "#1C1917", vars[VarBtnBg])
	assert.Equal(t, "transparent", vars[VarBtnHoverBg])
}

func TestDeriveVariables_NightUsesAccentForButtons(t *testing.T) {
	s := models.DefaultSiteSettings()
	s.AccentColor = "#FF0000"
	s.DisplayMode = models.DisplayModeNight

	vars := DeriveVariables(s)
	assert.Equal(t, "#0C0A09", vars[VarBgPrimary])
	assert.Equal(t, "#FF0000", vars[VarBtnBg])
	assert.Equal(t, "#F9F1D8", vars[VarBtnHoverBg])
}

func TestDeriveVariables_ShortHexAccent(t *testing.T) {
	s := models.DefaultSiteSettings()
	s.AccentColor = "#F0a"
	require.NoError(t, branding.ValidateColor(s.AccentColor))

	vars := DeriveVariables(s)
	assert.Equal(t, "#F0a", vars[VarBrandAccent])
	assert.Equal(t, "#FF00aa20", vars[VarBrandAccentLight])
}

func TestDeriveVariables_UnsetUsesDayPalette(t *testing.T) {
	s := models.DefaultSiteSettings()
	day := s
	day.DisplayMode = models.DisplayModeDay

	assert.Equal(t, DeriveVariables(day), DeriveVariables(s))
}

func TestDeriveVariables_FixedNameSet(t *testing.T) {
	day := DeriveVariables(models.DefaultSiteSettings())
	night := models.DefaultSiteSettings()
	night.DisplayMode = models.DisplayModeNight

	assert.Equal(t, day.Names(), DeriveVariables(night).Names())
	assert.Len(t, day, 12)
}

func TestVariables_CSS(t *testing.T) {
	css := DeriveVariables(models.DefaultSiteSettings()).CSS()
	require.True(t, strings.HasPrefix(css, ":root {\n"))
	assert.Contains(t, css, "  --brand-accent: #AA8C2C;\n")
	assert.True(t, strings.HasSuffix(css, "}\n"))
}
