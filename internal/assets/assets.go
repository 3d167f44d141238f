// Package assets stores uploaded brand images and resolves their public URLs.
package assets

import (
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/zapfragrance/sitecontrol/internal/models"
)

// DefaultPrefix is the key prefix under which brand images are stored.
const DefaultPrefix = "brand-assets"

// ObjectPath returns a collision-free object name: role, a random suffix and
// the original file extension.
func ObjectPath(role models.AssetRole, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	return string(role) + "-" + uuid.NewString() + ext
}

func joinURL(base, path string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}
