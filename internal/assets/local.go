package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// LocalStore writes assets to a directory that the HTTP server exposes under
// BaseURL. Intended for development and single-host deployments.
type LocalStore struct {
	Dir     string
	BaseURL string
	logger  zerolog.Logger
}

// NewLocalStore creates dir if needed.
func NewLocalStore(dir, baseURL string, logger zerolog.Logger) (*LocalStore, error) {
	if dir == "" {
		return nil, errors.New("local assets: directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("local assets: create directory: %w", err)
	}
	return &LocalStore{
		Dir:     dir,
		BaseURL: baseURL,
		logger:  logger.With().Str("component", "local_assets").Logger(),
	}, nil
}

// Upload writes body to Dir/path.
func (s *LocalStore) Upload(ctx context.Context, path string, body io.Reader, _ string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if path == "" || strings.Contains(path, "..") || strings.ContainsAny(path, `/\`) {
		return fmt.Errorf("local assets: invalid path %q", path)
	}

	target := filepath.Join(s.Dir, path)
	f, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("local assets: create %s: %w", path, err)
	}

	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		os.Remove(target)
		return fmt.Errorf("local assets: write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(target)
		return fmt.Errorf("local assets: close %s: %w", path, err)
	}

	s.logger.Debug().Str("path", target).Msg("asset stored")
	return nil
}

// PublicURL returns BaseURL/path.
func (s *LocalStore) PublicURL(path string) string {
	return joinURL(s.BaseURL, path)
}
