package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/zapfragrance/sitecontrol/internal/auth"
	"github.com/zapfragrance/sitecontrol/internal/models"
)

// GetAdminByEmail returns the admin with the given email, or auth.ErrAdminNotFound.
func (db *DB) GetAdminByEmail(ctx context.Context, email string) (*models.Admin, error) {
	var a models.Admin
	err := db.Pool.QueryRow(ctx, `
		SELECT id, email, password_hash, created_at, updated_at
		FROM admins
		WHERE email = $1
	`, strings.ToLower(email)).Scan(&a.ID, &a.Email, &a.PasswordHash, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, auth.ErrAdminNotFound
		}
		return nil, fmt.Errorf("get admin by email: %w", err)
	}
	return &a, nil
}

// UpsertAdmin creates an admin or replaces the password of an existing one.
func (db *DB) UpsertAdmin(ctx context.Context, a *models.Admin) error {
	a.Email = strings.ToLower(a.Email)
	a.UpdatedAt = time.Now()
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO admins (id, email, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (email) DO UPDATE SET
			password_hash = EXCLUDED.password_hash,
			updated_at = EXCLUDED.updated_at
	`, a.ID, a.Email, a.PasswordHash, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert admin: %w", err)
	}
	return nil
}

// ListAdmins returns all admin accounts ordered by email.
func (db *DB) ListAdmins(ctx context.Context) ([]*models.Admin, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, email, password_hash, created_at, updated_at
		FROM admins
		ORDER BY email
	`)
	if err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}
	defer rows.Close()

	var result []*models.Admin
	for rows.Next() {
		var a models.Admin
		if err := rows.Scan(&a.ID, &a.Email, &a.PasswordHash, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan admin: %w", err)
		}
		result = append(result, &a)
	}
	return result, rows.Err()
}
