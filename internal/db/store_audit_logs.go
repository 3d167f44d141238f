package db

import (
	"context"
	"fmt"

	"github.com/zapfragrance/sitecontrol/internal/models"
)

// AuditLogFilter narrows ListAuditLogs.
type AuditLogFilter struct {
	Action models.AuditAction
	Email  string
	Limit  int
}

// CreateAuditLog inserts a new audit log entry.
func (db *DB) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO audit_logs (id, admin_id, admin_email, action, result, status,
		                        ip_address, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, log.ID, log.AdminID, log.AdminEmail, string(log.Action), string(log.Result), log.Status,
		log.IPAddress, log.UserAgent, log.CreatedAt)
	if err != nil {
		return fmt.Errorf("create audit log: %w", err)
	}
	return nil
}

// ListAuditLogs returns the newest entries first.
func (db *DB) ListAuditLogs(ctx context.Context, filter AuditLogFilter) ([]*models.AuditLog, error) {
	query := `
		SELECT id, admin_id, admin_email, action, result, status,
		       COALESCE(ip_address, ''), COALESCE(user_agent, ''), created_at
		FROM audit_logs
		WHERE 1=1
	`
	var args []any
	argIdx := 1

	if filter.Action != "" {
		query += fmt.Sprintf(" AND action = $%d", argIdx)
		args = append(args, string(filter.Action))
		argIdx++
	}
	if filter.Email != "" {
		query += fmt.Sprintf(" AND admin_email = $%d", argIdx)
		args = append(args, filter.Email)
		argIdx++
	}

	query += " ORDER BY created_at DESC"

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, limit)

	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	defer rows.Close()

	var logs []*models.AuditLog
	for rows.Next() {
		var log models.AuditLog
		if err := rows.Scan(&log.ID, &log.AdminID, &log.AdminEmail, &log.Action, &log.Result,
			&log.Status, &log.IPAddress, &log.UserAgent, &log.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit log: %w", err)
		}
		logs = append(logs, &log)
	}
	return logs, rows.Err()
}
