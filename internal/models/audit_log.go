package models

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction names an admin action on the site settings.
type AuditAction string

const (
	AuditActionUpdate      AuditAction = "settings.update"
	AuditActionReset       AuditAction = "settings.reset"
	AuditActionSave        AuditAction = "settings.save"
	AuditActionUploadAsset AuditAction = "settings.upload_asset"
	AuditActionSignOut     AuditAction = "session.sign_out"
)

// AuditResult represents the outcome of an audited action.
type AuditResult string

const (
	// AuditResultSuccess indicates the action completed successfully.
	AuditResultSuccess AuditResult = "success"
	// AuditResultFailure indicates the action failed.
	AuditResultFailure AuditResult = "failure"
	// AuditResultDenied indicates the action was refused for lack of a session.
	AuditResultDenied AuditResult = "denied"
)

// AuditResultForStatus maps an HTTP status code to an AuditResult.
func AuditResultForStatus(status int) AuditResult {
	switch {
	case status == 401 || status == 403:
		return AuditResultDenied
	case status >= 400:
		return AuditResultFailure
	default:
		return AuditResultSuccess
	}
}

// AuditLog is a single admin action record.
type AuditLog struct {
	ID         uuid.UUID   `json:"id" yaml:"id"`
	AdminID    uuid.UUID   `json:"admin_id" yaml:"admin_id"`
	AdminEmail string      `json:"admin_email" yaml:"admin_email"`
	Action     AuditAction `json:"action" yaml:"action"`
	Result     AuditResult `json:"result" yaml:"result"`
	Status     int         `json:"status" yaml:"status"`
	IPAddress  string      `json:"ip_address,omitempty" yaml:"ip_address,omitempty"`
	UserAgent  string      `json:"user_agent,omitempty" yaml:"user_agent,omitempty"`
	CreatedAt  time.Time   `json:"created_at" yaml:"created_at"`
}

// NewAuditLog creates a new AuditLog entry.
func NewAuditLog(adminID uuid.UUID, email string, action AuditAction, status int) *AuditLog {
	return &AuditLog{
		ID:         uuid.New(),
		AdminID:    adminID,
		AdminEmail: email,
		Action:     action,
		Result:     AuditResultForStatus(status),
		Status:     status,
		CreatedAt:  time.Now(),
	}
}

// WithRequestInfo sets the client address and user agent.
func (a *AuditLog) WithRequestInfo(ip, userAgent string) *AuditLog {
	a.IPAddress = ip
	a.UserAgent = userAgent
	return a
}
