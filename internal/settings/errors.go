package settings

import "errors"

var (
	// ErrRemoteUnavailable is returned when the remote settings store cannot be reached or fails.
	ErrRemoteUnavailable = errors.New("remote settings store unavailable")
	// ErrRecordAbsent signals that a source holds no settings record. It is never surfaced by Load.
	ErrRecordAbsent = errors.New("settings record absent")
	// ErrUploadFailed is returned when the asset store rejects an upload.
	ErrUploadFailed = errors.New("asset upload failed")
	// ErrAuthFailed is returned when a mutation is attempted without an admin session.
	ErrAuthFailed = errors.New("admin session required")
	// ErrValidationRejected marks a value outside a field's allowed set.
	ErrValidationRejected = errors.New("value rejected")
)
