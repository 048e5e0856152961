package models

import (
	"time"

	"github.com/google/uuid"
)

// Access code action types.
const (
	ActionDeleteAccount  = "delete_account"
	ActionChangeRole     = "change_role"
	ActionVerifyResident = "verify_resident"
)

// MaxCodeAttempts is the number of failed validations allowed before the
// code is deleted (security lockout).
const MaxCodeAttempts = 3

// AccessCode is a single-use authorization token gating role-sensitive
// cross-account operations. Codes expire 7 days after creation and are
// deleted on use, on cancellation, or after MaxCodeAttempts failures.
type AccessCode struct {
	Code           string     `json:"code" db:"code"`
	OriginUserID   uuid.UUID  `json:"origin_user_id" db:"origin_user_id"`
	TargetEmail    string     `json:"target_email" db:"target_email"`
	ResidenceID    *uuid.UUID `json:"residence_id" db:"residence_id"`
	ActionType     string     `json:"action_type" db:"action_type"`
	Used           bool       `json:"used" db:"used"`
	UsedBy         *uuid.UUID `json:"used_by" db:"used_by"`
	FailedAttempts int        `json:"failed_attempts" db:"failed_attempts"`
	ExpiresAt      time.Time  `json:"expires_at" db:"expires_at"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
}

// Expired reports whether the code's validity window has passed.
func (a *AccessCode) Expired() bool {
	return time.Now().After(a.ExpiresAt)
}
