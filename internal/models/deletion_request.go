package models

import (
	"time"

	"github.com/google/uuid"
)

// Deletion request lifecycle. No transition leaves rejected or completed.
const (
	DeletionRequestPending   = "pending"
	DeletionRequestApproved  = "approved"
	DeletionRequestRejected  = "rejected"
	DeletionRequestCompleted = "completed"
)

// DeletionRequest records a manager's request to leave the platform,
// pending platform-admin review.
type DeletionRequest struct {
	ID              uuid.UUID  `json:"id" db:"id"`
	RequesterID     uuid.UUID  `json:"requester_id" db:"requester_id"`
	ResidenceID     uuid.UUID  `json:"residence_id" db:"residence_id"`
	Status          string     `json:"status" db:"status"`
	SuccessorID     *uuid.UUID `json:"successor_id" db:"successor_id"`
	RejectionReason *string    `json:"rejection_reason" db:"rejection_reason"`
	ReviewedBy      *uuid.UUID `json:"reviewed_by" db:"reviewed_by"`
	RequestedAt     time.Time  `json:"requested_at" db:"requested_at"`
	ReviewedAt      *time.Time `json:"reviewed_at" db:"reviewed_at"`
	CompletedAt     *time.Time `json:"completed_at" db:"completed_at"`
}
