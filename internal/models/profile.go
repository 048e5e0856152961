package models

import (
	"time"

	"github.com/google/uuid"
)

// Profile roles. Platform admins review deletion requests; syndics manage
// a residence.
const (
	RoleSyndic   = "syndic"
	RoleResident = "resident"
	RoleGuard    = "guard"
	RoleAdmin    = "admin"
)

// Profile is an account row. The schema is owned by the auth provider's
// database; the workflows here read and write role, verification and
// residence linkage only.
type Profile struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	Email       string     `json:"email" db:"email"`
	FullName    *string    `json:"full_name" db:"full_name"`
	Role        string     `json:"role" db:"role"`
	ResidenceID *uuid.UUID `json:"residence_id" db:"residence_id"`
	Verified    bool       `json:"verified" db:"verified"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}
