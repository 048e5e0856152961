package models

import (
	"time"

	"github.com/google/uuid"
)

// Residence is a managed building. SyndicID points at the managing profile
// and is repointed during succession.
type Residence struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Address   *string   `json:"address" db:"address"`
	City      *string   `json:"city" db:"city"`
	SyndicID  uuid.UUID `json:"syndic_id" db:"syndic_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
