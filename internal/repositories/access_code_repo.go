package repositories

import (
	"context"

	"sakan/internal/models"

	"github.com/google/uuid"
)

type AccessCodeRepository interface {
	Create(ctx context.Context, code *models.AccessCode) error
	GetByCode(ctx context.Context, code string) (*models.AccessCode, error)
	Exists(ctx context.Context, code string) (bool, error)
	IncrementFailedAttempts(ctx context.Context, code string) (int, error)
	ResetFailedAttempts(ctx context.Context, code string) error
	MarkUsed(ctx context.Context, code string, usedBy uuid.UUID) error
	Delete(ctx context.Context, code string) error
}

type accessCodeRepo struct {
	db Database
}

func NewAccessCodeRepo(db Database) AccessCodeRepository {
	return &accessCodeRepo{db: db}
}

// Create runs as a privileged write: the creating account does not own the
// row being protected, so per-row access policy is bypassed by design.
func (r *accessCodeRepo) Create(ctx context.Context, code *models.AccessCode) error {
	query := `
		INSERT INTO access_codes (code, origin_user_id, target_email, residence_id, action_type, used, failed_attempts, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, FALSE, 0, $6, NOW())
	`
	_, err := r.db.Exec(ctx, query, code.Code, code.OriginUserID, code.TargetEmail, code.ResidenceID, code.ActionType, code.ExpiresAt)
	return err
}

func (r *accessCodeRepo) GetByCode(ctx context.Context, code string) (*models.AccessCode, error) {
	record := &models.AccessCode{}
	query := `
		SELECT code, origin_user_id, target_email, residence_id, action_type, used, used_by, failed_attempts, expires_at, created_at
		FROM access_codes
		WHERE code = $1
	`
	err := r.db.QueryRow(ctx, query, code).Scan(&record.Code, &record.OriginUserID, &record.TargetEmail, &record.ResidenceID, &record.ActionType, &record.Used, &record.UsedBy, &record.FailedAttempts, &record.ExpiresAt, &record.CreatedAt)
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (r *accessCodeRepo) Exists(ctx context.Context, code string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM access_codes WHERE code = $1)`
	err := r.db.QueryRow(ctx, query, code).Scan(&exists)
	return exists, err
}

// IncrementFailedAttempts bumps the counter and returns the new value so the
// caller can decide whether the lockout threshold was reached.
func (r *accessCodeRepo) IncrementFailedAttempts(ctx context.Context, code string) (int, error) {
	var attempts int
	query := `UPDATE access_codes SET failed_attempts = failed_attempts + 1 WHERE code = $1 RETURNING failed_attempts`
	err := r.db.QueryRow(ctx, query, code).Scan(&attempts)
	return attempts, err
}

func (r *accessCodeRepo) ResetFailedAttempts(ctx context.Context, code string) error {
	query := `UPDATE access_codes SET failed_attempts = 0 WHERE code = $1`
	_, err := r.db.Exec(ctx, query, code)
	return err
}

func (r *accessCodeRepo) MarkUsed(ctx context.Context, code string, usedBy uuid.UUID) error {
	query := `UPDATE access_codes SET used = TRUE, used_by = $1 WHERE code = $2`
	_, err := r.db.Exec(ctx, query, usedBy, code)
	return err
}

func (r *accessCodeRepo) Delete(ctx context.Context, code string) error {
	query := `DELETE FROM access_codes WHERE code = $1`
	_, err := r.db.Exec(ctx, query, code)
	return err
}
