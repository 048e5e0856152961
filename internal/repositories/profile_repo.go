package repositories

import (
	"context"

	"sakan/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type ProfileRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	GetByEmail(ctx context.Context, email string) (*models.Profile, error)
	UpdateRole(ctx context.Context, id uuid.UUID, role string) error
	SetVerified(ctx context.Context, id uuid.UUID, verified bool) error
	ResidentsOfResidence(ctx context.Context, residenceID uuid.UUID) ([]*models.Profile, error)
	EnsureResidentLink(ctx context.Context, residenceID, profileID uuid.UUID) error
	RemoveResidentLink(ctx context.Context, residenceID, profileID uuid.UUID) error
	RemoveResidenceLinks(ctx context.Context, residenceID uuid.UUID) error
	UpdateResidenceSyndic(ctx context.Context, residenceID, newSyndicID uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type profileRepo struct {
	db Database
}

func NewProfileRepo(db Database) ProfileRepository {
	return &profileRepo{db: db}
}

const profileColumns = `id, email, full_name, role, residence_id, verified, created_at, updated_at`

func (r *profileRepo) scanOne(row pgx.Row) (*models.Profile, error) {
	profile := &models.Profile{}
	err := row.Scan(&profile.ID, &profile.Email, &profile.FullName, &profile.Role, &profile.ResidenceID, &profile.Verified, &profile.CreatedAt, &profile.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return profile, nil
}

func (r *profileRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE id = $1`
	return r.scanOne(r.db.QueryRow(ctx, query, id))
}

func (r *profileRepo) GetByEmail(ctx context.Context, email string) (*models.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE LOWER(email) = LOWER($1)`
	return r.scanOne(r.db.QueryRow(ctx, query, email))
}

func (r *profileRepo) UpdateRole(ctx context.Context, id uuid.UUID, role string) error {
	query := `UPDATE profiles SET role = $1, updated_at = NOW() WHERE id = $2`
	_, err := r.db.Exec(ctx, query, role, id)
	return err
}

func (r *profileRepo) SetVerified(ctx context.Context, id uuid.UUID, verified bool) error {
	query := `UPDATE profiles SET verified = $1, updated_at = NOW() WHERE id = $2`
	_, err := r.db.Exec(ctx, query, verified, id)
	return err
}

// ResidentsOfResidence queries the tenant schema and the public-schema
// fallback and merges the results, deduplicated by profile id. Legacy rows
// predate the tenant schema migration; both sources stay live until the
// migration is closed out.
func (r *profileRepo) ResidentsOfResidence(ctx context.Context, residenceID uuid.UUID) ([]*models.Profile, error) {
	tenantQuery := `
		SELECT p.id, p.email, p.full_name, p.role, p.residence_id, p.verified, p.created_at, p.updated_at
		FROM sakan.residence_residents rr
		JOIN profiles p ON p.id = rr.profile_id
		WHERE rr.residence_id = $1
	`
	publicQuery := `
		SELECT p.id, p.email, p.full_name, p.role, p.residence_id, p.verified, p.created_at, p.updated_at
		FROM public.residence_residents rr
		JOIN profiles p ON p.id = rr.profile_id
		WHERE rr.residence_id = $1
	`

	seen := make(map[uuid.UUID]bool)
	var merged []*models.Profile

	for _, query := range []string{tenantQuery, publicQuery} {
		rows, err := r.db.Query(ctx, query, residenceID)
		if err != nil {
			return nil, err
		}
		for rows.Next() {
			profile := &models.Profile{}
			if err := rows.Scan(&profile.ID, &profile.Email, &profile.FullName, &profile.Role, &profile.ResidenceID, &profile.Verified, &profile.CreatedAt, &profile.UpdatedAt); err != nil {
				rows.Close()
				return nil, err
			}
			if !seen[profile.ID] {
				seen[profile.ID] = true
				merged = append(merged, profile)
			}
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, err
		}
	}
	return merged, nil
}

func (r *profileRepo) EnsureResidentLink(ctx context.Context, residenceID, profileID uuid.UUID) error {
	query := `
		INSERT INTO sakan.residence_residents (residence_id, profile_id, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (residence_id, profile_id) DO NOTHING
	`
	_, err := r.db.Exec(ctx, query, residenceID, profileID)
	return err
}

func (r *profileRepo) RemoveResidentLink(ctx context.Context, residenceID, profileID uuid.UUID) error {
	query := `DELETE FROM sakan.residence_residents WHERE residence_id = $1 AND profile_id = $2`
	_, err := r.db.Exec(ctx, query, residenceID, profileID)
	return err
}

// RemoveResidenceLinks drops every resident linkage of a residence, in both
// the tenant schema and the public fallback. Both deletes are attempted even
// when the first fails.
func (r *profileRepo) RemoveResidenceLinks(ctx context.Context, residenceID uuid.UUID) error {
	var firstErr error
	for _, query := range []string{
		`DELETE FROM sakan.residence_residents WHERE residence_id = $1`,
		`DELETE FROM public.residence_residents WHERE residence_id = $1`,
	} {
		if _, err := r.db.Exec(ctx, query, residenceID); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (r *profileRepo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.Exec(ctx, `DELETE FROM profiles WHERE id = $1`, id)
	return err
}

func (r *profileRepo) UpdateResidenceSyndic(ctx context.Context, residenceID, newSyndicID uuid.UUID) error {
	query := `UPDATE residences SET syndic_id = $1, updated_at = NOW() WHERE id = $2`
	_, err := r.db.Exec(ctx, query, newSyndicID, residenceID)
	return err
}
