package repositories

import (
	"context"

	"sakan/internal/models"

	"github.com/google/uuid"
)

type DeletionRequestRepository interface {
	Create(ctx context.Context, request *models.DeletionRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.DeletionRequest, error)
	ListByStatus(ctx context.Context, status string, limit, offset int) ([]*models.DeletionRequest, error)
	Approve(ctx context.Context, id, reviewerID, successorID uuid.UUID) error
	Reject(ctx context.Context, id, reviewerID uuid.UUID, reason string) error
	Complete(ctx context.Context, id uuid.UUID) error
}

type deletionRequestRepo struct {
	db Database
}

func NewDeletionRequestRepo(db Database) DeletionRequestRepository {
	return &deletionRequestRepo{db: db}
}

func (r *deletionRequestRepo) Create(ctx context.Context, request *models.DeletionRequest) error {
	query := `
		INSERT INTO deletion_requests (id, requester_id, residence_id, status, successor_id, requested_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
	`
	_, err := r.db.Exec(ctx, query, request.ID, request.RequesterID, request.ResidenceID, request.Status, request.SuccessorID)
	return err
}

func (r *deletionRequestRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.DeletionRequest, error) {
	request := &models.DeletionRequest{}
	query := `
		SELECT id, requester_id, residence_id, status, successor_id, rejection_reason, reviewed_by, requested_at, reviewed_at, completed_at
		FROM deletion_requests
		WHERE id = $1
	`
	err := r.db.QueryRow(ctx, query, id).Scan(&request.ID, &request.RequesterID, &request.ResidenceID, &request.Status, &request.SuccessorID, &request.RejectionReason, &request.ReviewedBy, &request.RequestedAt, &request.ReviewedAt, &request.CompletedAt)
	if err != nil {
		return nil, err
	}
	return request, nil
}

func (r *deletionRequestRepo) ListByStatus(ctx context.Context, status string, limit, offset int) ([]*models.DeletionRequest, error) {
	query := `
		SELECT id, requester_id, residence_id, status, successor_id, rejection_reason, reviewed_by, requested_at, reviewed_at, completed_at
		FROM deletion_requests
		WHERE status = $1
		ORDER BY requested_at ASC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, status, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []*models.DeletionRequest
	for rows.Next() {
		request := &models.DeletionRequest{}
		if err := rows.Scan(&request.ID, &request.RequesterID, &request.ResidenceID, &request.Status, &request.SuccessorID, &request.RejectionReason, &request.ReviewedBy, &request.RequestedAt, &request.ReviewedAt, &request.CompletedAt); err != nil {
			return nil, err
		}
		requests = append(requests, request)
	}
	return requests, rows.Err()
}

// Approve transitions pending -> approved. The status guard in the WHERE
// clause enforces exactly one reviewer decision per request.
func (r *deletionRequestRepo) Approve(ctx context.Context, id, reviewerID, successorID uuid.UUID) error {
	query := `
		UPDATE deletion_requests
		SET status = 'approved', reviewed_by = $1, successor_id = $2, reviewed_at = NOW()
		WHERE id = $3 AND status = 'pending'
	`
	_, err := r.db.Exec(ctx, query, reviewerID, successorID, id)
	return err
}

func (r *deletionRequestRepo) Reject(ctx context.Context, id, reviewerID uuid.UUID, reason string) error {
	query := `
		UPDATE deletion_requests
		SET status = 'rejected', reviewed_by = $1, rejection_reason = $2, reviewed_at = NOW()
		WHERE id = $3 AND status = 'pending'
	`
	_, err := r.db.Exec(ctx, query, reviewerID, reason, id)
	return err
}

func (r *deletionRequestRepo) Complete(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE deletion_requests
		SET status = 'completed', completed_at = NOW()
		WHERE id = $1 AND status = 'approved'
	`
	_, err := r.db.Exec(ctx, query, id)
	return err
}
