package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Reassignment names one ownership column that references a syndic account
// and must be repointed during succession.
type Reassignment struct {
	Table  string `json:"table"`
	Column string `json:"column"`
}

// syndicReassignments lists every foreign-key column referencing a departing
// syndic, in the order they are attempted. The list is static; tables and
// columns are never taken from request input.
var syndicReassignments = []Reassignment{
	{Table: "residences", Column: "syndic_id"},
	{Table: "fees", Column: "created_by"},
	{Table: "payments", Column: "payer_id"},
	{Table: "payments", Column: "verified_by"},
	{Table: "incidents", Column: "created_by"},
	{Table: "incidents", Column: "assigned_to"},
	{Table: "announcements", Column: "author_id"},
	{Table: "expenses", Column: "created_by"},
	{Table: "polls", Column: "created_by"},
	{Table: "poll_votes", Column: "voter_id"},
	{Table: "access_logs", Column: "generated_by"},
	{Table: "access_logs", Column: "scanned_by"},
	{Table: "deliveries", Column: "recipient_id"},
	{Table: "deliveries", Column: "logged_by"},
}

// Purge names one table whose residence-scoped rows are removed outright
// when a syndic deletes their account with no successor.
type Purge struct {
	Table  string `json:"table"`
	Column string `json:"column"`
}

// residencePurges lists every table holding residence-scoped rows, children
// before parents. The list is static; tables and columns are never taken
// from request input.
var residencePurges = []Purge{
	{Table: "poll_votes", Column: "poll_id"},
	{Table: "polls", Column: "residence_id"},
	{Table: "deliveries", Column: "residence_id"},
	{Table: "access_logs", Column: "residence_id"},
	{Table: "incidents", Column: "residence_id"},
	{Table: "announcements", Column: "residence_id"},
	{Table: "expenses", Column: "residence_id"},
	{Table: "payments", Column: "residence_id"},
	{Table: "fees", Column: "residence_id"},
}

type TransferRepository interface {
	Reassignments() []Reassignment
	Reassign(ctx context.Context, reassignment Reassignment, from, to uuid.UUID) (int64, error)
	Purges() []Purge
	Purge(ctx context.Context, purge Purge, residenceID uuid.UUID) (int64, error)
	DeleteResidence(ctx context.Context, residenceID uuid.UUID) error
}

type transferRepo struct {
	db Database
}

func NewTransferRepo(db Database) TransferRepository {
	return &transferRepo{db: db}
}

func (r *transferRepo) Reassignments() []Reassignment {
	out := make([]Reassignment, len(syndicReassignments))
	copy(out, syndicReassignments)
	return out
}

func (r *transferRepo) Reassign(ctx context.Context, reassignment Reassignment, from, to uuid.UUID) (int64, error) {
	query := fmt.Sprintf(`UPDATE %s SET %s = $1 WHERE %s = $2`, reassignment.Table, reassignment.Column, reassignment.Column)
	tag, err := r.db.Exec(ctx, query, to, from)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *transferRepo) Purges() []Purge {
	out := make([]Purge, len(residencePurges))
	copy(out, residencePurges)
	return out
}

func (r *transferRepo) Purge(ctx context.Context, purge Purge, residenceID uuid.UUID) (int64, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`, purge.Table, purge.Column)
	if purge.Table == "poll_votes" {
		// Votes hang off polls, not the residence row itself.
		query = `DELETE FROM poll_votes WHERE poll_id IN (SELECT id FROM polls WHERE residence_id = $1)`
	}
	tag, err := r.db.Exec(ctx, query, residenceID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *transferRepo) DeleteResidence(ctx context.Context, residenceID uuid.UUID) error {
	_, err := r.db.Exec(ctx, `DELETE FROM residences WHERE id = $1`, residenceID)
	return err
}
