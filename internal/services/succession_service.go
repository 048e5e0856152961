package services

import (
	"context"
	"fmt"
	"log"

	"sakan/internal/models"
	"sakan/internal/repositories"

	"github.com/google/uuid"
)

// ErrSuccessorIsSyndic is surfaced verbatim to the admin UI.
var ErrSuccessorIsSyndic = fmt.Errorf("Cannot select a syndic as a successor")

// InitiateRequest starts a succession (or account deletion) for a syndic.
type InitiateRequest struct {
	ManagerID     uuid.UUID
	ResidenceID   uuid.UUID
	SuccessorID   *uuid.UUID
	DeleteAccount bool
	TermsAccepted bool
}

// InitiateResult reports the created request and issued code.
type InitiateResult struct {
	RequestID uuid.UUID `json:"request_id"`
	Code      string    `json:"code"`
}

// TransferFailure records one reassignment step that failed during
// TransferSyndicData.
type TransferFailure struct {
	Table  string `json:"table"`
	Column string `json:"column"`
	Error  string `json:"error"`
}

// TransferResult is the explicit partial-failure report of a data transfer
// or purge. Both are best-effort, not transactional; callers decide whether
// to retry the failed steps. Removed counts deleted rows on the
// delete-account path, Reassigned counts repointed rows on the succession
// path.
type TransferResult struct {
	Reassigned int               `json:"reassigned"`
	Removed    int               `json:"removed,omitempty"`
	Failures   []TransferFailure `json:"failures,omitempty"`
}

// SuccessionService replaces a departing syndic with a successor account
// while preserving referential integrity of dependent records.
type SuccessionService interface {
	Initiate(ctx context.Context, req *InitiateRequest) (*InitiateResult, error)
	Redeem(ctx context.Context, code string, redeemerID uuid.UUID) (*TransferResult, error)
	EligibleSuccessors(ctx context.Context, residenceID, departingManagerID uuid.UUID) ([]*models.Profile, error)
	ListPendingRequests(ctx context.Context, limit, offset int) ([]*models.DeletionRequest, error)
	Approve(ctx context.Context, adminID, requestID, successorID uuid.UUID) error
	Reject(ctx context.Context, adminID, requestID uuid.UUID, reason string) error
	TransferSyndicData(ctx context.Context, fromID, toID uuid.UUID) *TransferResult
	DeleteSyndicData(ctx context.Context, managerID, residenceID uuid.UUID) (*TransferResult, error)
}

type successionService struct {
	profileRepo  repositories.ProfileRepository
	requestRepo  repositories.DeletionRequestRepository
	transferRepo repositories.TransferRepository
	codeSvc      AccessCodeService
	notifier     NotificationService
}

func NewSuccessionService(
	profileRepo repositories.ProfileRepository,
	requestRepo repositories.DeletionRequestRepository,
	transferRepo repositories.TransferRepository,
	codeSvc AccessCodeService,
	notifier NotificationService,
) SuccessionService {
	return &successionService{
		profileRepo:  profileRepo,
		requestRepo:  requestRepo,
		transferRepo: transferRepo,
		codeSvc:      codeSvc,
		notifier:     notifier,
	}
}

// Initiate validates the terms gate and successor eligibility, records a
// pending DeletionRequest, and issues an access code to the successor (or to
// the requesting syndic when no successor exists).
func (s *successionService) Initiate(ctx context.Context, req *InitiateRequest) (*InitiateResult, error) {
	if !req.TermsAccepted {
		return nil, fmt.Errorf("terms and conditions must be accepted before a code is issued")
	}

	manager, err := s.profileRepo.GetByID(ctx, req.ManagerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load manager profile: %w", err)
	}
	if manager.Role != models.RoleSyndic {
		return nil, fmt.Errorf("only a syndic can initiate succession")
	}

	actionType := models.ActionChangeRole
	targetEmail := manager.Email
	if req.DeleteAccount && req.SuccessorID == nil {
		actionType = models.ActionDeleteAccount
	}

	if req.SuccessorID != nil {
		eligible, err := s.EligibleSuccessors(ctx, req.ResidenceID, req.ManagerID)
		if err != nil {
			return nil, err
		}
		var successor *models.Profile
		for _, p := range eligible {
			if p.ID == *req.SuccessorID {
				successor = p
				break
			}
		}
		if successor == nil {
			return nil, fmt.Errorf("selected successor is not an eligible resident of this residence")
		}
		targetEmail = successor.Email
	}

	request := &models.DeletionRequest{
		ID:          uuid.New(),
		RequesterID: req.ManagerID,
		ResidenceID: req.ResidenceID,
		Status:      models.DeletionRequestPending,
		SuccessorID: req.SuccessorID,
	}
	if err := s.requestRepo.Create(ctx, request); err != nil {
		return nil, fmt.Errorf("failed to create deletion request: %w", err)
	}

	residenceID := req.ResidenceID
	code, err := s.codeSvc.CreateAccessCode(ctx, req.ManagerID, targetEmail, &residenceID, actionType, DefaultCodeTTL)
	if err != nil {
		return nil, err
	}

	if err := s.notifier.SendAccessCode(ctx, targetEmail, code.Code, actionType); err != nil {
		log.Printf("[succession] failed to send code for request %s: %v", request.ID, err)
	}

	return &InitiateResult{RequestID: request.ID, Code: code.Code}, nil
}

// Redeem consumes a code submitted by the signed-in redeemer. A change-role
// code transfers the departing syndic's data and promotes the redeemer; the
// promotion is the only fatal step. A delete-account code (issued when no
// successor exists, targeted at the departing syndic themselves) instead
// purges the residence's data and retires the account.
func (s *successionService) Redeem(ctx context.Context, code string, redeemerID uuid.UUID) (*TransferResult, error) {
	redeemer, err := s.profileRepo.GetByID(ctx, redeemerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load redeemer profile: %w", err)
	}

	validation, err := s.codeSvc.ValidateAccessCode(ctx, code, redeemer.Email)
	if err != nil {
		return nil, err
	}
	if !validation.Valid {
		return nil, fmt.Errorf("access code rejected: %s", validation.Reason)
	}
	record := validation.Code

	switch record.ActionType {
	case models.ActionDeleteAccount:
		if record.ResidenceID == nil {
			return nil, fmt.Errorf("delete-account code has no residence attached")
		}
		result, err := s.DeleteSyndicData(ctx, record.OriginUserID, *record.ResidenceID)
		if err != nil {
			return result, err
		}
		s.codeSvc.MarkAccessCodeAsUsed(ctx, record.Code, redeemerID)
		return result, nil

	case models.ActionChangeRole:
		result := s.TransferSyndicData(ctx, record.OriginUserID, redeemerID)
		if err := s.profileRepo.UpdateRole(ctx, redeemerID, models.RoleSyndic); err != nil {
			return result, fmt.Errorf("failed to promote successor: %w", err)
		}
		s.codeSvc.MarkAccessCodeAsUsed(ctx, record.Code, redeemerID)
		return result, nil

	default:
		return nil, fmt.Errorf("access code does not authorize a role change")
	}
}

// TransferSyndicData reassigns every ownership column referencing fromID to
// toID, one table at a time. A failing step is recorded and skipped; the
// remaining steps still run. No compensating rollback exists.
func (s *successionService) TransferSyndicData(ctx context.Context, fromID, toID uuid.UUID) *TransferResult {
	result := &TransferResult{}
	for _, reassignment := range s.transferRepo.Reassignments() {
		rows, err := s.transferRepo.Reassign(ctx, reassignment, fromID, toID)
		if err != nil {
			log.Printf("[succession] reassign %s.%s %s -> %s failed: %v", reassignment.Table, reassignment.Column, fromID, toID, err)
			result.Failures = append(result.Failures, TransferFailure{
				Table:  reassignment.Table,
				Column: reassignment.Column,
				Error:  err.Error(),
			})
			continue
		}
		result.Reassigned += int(rows)
	}
	return result
}

// DeleteSyndicData removes a residence and everything scoped to it when the
// departing syndic has no successor: table purges run one at a time in the
// same best-effort style as TransferSyndicData, then the resident links, the
// residence row, and finally the account itself. The residence and profile
// deletions are the fatal steps.
func (s *successionService) DeleteSyndicData(ctx context.Context, managerID, residenceID uuid.UUID) (*TransferResult, error) {
	result := &TransferResult{}
	for _, purge := range s.transferRepo.Purges() {
		rows, err := s.transferRepo.Purge(ctx, purge, residenceID)
		if err != nil {
			log.Printf("[succession] purge %s.%s for residence %s failed: %v", purge.Table, purge.Column, residenceID, err)
			result.Failures = append(result.Failures, TransferFailure{
				Table:  purge.Table,
				Column: purge.Column,
				Error:  err.Error(),
			})
			continue
		}
		result.Removed += int(rows)
	}

	if err := s.profileRepo.RemoveResidenceLinks(ctx, residenceID); err != nil {
		log.Printf("[succession] failed to remove resident links for residence %s: %v", residenceID, err)
	}
	if err := s.transferRepo.DeleteResidence(ctx, residenceID); err != nil {
		return result, fmt.Errorf("failed to delete residence: %w", err)
	}
	if err := s.profileRepo.Delete(ctx, managerID); err != nil {
		return result, fmt.Errorf("failed to retire account: %w", err)
	}
	return result, nil
}

// EligibleSuccessors returns residents of the residence, excluding the
// departing manager and anyone already holding a syndic role.
func (s *successionService) EligibleSuccessors(ctx context.Context, residenceID, departingManagerID uuid.UUID) ([]*models.Profile, error) {
	residents, err := s.profileRepo.ResidentsOfResidence(ctx, residenceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list residents: %w", err)
	}
	eligible := make([]*models.Profile, 0, len(residents))
	for _, p := range residents {
		if p.ID == departingManagerID || p.Role == models.RoleSyndic {
			continue
		}
		eligible = append(eligible, p)
	}
	return eligible, nil
}

func (s *successionService) ListPendingRequests(ctx context.Context, limit, offset int) ([]*models.DeletionRequest, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.requestRepo.ListByStatus(ctx, models.DeletionRequestPending, limit, offset)
}

// Approve executes the admin-reviewed succession. All validation happens
// before the first mutation; a rejected successor leaves every table
// untouched.
func (s *successionService) Approve(ctx context.Context, adminID, requestID, successorID uuid.UUID) error {
	request, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return fmt.Errorf("deletion request not found: %w", err)
	}
	if request.Status != models.DeletionRequestPending {
		return fmt.Errorf("deletion request is %s, not pending", request.Status)
	}

	successor, err := s.profileRepo.GetByID(ctx, successorID)
	if err != nil {
		return fmt.Errorf("successor profile not found: %w", err)
	}
	if successor.Role == models.RoleSyndic {
		return ErrSuccessorIsSyndic
	}

	residents, err := s.profileRepo.ResidentsOfResidence(ctx, request.ResidenceID)
	if err != nil {
		return fmt.Errorf("failed to list residents: %w", err)
	}
	isResident := false
	for _, p := range residents {
		if p.ID == successorID {
			isResident = true
			break
		}
	}
	if !isResident {
		return fmt.Errorf("successor must be a resident of the residence")
	}

	// Mutation sequence. Each step logs on failure; the request row is only
	// advanced once the role and ownership writes have been attempted.
	if err := s.profileRepo.UpdateRole(ctx, request.RequesterID, models.RoleResident); err != nil {
		return fmt.Errorf("failed to demote departing syndic: %w", err)
	}
	if err := s.profileRepo.EnsureResidentLink(ctx, request.ResidenceID, request.RequesterID); err != nil {
		log.Printf("[succession] failed to link departing syndic %s as resident: %v", request.RequesterID, err)
	}
	if err := s.profileRepo.UpdateRole(ctx, successorID, models.RoleSyndic); err != nil {
		return fmt.Errorf("failed to promote successor: %w", err)
	}
	if err := s.profileRepo.SetVerified(ctx, successorID, true); err != nil {
		log.Printf("[succession] failed to mark successor %s verified: %v", successorID, err)
	}
	if err := s.profileRepo.UpdateResidenceSyndic(ctx, request.ResidenceID, successorID); err != nil {
		return fmt.Errorf("failed to repoint residence ownership: %w", err)
	}
	if err := s.profileRepo.RemoveResidentLink(ctx, request.ResidenceID, successorID); err != nil {
		log.Printf("[succession] failed to remove successor %s from resident links: %v", successorID, err)
	}

	if err := s.requestRepo.Approve(ctx, requestID, adminID, successorID); err != nil {
		return fmt.Errorf("failed to mark request approved: %w", err)
	}
	if err := s.requestRepo.Complete(ctx, requestID); err != nil {
		return fmt.Errorf("failed to mark request completed: %w", err)
	}
	return nil
}

// Reject records the reviewer decision; no data beyond the request row is
// touched.
func (s *successionService) Reject(ctx context.Context, adminID, requestID uuid.UUID, reason string) error {
	request, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return fmt.Errorf("deletion request not found: %w", err)
	}
	if request.Status != models.DeletionRequestPending {
		return fmt.Errorf("deletion request is %s, not pending", request.Status)
	}
	return s.requestRepo.Reject(ctx, requestID, adminID, reason)
}
