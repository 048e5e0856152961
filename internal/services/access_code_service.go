package services

import (
	"context"
	"crypto/rand"
	"fmt"
	"log"
	"math/big"
	"strings"
	"time"

	"sakan/internal/caching"
	"sakan/internal/models"
	"sakan/internal/repositories"

	"github.com/google/uuid"
)

// codeAlphabet excludes visually confusable characters (I, O, 0, 1),
// leaving 32 symbols.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const codeLength = 8

// DefaultCodeTTL is the validity window of a freshly issued code.
const DefaultCodeTTL = 7 * 24 * time.Hour

// Validation rejection reasons.
const (
	ReasonInvalid       = "invalid"
	ReasonLockedOut     = "locked out"
	ReasonUsed          = "used"
	ReasonExpired       = "expired"
	ReasonEmailMismatch = "email mismatch"
)

// CodeValidation is the outcome of one validation attempt.
type CodeValidation struct {
	Valid             bool               `json:"valid"`
	Reason            string             `json:"reason,omitempty"`
	AttemptsRemaining int                `json:"attempts_remaining"`
	Code              *models.AccessCode `json:"code,omitempty"`
}

// AccessCodeService issues, validates and retires single-use authorization
// codes gating sensitive cross-account operations.
type AccessCodeService interface {
	CreateAccessCode(ctx context.Context, originUserID uuid.UUID, targetEmail string, residenceID *uuid.UUID, actionType string, ttl time.Duration) (*models.AccessCode, error)
	ValidateAccessCode(ctx context.Context, code string, expectedEmail string) (*CodeValidation, error)
	MarkAccessCodeAsUsed(ctx context.Context, code string, usedBy uuid.UUID)
	DeleteAccessCode(ctx context.Context, code string) error
	CheckAccessCodeStatus(ctx context.Context, code string) (*models.AccessCode, error)
}

type accessCodeService struct {
	codeRepo repositories.AccessCodeRepository
	cacheSvc caching.CacheService
}

// NewAccessCodeService creates the code subsystem. cacheSvc may be nil; it
// only backs the initiator's status polling after a code row is gone.
func NewAccessCodeService(codeRepo repositories.AccessCodeRepository, cacheSvc caching.CacheService) AccessCodeService {
	return &accessCodeService{codeRepo: codeRepo, cacheSvc: cacheSvc}
}

func generateCode() (string, error) {
	var b strings.Builder
	for i := 0; i < codeLength; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeAlphabet))))
		if err != nil {
			return "", err
		}
		b.WriteByte(codeAlphabet[n.Int64()])
	}
	return b.String(), nil
}

func (s *accessCodeService) CreateAccessCode(ctx context.Context, originUserID uuid.UUID, targetEmail string, residenceID *uuid.UUID, actionType string, ttl time.Duration) (*models.AccessCode, error) {
	switch actionType {
	case models.ActionDeleteAccount, models.ActionChangeRole, models.ActionVerifyResident:
	default:
		return nil, fmt.Errorf("invalid action type: %s", actionType)
	}
	if strings.TrimSpace(targetEmail) == "" {
		return nil, fmt.Errorf("target email is required")
	}
	if ttl <= 0 {
		ttl = DefaultCodeTTL
	}

	// Codes are globally unique; regenerate on collision.
	var code string
	for attempt := 0; attempt < 10; attempt++ {
		candidate, err := generateCode()
		if err != nil {
			return nil, fmt.Errorf("failed to generate code: %w", err)
		}
		exists, err := s.codeRepo.Exists(ctx, candidate)
		if err != nil {
			return nil, fmt.Errorf("failed to check code uniqueness: %w", err)
		}
		if !exists {
			code = candidate
			break
		}
	}
	if code == "" {
		return nil, fmt.Errorf("could not generate a unique access code")
	}

	record := &models.AccessCode{
		Code:         code,
		OriginUserID: originUserID,
		TargetEmail:  strings.ToLower(strings.TrimSpace(targetEmail)),
		ResidenceID:  residenceID,
		ActionType:   actionType,
		ExpiresAt:    time.Now().Add(ttl),
	}
	if err := s.codeRepo.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to persist access code: %w", err)
	}
	return record, nil
}

// ValidateAccessCode applies the rejection ladder: unknown code, lockout,
// already used, expired, then email mismatch. A mismatch increments the
// failed-attempt counter and deletes the code when the counter reaches the
// lockout threshold. Success resets the counter and returns the payload.
//
// The increment is read-then-write, not atomic; a concurrent attacker can
// squeeze in slightly more than the allowed attempts, which is benign.
func (s *accessCodeService) ValidateAccessCode(ctx context.Context, code string, expectedEmail string) (*CodeValidation, error) {
	record, err := s.codeRepo.GetByCode(ctx, strings.ToUpper(strings.TrimSpace(code)))
	if err != nil || record == nil {
		return &CodeValidation{Valid: false, Reason: ReasonInvalid}, nil
	}

	if record.FailedAttempts >= models.MaxCodeAttempts {
		if err := s.codeRepo.Delete(ctx, record.Code); err != nil {
			log.Printf("[codes] failed to delete locked-out code %s: %v", record.Code, err)
		}
		return &CodeValidation{Valid: false, Reason: ReasonLockedOut}, nil
	}

	if record.Used {
		return &CodeValidation{Valid: false, Reason: ReasonUsed}, nil
	}

	if record.Expired() {
		// Expired codes are rejected but kept; only lockout and use delete.
		return &CodeValidation{Valid: false, Reason: ReasonExpired}, nil
	}

	if expectedEmail != "" && !strings.EqualFold(strings.TrimSpace(expectedEmail), record.TargetEmail) {
		attempts, err := s.codeRepo.IncrementFailedAttempts(ctx, record.Code)
		if err != nil {
			return nil, fmt.Errorf("failed to record failed attempt: %w", err)
		}
		if attempts >= models.MaxCodeAttempts {
			if err := s.codeRepo.Delete(ctx, record.Code); err != nil {
				log.Printf("[codes] failed to delete locked-out code %s: %v", record.Code, err)
			}
			return &CodeValidation{Valid: false, Reason: ReasonLockedOut, AttemptsRemaining: 0}, nil
		}
		return &CodeValidation{
			Valid:             false,
			Reason:            ReasonEmailMismatch,
			AttemptsRemaining: models.MaxCodeAttempts - attempts,
		}, nil
	}

	if record.FailedAttempts > 0 {
		if err := s.codeRepo.ResetFailedAttempts(ctx, record.Code); err != nil {
			log.Printf("[codes] failed to reset attempts for %s: %v", record.Code, err)
		}
		record.FailedAttempts = 0
	}

	return &CodeValidation{
		Valid:             true,
		AttemptsRemaining: models.MaxCodeAttempts,
		Code:              record,
	}, nil
}

// MarkAccessCodeAsUsed is deliberately non-fatal: the role change that
// triggered it must not be rolled back because bookkeeping failed.
func (s *accessCodeService) MarkAccessCodeAsUsed(ctx context.Context, code string, usedBy uuid.UUID) {
	if err := s.codeRepo.MarkUsed(ctx, code, usedBy); err != nil {
		log.Printf("[codes] failed to mark code %s as used by %s: %v", code, usedBy, err)
		return
	}
	// The row is deleted below, so the initiator's status polling is answered
	// from the cache.
	if s.cacheSvc != nil {
		if err := s.cacheSvc.SetCodeStatus(ctx, code, "used", 24*time.Hour); err != nil {
			log.Printf("[codes] failed to cache used status for %s: %v", code, err)
		}
	}
	// Used codes are removed immediately (trigger-equivalent): no further
	// validation is possible once redeemed.
	if err := s.codeRepo.Delete(ctx, code); err != nil {
		log.Printf("[codes] failed to delete used code %s: %v", code, err)
	}
}

func (s *accessCodeService) DeleteAccessCode(ctx context.Context, code string) error {
	return s.codeRepo.Delete(ctx, code)
}

func (s *accessCodeService) CheckAccessCodeStatus(ctx context.Context, code string) (*models.AccessCode, error) {
	return s.codeRepo.GetByCode(ctx, strings.ToUpper(strings.TrimSpace(code)))
}
