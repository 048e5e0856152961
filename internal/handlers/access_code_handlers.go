package handlers

import (
	"log"
	"net/http"
	"time"

	"sakan/internal/caching"
	"sakan/internal/common"
	"sakan/internal/services"

	"github.com/labstack/echo/v4"
)

// Validation attempts allowed per account within the rate-limit window.
const (
	validateRateLimit  = 10
	validateRateWindow = time.Minute
)

// AccessCodeHandlers exposes the code validate/cancel/status surface to the
// dashboard.
type AccessCodeHandlers struct {
	codeService services.AccessCodeService
	cacheSvc    caching.CacheService
}

func NewAccessCodeHandlers(codeService services.AccessCodeService, cacheSvc caching.CacheService) *AccessCodeHandlers {
	return &AccessCodeHandlers{codeService: codeService, cacheSvc: cacheSvc}
}

type validateCodeRequest struct {
	Code  string `json:"code"`
	Email string `json:"email"`
}

// ValidateCode handles POST /v1/codes/validate.
func (h *AccessCodeHandlers) ValidateCode(c echo.Context) error {
	userID, ok := common.GetUserIDFromContext(c.Request().Context())
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	if h.cacheSvc != nil {
		limited, err := h.cacheSvc.IsRateLimited(c.Request().Context(), "validate-code:"+userID.String(), validateRateLimit, validateRateWindow)
		if err != nil {
			log.Printf("[codes] rate limit check failed for %s: %v", userID, err)
		} else if limited {
			return common.SendError(c, http.StatusTooManyRequests, "Too many validation attempts, try again later")
		}
		if err := h.cacheSvc.IncrementRateLimit(c.Request().Context(), "validate-code:"+userID.String(), validateRateWindow); err != nil {
			log.Printf("[codes] rate limit increment failed for %s: %v", userID, err)
		}
	}

	req := &validateCodeRequest{}
	if err := c.Bind(req); err != nil {
		return common.SendValidationError(c, "Invalid request body")
	}
	if req.Code == "" {
		return common.SendValidationError(c, "code is required")
	}
	expectedEmail := req.Email
	if expectedEmail != "" {
		if err := common.ValidateEmail(expectedEmail, "email"); err != nil {
			return common.SendValidationError(c, err.Error())
		}
	}
	if expectedEmail == "" {
		if email, ok := common.GetUserEmailFromContext(c.Request().Context()); ok {
			expectedEmail = email
		}
	}

	validation, err := h.codeService.ValidateAccessCode(c.Request().Context(), req.Code, expectedEmail)
	if err != nil {
		return common.SendServerError(c, "Failed to validate code")
	}
	if !validation.Valid {
		return c.JSON(http.StatusBadRequest, common.Envelope{Success: false, Error: validation.Reason, Data: validation})
	}
	return common.SendSuccess(c, validation)
}

type cancelCodeRequest struct {
	Code string `json:"code"`
}

// CancelCode handles POST /v1/codes/cancel. Only the initiating account may
// cancel its own code.
func (h *AccessCodeHandlers) CancelCode(c echo.Context) error {
	userID, ok := common.GetUserIDFromContext(c.Request().Context())
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	req := &cancelCodeRequest{}
	if err := c.Bind(req); err != nil {
		return common.SendValidationError(c, "Invalid request body")
	}
	if req.Code == "" {
		return common.SendValidationError(c, "code is required")
	}

	record, err := h.codeService.CheckAccessCodeStatus(c.Request().Context(), req.Code)
	if err != nil || record == nil {
		return common.SendError(c, http.StatusNotFound, "Code not found")
	}
	if record.OriginUserID != userID {
		return common.SendError(c, http.StatusForbidden, "Only the initiating account can cancel this code")
	}

	if err := h.codeService.DeleteAccessCode(c.Request().Context(), record.Code); err != nil {
		return common.SendServerError(c, "Failed to cancel code")
	}
	if h.cacheSvc != nil {
		if err := h.cacheSvc.DeleteCodeStatus(c.Request().Context(), record.Code); err != nil {
			log.Printf("[codes] failed to drop cached status for %s: %v", record.Code, err)
		}
	}
	return common.SendSuccess(c, nil)
}

type codeStatusResponse struct {
	Code     string `json:"code"`
	Used     bool   `json:"used"`
	Expired  bool   `json:"expired"`
	Attempts int    `json:"failed_attempts"`
}

// CodeStatus handles GET /v1/codes/:code/status, letting the initiator poll
// whether the target has redeemed the code yet.
func (h *AccessCodeHandlers) CodeStatus(c echo.Context) error {
	userID, ok := common.GetUserIDFromContext(c.Request().Context())
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	code := c.Param("code")
	if code == "" {
		return common.SendValidationError(c, "code is required")
	}

	record, err := h.codeService.CheckAccessCodeStatus(c.Request().Context(), code)
	if err != nil || record == nil {
		// A deleted code means it was redeemed (or cancelled); report used so
		// the initiator's polling loop terminates.
		if h.cacheSvc != nil {
			if status, cacheErr := h.cacheSvc.GetCodeStatus(c.Request().Context(), code); cacheErr == nil && status == "used" {
				return common.SendSuccess(c, codeStatusResponse{Code: code, Used: true})
			}
		}
		return common.SendError(c, http.StatusNotFound, "Code not found")
	}
	if record.OriginUserID != userID {
		return common.SendError(c, http.StatusForbidden, "Only the initiating account can check this code")
	}

	return common.SendSuccess(c, codeStatusResponse{
		Code:     record.Code,
		Used:     record.Used,
		Expired:  record.Expired(),
		Attempts: record.FailedAttempts,
	})
}
