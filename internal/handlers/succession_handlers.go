package handlers

import (
	"errors"
	"net/http"

	"sakan/internal/common"
	"sakan/internal/services"

	"github.com/labstack/echo/v4"
)

// SuccessionHandlers covers the manager-initiated succession flow and the
// platform-admin review surface for deletion requests.
type SuccessionHandlers struct {
	successionService services.SuccessionService
}

func NewSuccessionHandlers(successionService services.SuccessionService) *SuccessionHandlers {
	return &SuccessionHandlers{successionService: successionService}
}

type initiateSuccessionRequest struct {
	ResidenceID   string  `json:"residence_id"`
	SuccessorID   *string `json:"successor_id"`
	DeleteAccount bool    `json:"delete_account"`
	TermsAccepted bool    `json:"terms_accepted"`
}

// InitiateSuccession handles POST /v1/succession/initiate (manager only).
func (h *SuccessionHandlers) InitiateSuccession(c echo.Context) error {
	managerID, ok := common.GetUserIDFromContext(c.Request().Context())
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	req := &initiateSuccessionRequest{}
	if err := c.Bind(req); err != nil {
		return common.SendValidationError(c, "Invalid request body")
	}
	residenceID, err := common.ValidateUUID(req.ResidenceID, "residence_id")
	if err != nil {
		return common.SendValidationError(c, err.Error())
	}

	initiate := &services.InitiateRequest{
		ManagerID:     managerID,
		ResidenceID:   residenceID,
		DeleteAccount: req.DeleteAccount,
		TermsAccepted: req.TermsAccepted,
	}
	if req.SuccessorID != nil && *req.SuccessorID != "" {
		successorID, err := common.ValidateUUID(*req.SuccessorID, "successor_id")
		if err != nil {
			return common.SendValidationError(c, err.Error())
		}
		initiate.SuccessorID = &successorID
	}

	result, err := h.successionService.Initiate(c.Request().Context(), initiate)
	if err != nil {
		if errors.Is(err, services.ErrSuccessorIsSyndic) {
			return common.SendValidationError(c, err.Error())
		}
		return common.SendError(c, http.StatusBadRequest, err.Error())
	}
	return common.SendSuccess(c, result)
}

type redeemSuccessionRequest struct {
	Code string `json:"code"`
}

// RedeemSuccession handles POST /v1/succession/redeem: the successor redeems
// the code they received and the ownership transfer runs.
func (h *SuccessionHandlers) RedeemSuccession(c echo.Context) error {
	redeemerID, ok := common.GetUserIDFromContext(c.Request().Context())
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	req := &redeemSuccessionRequest{}
	if err := c.Bind(req); err != nil {
		return common.SendValidationError(c, "Invalid request body")
	}
	if req.Code == "" {
		return common.SendValidationError(c, "code is required")
	}

	result, err := h.successionService.Redeem(c.Request().Context(), req.Code, redeemerID)
	if err != nil {
		return common.SendError(c, http.StatusBadRequest, err.Error())
	}
	return common.SendSuccess(c, result)
}

// ListDeletionRequests handles GET /v1/admin/deletion-requests.
func (h *SuccessionHandlers) ListDeletionRequests(c echo.Context) error {
	limit := 50
	offset := 0
	if v := c.QueryParam("limit"); v != "" {
		if parsed, err := common.ParsePositiveInt(v, "limit"); err == nil {
			limit = parsed
		}
	}
	if v := c.QueryParam("offset"); v != "" {
		if parsed, err := common.ParsePositiveInt(v, "offset"); err == nil {
			offset = parsed
		}
	}

	requests, err := h.successionService.ListPendingRequests(c.Request().Context(), limit, offset)
	if err != nil {
		return common.SendServerError(c, "Failed to list deletion requests")
	}
	return common.SendSuccess(c, requests)
}

type approveDeletionRequest struct {
	SuccessorID string `json:"successor_id"`
}

// ApproveDeletionRequest handles POST /v1/admin/deletion-requests/:id/approve.
func (h *SuccessionHandlers) ApproveDeletionRequest(c echo.Context) error {
	adminID, ok := common.GetUserIDFromContext(c.Request().Context())
	if !ok {
		return common.SendUnauthorizedError(c)
	}
	requestID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendValidationError(c, err.Error())
	}

	req := &approveDeletionRequest{}
	if err := c.Bind(req); err != nil {
		return common.SendValidationError(c, "Invalid request body")
	}
	successorID, err := common.ValidateUUID(req.SuccessorID, "successor_id")
	if err != nil {
		return common.SendValidationError(c, err.Error())
	}

	if err := h.successionService.Approve(c.Request().Context(), adminID, requestID, successorID); err != nil {
		if errors.Is(err, services.ErrSuccessorIsSyndic) {
			return common.SendValidationError(c, err.Error())
		}
		return common.SendError(c, http.StatusBadRequest, err.Error())
	}
	return common.SendSuccess(c, nil)
}

type rejectDeletionRequest struct {
	Reason string `json:"reason"`
}

// RejectDeletionRequest handles PUT /v1/admin/deletion-requests/:id/reject.
func (h *SuccessionHandlers) RejectDeletionRequest(c echo.Context) error {
	adminID, ok := common.GetUserIDFromContext(c.Request().Context())
	if !ok {
		return common.SendUnauthorizedError(c)
	}
	requestID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendValidationError(c, err.Error())
	}

	req := &rejectDeletionRequest{}
	if err := c.Bind(req); err != nil {
		return common.SendValidationError(c, "Invalid request body")
	}
	if req.Reason == "" {
		return common.SendValidationError(c, "reason is required")
	}

	if err := h.successionService.Reject(c.Request().Context(), adminID, requestID, req.Reason); err != nil {
		return common.SendError(c, http.StatusBadRequest, err.Error())
	}
	return common.SendSuccess(c, nil)
}
