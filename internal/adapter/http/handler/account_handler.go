package handler

import (
	"pix-transfer-gateway/internal/adapter/http/dto"
	"pix-transfer-gateway/internal/core/ports"
	"pix-transfer-gateway/pkg/apperror"
	"pix-transfer-gateway/pkg/response"

	"github.com/gin-gonic/gin"
)

// AccountHandler handles the authenticated account endpoints.
type AccountHandler struct {
	accountSvc ports.AccountService
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accountSvc ports.AccountService) *AccountHandler {
	return &AccountHandler{accountSvc: accountSvc}
}

// GetProfile handles GET /api/v1/accounts/me.
func (h *AccountHandler) GetProfile(c *gin.Context) {
	id, ok := actingAccount(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	view, err := h.accountSvc.GetAccountView(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toAccountResponse(*view))
}

// UpdateProfile handles PATCH /api/v1/accounts/me. Only display name and
// avatar URL are mutable.
func (h *AccountHandler) UpdateProfile(c *gin.Context) {
	id, ok := actingAccount(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	view, err := h.accountSvc.UpdateProfile(c.Request.Context(), id, ports.UpdateProfileRequest{
		DisplayName: req.DisplayName,
		AvatarURL:   req.AvatarURL,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toAccountResponse(*view))
}

// ChangePassword handles PUT /api/v1/accounts/me/password.
func (h *AccountHandler) ChangePassword(c *gin.Context) {
	id, ok := actingAccount(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	if err := h.accountSvc.ChangePassword(c.Request.Context(), id, req.OldPassword, req.NewPassword); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{"changed": true})
}

// ChangePin handles PUT /api/v1/accounts/me/pin. Sets the first transfer PIN
// or rotates an existing one.
func (h *AccountHandler) ChangePin(c *gin.Context) {
	id, ok := actingAccount(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.ChangePinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	if err := h.accountSvc.ChangePin(c.Request.Context(), id, req.CurrentPin, req.NewPin); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{"changed": true})
}

func toAccountResponse(v ports.AccountView) dto.AccountResponse {
	return dto.AccountResponse{
		ID:            v.ID.String(),
		DisplayName:   v.DisplayName,
		Email:         v.Email,
		AccountNumber: v.AccountNumber,
		AvatarURL:     v.AvatarURL,
		Balance:       v.Balance,
		HasPin:        v.HasPin,
	}
}
