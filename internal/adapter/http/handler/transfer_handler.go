package handler

import (
	"pix-transfer-gateway/internal/adapter/http/dto"
	"pix-transfer-gateway/internal/core/ports"
	"pix-transfer-gateway/pkg/apperror"
	"pix-transfer-gateway/pkg/response"

	"github.com/gin-gonic/gin"
)

// TransferHandler drives the transfer flow endpoints. The acting account
// always comes from the session token, never from the request body.
type TransferHandler struct {
	transferSvc ports.TransferService
}

// NewTransferHandler creates a new TransferHandler.
func NewTransferHandler(transferSvc ports.TransferService) *TransferHandler {
	return &TransferHandler{transferSvc: transferSvc}
}

// SubmitDetails handles POST /api/v1/transfers. Starts or restarts the flow
// with payee key and amount, advancing it to PIN verification.
func (h *TransferHandler) SubmitDetails(c *gin.Context) {
	id, ok := actingAccount(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.TransferDetailsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	view, err := h.transferSvc.SubmitTransferDetails(c.Request.Context(), id, ports.TransferDetails{
		PayeeKey:    req.PayeeKey,
		Amount:      req.Amount,
		Description: req.Description,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toFlowResponse(view))
}

// SubmitPin handles POST /api/v1/transfers/pin. A correct PIN freezes fee
// and total and advances the flow to review.
func (h *TransferHandler) SubmitPin(c *gin.Context) {
	id, ok := actingAccount(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.TransferPinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	view, err := h.transferSvc.SubmitSecondaryCredential(c.Request.Context(), id, req.Pin)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toFlowResponse(view))
}

// Confirm handles POST /api/v1/transfers/confirm. Commits the reviewed
// transfer against the ledger.
func (h *TransferHandler) Confirm(c *gin.Context) {
	id, ok := actingAccount(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	view, err := h.transferSvc.ConfirmTransfer(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toFlowResponse(view))
}

// Cancel handles POST /api/v1/transfers/cancel. Abandons the in-flight flow
// without any ledger write.
func (h *TransferHandler) Cancel(c *gin.Context) {
	id, ok := actingAccount(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	view, err := h.transferSvc.CancelTransfer(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toFlowResponse(view))
}

func toFlowResponse(v *ports.TransferFlowView) dto.TransferFlowResponse {
	return dto.TransferFlowResponse{
		FlowID:      v.FlowID.String(),
		State:       string(v.State),
		PayeeKey:    v.PayeeKey,
		Amount:      v.Amount,
		Description: v.Description,
		Fee:         v.Fee,
		Total:       v.Total,
	}
}
