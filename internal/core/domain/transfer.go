package domain

import (
	"time"

	"github.com/google/uuid"
)

// TransferState represents the step of an in-flight transfer flow.
type TransferState string

const (
	TransferStateEntry         TransferState = "ENTRY"
	TransferStateSecondaryAuth TransferState = "SECONDARY_AUTH"
	TransferStateReview        TransferState = "REVIEW"
	TransferStateCommitted     TransferState = "COMMITTED"
	TransferStateCancelled     TransferState = "CANCELLED"
	TransferStateFailed        TransferState = "FAILED"
)

// IsTerminal returns true if the state ends the flow instance.
func (s TransferState) IsTerminal() bool {
	return s == TransferStateCommitted ||
		s == TransferStateCancelled ||
		s == TransferStateFailed
}

// TransferRequest is one in-flight transfer. It lives only in the
// authorizer's memory for the duration of a single flow and is never
// persisted; a new flow always starts from a fresh instance.
type TransferRequest struct {
	FlowID             uuid.UUID     `json:"flow_id"`
	PayerAccountNumber string        `json:"payer_account_number"`
	PayeeKey           string        `json:"payee_key"`
	Amount             int64         `json:"amount"`
	Description        string        `json:"description,omitempty"`
	Fee                int64         `json:"fee"`
	Total              int64         `json:"total"`
	State              TransferState `json:"state"`
	CreatedAt          time.Time     `json:"created_at"`
}

// NewTransferRequest starts a fresh flow instance in the Entry state.
func NewTransferRequest(payerAccountNumber string) *TransferRequest {
	return &TransferRequest{
		FlowID:             uuid.New(),
		PayerAccountNumber: payerAccountNumber,
		State:              TransferStateEntry,
		CreatedAt:          time.Now().UTC(),
	}
}

// Freeze computes fee and total from the entered amount. The amount must
// not change afterwards without returning to Entry.
func (t *TransferRequest) Freeze() {
	t.Fee = ComputeFee(t.Amount)
	t.Total = t.Amount + t.Fee
}

// ResetToEntry discards the verified/derived fields after a failed PIN
// check, keeping the entered details so the caller can retry.
func (t *TransferRequest) ResetToEntry() {
	t.Fee = 0
	t.Total = 0
	t.State = TransferStateEntry
}
