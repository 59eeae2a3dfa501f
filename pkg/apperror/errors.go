package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses. Code drives
// programmatic handling (which flow state to return to), Message drives
// display.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Input Validation (VAL) ----

// Validation returns a recoverable bad-input error. The flow stays in its
// current state.
func Validation(message string) *AppError {
	return New("VAL_001", message, http.StatusBadRequest)
}

// ---- Authentication & Credentials (AUTH) ----

// ErrInvalidCredentials is returned for both an unknown email and a wrong
// password, deliberately indistinguishable.
func ErrInvalidCredentials() *AppError {
	return New("AUTH_001", "Invalid email or password", http.StatusUnauthorized)
}

func ErrEmailAlreadyRegistered() *AppError {
	return New("AUTH_002", "Email is already registered", http.StatusConflict)
}

// ErrPinVerificationFailed is returned when the transfer PIN does not match.
// The flow returns to the Entry state; remaining counts attempts left before
// lockout.
func ErrPinVerificationFailed(remaining int) *AppError {
	return New("AUTH_003",
		fmt.Sprintf("Incorrect PIN, %d attempt(s) remaining", remaining),
		http.StatusUnauthorized)
}

// ErrPinIncorrect is the PIN-rotation variant of AUTH_003: same kind so
// callers route it to PIN entry, different message.
func ErrPinIncorrect() *AppError {
	return New("AUTH_003", "Current PIN is incorrect", http.StatusUnauthorized)
}

func ErrPinLocked() *AppError {
	return New("AUTH_004", "PIN locked after too many failed attempts, try again later", http.StatusLocked)
}

func ErrInvalidToken() *AppError {
	return New("AUTH_005", "Invalid or expired token", http.StatusUnauthorized)
}

func ErrPinNotSet() *AppError {
	return New("AUTH_006", "No transfer PIN configured for this account", http.StatusConflict)
}

// ---- Transfer Flow (TRF) ----

func ErrInsufficientFunds() *AppError {
	return New("TRF_001", "Insufficient balance to cover amount plus fee", http.StatusPaymentRequired)
}

// ErrInvalidFlowState is returned when an operation is not valid in the
// flow's current state (e.g. confirming before PIN verification).
func ErrInvalidFlowState(state string) *AppError {
	return New("TRF_002",
		fmt.Sprintf("Operation not allowed in flow state %s", state),
		http.StatusConflict)
}

func ErrNoFlowInProgress() *AppError {
	return New("TRF_003", "No transfer flow in progress", http.StatusNotFound)
}

// ---- Ledger (LED) ----

// ErrLedgerWriteFailed is fatal to the enclosing flow; no partial application
// has occurred.
func ErrLedgerWriteFailed(err error) *AppError {
	return Wrap("LED_001", "Ledger write failed", http.StatusInternalServerError, err)
}

// ErrPartialSettlement means the payer debit landed but the payee credit did
// not. Money has moved on one side only; requires operator reconciliation.
func ErrPartialSettlement(err error) *AppError {
	return Wrap("LED_002", "Transfer partially settled, operator attention required", http.StatusInternalServerError, err)
}

// ---- Account Provisioning (ACC) ----

// ErrAccountProvisioningIncomplete means the account row was created but its
// balance row was not. The account is left in place for reconciliation.
func ErrAccountProvisioningIncomplete(err error) *AppError {
	return Wrap("ACC_001", "Account created but balance initialization failed", http.StatusInternalServerError, err)
}

// ---- System & Infrastructure (SYS) ----

// InternalError wraps an unexpected internal error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

// ErrStoreUnavailable signals underlying store connectivity failure. The
// whole operation is safe to retry from scratch.
func ErrStoreUnavailable(err error) *AppError {
	return Wrap("SYS_002", "Data store unavailable", http.StatusServiceUnavailable, err)
}

func ErrNotFound(entity string) *AppError {
	return New("SYS_003", fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}
