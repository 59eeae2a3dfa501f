package ports

import (
	"context"
	"errors"

	"pix-transfer-gateway/internal/core/domain"

	"github.com/google/uuid"
)

// Sentinel errors surfaced by repository adapters. Services translate them
// into the user-facing taxonomy.
var (
	// ErrDuplicateEmail is returned by Create when the email unique
	// constraint rejects the insert (the check-then-insert race loser).
	ErrDuplicateEmail = errors.New("email already registered")

	// ErrBalanceNotFound is returned when no ledger row exists for the
	// account number.
	ErrBalanceNotFound = errors.New("balance row not found")

	// ErrInsufficientBalance is returned when a debit would take the
	// balance below zero.
	ErrInsufficientBalance = errors.New("insufficient balance")
)

// AccountRepository is the account directory: identity to account number and
// stored credential hashes. Lookups return (nil, nil) when no row matches.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	GetByAccountNumber(ctx context.Context, accountNumber string) (*domain.Account, error)
	// UpdateProfile writes only the mutable profile fields. Email and
	// account number are not reachable through this path.
	UpdateProfile(ctx context.Context, id uuid.UUID, displayName, avatarURL string) error
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error
	UpdatePinHash(ctx context.Context, id uuid.UUID, hash string) error
}

// LedgerRepository holds one balance per account number.
// ApplyDelta is a single-row atomic conditional update; the two writes of a
// transfer commit are deliberately NOT wrapped in a cross-row transaction
// (see DESIGN.md), so a failed credit after a landed debit must be surfaced
// by the caller as a partial settlement.
type LedgerRepository interface {
	// InitBalance creates the ledger row, called once at account creation.
	InitBalance(ctx context.Context, accountNumber string, amount int64) error
	GetBalance(ctx context.Context, accountNumber string) (int64, error)
	// ApplyDelta adds delta (negative = debit) to the balance, refusing to
	// go below zero. Returns ErrInsufficientBalance or ErrBalanceNotFound.
	ApplyDelta(ctx context.Context, accountNumber string, delta int64) error
}
