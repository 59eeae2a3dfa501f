package ports

import (
	"context"
	"time"

	"pix-transfer-gateway/internal/core/domain"

	"github.com/google/uuid"
)

// HashService is the credential vault contract, used identically for login
// passwords and transfer PINs (stored in separate fields, never compared
// cross-field).
type HashService interface {
	// Hash produces a salted one-way hash; the secret is unrecoverable.
	Hash(secret string) (string, error)
	// Verify reports whether secret matches the stored hash. A malformed
	// stored hash is a verification failure, never an error.
	Verify(secret string, encodedHash string) bool
}

// TokenService handles session token operations.
type TokenService interface {
	// Generate issues a signed token for the account, returning the token,
	// its unique id (for revocation) and its expiry.
	Generate(accountID uuid.UUID) (token string, tokenID string, expiresAt time.Time, err error)
	Validate(token string) (*TokenClaims, error)
}

// TokenClaims holds the parsed session token claims.
type TokenClaims struct {
	AccountID uuid.UUID
	TokenID   string
	ExpiresAt time.Time
}

// PinAttemptStore counts failed PIN verifications per account so retries can
// be bounded. Counters expire with the lockout window.
type PinAttemptStore interface {
	// Failures returns the current failure count for the account.
	Failures(ctx context.Context, accountID string) (int, error)
	// RecordFailure increments the counter, starting the lockout TTL on the
	// first failure, and returns the new count.
	RecordFailure(ctx context.Context, accountID string, ttl time.Duration) (int, error)
	// Reset clears the counter after a successful verification.
	Reset(ctx context.Context, accountID string) error
}

// SessionRevoker invalidates issued session tokens until their natural
// expiry (logout).
type SessionRevoker interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// --- Operator events ---

// TransferCommittedEvent is published after a fully settled transfer.
type TransferCommittedEvent struct {
	FlowID             uuid.UUID `json:"flow_id"`
	PayerAccountNumber string    `json:"payer_account_number"`
	PayeeKey           string    `json:"payee_key"`
	Amount             int64     `json:"amount"`
	Fee                int64     `json:"fee"`
	Timestamp          time.Time `json:"timestamp"`
}

// PartialSettlementEvent is published when the payer debit landed but the
// payee credit failed. Operators reconcile these by hand.
type PartialSettlementEvent struct {
	FlowID             uuid.UUID `json:"flow_id"`
	PayerAccountNumber string    `json:"payer_account_number"`
	PayeeAccountNumber string    `json:"payee_account_number"`
	AmountDebited      int64     `json:"amount_debited"`
	AmountNotCredited  int64     `json:"amount_not_credited"`
	Cause              string    `json:"cause"`
	Timestamp          time.Time `json:"timestamp"`
}

// EventPublisher publishes settlement events for operators and downstream
// consumers. Implementations must be safe to call with a best-effort
// contract; publishing failures never fail a settled transfer.
type EventPublisher interface {
	PublishTransferCommitted(ctx context.Context, event TransferCommittedEvent) error
	PublishPartialSettlement(ctx context.Context, event PartialSettlementEvent) error
	Close()
}

// --- Service Ports (Business Logic) ---

// AccountView is the session-facing composition of account and balance.
type AccountView struct {
	ID            uuid.UUID `json:"id"`
	DisplayName   string    `json:"display_name"`
	Email         string    `json:"email"`
	AccountNumber string    `json:"account_number"`
	AvatarURL     string    `json:"avatar_url"`
	Balance       int64     `json:"balance"`
	HasPin        bool      `json:"has_pin"`
}

// RegisterRequest holds validated input for account registration.
type RegisterRequest struct {
	Name     string
	Email    string
	Password string
}

// LoginResult is returned on successful login and seeds session state.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	Account   AccountView
}

// UpdateProfileRequest carries the mutable profile fields; nil = unchanged.
type UpdateProfileRequest struct {
	DisplayName *string
	AvatarURL   *string
}

// AccountService defines the account lifecycle operations.
type AccountService interface {
	Register(ctx context.Context, req RegisterRequest) (*domain.Account, error)
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	Logout(ctx context.Context, tokenID string, expiresAt time.Time) error
	GetAccountView(ctx context.Context, id uuid.UUID) (*AccountView, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, req UpdateProfileRequest) (*AccountView, error)
	ChangePassword(ctx context.Context, id uuid.UUID, oldPassword, newPassword string) error
	ChangePin(ctx context.Context, id uuid.UUID, currentPin, newPin string) error
}

// TransferDetails is the Entry-step input of a transfer flow.
type TransferDetails struct {
	PayeeKey    string
	Amount      int64
	Description string
}

// TransferFlowView is the caller-facing snapshot of an in-flight flow.
type TransferFlowView struct {
	FlowID      uuid.UUID            `json:"flow_id"`
	State       domain.TransferState `json:"state"`
	PayeeKey    string               `json:"payee_key"`
	Amount      int64                `json:"amount"`
	Description string               `json:"description,omitempty"`
	Fee         int64                `json:"fee,omitempty"`
	Total       int64                `json:"total,omitempty"`
}

// TransferService is the transfer authorizer: a state machine from details
// entry, through PIN verification, through review, to a single commit. The
// acting account is always explicit; there is no ambient session state.
type TransferService interface {
	SubmitTransferDetails(ctx context.Context, accountID uuid.UUID, details TransferDetails) (*TransferFlowView, error)
	SubmitSecondaryCredential(ctx context.Context, accountID uuid.UUID, pin string) (*TransferFlowView, error)
	ConfirmTransfer(ctx context.Context, accountID uuid.UUID) (*TransferFlowView, error)
	CancelTransfer(ctx context.Context, accountID uuid.UUID) (*TransferFlowView, error)
}
