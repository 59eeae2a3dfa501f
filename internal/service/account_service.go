package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pix-transfer-gateway/internal/core/domain"
	"pix-transfer-gateway/internal/core/ports"
	"pix-transfer-gateway/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// accountNumberAttempts bounds the collision retry loop at registration.
const accountNumberAttempts = 5

// AccountServiceImpl implements ports.AccountService.
type AccountServiceImpl struct {
	accountRepo ports.AccountRepository
	ledgerRepo  ports.LedgerRepository
	hashSvc     ports.HashService
	tokenSvc    ports.TokenService
	sessions    ports.SessionRevoker
	log         zerolog.Logger
}

// NewAccountService creates a new AccountServiceImpl.
func NewAccountService(
	accountRepo ports.AccountRepository,
	ledgerRepo ports.LedgerRepository,
	hashSvc ports.HashService,
	tokenSvc ports.TokenService,
	sessions ports.SessionRevoker,
	log zerolog.Logger,
) *AccountServiceImpl {
	return &AccountServiceImpl{
		accountRepo: accountRepo,
		ledgerRepo:  ledgerRepo,
		hashSvc:     hashSvc,
		tokenSvc:    tokenSvc,
		sessions:    sessions,
		log:         log,
	}
}

// Register creates a new account with a zero-initialized balance.
// The account number is assigned exactly once here and never mutated.
func (s *AccountServiceImpl) Register(ctx context.Context, req ports.RegisterRequest) (*domain.Account, error) {
	// Check email uniqueness. The DB unique constraint catches the
	// check-then-insert race; this check gives the common case a clean error.
	existing, err := s.accountRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, apperror.ErrStoreUnavailable(fmt.Errorf("check email: %w", err))
	}
	if existing != nil {
		return nil, apperror.ErrEmailAlreadyRegistered()
	}

	passwordHash, err := s.hashSvc.Hash(req.Password)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("hash password: %w", err))
	}

	accountNumber, err := s.uniqueAccountNumber(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("assign account number: %w", err))
	}

	now := time.Now().UTC()
	account := &domain.Account{
		ID:            uuid.New(),
		DisplayName:   req.Name,
		Email:         req.Email,
		AccountNumber: accountNumber,
		PasswordHash:  passwordHash,
		AvatarURL:     domain.AvatarURLFor(req.Name),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.accountRepo.Create(ctx, account); err != nil {
		if errors.Is(err, ports.ErrDuplicateEmail) {
			return nil, apperror.ErrEmailAlreadyRegistered()
		}
		return nil, apperror.ErrStoreUnavailable(fmt.Errorf("create account: %w", err))
	}

	// Balance init failure after the account insert leaves the account in
	// place; reconciliation is an operational concern, not an auto-rollback.
	if err := s.ledgerRepo.InitBalance(ctx, accountNumber, 0); err != nil {
		s.log.Error().
			Err(err).
			Str("account_id", account.ID.String()).
			Str("account_number", accountNumber).
			Msg("account created but balance initialization failed")
		return nil, apperror.ErrAccountProvisioningIncomplete(fmt.Errorf("init balance: %w", err))
	}

	s.log.Info().
		Str("account_id", account.ID.String()).
		Str("account_number", accountNumber).
		Msg("account registered")

	return account, nil
}

// Login validates credentials and returns a session token plus the composed
// account+balance view. Unknown email and wrong password yield the identical
// error.
func (s *AccountServiceImpl) Login(ctx context.Context, email, password string) (*ports.LoginResult, error) {
	account, err := s.accountRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, apperror.ErrStoreUnavailable(fmt.Errorf("find account: %w", err))
	}
	if account == nil {
		return nil, apperror.ErrInvalidCredentials()
	}

	if !s.hashSvc.Verify(password, account.PasswordHash) {
		return nil, apperror.ErrInvalidCredentials()
	}

	balance, err := s.ledgerRepo.GetBalance(ctx, account.AccountNumber)
	if err != nil {
		return nil, apperror.ErrStoreUnavailable(fmt.Errorf("read balance: %w", err))
	}

	token, _, expiresAt, err := s.tokenSvc.Generate(account.ID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("generate token: %w", err))
	}

	s.log.Info().Str("account_id", account.ID.String()).Msg("login successful")

	return &ports.LoginResult{
		Token:     token,
		ExpiresAt: expiresAt,
		Account:   composeView(account, balance),
	}, nil
}

// Logout revokes the session token until its natural expiry.
func (s *AccountServiceImpl) Logout(ctx context.Context, tokenID string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	if err := s.sessions.Revoke(ctx, tokenID, ttl); err != nil {
		return apperror.ErrStoreUnavailable(fmt.Errorf("revoke session: %w", err))
	}
	return nil
}

// GetAccountView returns the composed account+balance view.
func (s *AccountServiceImpl) GetAccountView(ctx context.Context, id uuid.UUID) (*ports.AccountView, error) {
	account, err := s.accountRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.ErrStoreUnavailable(fmt.Errorf("find account: %w", err))
	}
	if account == nil {
		return nil, apperror.ErrNotFound("account")
	}

	balance, err := s.ledgerRepo.GetBalance(ctx, account.AccountNumber)
	if err != nil {
		return nil, apperror.ErrStoreUnavailable(fmt.Errorf("read balance: %w", err))
	}

	view := composeView(account, balance)
	return &view, nil
}

// UpdateProfile writes the mutable profile fields only. Email and account
// number cannot change through this path.
func (s *AccountServiceImpl) UpdateProfile(ctx context.Context, id uuid.UUID, req ports.UpdateProfileRequest) (*ports.AccountView, error) {
	account, err := s.accountRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.ErrStoreUnavailable(fmt.Errorf("find account: %w", err))
	}
	if account == nil {
		return nil, apperror.ErrNotFound("account")
	}

	displayName := account.DisplayName
	avatarURL := account.AvatarURL
	if req.DisplayName != nil {
		displayName = *req.DisplayName
	}
	if req.AvatarURL != nil {
		avatarURL = *req.AvatarURL
	}

	if err := s.accountRepo.UpdateProfile(ctx, id, displayName, avatarURL); err != nil {
		return nil, apperror.ErrStoreUnavailable(fmt.Errorf("update profile: %w", err))
	}

	account.DisplayName = displayName
	account.AvatarURL = avatarURL

	balance, err := s.ledgerRepo.GetBalance(ctx, account.AccountNumber)
	if err != nil {
		return nil, apperror.ErrStoreUnavailable(fmt.Errorf("read balance: %w", err))
	}

	view := composeView(account, balance)
	return &view, nil
}

// ChangePassword verifies the old password before writing the new hash.
// On mismatch storage is untouched.
func (s *AccountServiceImpl) ChangePassword(ctx context.Context, id uuid.UUID, oldPassword, newPassword string) error {
	account, err := s.accountRepo.GetByID(ctx, id)
	if err != nil {
		return apperror.ErrStoreUnavailable(fmt.Errorf("find account: %w", err))
	}
	if account == nil {
		return apperror.ErrNotFound("account")
	}

	if !s.hashSvc.Verify(oldPassword, account.PasswordHash) {
		return apperror.ErrInvalidCredentials()
	}

	newHash, err := s.hashSvc.Hash(newPassword)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("hash password: %w", err))
	}

	if err := s.accountRepo.UpdatePasswordHash(ctx, id, newHash); err != nil {
		return apperror.ErrStoreUnavailable(fmt.Errorf("update password: %w", err))
	}

	s.log.Info().Str("account_id", id.String()).Msg("password changed")
	return nil
}

// ChangePin follows the same verify-then-rewrite contract as ChangePassword
// on the secondary credential field. When no PIN is stored yet, this sets
// the first one without a current-PIN check.
func (s *AccountServiceImpl) ChangePin(ctx context.Context, id uuid.UUID, currentPin, newPin string) error {
	account, err := s.accountRepo.GetByID(ctx, id)
	if err != nil {
		return apperror.ErrStoreUnavailable(fmt.Errorf("find account: %w", err))
	}
	if account == nil {
		return apperror.ErrNotFound("account")
	}

	if account.HasPin() && !s.hashSvc.Verify(currentPin, *account.PinHash) {
		return apperror.ErrPinIncorrect()
	}

	newHash, err := s.hashSvc.Hash(newPin)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("hash pin: %w", err))
	}

	if err := s.accountRepo.UpdatePinHash(ctx, id, newHash); err != nil {
		return apperror.ErrStoreUnavailable(fmt.Errorf("update pin: %w", err))
	}

	s.log.Info().Str("account_id", id.String()).Msg("transfer pin changed")
	return nil
}

// uniqueAccountNumber draws random account numbers until one is unused.
func (s *AccountServiceImpl) uniqueAccountNumber(ctx context.Context) (string, error) {
	for i := 0; i < accountNumberAttempts; i++ {
		n, err := domain.GenerateAccountNumber()
		if err != nil {
			return "", err
		}
		existing, err := s.accountRepo.GetByAccountNumber(ctx, n)
		if err != nil {
			return "", fmt.Errorf("check account number: %w", err)
		}
		if existing == nil {
			return n, nil
		}
	}
	return "", fmt.Errorf("no unused account number after %d attempts", accountNumberAttempts)
}

func composeView(account *domain.Account, balance int64) ports.AccountView {
	return ports.AccountView{
		ID:            account.ID,
		DisplayName:   account.DisplayName,
		Email:         account.Email,
		AccountNumber: account.AccountNumber,
		AvatarURL:     account.AvatarURL,
		Balance:       balance,
		HasPin:        account.HasPin(),
	}
}
