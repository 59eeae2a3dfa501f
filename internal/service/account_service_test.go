package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"pix-transfer-gateway/internal/core/domain"
	"pix-transfer-gateway/internal/core/ports"
	"pix-transfer-gateway/internal/core/ports/mocks"
	"pix-transfer-gateway/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type accountTestDeps struct {
	svc         *AccountServiceImpl
	accountRepo *mocks.MockAccountRepository
	ledgerRepo  *mocks.MockLedgerRepository
	hashSvc     *mocks.MockHashService
	tokenSvc    *mocks.MockTokenService
	sessions    *mocks.MockSessionRevoker
	ctrl        *gomock.Controller
}

func setupAccountService(t *testing.T) *accountTestDeps {
	ctrl := gomock.NewController(t)
	d := &accountTestDeps{
		accountRepo: mocks.NewMockAccountRepository(ctrl),
		ledgerRepo:  mocks.NewMockLedgerRepository(ctrl),
		hashSvc:     mocks.NewMockHashService(ctrl),
		tokenSvc:    mocks.NewMockTokenService(ctrl),
		sessions:    mocks.NewMockSessionRevoker(ctrl),
		ctrl:        ctrl,
	}
	d.svc = NewAccountService(
		d.accountRepo, d.ledgerRepo, d.hashSvc, d.tokenSvc, d.sessions,
		zerolog.Nop(),
	)
	return d
}

func testAccount() *domain.Account {
	pinHash := "argon2-pin-hash"
	return &domain.Account{
		ID:            uuid.New(),
		DisplayName:   "Maria Silva",
		Email:         "maria@example.com",
		AccountNumber: "12345678",
		PasswordHash:  "argon2-password-hash",
		PinHash:       &pinHash,
		AvatarURL:     domain.AvatarURLFor("Maria Silva"),
	}
}

// ==================== Register Tests ====================

func TestAccountService_Register_Success(t *testing.T) {
	d := setupAccountService(t)
	defer d.ctrl.Finish()
	ctx := context.Background()

	req := ports.RegisterRequest{Name: "Maria Silva", Email: "maria@example.com", Password: "s3cret-pass"}

	d.accountRepo.EXPECT().GetByEmail(ctx, req.Email).Return(nil, nil)
	d.hashSvc.EXPECT().Hash(req.Password).Return("hashed", nil)
	d.accountRepo.EXPECT().GetByAccountNumber(ctx, gomock.Any()).Return(nil, nil)
	d.accountRepo.EXPECT().Create(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, a *domain.Account) error {
			assert.Equal(t, req.Name, a.DisplayName)
			assert.Equal(t, "hashed", a.PasswordHash)
			assert.Len(t, a.AccountNumber, 8)
			assert.Nil(t, a.PinHash, "no PIN at registration")
			assert.Contains(t, a.AvatarURL, "dicebear")
			return nil
		})
	d.ledgerRepo.EXPECT().InitBalance(ctx, gomock.Any(), int64(0)).Return(nil)

	account, err := d.svc.Register(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, req.Email, account.Email)
	assert.NotEmpty(t, account.AccountNumber)
}

func TestAccountService_Register_DuplicateEmail(t *testing.T) {
	d := setupAccountService(t)
	defer d.ctrl.Finish()
	ctx := context.Background()

	d.accountRepo.EXPECT().GetByEmail(ctx, "taken@example.com").Return(testAccount(), nil)

	_, err := d.svc.Register(ctx, ports.RegisterRequest{Name: "x", Email: "taken@example.com", Password: "p"})

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "AUTH_002", appErr.Code)
}

func TestAccountService_Register_DuplicateEmailRace(t *testing.T) {
	// Pre-check passes but the insert loses the unique-constraint race.
	d := setupAccountService(t)
	defer d.ctrl.Finish()
	ctx := context.Background()

	d.accountRepo.EXPECT().GetByEmail(ctx, gomock.Any()).Return(nil, nil)
	d.hashSvc.EXPECT().Hash(gomock.Any()).Return("hashed", nil)
	d.accountRepo.EXPECT().GetByAccountNumber(ctx, gomock.Any()).Return(nil, nil)
	d.accountRepo.EXPECT().Create(ctx, gomock.Any()).Return(ports.ErrDuplicateEmail)

	_, err := d.svc.Register(ctx, ports.RegisterRequest{Name: "x", Email: "race@example.com", Password: "p"})

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "AUTH_002", appErr.Code)
}

func TestAccountService_Register_AccountNumberCollisionRetries(t *testing.T) {
	d := setupAccountService(t)
	defer d.ctrl.Finish()
	ctx := context.Background()

	d.accountRepo.EXPECT().GetByEmail(ctx, gomock.Any()).Return(nil, nil)
	d.hashSvc.EXPECT().Hash(gomock.Any()).Return("hashed", nil)
	// First draw collides, second is free.
	gomock.InOrder(
		d.accountRepo.EXPECT().GetByAccountNumber(ctx, gomock.Any()).Return(testAccount(), nil),
		d.accountRepo.EXPECT().GetByAccountNumber(ctx, gomock.Any()).Return(nil, nil),
	)
	d.accountRepo.EXPECT().Create(ctx, gomock.Any()).Return(nil)
	d.ledgerRepo.EXPECT().InitBalance(ctx, gomock.Any(), int64(0)).Return(nil)

	_, err := d.svc.Register(ctx, ports.RegisterRequest{Name: "x", Email: "y@example.com", Password: "p"})
	require.NoError(t, err)
}

func TestAccountService_Register_BalanceInitFails(t *testing.T) {
	// The account row stays in place; provisioning is reported incomplete.
	d := setupAccountService(t)
	defer d.ctrl.Finish()
	ctx := context.Background()

	d.accountRepo.EXPECT().GetByEmail(ctx, gomock.Any()).Return(nil, nil)
	d.hashSvc.EXPECT().Hash(gomock.Any()).Return("hashed", nil)
	d.accountRepo.EXPECT().GetByAccountNumber(ctx, gomock.Any()).Return(nil, nil)
	d.accountRepo.EXPECT().Create(ctx, gomock.Any()).Return(nil)
	d.ledgerRepo.EXPECT().InitBalance(ctx, gomock.Any(), int64(0)).Return(errors.New("connection reset"))

	_, err := d.svc.Register(ctx, ports.RegisterRequest{Name: "x", Email: "y@example.com", Password: "p"})

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "ACC_001", appErr.Code)
}

// ==================== Login Tests ====================

func TestAccountService_Login_Success(t *testing.T) {
	d := setupAccountService(t)
	defer d.ctrl.Finish()
	ctx := context.Background()
	account := testAccount()
	expiresAt := time.Now().Add(24 * time.Hour)

	d.accountRepo.EXPECT().GetByEmail(ctx, account.Email).Return(account, nil)
	d.hashSvc.EXPECT().Verify("s3cret-pass", account.PasswordHash).Return(true)
	d.ledgerRepo.EXPECT().GetBalance(ctx, account.AccountNumber).Return(int64(10_000), nil)
	d.tokenSvc.EXPECT().Generate(account.ID).Return("token", "jti-1", expiresAt, nil)

	result, err := d.svc.Login(ctx, account.Email, "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, "token", result.Token)
	assert.Equal(t, int64(10_000), result.Account.Balance)
	assert.True(t, result.Account.HasPin)
}

func TestAccountService_Login_CredentialErrorsIndistinguishable(t *testing.T) {
	d := setupAccountService(t)
	defer d.ctrl.Finish()
	ctx := context.Background()
	account := testAccount()

	// Unknown email.
	d.accountRepo.EXPECT().GetByEmail(ctx, "nobody@example.com").Return(nil, nil)
	_, errUnknown := d.svc.Login(ctx, "nobody@example.com", "whatever")

	// Wrong password.
	d.accountRepo.EXPECT().GetByEmail(ctx, account.Email).Return(account, nil)
	d.hashSvc.EXPECT().Verify("wrong", account.PasswordHash).Return(false)
	_, errWrong := d.svc.Login(ctx, account.Email, "wrong")

	require.Error(t, errUnknown)
	require.Error(t, errWrong)
	assert.Equal(t, errUnknown.Error(), errWrong.Error(),
		"unknown email and wrong password must be indistinguishable")
}

// ==================== Logout Tests ====================

func TestAccountService_Logout_RevokesUntilExpiry(t *testing.T) {
	d := setupAccountService(t)
	defer d.ctrl.Finish()
	ctx := context.Background()

	d.sessions.EXPECT().Revoke(ctx, "jti-1", gomock.Any()).Return(nil)

	err := d.svc.Logout(ctx, "jti-1", time.Now().Add(time.Hour))
	require.NoError(t, err)
}

func TestAccountService_Logout_ExpiredTokenIsNoop(t *testing.T) {
	d := setupAccountService(t)
	defer d.ctrl.Finish()

	// No Revoke expected.
	err := d.svc.Logout(context.Background(), "jti-1", time.Now().Add(-time.Minute))
	require.NoError(t, err)
}

// ==================== Profile Tests ====================

func TestAccountService_UpdateProfile_PartialFields(t *testing.T) {
	d := setupAccountService(t)
	defer d.ctrl.Finish()
	ctx := context.Background()
	account := testAccount()
	newName := "Maria S. Oliveira"

	d.accountRepo.EXPECT().GetByID(ctx, account.ID).Return(account, nil)
	d.accountRepo.EXPECT().UpdateProfile(ctx, account.ID, newName, account.AvatarURL).Return(nil)
	d.ledgerRepo.EXPECT().GetBalance(ctx, account.AccountNumber).Return(int64(500), nil)

	view, err := d.svc.UpdateProfile(ctx, account.ID, ports.UpdateProfileRequest{DisplayName: &newName})
	require.NoError(t, err)
	assert.Equal(t, newName, view.DisplayName)
	assert.Equal(t, account.AccountNumber, view.AccountNumber, "account number never changes")
}

// ==================== Credential Rotation Tests ====================

func TestAccountService_ChangePassword_WrongOldPasswordLeavesHashUntouched(t *testing.T) {
	d := setupAccountService(t)
	defer d.ctrl.Finish()
	ctx := context.Background()
	account := testAccount()

	d.accountRepo.EXPECT().GetByID(ctx, account.ID).Return(account, nil)
	d.hashSvc.EXPECT().Verify("wrong-old", account.PasswordHash).Return(false)
	// No Hash, no UpdatePasswordHash.

	err := d.svc.ChangePassword(ctx, account.ID, "wrong-old", "new-pass")

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "AUTH_001", appErr.Code)
}

func TestAccountService_ChangePassword_Success(t *testing.T) {
	d := setupAccountService(t)
	defer d.ctrl.Finish()
	ctx := context.Background()
	account := testAccount()

	d.accountRepo.EXPECT().GetByID(ctx, account.ID).Return(account, nil)
	d.hashSvc.EXPECT().Verify("old-pass", account.PasswordHash).Return(true)
	d.hashSvc.EXPECT().Hash("new-pass").Return("new-hash", nil)
	d.accountRepo.EXPECT().UpdatePasswordHash(ctx, account.ID, "new-hash").Return(nil)

	require.NoError(t, d.svc.ChangePassword(ctx, account.ID, "old-pass", "new-pass"))
}

func TestAccountService_ChangePin_VerifiesCurrentPin(t *testing.T) {
	d := setupAccountService(t)
	defer d.ctrl.Finish()
	ctx := context.Background()
	account := testAccount()

	d.accountRepo.EXPECT().GetByID(ctx, account.ID).Return(account, nil)
	d.hashSvc.EXPECT().Verify("1234", *account.PinHash).Return(true)
	d.hashSvc.EXPECT().Hash("5678").Return("new-pin-hash", nil)
	d.accountRepo.EXPECT().UpdatePinHash(ctx, account.ID, "new-pin-hash").Return(nil)

	require.NoError(t, d.svc.ChangePin(ctx, account.ID, "1234", "5678"))
}

func TestAccountService_ChangePin_WrongCurrentPin(t *testing.T) {
	d := setupAccountService(t)
	defer d.ctrl.Finish()
	ctx := context.Background()
	account := testAccount()

	d.accountRepo.EXPECT().GetByID(ctx, account.ID).Return(account, nil)
	d.hashSvc.EXPECT().Verify("0000", *account.PinHash).Return(false)

	err := d.svc.ChangePin(ctx, account.ID, "0000", "5678")

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "AUTH_003", appErr.Code)
}

func TestAccountService_ChangePin_FirstTimeSetSkipsCurrentCheck(t *testing.T) {
	d := setupAccountService(t)
	defer d.ctrl.Finish()
	ctx := context.Background()
	account := testAccount()
	account.PinHash = nil

	d.accountRepo.EXPECT().GetByID(ctx, account.ID).Return(account, nil)
	d.hashSvc.EXPECT().Hash("5678").Return("pin-hash", nil)
	d.accountRepo.EXPECT().UpdatePinHash(ctx, account.ID, "pin-hash").Return(nil)

	require.NoError(t, d.svc.ChangePin(ctx, account.ID, "", "5678"))
}

// ==================== View Tests ====================

func TestAccountService_GetAccountView(t *testing.T) {
	d := setupAccountService(t)
	defer d.ctrl.Finish()
	ctx := context.Background()
	account := testAccount()

	d.accountRepo.EXPECT().GetByID(ctx, account.ID).Return(account, nil)
	d.ledgerRepo.EXPECT().GetBalance(ctx, account.AccountNumber).Return(int64(123_45), nil)

	view, err := d.svc.GetAccountView(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(123_45), view.Balance)
	assert.Equal(t, account.Email, view.Email)
	assert.True(t, view.HasPin)
}

func TestAccountService_GetAccountView_NotFound(t *testing.T) {
	d := setupAccountService(t)
	defer d.ctrl.Finish()
	ctx := context.Background()

	id := uuid.New()
	d.accountRepo.EXPECT().GetByID(ctx, id).Return(nil, nil)

	_, err := d.svc.GetAccountView(ctx, id)

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "SYS_003", appErr.Code)
}
