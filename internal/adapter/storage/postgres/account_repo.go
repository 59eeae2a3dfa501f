package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"pix-transfer-gateway/internal/core/domain"
	"pix-transfer-gateway/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// AccountRepo implements ports.AccountRepository.
type AccountRepo struct {
	pool Pool
}

// NewAccountRepo creates a new AccountRepo.
func NewAccountRepo(pool Pool) *AccountRepo {
	return &AccountRepo{pool: pool}
}

const accountColumns = `id, display_name, email, account_number, password_hash, pin_hash, avatar_url, created_at, updated_at`

// Create inserts a new account. A unique-constraint violation on the email
// column maps to ports.ErrDuplicateEmail so the service can surface the race
// loser cleanly.
func (r *AccountRepo) Create(ctx context.Context, a *domain.Account) error {
	query := `INSERT INTO accounts (id, display_name, email, account_number, password_hash, pin_hash, avatar_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.pool.Exec(ctx, query,
		a.ID, a.DisplayName, a.Email, a.AccountNumber,
		a.PasswordHash, a.PinHash, a.AvatarURL,
		a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" && strings.Contains(pgErr.ConstraintName, "email") {
			return ports.ErrDuplicateEmail
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

// GetByID fetches an account by its UUID.
func (r *AccountRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return r.scanOne(r.pool.QueryRow(ctx, query, id), "id")
}

// GetByEmail fetches an account by email.
func (r *AccountRepo) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1`
	return r.scanOne(r.pool.QueryRow(ctx, query, email), "email")
}

// GetByAccountNumber fetches an account by its account number.
func (r *AccountRepo) GetByAccountNumber(ctx context.Context, accountNumber string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE account_number = $1`
	return r.scanOne(r.pool.QueryRow(ctx, query, accountNumber), "account_number")
}

// UpdateProfile writes only the mutable profile fields.
func (r *AccountRepo) UpdateProfile(ctx context.Context, id uuid.UUID, displayName, avatarURL string) error {
	query := `UPDATE accounts SET display_name=$1, avatar_url=$2, updated_at=NOW() WHERE id=$3`
	_, err := r.pool.Exec(ctx, query, displayName, avatarURL, id)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	return nil
}

// UpdatePasswordHash replaces the stored password hash.
func (r *AccountRepo) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	query := `UPDATE accounts SET password_hash=$1, updated_at=NOW() WHERE id=$2`
	_, err := r.pool.Exec(ctx, query, hash, id)
	if err != nil {
		return fmt.Errorf("update password hash: %w", err)
	}
	return nil
}

// UpdatePinHash replaces the stored transfer PIN hash.
func (r *AccountRepo) UpdatePinHash(ctx context.Context, id uuid.UUID, hash string) error {
	query := `UPDATE accounts SET pin_hash=$1, updated_at=NOW() WHERE id=$2`
	_, err := r.pool.Exec(ctx, query, hash, id)
	if err != nil {
		return fmt.Errorf("update pin hash: %w", err)
	}
	return nil
}

func (r *AccountRepo) scanOne(row pgx.Row, by string) (*domain.Account, error) {
	a := &domain.Account{}
	err := row.Scan(
		&a.ID, &a.DisplayName, &a.Email, &a.AccountNumber,
		&a.PasswordHash, &a.PinHash, &a.AvatarURL,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get account by %s: %w", by, err)
	}
	return a, nil
}
