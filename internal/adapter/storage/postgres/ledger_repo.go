package postgres

import (
	"context"
	"errors"
	"fmt"

	"pix-transfer-gateway/internal/core/ports"

	"github.com/jackc/pgx/v5"
)

// LedgerRepo implements ports.LedgerRepository. One row per account number;
// every write is a single-row atomic statement. There is deliberately no
// cross-row transaction here, see the transfer commit semantics.
type LedgerRepo struct {
	pool Pool
}

// NewLedgerRepo creates a new LedgerRepo.
func NewLedgerRepo(pool Pool) *LedgerRepo {
	return &LedgerRepo{pool: pool}
}

// InitBalance creates the ledger row for a new account.
func (r *LedgerRepo) InitBalance(ctx context.Context, accountNumber string, amount int64) error {
	query := `INSERT INTO balances (account_number, amount, updated_at) VALUES ($1, $2, NOW())`
	_, err := r.pool.Exec(ctx, query, accountNumber, amount)
	if err != nil {
		return fmt.Errorf("init balance: %w", err)
	}
	return nil
}

// GetBalance reads the current balance in centavos.
func (r *LedgerRepo) GetBalance(ctx context.Context, accountNumber string) (int64, error) {
	query := `SELECT amount FROM balances WHERE account_number = $1`

	var amount int64
	err := r.pool.QueryRow(ctx, query, accountNumber).Scan(&amount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ports.ErrBalanceNotFound
		}
		return 0, fmt.Errorf("get balance: %w", err)
	}
	return amount, nil
}

// ApplyDelta adds delta to the balance in one conditional update. The
// predicate refuses any debit that would take the balance below zero, so a
// concurrent debit can never overdraw.
func (r *LedgerRepo) ApplyDelta(ctx context.Context, accountNumber string, delta int64) error {
	query := `UPDATE balances SET amount = amount + $1, updated_at = NOW()
		WHERE account_number = $2 AND amount + $1 >= 0`

	tag, err := r.pool.Exec(ctx, query, delta, accountNumber)
	if err != nil {
		return fmt.Errorf("apply balance delta: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Either the row does not exist or the debit would overdraw.
		var exists bool
		err := r.pool.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM balances WHERE account_number = $1)`,
			accountNumber,
		).Scan(&exists)
		if err != nil {
			return fmt.Errorf("apply balance delta: %w", err)
		}
		if !exists {
			return ports.ErrBalanceNotFound
		}
		return ports.ErrInsufficientBalance
	}
	return nil
}
