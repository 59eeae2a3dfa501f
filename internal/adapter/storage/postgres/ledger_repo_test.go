package postgres

import (
	"context"
	"errors"
	"testing"

	"pix-transfer-gateway/internal/core/ports"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerRepo_InitBalance(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewLedgerRepo(mock)

	mock.ExpectExec("INSERT INTO balances").
		WithArgs("12345678", int64(0)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = repo.InitBalance(context.Background(), "12345678", 0)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepo_GetBalance(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewLedgerRepo(mock)

	mock.ExpectQuery("SELECT amount FROM balances").
		WithArgs("12345678").
		WillReturnRows(pgxmock.NewRows([]string{"amount"}).AddRow(int64(10_280)))

	amount, err := repo.GetBalance(context.Background(), "12345678")
	require.NoError(t, err)
	assert.Equal(t, int64(10_280), amount)
}

func TestLedgerRepo_GetBalance_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewLedgerRepo(mock)

	mock.ExpectQuery("SELECT amount FROM balances").
		WithArgs("00000000").
		WillReturnRows(pgxmock.NewRows([]string{"amount"}))

	_, err = repo.GetBalance(context.Background(), "00000000")
	assert.ErrorIs(t, err, ports.ErrBalanceNotFound)
}

func TestLedgerRepo_ApplyDelta_Credit(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewLedgerRepo(mock)

	mock.ExpectExec("UPDATE balances SET amount").
		WithArgs(int64(10_000), "12345678").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err = repo.ApplyDelta(context.Background(), "12345678", 10_000)
	assert.NoError(t, err)
}

func TestLedgerRepo_ApplyDelta_InsufficientBalance(t *testing.T) {
	// The conditional predicate rejects the debit; the row exists.
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewLedgerRepo(mock)

	mock.ExpectExec("UPDATE balances SET amount").
		WithArgs(int64(-10_280), "12345678").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("12345678").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	err = repo.ApplyDelta(context.Background(), "12345678", -10_280)
	assert.ErrorIs(t, err, ports.ErrInsufficientBalance)
}

func TestLedgerRepo_ApplyDelta_BalanceRowMissing(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewLedgerRepo(mock)

	mock.ExpectExec("UPDATE balances SET amount").
		WithArgs(int64(-100), "00000000").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("00000000").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))

	err = repo.ApplyDelta(context.Background(), "00000000", -100)
	assert.ErrorIs(t, err, ports.ErrBalanceNotFound)
}

func TestLedgerRepo_ApplyDelta_ExecError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewLedgerRepo(mock)

	mock.ExpectExec("UPDATE balances SET amount").
		WithArgs(int64(-100), "12345678").
		WillReturnError(errors.New("connection reset"))

	err = repo.ApplyDelta(context.Background(), "12345678", -100)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ports.ErrInsufficientBalance)
}
