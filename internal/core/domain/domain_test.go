package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransferState_IsTerminal(t *testing.T) {
	tests := []struct {
		name  string
		state TransferState
		want  bool
	}{
		{"entry", TransferStateEntry, false},
		{"secondary auth", TransferStateSecondaryAuth, false},
		{"review", TransferStateReview, false},
		{"committed", TransferStateCommitted, true},
		{"cancelled", TransferStateCancelled, true},
		{"failed", TransferStateFailed, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.state.IsTerminal())
		})
	}
}

func TestNewTransferRequest(t *testing.T) {
	req := NewTransferRequest("12345678")

	assert.Equal(t, TransferStateEntry, req.State)
	assert.Equal(t, "12345678", req.PayerAccountNumber)
	assert.Zero(t, req.Amount)
	assert.Zero(t, req.Fee)
	assert.Zero(t, req.Total)
}

func TestTransferRequest_Freeze(t *testing.T) {
	req := NewTransferRequest("12345678")
	req.Amount = 100_00

	req.Freeze()

	assert.Equal(t, int64(2_80), req.Fee)
	assert.Equal(t, int64(102_80), req.Total)
}

func TestTransferRequest_ResetToEntry(t *testing.T) {
	req := NewTransferRequest("12345678")
	req.Amount = 50_00
	req.State = TransferStateSecondaryAuth
	req.Freeze()

	req.ResetToEntry()

	assert.Equal(t, TransferStateEntry, req.State)
	assert.Zero(t, req.Fee)
	assert.Zero(t, req.Total)
	// Entered details survive so the caller can retry.
	assert.Equal(t, int64(50_00), req.Amount)
}

func TestAccount_HasPin(t *testing.T) {
	hash := "$argon2id$hashed"
	empty := ""

	assert.True(t, (&Account{PinHash: &hash}).HasPin())
	assert.False(t, (&Account{PinHash: nil}).HasPin())
	assert.False(t, (&Account{PinHash: &empty}).HasPin())
}

func TestGenerateAccountNumber(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		n, err := GenerateAccountNumber()
		require.NoError(t, err)
		assert.Len(t, n, AccountNumberLength)
		for _, c := range n {
			assert.True(t, c >= '0' && c <= '9')
		}
		seen[n] = true
	}
	// Collisions over 50 draws of 8 digits are vanishingly unlikely.
	assert.Greater(t, len(seen), 45)
}

func TestAvatarURLFor(t *testing.T) {
	assert.Equal(t,
		"https://api.dicebear.com/7.x/initials/svg?seed=Ana+Silva",
		AvatarURLFor("Ana Silva"),
	)
}
