package domain

import (
	"crypto/rand"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
)

// AccountNumberLength is the number of digits in a ledger account number.
const AccountNumberLength = 8

// Account represents a registered account holder.
type Account struct {
	ID            uuid.UUID `json:"id"`
	DisplayName   string    `json:"display_name"`
	Email         string    `json:"email"`
	AccountNumber string    `json:"account_number"` // Immutable once assigned
	PasswordHash  string    `json:"-"`              // Never expose
	PinHash       *string   `json:"-"`              // Secondary credential, nil until set
	AvatarURL     string    `json:"avatar_url"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// HasPin returns true if the account has a transfer PIN configured.
func (a *Account) HasPin() bool {
	return a.PinHash != nil && *a.PinHash != ""
}

// GenerateAccountNumber produces a random numeric account number.
// Uniqueness is the caller's responsibility (checked against the directory).
func GenerateAccountNumber() (string, error) {
	buf := make([]byte, AccountNumberLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating account number: %w", err)
	}
	digits := make([]byte, AccountNumberLength)
	for i, b := range buf {
		digits[i] = '0' + b%10
	}
	return string(digits), nil
}

// AvatarURLFor derives the initials-avatar URL for a display name.
func AvatarURLFor(displayName string) string {
	return "https://api.dicebear.com/7.x/initials/svg?seed=" + url.QueryEscape(displayName)
}
