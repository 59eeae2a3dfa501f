package domain

import "time"

// Balance holds the ledger amount for one account.
// Amounts are int64 minor units (centavos) and never negative.
type Balance struct {
	AccountNumber string    `json:"account_number"`
	Amount        int64     `json:"amount"`
	UpdatedAt     time.Time `json:"updated_at"`
}
