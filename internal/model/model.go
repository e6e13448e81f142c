package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction statuses
const (
	TxStatusUnconfirmed = "unconfirmed"
	TxStatusProcessed   = "processed"
)

// User is a registered bot account. Amount fields are exact decimals,
// persisted as text to avoid binary float rounding.
type User struct {
	TelegramID   int64           `json:"telegram_id"`
	Username     string          `json:"username"`
	FirstName    string          `json:"first_name"`
	LastName     string          `json:"last_name,omitempty"`
	APIKey       string          `json:"api_key,omitempty"` // key-custody credential reference
	TotalDeposit decimal.Decimal `json:"total_deposit"`
	LockinTotal  decimal.Decimal `json:"lockin_total"`

	// Autobuy is the standing lock-in quantity. Nil means the user is
	// prompted for an amount on every lock-in request.
	Autobuy *decimal.Decimal `json:"autobuy_amount,omitempty"`
}

// Transaction records one requested deposit against an exchange-held
// address. Status moves unconfirmed -> processed exactly once, driven by
// the reconciliation poller.
type Transaction struct {
	ID        int64           `json:"id"`
	UserID    int64           `json:"user_id"`
	Amount    decimal.Decimal `json:"amount"`
	Address   string          `json:"address"`
	Status    string          `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
}
