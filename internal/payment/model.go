package payment

import (
	"time"

	"github.com/shopspring/decimal"
)

// Intent is a client-submitted payment request before validation.
type Intent struct {
	UserID      int64           `json:"user_id"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency,omitempty"`
	Description string          `json:"description,omitempty"`
}

// Payment is a stored payment attempt. The store assigns ID and CreatedAt;
// rows are never updated after insert.
type Payment struct {
	ID          int64           `json:"id"`
	UserID      int64           `json:"user_id"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Status      Status          `json:"status"`
	Description string          `json:"description,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}
