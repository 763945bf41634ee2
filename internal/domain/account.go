package domain

import "github.com/shopspring/decimal"

// Account holds a customer's balance, keyed by the customer's user ID (email).
type Account struct {
	UserID  string          `json:"user_id"`
	Balance decimal.Decimal `json:"balance"`
}
