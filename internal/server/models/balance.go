package models

import "time"

// BalanceField names one of the two independent balance columns.
type BalanceField string

const (
	FieldHome BalanceField = "home"
	FieldGas  BalanceField = "gas"
)

// Balance holds the two USD balances of a user. Exactly one row per user,
// mutated only through signed-delta application.
type Balance struct {
	UserID      string
	HomeBalance float64
	GasBalance  float64
	UpdatedAt   time.Time
}
