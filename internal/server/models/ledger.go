package models

import "time"

// Ledger entry categories. CategoryGasFee entries reconcile against the gas
// balance; every other category reconciles against the home balance.
const (
	CategoryDefault  = "default"
	CategoryGasFee   = "gas_fee"
	CategoryWithdraw = "withdraw"
	CategoryCredit   = "credit"
)

// LedgerEntry is an immutable, append-only record of a single signed balance
// change. Positive amounts are credits, negative are debits. Entries are
// ordered by the auto-incrementing ID.
type LedgerEntry struct {
	ID        int64
	UserID    string
	Amount    float64
	Category  string
	CreatedAt time.Time
}

// FieldForCategory maps a category to the balance field its amounts
// reconcile against.
func FieldForCategory(category string) BalanceField {
	if category == CategoryGasFee {
		return FieldGas
	}
	return FieldHome
}
