package models

// Profile is the read-only composition of a user's identity and balances
// returned by every balance-affecting operation.
type Profile struct {
	UserID      string  `json:"uid"`
	Email       string  `json:"email"`
	Name        string  `json:"name"`
	HomeBalance float64 `json:"homeBalance"`
	GasBalance  float64 `json:"gasBalance"`
}
