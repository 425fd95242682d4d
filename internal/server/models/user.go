package models

import "time"

// User is an identity record. Immutable after signup except Name.
type User struct {
	ID        string
	Email     string
	Name      string
	CreatedAt time.Time
}
