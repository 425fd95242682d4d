package models

import "time"

// Credential is the one-way login secret for a user. Email is duplicated
// from the users relation for lookup and must stay consistent with it.
// Created at signup, never mutated.
type Credential struct {
	UserID         string
	Email          string
	PasswordDigest string
	CreatedAt      time.Time
}
