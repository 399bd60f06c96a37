package domain

import "time"

// User is a registered account. PasswordHash is a bcrypt hash and is never
// serialized to API responses.
type User struct {
	ID           string
	FirstName    string
	LastName     string
	Username     string
	Email        string
	PasswordHash string
	IsAdmin      bool
	CreatedAt    time.Time
}
