package domain

import "time"

// User represents a registered account. PasswordHash is the bcrypt artifact of
// the password and must never leave the server.
type User struct {
	ID           int64
	Username     string
	Email        string
	FullName     string
	PasswordHash string
	CreatedAt    time.Time
}
