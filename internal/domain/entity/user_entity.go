package entity

import (
	"time"
)

// User is the aggregate root for the user domain.
// Passwords are stored as bcrypt hashes in the Password field and are never
// serialized in API responses.
type User struct {
	ID        string
	Email     string
	Password  string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}
