package entity

import "time"

// Account status values. Every row is in exactly one of the two.
const (
	StatusActive  = "active"
	StatusBlocked = "blocked"
)

// User represents an account row in the `users` table. The password hash is
// never serialized; every outward-facing JSON shape reuses this struct.
type User struct {
	ID               int64      `db:"id" json:"id"`
	Name             string     `db:"name" json:"name"`
	Email            string     `db:"email" json:"email"`
	PasswordHash     string     `db:"password_hash" json:"-"`
	Status           string     `db:"status" json:"status"`
	RegistrationTime time.Time  `db:"registration_time" json:"registration_time"`
	LastLogin        *time.Time `db:"last_login" json:"last_login,omitempty"`
}

// Active reports whether the account may authenticate and pass the token gate.
func (u *User) Active() bool { return u.Status == StatusActive }
