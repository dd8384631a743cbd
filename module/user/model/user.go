package model

import "time"

// User is the durable identity record. Created at signup, immutable
// afterwards; the username doubles as the display handle on the wire.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}
