package domain

import "time"

// User is the persisted account record. ID is zero until the store assigns it.
type User struct {
	ID           int64
	Name         string
	Email        string
	Age          int
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
