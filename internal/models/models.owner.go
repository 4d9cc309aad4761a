// FilePath: internal/models/models.owner.go
package models

import "time"

// Owner is an account that registers and owns devices. Everything except
// HasDevice is immutable after creation.
type Owner struct {
	ID           string    `json:"id" db:"id"`
	Login        string    `json:"login" db:"login"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Name         string    `json:"name" db:"name"`
	LastName     string    `json:"last_name" db:"last_name"`
	Token        string    `json:"-" db:"token"`
	HasDevice    bool      `json:"has_device" db:"has_device"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
