// FilePath: internal/models/models.device.go
package models

import "time"

// Device is a registered sensor station. Name is globally unique and doubles
// as the telemetry routing key on the bus. Coordinates are fixed at
// registration; IsActive is the only field that ever changes, flipped to
// true by ingestion and to false by the staleness sweep.
type Device struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Latitude  float64   `json:"latitude" db:"latitude"`
	Longitude float64   `json:"longitude" db:"longitude"`
	OwnerID   string    `json:"owner_id" db:"owner_id"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// DeviceListing is the per-owner device view returned by the API.
type DeviceListing struct {
	Name      string  `json:"name" db:"name"`
	Longitude float64 `json:"longitude" db:"longitude"`
	Latitude  float64 `json:"latitude" db:"latitude"`
	IsActive  bool    `json:"is_active" db:"is_active"`
}
