// FilePath: internal/repository/repository.go
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/ecohack/envhub/internal/models"
)

var (
	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("resource not found")
	// ErrDuplicate indicates that a resource already exists
	ErrDuplicate = errors.New("resource already exists")
	// ErrInvalidInput indicates that the input data is invalid
	ErrInvalidInput = errors.New("invalid input")
)

// OwnerRepository defines the interface for owner account operations
type OwnerRepository interface {
	Create(ctx context.Context, owner *models.Owner) error
	GetByLogin(ctx context.Context, login string) (*models.Owner, error)
	GetByToken(ctx context.Context, token string) (*models.Owner, error)
}

// DeviceRepository defines the interface for device registry operations
type DeviceRepository interface {
	// Create inserts the device and flips the owner's has_device flag in a
	// single commit. Returns ErrDuplicate when the name is already taken.
	Create(ctx context.Context, device *models.Device) error
	GetByName(ctx context.Context, name string) (*models.Device, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*models.Device, error)
	ListActive(ctx context.Context) ([]*models.Device, error)
	// Deactivate demotes the device unless a record at or after staleBefore
	// exists, so a concurrent ingestion heartbeat is never overwritten.
	// Reports whether the device was actually demoted.
	Deactivate(ctx context.Context, id string, staleBefore time.Time) (bool, error)
}

// RecordRepository defines the interface for the append-only telemetry store
type RecordRepository interface {
	// Append stores the record and marks its device active in a single
	// commit (the heartbeat effect of any fresh telemetry).
	Append(ctx context.Context, record *models.Record) error
	// LatestByDevice returns the record with the maximum time for the
	// device, ties broken by insertion order. ErrNotFound when the device
	// has no records.
	LatestByDevice(ctx context.Context, deviceID string) (*models.Record, error)
	// LatestByOwner returns one snapshot per device of the owner that has
	// at least one record, ordered by device id.
	LatestByOwner(ctx context.Context, ownerID string) ([]*models.DeviceSnapshot, error)
}
