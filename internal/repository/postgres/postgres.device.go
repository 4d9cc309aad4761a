// FilePath: internal/repository/postgres/postgres.device.go
package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/ecohack/envhub/internal/database"
	"github.com/ecohack/envhub/internal/errors"
	"github.com/ecohack/envhub/internal/models"
	"github.com/ecohack/envhub/internal/repository"
	"github.com/lib/pq"
)

type DeviceRepo struct {
	PostgresBaseRepo
}

func NewDeviceRepository(db database.DB) (*DeviceRepo, error) {
	repo := &DeviceRepo{PostgresBaseRepo: PostgresBaseRepo{db: db}}
	queries := []string{
		`CREATE TABLE IF NOT EXISTS devices (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			latitude DOUBLE PRECISION NOT NULL,
			longitude DOUBLE PRECISION NOT NULL,
			owner_id TEXT NOT NULL REFERENCES owners(id),
			is_active BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		// The sweep only ever scans active devices.
		`CREATE INDEX IF NOT EXISTS idx_devices_active
			ON devices(id) WHERE is_active`,
		`CREATE INDEX IF NOT EXISTS idx_devices_owner ON devices(owner_id)`,
	}
	if err := repo.initializeSchema(queries); err != nil {
		return nil, err
	}
	return repo, nil
}

// Create inserts the device and sets the owner's has_device flag in one
// commit, so a registration can never leave partial state behind.
func (r *DeviceRepo) Create(ctx context.Context, device *models.Device) error {
	tx, err := r.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO devices (
			id, name, latitude, longitude, owner_id, is_active, created_at
		) VALUES (
			:id, :name, :latitude, :longitude, :owner_id, :is_active, :created_at
		)`

	if _, err := tx.NamedExecContext(ctx, query, device); err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return repository.ErrDuplicate
		}
		return errors.NewDatabaseError("failed to create device", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE owners SET has_device = TRUE WHERE id = $1`, device.OwnerID); err != nil {
		return errors.NewDatabaseError("failed to flag owner has_device", err)
	}

	if err := tx.Commit(); err != nil {
		return errors.NewDatabaseError("failed to commit device creation", err)
	}
	return nil
}

func (r *DeviceRepo) GetByName(ctx context.Context, name string) (*models.Device, error) {
	device := &models.Device{}
	query := `SELECT * FROM devices WHERE name = $1`

	err := r.db.GetDB().GetContext(ctx, device, query, name)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, errors.NewDatabaseError("failed to get device by name", err)
	}
	return device, nil
}

func (r *DeviceRepo) ListByOwner(ctx context.Context, ownerID string) ([]*models.Device, error) {
	devices := []*models.Device{}
	query := `SELECT * FROM devices WHERE owner_id = $1 ORDER BY id`

	err := r.db.GetDB().SelectContext(ctx, &devices, query, ownerID)
	if err != nil {
		return nil, errors.NewDatabaseError("failed to list devices by owner", err)
	}
	return devices, nil
}

func (r *DeviceRepo) ListActive(ctx context.Context) ([]*models.Device, error) {
	devices := []*models.Device{}
	query := `SELECT * FROM devices WHERE is_active ORDER BY id`

	err := r.db.GetDB().SelectContext(ctx, &devices, query)
	if err != nil {
		return nil, errors.NewDatabaseError("failed to list active devices", err)
	}
	return devices, nil
}

// Deactivate demotes a device in a single guarded statement: the flip only
// happens while the device is still active and no record at or after
// staleBefore exists, so a heartbeat committed between the sweep's read and
// this write wins.
func (r *DeviceRepo) Deactivate(ctx context.Context, id string, staleBefore time.Time) (bool, error) {
	query := `
		UPDATE devices SET is_active = FALSE
		WHERE id = $1
		  AND is_active
		  AND NOT EXISTS (
			SELECT 1 FROM records WHERE device_id = $1 AND time >= $2
		  )`

	result, err := r.db.GetDB().ExecContext(ctx, query, id, staleBefore)
	if err != nil {
		return false, errors.NewDatabaseError("failed to deactivate device", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, errors.NewDatabaseError("failed to get rows affected", err)
	}
	return rows > 0, nil
}
