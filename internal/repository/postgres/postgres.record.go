// FilePath: internal/repository/postgres/postgres.record.go
package postgres

import (
	"context"
	"database/sql"

	"github.com/ecohack/envhub/internal/database"
	"github.com/ecohack/envhub/internal/errors"
	"github.com/ecohack/envhub/internal/models"
	"github.com/ecohack/envhub/internal/repository"
)

type RecordRepo struct {
	PostgresBaseRepo
}

func NewRecordRepository(db database.DB) (*RecordRepo, error) {
	repo := &RecordRepo{PostgresBaseRepo: PostgresBaseRepo{db: db}}
	queries := []string{
		// id is the insertion sequence; it breaks ties between records that
		// share a timestamp.
		`CREATE TABLE IF NOT EXISTS records (
			id BIGSERIAL PRIMARY KEY,
			device_id TEXT NOT NULL REFERENCES devices(id),
			temperature DOUBLE PRECISION NOT NULL,
			humidity DOUBLE PRECISION NOT NULL,
			radioactivity DOUBLE PRECISION NOT NULL,
			pm25 DOUBLE PRECISION NOT NULL,
			pm10 DOUBLE PRECISION NOT NULL,
			noisiness DOUBLE PRECISION NOT NULL,
			time TIMESTAMPTZ NOT NULL
		)`,
		// Serves both the latest-per-device window scan and the sweep's
		// newest-record lookups.
		`CREATE INDEX IF NOT EXISTS idx_records_device_time
			ON records(device_id, time DESC, id DESC)`,
	}
	if err := repo.initializeSchema(queries); err != nil {
		return nil, err
	}
	return repo, nil
}

// Append stores the record and marks its device active in the same commit.
// Any fresh telemetry is a heartbeat, regardless of sweep timing.
func (r *RecordRepo) Append(ctx context.Context, record *models.Record) error {
	tx, err := r.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO records (
			device_id, temperature, humidity, radioactivity, pm25, pm10, noisiness, time
		) VALUES (
			:device_id, :temperature, :humidity, :radioactivity, :pm25, :pm10, :noisiness, :time
		)`

	if _, err := tx.NamedExecContext(ctx, query, record); err != nil {
		return errors.NewDatabaseError("failed to append record", err)
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE devices SET is_active = TRUE WHERE id = $1`, record.DeviceID)
	if err != nil {
		return errors.NewDatabaseError("failed to mark device active", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return errors.NewDatabaseError("failed to get rows affected", err)
	}
	if rows == 0 {
		return repository.ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return errors.NewDatabaseError("failed to commit record append", err)
	}
	return nil
}

func (r *RecordRepo) LatestByDevice(ctx context.Context, deviceID string) (*models.Record, error) {
	record := &models.Record{}
	query := `
		SELECT id, device_id, temperature, humidity, radioactivity, pm25, pm10, noisiness, time
		FROM records
		WHERE device_id = $1
		ORDER BY time DESC, id DESC
		LIMIT 1`

	err := r.db.GetDB().GetContext(ctx, record, query, deviceID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, errors.NewDatabaseError("failed to get latest record", err)
	}
	return record, nil
}

func (r *RecordRepo) LatestByOwner(ctx context.Context, ownerID string) ([]*models.DeviceSnapshot, error) {
	// Window function picks the newest record per device; insertion order
	// breaks timestamp ties deterministically.
	query := `
		WITH RankedRecords AS (
			SELECT r.device_id, r.temperature, r.humidity, r.radioactivity,
			       r.pm25, r.pm10, r.noisiness,
			       d.longitude AS lon, d.latitude AS lat,
			       ROW_NUMBER() OVER (
					PARTITION BY r.device_id
					ORDER BY r.time DESC, r.id DESC
			       ) AS rn
			FROM records r
			JOIN devices d ON d.id = r.device_id
			WHERE d.owner_id = $1
		)
		SELECT lon, lat, temperature, humidity, radioactivity, pm25, pm10, noisiness
		FROM RankedRecords
		WHERE rn = 1
		ORDER BY device_id`

	snapshots := []*models.DeviceSnapshot{}
	err := r.db.GetDB().SelectContext(ctx, &snapshots, query, ownerID)
	if err != nil {
		return nil, errors.NewDatabaseError("failed to get latest records by owner", err)
	}
	return snapshots, nil
}
