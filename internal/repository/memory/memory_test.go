// FilePath: internal/repository/memory/memory_test.go
package memory

import (
	"context"
	"testing"
	"time"

	"github.com/ecohack/envhub/internal/models"
)

func addActiveDevice(t *testing.T, store *Store, id string, ts time.Time) {
	t.Helper()
	ctx := context.Background()
	err := store.Devices().Create(ctx, &models.Device{ID: id, Name: "station-" + id, OwnerID: "own_x"})
	if err != nil {
		t.Fatalf("Create device failed: %v", err)
	}
	err = store.Records().Append(ctx, &models.Record{DeviceID: id, Time: ts})
	if err != nil {
		t.Fatalf("Append failed: %v", err)
	}
}

func TestDeactivateGuardBoundary(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	t0 := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	addActiveDevice(t, store, "dev_a", t0)

	// A record at exactly staleBefore blocks the demotion; the flip only
	// goes through once every record is strictly older.
	demoted, err := store.Devices().Deactivate(ctx, "dev_a", t0)
	if err != nil {
		t.Fatalf("Deactivate failed: %v", err)
	}
	if demoted {
		t.Error("record at the threshold must block demotion")
	}

	demoted, err = store.Devices().Deactivate(ctx, "dev_a", t0.Add(time.Second))
	if err != nil {
		t.Fatalf("Deactivate failed: %v", err)
	}
	if !demoted {
		t.Error("strictly older record must allow demotion")
	}
}

func TestDeactivateGuardHeartbeatWins(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	t0 := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	addActiveDevice(t, store, "dev_a", t0)

	// A heartbeat landing after the sweep's read but before its write must
	// not be overwritten by the demotion.
	err := store.Records().Append(ctx, &models.Record{DeviceID: "dev_a", Time: t0.Add(time.Hour)})
	if err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	demoted, err := store.Devices().Deactivate(ctx, "dev_a", t0.Add(time.Second))
	if err != nil {
		t.Fatalf("Deactivate failed: %v", err)
	}
	if demoted {
		t.Error("fresh record must block the demotion")
	}
	device, err := store.Devices().GetByName(ctx, "station-dev_a")
	if err != nil {
		t.Fatalf("GetByName failed: %v", err)
	}
	if !device.IsActive {
		t.Error("device with fresh record must stay active")
	}
}
