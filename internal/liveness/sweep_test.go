// FilePath: internal/liveness/sweep_test.go
package liveness

import (
	"context"
	"testing"
	"time"

	"github.com/ecohack/envhub/internal/config"
	"github.com/ecohack/envhub/internal/hubservice"
	"github.com/ecohack/envhub/internal/models"
	"github.com/ecohack/envhub/internal/repository/memory"
)

var testSweepConfig = config.SweepConfig{
	Interval:   300 * time.Second,
	StaleAfter: 300 * time.Second,
}

type fixture struct {
	hub   *hubservice.HubService
	store *memory.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	return &fixture{
		hub:   hubservice.New(store.Owners(), store.Devices(), store.Records()),
		store: store,
	}
}

func (f *fixture) addDevice(t *testing.T, id, name string) {
	t.Helper()
	err := f.store.Devices().Create(context.Background(), &models.Device{
		ID:      id,
		Name:    name,
		OwnerID: "own_test",
	})
	if err != nil {
		t.Fatalf("Create device failed: %v", err)
	}
}

// addRecord appends telemetry, which also marks the device active.
func (f *fixture) addRecord(t *testing.T, deviceID string, ts time.Time, temp float64) {
	t.Helper()
	err := f.store.Records().Append(context.Background(), &models.Record{
		DeviceID:    deviceID,
		Temperature: temp,
		Time:        ts,
	})
	if err != nil {
		t.Fatalf("Append failed: %v", err)
	}
}

func (f *fixture) isActive(t *testing.T, name string) bool {
	t.Helper()
	d, err := f.store.Devices().GetByName(context.Background(), name)
	if err != nil {
		t.Fatalf("GetByName failed: %v", err)
	}
	return d.IsActive
}

func TestRunCycleDemotesStaleDevices(t *testing.T) {
	f := newFixture(t)
	t0 := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	// A last reported at t0+10s, B at t0. Observed at t0+301s, A's newest
	// record is 291s old and survives; B's is 301s old and is demoted.
	f.addDevice(t, "dev_a", "station-a")
	f.addDevice(t, "dev_b", "station-b")
	f.addRecord(t, "dev_a", t0, 20.5)
	f.addRecord(t, "dev_a", t0.Add(10*time.Second), 21.0)
	f.addRecord(t, "dev_b", t0, 19.0)

	sweeper := New(f.hub, testSweepConfig)
	stats, err := sweeper.RunCycle(context.Background(), t0.Add(301*time.Second))
	if err != nil {
		t.Fatalf("RunCycle failed: %v", err)
	}

	if stats.Active != 2 || stats.Demoted != 1 {
		t.Errorf("stats = %+v, want Active=2 Demoted=1", stats)
	}
	if !f.isActive(t, "station-a") {
		t.Error("station-a must stay active")
	}
	if f.isActive(t, "station-b") {
		t.Error("station-b must be demoted")
	}
}

func TestRunCycleBoundary(t *testing.T) {
	f := newFixture(t)
	t0 := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	f.addDevice(t, "dev_a", "station-a")
	f.addRecord(t, "dev_a", t0, 20.5)

	sweeper := New(f.hub, testSweepConfig)

	// Exactly at the threshold the record is still fresh.
	stats, err := sweeper.RunCycle(context.Background(), t0.Add(300*time.Second))
	if err != nil {
		t.Fatalf("RunCycle failed: %v", err)
	}
	if stats.Demoted != 0 || !f.isActive(t, "station-a") {
		t.Error("record aged exactly stale_after must survive")
	}

	// One second past the threshold it is stale.
	stats, err = sweeper.RunCycle(context.Background(), t0.Add(301*time.Second))
	if err != nil {
		t.Fatalf("RunCycle failed: %v", err)
	}
	if stats.Demoted != 1 || f.isActive(t, "station-a") {
		t.Error("record older than stale_after must be demoted")
	}
}

func TestRunCycleIsIdempotent(t *testing.T) {
	f := newFixture(t)
	t0 := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	f.addDevice(t, "dev_a", "station-a")
	f.addRecord(t, "dev_a", t0, 20.5)

	sweeper := New(f.hub, testSweepConfig)
	now := t0.Add(400 * time.Second)

	first, err := sweeper.RunCycle(context.Background(), now)
	if err != nil {
		t.Fatalf("RunCycle failed: %v", err)
	}
	if first.Demoted != 1 {
		t.Fatalf("first cycle Demoted = %d, want 1", first.Demoted)
	}

	second, err := sweeper.RunCycle(context.Background(), now.Add(time.Second))
	if err != nil {
		t.Fatalf("RunCycle failed: %v", err)
	}
	if second.Demoted != 0 || second.Active != 0 {
		t.Errorf("second cycle stats = %+v, want no-op", second)
	}
}

func TestRunCycleSkipsActiveDeviceWithoutRecords(t *testing.T) {
	f := newFixture(t)

	// An active device with zero records violates the state machine; the
	// sweep logs it, counts it as skipped and moves on.
	err := f.store.Devices().Create(context.Background(), &models.Device{
		ID:       "dev_a",
		Name:     "station-a",
		OwnerID:  "own_test",
		IsActive: true,
	})
	if err != nil {
		t.Fatalf("Create device failed: %v", err)
	}

	sweeper := New(f.hub, testSweepConfig)
	stats, err := sweeper.RunCycle(context.Background(), time.Now().UTC())
	if err != nil {
		t.Fatalf("RunCycle failed: %v", err)
	}
	if stats.Skipped != 1 {
		t.Errorf("Skipped = %d, want 1", stats.Skipped)
	}
	if stats.Demoted != 0 {
		t.Errorf("Demoted = %d, want 0", stats.Demoted)
	}
	if !f.isActive(t, "station-a") {
		t.Error("skipped device must be left untouched")
	}
}

func TestRunCycleIgnoresInactiveDevices(t *testing.T) {
	f := newFixture(t)
	f.addDevice(t, "dev_a", "station-a")
	f.addRecord(t, "dev_a", time.Now().UTC(), 1.0)

	// station-b was registered but never reported; it stays inactive and
	// never enters the sweep.
	f.addDevice(t, "dev_b", "station-b")

	sweeper := New(f.hub, testSweepConfig)
	stats, err := sweeper.RunCycle(context.Background(), time.Now().UTC())
	if err != nil {
		t.Fatalf("RunCycle failed: %v", err)
	}
	if stats.Active != 1 {
		t.Errorf("Active = %d, want 1 (inactive devices are not swept)", stats.Active)
	}
	if stats.Demoted != 0 {
		t.Errorf("Demoted = %d, want 0", stats.Demoted)
	}
}

func TestRunCycleKeepsFreshnessAfterDemotion(t *testing.T) {
	f := newFixture(t)
	t0 := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	f.addDevice(t, "dev_a", "station-a")
	f.addRecord(t, "dev_a", t0, 20.5)
	f.addRecord(t, "dev_a", t0.Add(10*time.Second), 21.0)

	sweeper := New(f.hub, testSweepConfig)
	if _, err := sweeper.RunCycle(context.Background(), t0.Add(400*time.Second)); err != nil {
		t.Fatalf("RunCycle failed: %v", err)
	}

	// Demotion flips the flag but never touches the records.
	latest, err := f.store.Records().LatestByDevice(context.Background(), "dev_a")
	if err != nil {
		t.Fatalf("LatestByDevice failed: %v", err)
	}
	if latest.Temperature != 21.0 {
		t.Errorf("latest Temperature = %v, want 21.0", latest.Temperature)
	}
}

func TestSweeperStartStop(t *testing.T) {
	f := newFixture(t)
	sweeper := New(f.hub, config.SweepConfig{
		Interval:   10 * time.Millisecond,
		StaleAfter: time.Hour,
	})

	cycles := make(chan Stats, 16)
	sweeper.Observer = func(s Stats) { cycles <- s }

	sweeper.Start(context.Background())
	select {
	case <-cycles:
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper never completed a cycle")
	}

	sweeper.Stop()
	// Stop must be safe to call twice.
	sweeper.Stop()
}
