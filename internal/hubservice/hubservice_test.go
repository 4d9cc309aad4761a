// FilePath: internal/hubservice/hubservice_test.go
package hubservice

import (
	"context"
	"testing"
	"time"

	"github.com/ecohack/envhub/internal/errors"
	"github.com/ecohack/envhub/internal/models"
	"github.com/ecohack/envhub/internal/repository/memory"
)

func newTestService(t *testing.T) (*HubService, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	svc := New(store.Owners(), store.Devices(), store.Records())
	if err := svc.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	return svc, store
}

func TestOnEventDispatch(t *testing.T) {
	svc, _ := newTestService(t)

	got := make(chan string, 1)
	svc.OnEvent("device.activated", func(id string) {
		got <- id
	})

	svc.Events.Emit("device.activated", "station-a")

	select {
	case id := <-got:
		if id != "station-a" {
			t.Errorf("handler received %q, want %q", id, "station-a")
		}
	case <-time.After(time.Second):
		t.Fatal("emitted event never reached the handler")
	}
}

func TestRegisterOwner(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	owner, err := svc.RegisterOwner(ctx, "alice", "s3cret", "Alice", "Smith")
	if err != nil {
		t.Fatalf("RegisterOwner failed: %v", err)
	}
	if owner.Token == "" {
		t.Error("owner must receive a token at registration")
	}
	if owner.PasswordHash == "s3cret" {
		t.Error("password must not be stored in clear")
	}
	if owner.HasDevice {
		t.Error("new owner must start without devices")
	}
}

func TestRegisterOwnerDuplicateLogin(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.RegisterOwner(ctx, "alice", "s3cret", "", ""); err != nil {
		t.Fatalf("RegisterOwner failed: %v", err)
	}
	_, err := svc.RegisterOwner(ctx, "alice", "other", "", "")
	if err == nil {
		t.Fatal("duplicate login must be rejected")
	}
	if !errors.IsValidation(err) {
		t.Errorf("err = %v, want validation error", err)
	}
}

func TestLoginOwner(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	registered, err := svc.RegisterOwner(ctx, "alice", "s3cret", "", "")
	if err != nil {
		t.Fatalf("RegisterOwner failed: %v", err)
	}

	owner, err := svc.LoginOwner(ctx, "alice", "s3cret")
	if err != nil {
		t.Fatalf("LoginOwner failed: %v", err)
	}
	if owner.Token != registered.Token {
		t.Error("login must return the token issued at registration")
	}

	// Unknown login and wrong password produce the same error message.
	_, errUnknown := svc.LoginOwner(ctx, "bob", "s3cret")
	_, errWrongPw := svc.LoginOwner(ctx, "alice", "wrong")
	if errUnknown == nil || errWrongPw == nil {
		t.Fatal("bad credentials must be rejected")
	}
	msgUnknown := errUnknown.(*errors.APIError).Message
	msgWrongPw := errWrongPw.(*errors.APIError).Message
	if msgUnknown != msgWrongPw {
		t.Errorf("credential failures must be indistinguishable: %q vs %q", msgUnknown, msgWrongPw)
	}
}

func TestResolveToken(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	registered, err := svc.RegisterOwner(ctx, "alice", "s3cret", "", "")
	if err != nil {
		t.Fatalf("RegisterOwner failed: %v", err)
	}

	owner, err := svc.ResolveToken(ctx, registered.Token)
	if err != nil {
		t.Fatalf("ResolveToken failed: %v", err)
	}
	if owner.ID != registered.ID {
		t.Errorf("resolved owner %q, want %q", owner.ID, registered.ID)
	}

	if _, err := svc.ResolveToken(ctx, "bogus"); err == nil {
		t.Error("unknown token must be rejected")
	}
}

func TestListOwnerDevicesWithoutDevices(t *testing.T) {
	svc, _ := newTestService(t)
	owner := &models.Owner{ID: "own_x", HasDevice: false}

	listings, err := svc.ListOwnerDevices(context.Background(), owner)
	if err != nil {
		t.Fatalf("ListOwnerDevices failed: %v", err)
	}
	if len(listings) != 0 {
		t.Errorf("got %d listings, want empty list", len(listings))
	}
}

func TestLatestSnapshotsRequiresDevice(t *testing.T) {
	svc, _ := newTestService(t)
	owner := &models.Owner{ID: "own_x", HasDevice: false}

	_, err := svc.LatestSnapshots(context.Background(), owner)
	if err == nil {
		t.Fatal("owner without devices must not reach the map")
	}
	apiErr, ok := err.(*errors.APIError)
	if !ok || apiErr.Code != 403 {
		t.Errorf("err = %v, want 403 APIError", err)
	}
}

func TestLatestSnapshotsFreshness(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	owner, err := svc.RegisterOwner(ctx, "alice", "s3cret", "", "")
	if err != nil {
		t.Fatalf("RegisterOwner failed: %v", err)
	}

	addDevice := func(id, name string, lon, lat float64) {
		t.Helper()
		err := store.Devices().Create(ctx, &models.Device{
			ID: id, Name: name, Longitude: lon, Latitude: lat, OwnerID: owner.ID,
		})
		if err != nil {
			t.Fatalf("Create device failed: %v", err)
		}
	}
	addRecord := func(deviceID string, ts time.Time, temp float64) {
		t.Helper()
		err := store.Records().Append(ctx, &models.Record{
			DeviceID: deviceID, Temperature: temp, Time: ts,
		})
		if err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	t0 := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	addDevice("dev_a", "station-a", 30.31, 59.94)
	addDevice("dev_b", "station-b", 37.62, 55.75)
	addDevice("dev_c", "station-c", 0, 0) // never reports
	addRecord("dev_a", t0, 20.5)
	addRecord("dev_a", t0.Add(10*time.Second), 21.0)
	addRecord("dev_b", t0, 19.0)

	owner.HasDevice = true
	snapshots, err := svc.LatestSnapshots(ctx, owner)
	if err != nil {
		t.Fatalf("LatestSnapshots failed: %v", err)
	}

	// One entry per device with at least one record; dev_c is absent.
	if len(snapshots) != 2 {
		t.Fatalf("got %d snapshots, want 2", len(snapshots))
	}
	byLon := map[float64]*models.DeviceSnapshot{}
	for _, s := range snapshots {
		byLon[s.Lon] = s
	}
	a, ok := byLon[30.31]
	if !ok {
		t.Fatal("station-a snapshot missing")
	}
	if a.Temperature != 21.0 {
		t.Errorf("station-a Temperature = %v, want the newer 21.0", a.Temperature)
	}
	b, ok := byLon[37.62]
	if !ok {
		t.Fatal("station-b snapshot missing")
	}
	if b.Temperature != 19.0 {
		t.Errorf("station-b Temperature = %v, want 19.0", b.Temperature)
	}
}

func TestLatestSnapshotsTimestampTie(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	owner, err := svc.RegisterOwner(ctx, "alice", "s3cret", "", "")
	if err != nil {
		t.Fatalf("RegisterOwner failed: %v", err)
	}
	err = store.Devices().Create(ctx, &models.Device{
		ID: "dev_a", Name: "station-a", OwnerID: owner.ID,
	})
	if err != nil {
		t.Fatalf("Create device failed: %v", err)
	}

	// Two records with identical timestamps: the later insert wins.
	ts := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	for _, temp := range []float64{20.5, 21.0} {
		err := store.Records().Append(ctx, &models.Record{
			DeviceID: "dev_a", Temperature: temp, Time: ts,
		})
		if err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	owner.HasDevice = true
	snapshots, err := svc.LatestSnapshots(ctx, owner)
	if err != nil {
		t.Fatalf("LatestSnapshots failed: %v", err)
	}
	if len(snapshots) != 1 {
		t.Fatalf("got %d snapshots, want 1", len(snapshots))
	}
	if snapshots[0].Temperature != 21.0 {
		t.Errorf("Temperature = %v, want 21.0 (last insert wins ties)", snapshots[0].Temperature)
	}
}
