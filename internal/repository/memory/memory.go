// FilePath: internal/repository/memory/memory.go
// Package memory provides in-memory implementations of the repository
// interfaces. They mirror the postgres semantics (heartbeat-in-one-commit,
// guarded demotion, tie-break by insertion order) and back the package tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ecohack/envhub/internal/models"
	"github.com/ecohack/envhub/internal/repository"
)

// Store holds all three repositories over one shared state, the same way the
// postgres repositories share one database.
type Store struct {
	mu      sync.Mutex
	owners  map[string]*models.Owner  // by id
	devices map[string]*models.Device // by id
	records []*models.Record
	nextSeq int64
}

func NewStore() *Store {
	return &Store{
		owners:  make(map[string]*models.Owner),
		devices: make(map[string]*models.Device),
		nextSeq: 1,
	}
}

func (s *Store) Owners() repository.OwnerRepository   { return &ownerRepo{s} }
func (s *Store) Devices() repository.DeviceRepository { return &deviceRepo{s} }
func (s *Store) Records() repository.RecordRepository { return &recordRepo{s} }

type ownerRepo struct{ s *Store }

func (r *ownerRepo) Create(ctx context.Context, owner *models.Owner) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, o := range r.s.owners {
		if o.Login == owner.Login || o.Token == owner.Token {
			return repository.ErrDuplicate
		}
	}
	c := *owner
	r.s.owners[owner.ID] = &c
	return nil
}

func (r *ownerRepo) GetByLogin(ctx context.Context, login string) (*models.Owner, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, o := range r.s.owners {
		if o.Login == login {
			c := *o
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *ownerRepo) GetByToken(ctx context.Context, token string) (*models.Owner, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, o := range r.s.owners {
		if o.Token == token {
			c := *o
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

type deviceRepo struct{ s *Store }

func (r *deviceRepo) Create(ctx context.Context, device *models.Device) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, d := range r.s.devices {
		if d.Name == device.Name {
			return repository.ErrDuplicate
		}
	}
	c := *device
	r.s.devices[device.ID] = &c
	if o, ok := r.s.owners[device.OwnerID]; ok {
		o.HasDevice = true
	}
	return nil
}

func (r *deviceRepo) GetByName(ctx context.Context, name string) (*models.Device, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, d := range r.s.devices {
		if d.Name == name {
			c := *d
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *deviceRepo) ListByOwner(ctx context.Context, ownerID string) ([]*models.Device, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	devices := []*models.Device{}
	for _, d := range r.s.devices {
		if d.OwnerID == ownerID {
			c := *d
			devices = append(devices, &c)
		}
	}
	sort.Slice(devices, func(i, j int) bool { return devices[i].ID < devices[j].ID })
	return devices, nil
}

func (r *deviceRepo) ListActive(ctx context.Context) ([]*models.Device, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	devices := []*models.Device{}
	for _, d := range r.s.devices {
		if d.IsActive {
			c := *d
			devices = append(devices, &c)
		}
	}
	sort.Slice(devices, func(i, j int) bool { return devices[i].ID < devices[j].ID })
	return devices, nil
}

func (r *deviceRepo) Deactivate(ctx context.Context, id string, staleBefore time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.devices[id]
	if !ok || !d.IsActive {
		return false, nil
	}
	for _, rec := range r.s.records {
		if rec.DeviceID == id && !rec.Time.Before(staleBefore) {
			return false, nil
		}
	}
	d.IsActive = false
	return true, nil
}

type recordRepo struct{ s *Store }

func (r *recordRepo) Append(ctx context.Context, record *models.Record) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.devices[record.DeviceID]
	if !ok {
		return repository.ErrNotFound
	}
	c := *record
	c.ID = r.s.nextSeq
	r.s.nextSeq++
	r.s.records = append(r.s.records, &c)
	d.IsActive = true
	record.ID = c.ID
	return nil
}

func (r *recordRepo) LatestByDevice(ctx context.Context, deviceID string) (*models.Record, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	latest := r.latestLocked(deviceID)
	if latest == nil {
		return nil, repository.ErrNotFound
	}
	c := *latest
	return &c, nil
}

func (r *recordRepo) LatestByOwner(ctx context.Context, ownerID string) ([]*models.DeviceSnapshot, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ids := []string{}
	for id, d := range r.s.devices {
		if d.OwnerID == ownerID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	snapshots := []*models.DeviceSnapshot{}
	for _, id := range ids {
		latest := r.latestLocked(id)
		if latest == nil {
			continue
		}
		d := r.s.devices[id]
		snapshots = append(snapshots, &models.DeviceSnapshot{
			Lon:           d.Longitude,
			Lat:           d.Latitude,
			Temperature:   latest.Temperature,
			Humidity:      latest.Humidity,
			Radioactivity: latest.Radioactivity,
			PM25:          latest.PM25,
			PM10:          latest.PM10,
			Noisiness:     latest.Noisiness,
		})
	}
	return snapshots, nil
}

// latestLocked picks the record with the maximum time, insertion order
// breaking ties. Caller holds the mutex.
func (r *recordRepo) latestLocked(deviceID string) *models.Record {
	var latest *models.Record
	for _, rec := range r.s.records {
		if rec.DeviceID != deviceID {
			continue
		}
		if latest == nil || rec.Time.After(latest.Time) ||
			(rec.Time.Equal(latest.Time) && rec.ID > latest.ID) {
			latest = rec
		}
	}
	return latest
}
