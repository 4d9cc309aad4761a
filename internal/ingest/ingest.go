// FilePath: internal/ingest/ingest.go
// Package ingest applies registration and telemetry events arriving from the
// message bus. The bus has no response channel, so every failure is dropped
// and logged; the typed errors exist for tests and metrics, not for callers
// to retry on.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ecohack/envhub/internal/hubservice"
	"github.com/ecohack/envhub/internal/models"
	"github.com/ecohack/envhub/internal/repository"
	nuts "github.com/vaudience/go-nuts"
)

// TimestampLayout is the fixed wire format for telemetry timestamps
// (ISO-8601 with up to microsecond precision).
const TimestampLayout = "2006-01-02T15:04:05.999999"

// Ingestion failure taxonomy. Exactly one of these wraps every rejection.
var (
	ErrMalformedPayload = errors.New("malformed payload")
	ErrUnknownReference = errors.New("unknown reference")
	ErrDuplicateDevice  = errors.New("duplicate device name")
	ErrStorage          = errors.New("storage failure")
)

// Event names emitted on the hub's event bus.
const (
	EventDeviceRegistered = "device.registered"
	EventDeviceActivated  = "device.activated"
	EventRejected         = "ingest.rejected"
)

// Ingestor validates and applies inbound bus events against the registry,
// the record store and the liveness flag.
type Ingestor struct {
	hub *hubservice.HubService
}

func New(hub *hubservice.HubService) *Ingestor {
	return &Ingestor{hub: hub}
}

type registerPayload struct {
	OwnerToken string    `json:"owner_token"`
	DeviceName string    `json:"device_name"`
	DeviceGeo  []float64 `json:"device_geo"`
}

// Sensor fields are pointers so a missing field is distinguishable from a
// zero reading.
type telemetryPayload struct {
	DeviceName    string   `json:"device_name"`
	Temperature   *float64 `json:"temperature"`
	Humidity      *float64 `json:"humidity"`
	Radioactivity *float64 `json:"radioactivity"`
	PM25          *float64 `json:"pm25"`
	PM10          *float64 `json:"pm10"`
	Noisiness     *float64 `json:"noisiness"`
	Timestamp     string   `json:"timestamp"`
}

// ApplyRegistration handles one message from the register topic. The geo
// pair arrives as [longitude, latitude].
func (i *Ingestor) ApplyRegistration(ctx context.Context, payload []byte) error {
	var p registerPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return i.reject(p.DeviceName, fmt.Errorf("%w: %v", ErrMalformedPayload, err))
	}
	if p.OwnerToken == "" || p.DeviceName == "" || len(p.DeviceGeo) != 2 {
		return i.reject(p.DeviceName, fmt.Errorf("%w: missing or invalid register fields", ErrMalformedPayload))
	}

	owner, err := i.hub.Owners.GetByToken(ctx, p.OwnerToken)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return i.reject(p.DeviceName, fmt.Errorf("%w: unknown owner token", ErrUnknownReference))
		}
		return i.reject(p.DeviceName, fmt.Errorf("%w: %v", ErrStorage, err))
	}

	device := &models.Device{
		ID:        nuts.NID("dev", 12),
		Name:      p.DeviceName,
		Longitude: p.DeviceGeo[0],
		Latitude:  p.DeviceGeo[1],
		OwnerID:   owner.ID,
		IsActive:  false,
		CreatedAt: time.Now().UTC(),
	}

	if err := i.hub.Devices.Create(ctx, device); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return i.reject(p.DeviceName, fmt.Errorf("%w: %q", ErrDuplicateDevice, p.DeviceName))
		}
		return i.reject(p.DeviceName, fmt.Errorf("%w: %v", ErrStorage, err))
	}

	nuts.L.Infof("[Ingest] Registered device %s (%s) for owner %s", device.Name, device.ID, owner.ID)
	i.hub.Events.Emit(EventDeviceRegistered, device.Name)
	return nil
}

// ApplyTelemetry handles one message from the data topic. A successful
// append is also a heartbeat: the device's active flag is set in the same
// commit, whatever its prior state. Duplicates and out-of-order timestamps
// are normal input.
func (i *Ingestor) ApplyTelemetry(ctx context.Context, payload []byte) error {
	var p telemetryPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return i.reject(p.DeviceName, fmt.Errorf("%w: %v", ErrMalformedPayload, err))
	}
	if p.DeviceName == "" || p.Temperature == nil || p.Humidity == nil ||
		p.Radioactivity == nil || p.PM25 == nil || p.PM10 == nil || p.Noisiness == nil {
		return i.reject(p.DeviceName, fmt.Errorf("%w: missing telemetry fields", ErrMalformedPayload))
	}
	ts, err := time.Parse(TimestampLayout, p.Timestamp)
	if err != nil {
		return i.reject(p.DeviceName, fmt.Errorf("%w: bad timestamp %q", ErrMalformedPayload, p.Timestamp))
	}

	device, err := i.hub.Devices.GetByName(ctx, p.DeviceName)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return i.reject(p.DeviceName, fmt.Errorf("%w: unknown device %q", ErrUnknownReference, p.DeviceName))
		}
		return i.reject(p.DeviceName, fmt.Errorf("%w: %v", ErrStorage, err))
	}

	record := &models.Record{
		DeviceID:      device.ID,
		Temperature:   *p.Temperature,
		Humidity:      *p.Humidity,
		Radioactivity: *p.Radioactivity,
		PM25:          *p.PM25,
		PM10:          *p.PM10,
		Noisiness:     *p.Noisiness,
		Time:          ts,
	}

	if err := i.hub.Records.Append(ctx, record); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return i.reject(p.DeviceName, fmt.Errorf("%w: device %q vanished", ErrUnknownReference, p.DeviceName))
		}
		return i.reject(p.DeviceName, fmt.Errorf("%w: %v", ErrStorage, err))
	}

	i.hub.Events.Emit(EventDeviceActivated, device.Name)
	return nil
}

// reject logs the drop and emits the rejection event. The error return is
// for tests and metrics only; the bus callbacks discard it.
func (i *Ingestor) reject(deviceName string, err error) error {
	if deviceName == "" {
		deviceName = "<unknown>"
	}
	nuts.L.Warnf("[Ingest] Dropped event for %s: %v", deviceName, err)
	i.hub.Events.Emit(EventRejected, deviceName)
	return err
}
