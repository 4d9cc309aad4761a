// FilePath: internal/hubservice/hubservice.device.go
package hubservice

import (
	"context"

	"github.com/ecohack/envhub/internal/errors"
	"github.com/ecohack/envhub/internal/models"
)

// ListOwnerDevices returns the owner's devices for the listing endpoint.
// An owner without devices gets an empty list, not an error.
func (s *HubService) ListOwnerDevices(ctx context.Context, owner *models.Owner) ([]models.DeviceListing, error) {
	if !owner.HasDevice {
		return []models.DeviceListing{}, nil
	}

	devices, err := s.Devices.ListByOwner(ctx, owner.ID)
	if err != nil {
		return nil, errors.NewInternalError("failed to list devices", err)
	}

	listings := make([]models.DeviceListing, 0, len(devices))
	for _, d := range devices {
		listings = append(listings, models.DeviceListing{
			Name:      d.Name,
			Longitude: d.Longitude,
			Latitude:  d.Latitude,
			IsActive:  d.IsActive,
		})
	}
	return listings, nil
}

// LatestSnapshots runs the freshness query for the owner: the most recent
// record per device, one entry per device with at least one record. Owners
// that never registered a device have no map access.
func (s *HubService) LatestSnapshots(ctx context.Context, owner *models.Owner) ([]*models.DeviceSnapshot, error) {
	if !owner.HasDevice {
		return nil, errors.NewAuthorizationError("register device first to get access to the map", nil)
	}

	snapshots, err := s.Records.LatestByOwner(ctx, owner.ID)
	if err != nil {
		return nil, errors.NewInternalError("failed to query latest records", err)
	}
	return snapshots, nil
}
