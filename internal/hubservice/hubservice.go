// FilePath: internal/hubservice/hubservice.go
package hubservice

import (
	"github.com/ecohack/envhub/internal/errors"
	"github.com/ecohack/envhub/internal/repository"
	nuts "github.com/vaudience/go-nuts"
)

// HubService contains all repositories and service-wide dependencies
type HubService struct {
	Owners  repository.OwnerRepository
	Devices repository.DeviceRepository
	Records repository.RecordRepository
	Events  *nuts.EventEmitter
}

// New creates a new HubService instance
func New(
	owners repository.OwnerRepository,
	devices repository.DeviceRepository,
	records repository.RecordRepository,
) *HubService {
	return &HubService{
		Owners:  owners,
		Devices: devices,
		Records: records,
		Events:  nuts.NewEventEmitter(),
	}
}

// Validate checks if all required repositories are initialized
func (s *HubService) Validate() error {
	if s.Owners == nil {
		return ErrMissingRepository("owners")
	}
	if s.Devices == nil {
		return ErrMissingRepository("devices")
	}
	if s.Records == nil {
		return ErrMissingRepository("records")
	}
	return nil
}

// OnEvent registers a callback for liveness and ingestion events
// (device.activated, device.demoted, ingest.rejected). The handler is
// registered with its concrete signature; the emitter dispatches by
// matching each emitted argument against the parameter type, so a
// variadic wrapper would never be called.
func (s *HubService) OnEvent(event string, handler func(id string)) {
	s.Events.On(event, "hub_handler", handler)
}

func ErrMissingRepository(name string) error {
	return errors.NewInternalError("missing repository: "+name, nil)
}
