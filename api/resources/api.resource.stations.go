// FilePath: api/resources/api.resource.stations.go
package resources

import (
	"net/http"

	"github.com/ecohack/envhub/api/middleware"
	"github.com/ecohack/envhub/internal/errors"
	"github.com/ecohack/envhub/internal/hubservice"
	"github.com/ecohack/envhub/internal/models"
	nuts "github.com/vaudience/go-nuts"
)

// StationHandlers encapsulates the device and telemetry HTTP handlers
type StationHandlers struct {
	hubservice *hubservice.HubService
}

type devicesResponse struct {
	Devices []models.DeviceListing `json:"devices"`
}

type stationsDataResponse struct {
	Data []*models.DeviceSnapshot `json:"data"`
}

// @Summary List the owner's devices
// @Description Get the authenticated owner's devices with their liveness flags
// @Tags stations
// @Produce json
// @Success 200 {object} devicesResponse
// @Failure 401 {object} errors.APIError
// @Router /user/devices [get]
// @Security BearerAuth
func (h *StationHandlers) ListDevices(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)

	owner, ok := middleware.OwnerFromContext(r.Context())
	if !ok {
		respondWithError(w, errors.NewAuthError("no owner context found", nil).WithRequestID(requestID))
		return
	}

	devices, err := h.hubservice.ListOwnerDevices(r.Context(), owner)
	if err != nil {
		respondWithError(w, toAPIError(err, "failed to list devices").WithRequestID(requestID))
		return
	}

	respondWithJSON(w, http.StatusOK, devicesResponse{Devices: devices})
}

// @Summary Latest reading per device
// @Description Get the most recent record of each of the owner's devices
// @Tags stations
// @Produce json
// @Success 200 {object} stationsDataResponse
// @Failure 401 {object} errors.APIError
// @Failure 403 {object} errors.APIError
// @Router /stations/data [get]
// @Security BearerAuth
func (h *StationHandlers) GetData(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)

	owner, ok := middleware.OwnerFromContext(r.Context())
	if !ok {
		respondWithError(w, errors.NewAuthError("no owner context found", nil).WithRequestID(requestID))
		return
	}

	snapshots, err := h.hubservice.LatestSnapshots(r.Context(), owner)
	if err != nil {
		respondWithError(w, toAPIError(err, "failed to query latest records").WithRequestID(requestID))
		return
	}

	respondWithJSON(w, http.StatusOK, stationsDataResponse{Data: snapshots})
}
