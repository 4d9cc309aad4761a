// FilePath: api/resources/resources.go
package resources

import (
	"encoding/json"
	"net/http"

	"github.com/ecohack/envhub/internal/errors"
	"github.com/ecohack/envhub/internal/hubservice"
	nuts "github.com/vaudience/go-nuts"
)

// Resources holds all HTTP resource handlers
type Resources struct {
	Users    *UserHandlers
	Stations *StationHandlers
}

// NewResources creates a new Resources instance
func NewResources(svc *hubservice.HubService) *Resources {
	return &Resources{
		Users:    &UserHandlers{hubservice: svc},
		Stations: &StationHandlers{hubservice: svc},
	}
}

// HealthCheck returns a simple health check response
func (r *Resources) HealthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok","version":"` + nuts.GetVersion() + `"}`))
}

// Helper functions

func respondWithError(w http.ResponseWriter, err *errors.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.Code)
	json.NewEncoder(w).Encode(err)
	nuts.L.Errorf("[API] %s", err.Error())
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}

// toAPIError keeps handler code short: hubservice already returns APIErrors,
// anything else becomes an internal error.
func toAPIError(err error, fallback string) *errors.APIError {
	if apiErr, ok := err.(*errors.APIError); ok {
		return apiErr
	}
	return errors.NewInternalError(fallback, err)
}
