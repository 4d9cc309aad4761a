// FilePath: api/resources/api.resource.users.go
package resources

import (
	"encoding/json"
	"net/http"

	"github.com/ecohack/envhub/internal/errors"
	"github.com/ecohack/envhub/internal/hubservice"
	nuts "github.com/vaudience/go-nuts"
)

// UserHandlers encapsulates the owner-account HTTP handlers
type UserHandlers struct {
	hubservice *hubservice.HubService
}

type registerUserRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
	Name     string `json:"name"`
	LastName string `json:"last_name"`
}

type loginUserRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

// @Summary Register a new owner
// @Description Create an owner account and return its bearer token
// @Tags users
// @Accept json
// @Produce json
// @Param user body registerUserRequest true "Account details"
// @Success 201 {object} tokenResponse
// @Failure 400 {object} errors.APIError
// @Router /user/register [post]
func (h *UserHandlers) RegisterUser(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)

	var req registerUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, errors.NewValidationError("invalid request body", err).WithRequestID(requestID))
		return
	}

	owner, err := h.hubservice.RegisterOwner(r.Context(), req.Login, req.Password, req.Name, req.LastName)
	if err != nil {
		respondWithError(w, toAPIError(err, "failed to register owner").WithRequestID(requestID))
		return
	}

	respondWithJSON(w, http.StatusCreated, tokenResponse{Token: owner.Token})
}

// @Summary Log in
// @Description Verify credentials and return the owner's bearer token
// @Tags users
// @Accept json
// @Produce json
// @Param credentials body loginUserRequest true "Credentials"
// @Success 200 {object} tokenResponse
// @Failure 400 {object} errors.APIError
// @Router /user/login [post]
func (h *UserHandlers) LoginUser(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)

	var req loginUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, errors.NewValidationError("invalid request body", err).WithRequestID(requestID))
		return
	}

	owner, err := h.hubservice.LoginOwner(r.Context(), req.Login, req.Password)
	if err != nil {
		respondWithError(w, toAPIError(err, "failed to log in").WithRequestID(requestID))
		return
	}

	respondWithJSON(w, http.StatusOK, tokenResponse{Token: owner.Token})
}
