// FilePath: api/api.router.go
package api

import (
	"net/http"

	"github.com/ecohack/envhub/api/middleware"
	"github.com/ecohack/envhub/api/resources"
	"github.com/ecohack/envhub/internal/hubservice"
	"github.com/ecohack/envhub/internal/monitoring"
	"github.com/gorilla/mux"
)

type Router struct {
	router     *mux.Router
	auth       *middleware.TokenAuthMiddleware
	resources  *resources.Resources
	monitoring *monitoring.Service
}

func NewRouter(svc *hubservice.HubService, auth *middleware.TokenAuthMiddleware, mon *monitoring.Service) *Router {
	r := &Router{
		router:     mux.NewRouter(),
		auth:       auth,
		resources:  resources.NewResources(svc),
		monitoring: mon,
	}

	r.setupRoutes()
	return r
}

func (r *Router) setupRoutes() {
	// API version prefix
	api := r.router.PathPrefix("/api/v1").Subrouter()

	// Public routes
	api.HandleFunc("/health", r.resources.HealthCheck).Methods(http.MethodGet)
	api.Handle("/metrics", r.monitoring.Handler()).Methods(http.MethodGet)
	api.HandleFunc("/user/register", r.resources.Users.RegisterUser).Methods(http.MethodPost)
	api.HandleFunc("/user/login", r.resources.Users.LoginUser).Methods(http.MethodPost)

	// Protected routes
	protected := api.PathPrefix("").Subrouter()
	protected.Use(r.auth.Authenticate)

	protected.HandleFunc("/user/devices", r.resources.Stations.ListDevices).Methods(http.MethodGet)
	protected.HandleFunc("/stations/data", r.resources.Stations.GetData).Methods(http.MethodGet)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.router.ServeHTTP(w, req)
}
