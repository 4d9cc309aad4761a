// FilePath: internal/server/server.go
package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ecohack/envhub/api"
	"github.com/ecohack/envhub/api/middleware"
	"github.com/ecohack/envhub/internal/config"
	"github.com/ecohack/envhub/internal/database"
	"github.com/ecohack/envhub/internal/hubservice"
	"github.com/ecohack/envhub/internal/ingest"
	"github.com/ecohack/envhub/internal/liveness"
	"github.com/ecohack/envhub/internal/monitoring"
	"github.com/ecohack/envhub/internal/mqtt"
	"github.com/ecohack/envhub/internal/repository/postgres"
	"github.com/gorilla/handlers"
	"github.com/redis/go-redis/v9"
	nuts "github.com/vaudience/go-nuts"
)

// Server ties together the HTTP API, the MQTT ingestion path and the
// staleness sweeper.
type Server struct {
	config     *config.Config
	srv        *http.Server
	db         database.DB
	hubservice *hubservice.HubService
	monitoring *monitoring.Service
	ingestor   *ingest.Ingestor
	sweeper    *liveness.Sweeper
	bus        *mqtt.Client
}

// New creates a new server instance
func New(cfg *config.Config) *Server {
	return &Server{config: cfg}
}

// Start wires up all components and begins listening for requests.
// It blocks until an interrupt signal arrives.
func (s *Server) Start() error {
	s.hubservice = s.initializeHubService()
	s.monitoring = monitoring.NewService()
	s.setupEventHandlers()

	s.ingestor = ingest.New(s.hubservice)
	if err := s.startIngestion(); err != nil {
		return err
	}

	s.startSweeper()

	auth := middleware.NewTokenAuthMiddleware(s.hubservice, s.initTokenCache(), s.config.Redis.TokenTTL)
	router := api.NewRouter(s.hubservice, auth, s.monitoring)

	corsHandler := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Authorization", "Content-Type"}),
	)

	s.srv = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port),
		Handler:      handlers.RecoveryHandler()(corsHandler(router)),
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
	}

	go func() {
		nuts.L.Infof("[Server] Starting server on %s", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			nuts.L.Errorf("[Server] Error starting server: %v", err)
			os.Exit(1)
		}
	}()

	return s.waitForShutdown()
}

// waitForShutdown waits for interrupt signal and gracefully shuts down the server
func (s *Server) waitForShutdown() error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	nuts.L.Infof("[Server] Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
	defer cancel()

	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("error shutting down server: %w", err)
	}

	s.sweeper.Stop()
	if s.bus != nil {
		s.bus.Close()
	}
	if err := s.db.Close(); err != nil {
		nuts.L.Warnf("[Server] Error closing database: %v", err)
	}

	nuts.L.Infof("[Server] Server shut down successfully")
	return nil
}

// startIngestion connects to the broker and routes registration and
// telemetry topics into the ingestor. Handler errors are already logged
// and counted at the ingestion layer; drops never propagate to the bus.
func (s *Server) startIngestion() error {
	bus, err := mqtt.Connect(s.config.MQTT.BrokerURL, s.config.MQTT.ClientID)
	if err != nil {
		return fmt.Errorf("failed to connect to broker: %w", err)
	}
	s.bus = bus

	prefix := s.config.MQTT.TopicPrefix

	if err := bus.Subscribe(prefix+"/register/#", func(payload []byte) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = s.ingestor.ApplyRegistration(ctx, payload)
	}); err != nil {
		return fmt.Errorf("failed to subscribe to registration topic: %w", err)
	}

	if err := bus.Subscribe(prefix+"/data/#", func(payload []byte) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = s.ingestor.ApplyTelemetry(ctx, payload)
	}); err != nil {
		return fmt.Errorf("failed to subscribe to telemetry topic: %w", err)
	}

	return nil
}

func (s *Server) startSweeper() {
	s.sweeper = liveness.New(s.hubservice, s.config.Sweep)
	s.sweeper.Observer = func(stats liveness.Stats) {
		s.monitoring.ObserveSweep(stats.Active, stats.Demoted)
	}
	s.sweeper.Start(context.Background())
}

// initTokenCache builds the redis client for token lookups. Returns nil
// when redis is not configured; auth then resolves against the database
// on every request.
func (s *Server) initTokenCache() *redis.Client {
	if s.config.Redis.Host == "" {
		nuts.L.Infof("[Server] Token cache disabled (no redis host configured)")
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", s.config.Redis.Host, s.config.Redis.Port),
		Password: s.config.Redis.Password,
		DB:       s.config.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		nuts.L.Warnf("[Server] Redis unreachable, token cache disabled: %v", err)
		return nil
	}
	return client
}

func (s *Server) setupEventHandlers() {
	s.hubservice.OnEvent(ingest.EventDeviceRegistered, func(id string) {
		nuts.L.Infof("[Events] Device %s registered", id)
		s.monitoring.RecordEvent("device_registered")
	})

	s.hubservice.OnEvent(ingest.EventDeviceActivated, func(id string) {
		s.monitoring.RecordEvent("device_activated")
	})

	s.hubservice.OnEvent(ingest.EventRejected, func(topic string) {
		s.monitoring.RecordEvent("ingest_rejected")
	})

	s.hubservice.OnEvent(liveness.EventDeviceDemoted, func(id string) {
		s.monitoring.RecordEvent("device_demoted")
	})
}

// initializeHubService creates the database connection and repositories
func (s *Server) initializeHubService() *hubservice.HubService {
	db := initAppDB(s.config.Database.AppDB)
	s.db = db

	owners, err := postgres.NewOwnerRepository(db)
	if err != nil {
		nuts.L.Fatalf("[Server] Failed to initialize owner repository: %v", err)
	}
	devices, err := postgres.NewDeviceRepository(db)
	if err != nil {
		nuts.L.Fatalf("[Server] Failed to initialize device repository: %v", err)
	}
	records, err := postgres.NewRecordRepository(db)
	if err != nil {
		nuts.L.Fatalf("[Server] Failed to initialize record repository: %v", err)
	}

	svc := hubservice.New(owners, devices, records)
	if err := svc.Validate(); err != nil {
		nuts.L.Fatalf("[Server] Invalid hub service: %v", err)
	}
	return svc
}

func initAppDB(cfg config.PostgresConfig) database.DB {
	wrappedDB, err := database.NewPostgresDB(cfg)
	if err != nil {
		nuts.L.Fatalf("[Server] Failed to connect to AppDB: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := wrappedDB.Ping(ctx); err != nil {
		nuts.L.Fatalf("[Server] Failed to ping database: %v", err)
	}
	return wrappedDB
}
