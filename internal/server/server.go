package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
	"github.com/smartfarm-iot/apiserver/config"
	"github.com/smartfarm-iot/apiserver/internal/firebase"
	"github.com/smartfarm-iot/apiserver/internal/handlers"
	"github.com/smartfarm-iot/apiserver/internal/identity"
	"github.com/smartfarm-iot/apiserver/internal/livestate"
	"github.com/smartfarm-iot/apiserver/internal/services"
	"github.com/smartfarm-iot/apiserver/internal/store"
)

const version = "1.1.1"

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	clients    *firebase.Clients
	log        *logrus.Logger
}

// New constructs a Server with all collaborators wired explicitly:
// the Firebase client handle is created once here and passed into the
// repositories, services, and the authorization pipeline.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	clients, err := firebase.NewClients(ctx, cfg.Firebase)
	if err != nil {
		return nil, err
	}

	if cfg.MachineSecret == "" {
		log.Warn("MACHINE_SHARED_SECRET is not set; machine endpoints will reject all calls")
	}

	accountRepo := store.NewAccountRepository(clients.Firestore, cfg.UpstreamTimeout)
	dailyRepo := store.NewDailyRecordRepository(clients.Firestore, cfg.UpstreamTimeout)
	logRepo := store.NewLogRepository(clients.Firestore, cfg.UpstreamTimeout)

	gateway := identity.NewFirebaseGateway(clients.Auth, cfg.Firebase, cfg.UpstreamTimeout)
	tree := livestate.NewRealtimeTree(clients.Database, cfg.UpstreamTimeout)

	userService := services.NewUserService(accountRepo, gateway, logRepo, log)
	iotService := services.NewIoTService(tree, logRepo, log)
	logService := services.NewLogService(dailyRepo, logRepo, accountRepo, log)
	aggregationService := services.NewAggregationService(tree, dailyRepo, logRepo, log)

	authn := handlers.NewAuthenticator(gateway, accountRepo, log)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)

	router.Get("/", handlers.Health(version, time.Now()))
	router.Route("/api", func(r chi.Router) {
		handlers.AuthRouter(r, userService, authn)
		handlers.UserRouter(r, userService, authn)
	})
	router.Route("/iot", func(r chi.Router) {
		handlers.IoTRouter(r, iotService, authn)
	})
	router.Route("/logs", func(r chi.Router) {
		handlers.LogsRouter(r, logService, authn)
	})
	router.Route("/machine", func(r chi.Router) {
		handlers.MachineRouter(r, iotService, aggregationService, cfg.MachineSecret)
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 3000
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		clients:    clients,
		log:        log,
	}, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	s.log.WithField("addr", s.httpServer.Addr).Info("starting greenhouse IoT API server")
	return s.httpServer.ListenAndServe()
}

// Shutdown drains in-flight requests until ctx expires, then releases
// the upstream clients.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	if s.clients != nil {
		_ = s.clients.Close()
	}
	return err
}
