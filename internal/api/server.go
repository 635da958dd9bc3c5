package api

import (
	"kinobook/internal/cache"
	"kinobook/internal/config"
	"kinobook/internal/database"
	"kinobook/internal/external"
	"kinobook/internal/handlers"
	"kinobook/internal/logger"
	"kinobook/internal/messaging"
	"kinobook/internal/metrics"
	"kinobook/internal/middleware"
	"kinobook/internal/repository"
	"kinobook/internal/search"
	"kinobook/internal/service"

	"github.com/gin-gonic/gin"
)

// Server is the HTTP API process. Postgres is required; NATS, Valkey and
// Elasticsearch are optional and the server degrades without them.
type Server struct {
	router   *gin.Engine
	config   *config.Config
	db       *database.DB
	nats     *messaging.NATSClient
	valkey   *cache.ValkeyClient
	search   *search.ElasticsearchClient
	services *service.Services
	repos    *repository.Repositories
}

func NewServer(cfg *config.Config) *Server {
	gin.SetMode(cfg.GinMode)
	log := logger.Get()

	db, err := database.Connect(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}

	if err := db.RunMigrations(); err != nil {
		logger.Fatal("Failed to run migrations", "error", err)
	}

	natsClient, err := messaging.NewNATSClient(cfg.NATS)
	if err != nil {
		log.Warn("NATS unavailable, domain events disabled", "error", err)
		natsClient = nil
	}

	valkeyClient, err := cache.NewValkeyClient()
	if err != nil {
		log.Warn("Valkey unavailable, paid-booking cache disabled", "error", err)
		valkeyClient = nil
	}

	searchClient, err := search.NewElasticsearchClient(config.LoadElasticsearchConfig())
	if err != nil {
		log.Warn("Elasticsearch unavailable, audit search disabled", "error", err)
		searchClient = nil
	}

	clients := external.NewClients(cfg.Services)
	repos := repository.NewRepositories(db)
	services := service.NewServices(repos, clients, natsClient, valkeyClient)

	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.CORS())
	router.Use(middleware.Logger())
	router.Use(metrics.Middleware())

	server := &Server{
		router:   router,
		config:   cfg,
		db:       db,
		nats:     natsClient,
		valkey:   valkeyClient,
		search:   searchClient,
		services: services,
		repos:    repos,
	}

	server.setupRoutes()

	return server
}

func (s *Server) setupRoutes() {
	h := handlers.NewHandlers(s.services, s.search)

	s.router.GET("/health", h.Health)
	s.router.GET("/metrics", metrics.Handler())

	api := s.router.Group("/api")
	{
		bookings := api.Group("/bookings")
		{
			bookings.POST("", h.CreateBooking)
			bookings.GET("", h.ListBookings)
			bookings.GET("/:id", h.GetBooking)
		}

		payments := api.Group("/payments")
		{
			payments.POST("", h.PayBooking)
		}

		transactions := api.Group("/transactions")
		{
			transactions.GET("", h.ListTransactions)
			transactions.GET("/search", h.SearchTransactions)
			transactions.GET("/:id", h.GetTransaction)
		}
	}
}

// GetRouter returns the configured router.
func (s *Server) GetRouter() *gin.Engine {
	return s.router
}

// Repositories exposes the repositories for background jobs that share the
// API process.
func (s *Server) Repositories() *repository.Repositories {
	return s.repos
}

// Events exposes the NATS client; nil when NATS is unavailable.
func (s *Server) Events() *messaging.NATSClient {
	return s.nats
}

// Cleanup closes all connections.
func (s *Server) Cleanup() error {
	if s.nats != nil {
		if err := s.nats.Close(); err != nil {
			logger.Get().Error("Failed to close NATS connection", "error", err)
		}
	}
	if s.valkey != nil {
		if err := s.valkey.Close(); err != nil {
			logger.Get().Error("Failed to close Valkey connection", "error", err)
		}
	}
	return s.db.Close()
}
