package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/skyreserve/flight-booking-backend/internal/cache"
	"github.com/skyreserve/flight-booking-backend/internal/config"
	"github.com/skyreserve/flight-booking-backend/internal/database"
	"github.com/skyreserve/flight-booking-backend/internal/handlers"
	"github.com/skyreserve/flight-booking-backend/internal/middleware"
	"github.com/skyreserve/flight-booking-backend/internal/services"
	"github.com/skyreserve/flight-booking-backend/pkg/payments"
	"github.com/skyreserve/flight-booking-backend/pkg/redislock"
	"github.com/skyreserve/flight-booking-backend/pkg/search"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	logger.Info("Starting SkyReserve Flight Booking Backend")
	logger.Infof("Version: %s, Build Time: %s", version, buildTime)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Set log level
	logLevel, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Set Gin mode
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// Initialize database connection
	logger.Info("Connecting to database...")
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Info("Database connection established")

	// Initialize Redis (seat cache + flight locks)
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		pingCancel()
		logger.Fatalf("Failed to connect to Redis: %v", err)
	}
	pingCancel()
	logger.Info("Redis connection established")

	// Initialize repositories
	flightRepo := database.NewFlightRepository(db)
	reservationRepo := database.NewReservationRepository(db)
	bookingRepo := database.NewBookingRepository(db)

	// Initialize Redis-backed components
	seatCache := cache.NewSeatCache(redisClient)
	flightLocks := redislock.NewLocker(redisClient, services.LockKeyPrefix())

	// Initialize external adapters
	var searchClient *search.Client
	if cfg.Search.BaseURL != "" {
		searchClient = search.NewClient(search.Config{
			BaseURL: cfg.Search.BaseURL,
			Timeout: cfg.Search.Timeout,
		})
		logger.Infof("Route search service: %s", cfg.Search.BaseURL)
	} else {
		logger.Info("Route search service not configured, computed routes disabled")
	}

	var paymentGateway payments.Gateway
	if cfg.Payment.GatewayURL != "" {
		paymentGateway = payments.NewHTTPGateway(payments.HTTPConfig{
			BaseURL: cfg.Payment.GatewayURL,
			Timeout: cfg.Payment.Timeout,
		}, logger)
	} else {
		paymentGateway = payments.NewNoopGateway(logger)
	}
	logger.Infof("Payment gateway: %s", paymentGateway.GetName())

	// Initialize services
	logger.Info("Initializing services...")
	inventoryService := services.NewInventoryService(
		flightRepo,
		reservationRepo,
		seatCache,
		flightLocks,
		services.InventoryEngineConfig{
			LockTTL:        cfg.Inventory.LockTTL,
			LockWaitBudget: cfg.Inventory.LockWaitBudget,
		},
		logger,
	)
	routeResolver := services.NewRouteResolver(flightRepo, searchClient)
	bookingService := services.NewBookingService(
		bookingRepo,
		inventoryService,
		routeResolver,
		paymentGateway,
		services.BookingServiceConfig{
			ReserveTTL:  cfg.Inventory.ReserveTTL,
			MinSeats:    cfg.Booking.MinSeatsPerBooking,
			MaxSeats:    cfg.Booking.MaxSeatsPerBooking,
			CallbackURL: cfg.Payment.CallbackURL,
		},
		logger,
	)

	// Initialize background scheduler (expiry sweep + pending reconciliation)
	schedulerService := services.NewSchedulerService(
		inventoryService,
		bookingService,
		services.SchedulerConfig{
			SweepInterval:     cfg.Inventory.SweepInterval,
			ReconcileInterval: cfg.Booking.ReconcileInterval,
		},
		logger,
	)
	if err := schedulerService.Start(); err != nil {
		logger.Fatalf("Failed to start scheduler: %v", err)
	}

	// Initialize handlers
	bookingHandler := handlers.NewBookingHandler(bookingService, logger)
	inventoryHandler := handlers.NewInventoryHandler(inventoryService, cfg.Inventory.ReserveTTL, logger)
	healthHandler := handlers.NewHealthHandler(db, redisClient)

	// Initialize Gin router
	router := gin.New()

	// Middleware
	router.Use(gin.Recovery())
	if cfg.Security.EnableRequestLog {
		router.Use(middleware.RequestLogger(logger))
	}

	// CORS configuration
	corsConfig := cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	router.Use(cors.New(corsConfig))

	// Health check endpoint
	router.GET("/health", healthHandler.Health)

	// API v1 routes
	v1 := router.Group("/v1")
	{
		bookings := v1.Group("/bookings")
		{
			bookings.POST("", bookingHandler.CreateBooking)
			bookings.POST("/payment-callback", bookingHandler.PaymentCallback)
			bookings.GET("/user/:user_id", bookingHandler.GetUserBookings)
			bookings.GET("/:booking_id", bookingHandler.GetBooking)
		}

		inventory := v1.Group("/inventory")
		{
			inventory.POST("/reserve", inventoryHandler.ReserveSeats)
			inventory.POST("/confirm", inventoryHandler.ConfirmSeats)
			inventory.DELETE("/release/:booking_id", inventoryHandler.ReleaseSeats)
		}

		v1.GET("/flights/:flight_id/availability", inventoryHandler.GetAvailability)
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Infof("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Stop background jobs before closing connections
	schedulerService.Stop()

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited successfully")
}
