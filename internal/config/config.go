package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database configuration
	Database DatabaseConfig

	// Redis configuration (seat cache + flight locks)
	Redis RedisConfig

	// Inventory engine tuning
	Inventory InventoryConfig

	// Booking orchestrator tuning
	Booking BookingConfig

	// Payment gateway configuration
	Payment PaymentConfig

	// Route search service configuration
	Search SearchConfig

	// CORS configuration
	CORS CORSConfig

	// Security configuration
	Security SecurityConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port        string
	Environment string // development, staging, production
	LogLevel    string // debug, info, warn, error
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	URL                string
	MaxConnections     int
	MaxIdleConnections int
	ConnMaxLifetime    time.Duration
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// InventoryConfig holds reservation and lock tuning
type InventoryConfig struct {
	ReserveTTL     time.Duration // how long a seat hold stays active
	SweepInterval  time.Duration // expiry sweeper cadence
	LockTTL        time.Duration // flight mutex auto-release TTL
	LockWaitBudget time.Duration // max wait per lock acquisition
}

// BookingConfig holds orchestrator tuning
type BookingConfig struct {
	MinSeatsPerBooking int
	MaxSeatsPerBooking int
	ReconcileInterval  time.Duration // pending-booking timeout reconciliation cadence
}

// PaymentConfig holds the async payment gateway configuration
type PaymentConfig struct {
	GatewayURL  string // empty means placeholder mode (no outbound calls)
	CallbackURL string // where the gateway POSTs terminal outcomes
	Timeout     time.Duration
}

// SearchConfig holds the route-search service configuration
type SearchConfig struct {
	BaseURL string
	Timeout time.Duration
}

// CORSConfig holds CORS-related configuration
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// SecurityConfig holds security-related configuration
type SecurityConfig struct {
	EnableRequestLog bool
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (for local development)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "8080"),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
		},
		Database: DatabaseConfig{
			URL:                getEnv("DATABASE_URL", ""),
			MaxConnections:     getEnvAsInt("DATABASE_MAX_CONNECTIONS", 10),
			MaxIdleConnections: getEnvAsInt("DATABASE_MAX_IDLE_CONNECTIONS", 5),
			ConnMaxLifetime:    time.Duration(getEnvAsInt("DATABASE_CONN_MAX_LIFETIME", 300)) * time.Second,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Inventory: InventoryConfig{
			ReserveTTL:     time.Duration(getEnvAsInt("RESERVE_TTL_MINUTES", 5)) * time.Minute,
			SweepInterval:  time.Duration(getEnvAsInt("SWEEP_INTERVAL_SECONDS", 10)) * time.Second,
			LockTTL:        time.Duration(getEnvAsInt("LOCK_TTL_SECONDS", 10)) * time.Second,
			LockWaitBudget: time.Duration(getEnvAsInt("LOCK_WAIT_SECONDS", 5)) * time.Second,
		},
		Booking: BookingConfig{
			MinSeatsPerBooking: getEnvAsInt("MIN_SEATS_PER_BOOKING", 1),
			MaxSeatsPerBooking: getEnvAsInt("MAX_SEATS_PER_BOOKING", 9),
			ReconcileInterval:  time.Duration(getEnvAsInt("BOOKING_RECONCILE_INTERVAL_SECONDS", 30)) * time.Second,
		},
		Payment: PaymentConfig{
			GatewayURL:  getEnv("PAYMENT_GATEWAY_URL", ""),
			CallbackURL: getEnv("PAYMENT_CALLBACK_URL", "http://localhost:8080/v1/bookings/payment-callback"),
			Timeout:     time.Duration(getEnvAsInt("PAYMENT_TIMEOUT_SECONDS", 10)) * time.Second,
		},
		Search: SearchConfig{
			BaseURL: getEnv("SEARCH_SERVICE_URL", ""),
			Timeout: time.Duration(getEnvAsInt("SEARCH_TIMEOUT_SECONDS", 5)) * time.Second,
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
			AllowedMethods: getEnvAsSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
			AllowedHeaders: getEnvAsSlice("CORS_ALLOWED_HEADERS", []string{"Content-Type", "Authorization", "Idempotency-Key"}),
		},
		Security: SecurityConfig{
			EnableRequestLog: getEnvAsBool("ENABLE_REQUEST_LOGGING", true),
		},
	}

	// Validate required configuration
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.Redis.Addr == "" {
		return fmt.Errorf("REDIS_ADDR is required")
	}
	if c.Inventory.ReserveTTL <= 0 {
		return fmt.Errorf("RESERVE_TTL_MINUTES must be positive")
	}
	if c.Inventory.LockTTL <= 0 {
		return fmt.Errorf("LOCK_TTL_SECONDS must be positive")
	}
	if c.Booking.MinSeatsPerBooking < 1 || c.Booking.MaxSeatsPerBooking < c.Booking.MinSeatsPerBooking {
		return fmt.Errorf("seat bounds are inconsistent")
	}
	return nil
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer with a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Invalid value for %s, using default %d", key, defaultValue)
		return defaultValue
	}
	return value
}

// getEnvAsBool gets an environment variable as a boolean with a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Printf("Invalid value for %s, using default %t", key, defaultValue)
		return defaultValue
	}
	return value
}

// getEnvAsSlice gets an environment variable as a comma-separated slice
func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
