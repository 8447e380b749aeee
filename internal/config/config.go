package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port           string
	APIBaseURL     string
	APIKey         string
	SocketURL      string
	DatabaseURL    string // optional: notification archive
	RabbitMQURL    string // optional: event relay
	StateDir       string
	StateSecret    string // key material for the encrypted session file
	AdminEmail     string // optional: used only when no session is persisted
	AdminPassword  string
	RequestTimeout time.Duration
	UploadTimeout  time.Duration
	Environment    string // development, staging, production
}

// Load loads configuration from environment variables and validates for production
func Load() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		Port:           getEnv("PORT", "8090"),
		APIBaseURL:     getEnv("API_BASE_URL", "http://localhost:4000/api/v1"),
		APIKey:         getEnv("API_ACCESS_KEY", ""),
		SocketURL:      getEnv("SOCKET_URL", "ws://localhost:4000/socket"),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		RabbitMQURL:    getEnv("RABBITMQ_URL", ""),
		StateDir:       getEnv("STATE_DIR", defaultStateDir()),
		StateSecret:    getEnv("STATE_SECRET", ""),
		AdminEmail:     getEnv("ADMIN_EMAIL", ""),
		AdminPassword:  getEnv("ADMIN_PASSWORD", ""),
		RequestTimeout: getDuration("REQUEST_TIMEOUT_SECONDS", 15*time.Second),
		UploadTimeout:  getDuration("UPLOAD_TIMEOUT_SECONDS", 120*time.Second),
		Environment:    getEnv("ENVIRONMENT", "development"),
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	return cfg
}

// Validate checks configuration for security and correctness
func (c *Config) Validate() error {
	if c.APIBaseURL == "" {
		return fmt.Errorf("API_BASE_URL must be set")
	}

	if c.IsProduction() {
		if c.APIKey == "" {
			return fmt.Errorf("API_ACCESS_KEY must be set in production")
		}

		if c.StateSecret == "" || c.StateSecret == "change-this-in-production" {
			return fmt.Errorf("STATE_SECRET must be set to a strong random value in production")
		}

		if len(c.StateSecret) < 32 {
			return fmt.Errorf("STATE_SECRET must be at least 32 characters in production (got %d)", len(c.StateSecret))
		}
	} else if c.StateSecret == "" {
		// Development/staging: provide default if not set
		c.StateSecret = "dev-secret-not-for-production"
		log.Println("Using default STATE_SECRET for development")
	}

	if c.RequestTimeout <= 0 || c.UploadTimeout <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}

	return nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev" || c.Environment == ""
}

func defaultStateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".bazario-admin"
	}
	return home + "/.bazario-admin"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	secs, err := strconv.Atoi(value)
	if err != nil || secs <= 0 {
		log.Printf("Invalid %s=%q, using default %s", key, value, defaultValue)
		return defaultValue
	}
	return time.Duration(secs) * time.Second
}
