package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Env string

	// Server
	Port           string
	AppURL         string
	FrontendOrigin string

	// Database
	DBDriver   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	SQLitePath string

	// Sessions
	JWTSecret    string
	SessionTTL   time.Duration
	CookieSecure bool

	// Mail jobs
	AMQPURL      string
	MailExchange string
	MailQueue    string
}

var appConfig *Config

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if not already loaded
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	config := &Config{
		Env: getEnv("ENV", "development"),

		// Server
		Port:           getEnv("PORT", "8080"),
		AppURL:         strings.TrimRight(getEnv("APP_URL", "http://localhost:5173"), "/"),
		FrontendOrigin: getEnv("FRONTEND_ORIGIN", "http://localhost:5173"),

		// Database
		DBDriver:   strings.ToLower(getEnv("DB_DRIVER", "postgres")),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "expensetracker"),
		DBPassword: getEnv("DB_PASSWORD", "expensetracker"),
		DBName:     getEnv("DB_NAME", "expensetracker"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),
		SQLitePath: getEnv("SQLITE_PATH", "expensetracker.db"),

		// Sessions
		JWTSecret: getEnv("JWT_SECRET", "fallback-secret-key-for-dev-only"),

		// Mail jobs
		AMQPURL:      getEnv("AMQP_URL", ""),
		MailExchange: getEnv("MAIL_EXCHANGE", "expensetracker"),
		MailQueue:    getEnv("MAIL_QUEUE", "mail_jobs"),
	}

	ttlStr := getEnv("SESSION_TTL", "336h")
	ttl, err := time.ParseDuration(ttlStr)
	if err != nil || ttl <= 0 {
		log.Printf("Warning: invalid SESSION_TTL value '%s', falling back to 336h\n", ttlStr)
		ttl = 14 * 24 * time.Hour
	}
	config.SessionTTL = ttl

	secureStr := getEnv("COOKIE_SECURE", "")
	if secureStr == "" {
		config.CookieSecure = config.Env == "production"
	} else if secure, err := strconv.ParseBool(secureStr); err == nil {
		config.CookieSecure = secure
	} else {
		log.Printf("Warning: invalid COOKIE_SECURE value '%s', ignoring\n", secureStr)
	}

	appConfig = config
	return config, nil
}

// Get returns the application configuration
func Get() *Config {
	if appConfig == nil {
		var err error
		appConfig, err = Load()
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
	}
	return appConfig
}

// Set replaces the process-wide configuration. Tests use it to pin secrets.
func Set(c *Config) {
	appConfig = c
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
