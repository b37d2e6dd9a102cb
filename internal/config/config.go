package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration values loaded from environment variables.
type Config struct {
	DatabaseURL     string
	JWTSecret       string
	HTTPPort        string
	TokenExpiration time.Duration

	// MasterKey feeds the credential vault's key derivation. It is a
	// passphrase, not raw key bytes; the vault derives per-value AES keys
	// from it.
	MasterKey string

	// Optional ops alerting. Both must be set for alerts to be sent.
	SlackAlertToken   string
	SlackAlertChannel string
}

// LoadConfig loads configuration from environment variables.
// It looks for a .env file first, then checks actual environment variables.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file (useful for development)
	err := godotenv.Load() // Loads .env from the current directory or parent dirs
	if err != nil {
		log.Println("Warning: Could not load .env file. Using environment variables only.", err)
		// Don't fail if .env is not present, might be in production
	}

	port := getEnv("HTTP_PORT", "8080")
	jwtSecret := getEnv("JWT_SECRET", "default-super-secret-key") // CHANGE THIS IN PRODUCTION!
	dbURL := getEnv("DATABASE_URL", "")                           // No default, should fail if not set
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is not set.")
	}

	tokenExpStr := getEnv("JWT_EXPIRATION_HOURS", "24") // Default 24 hours
	tokenExpHours, err := strconv.Atoi(tokenExpStr)
	if err != nil {
		log.Printf("Warning: Invalid JWT_EXPIRATION_HOURS '%s', using default 24h. Error: %v", tokenExpStr, err)
		tokenExpHours = 24
	}

	masterKey := getSecretEnv("ENCRYPTION_MASTER_KEY")
	if masterKey == "" {
		log.Fatal("FATAL: ENCRYPTION_MASTER_KEY environment variable is not set.")
	}

	cfg := &Config{
		HTTPPort:          port,
		JWTSecret:         jwtSecret,
		DatabaseURL:       dbURL,
		TokenExpiration:   time.Hour * time.Duration(tokenExpHours),
		MasterKey:         masterKey,
		SlackAlertToken:   getSecretEnv("SLACK_ALERT_TOKEN"),
		SlackAlertChannel: getEnv("SLACK_ALERT_CHANNEL", ""),
	}

	log.Printf("Loaded config: Port=%s, DB_URL=***, TokenExp=%s, MasterKey=***", cfg.HTTPPort, cfg.TokenExpiration)

	return cfg, nil
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	log.Printf("Env variable %s not set, using default: %s", key, fallback)
	return fallback
}

// getSecretEnv is getEnv for secrets: never logs the fallback path so an
// unset optional secret does not produce noise, and never echoes values.
func getSecretEnv(key string) string {
	value, _ := os.LookupEnv(key)
	return value
}
