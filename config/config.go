package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the loaded configuration
type Config struct {
	Port           string
	Env            string
	BackendURL     string // origin of the video generation API
	RedisURL       string // optional; in-memory sessions when empty
	SessionTTL     time.Duration
	RequestTimeout time.Duration

	// Price is server-owned. The client never supplies billing values.
	PriceAmount   int // minor currency units (paise)
	PriceCurrency string

	// Optional full-page redirect target for checkout flows that cannot
	// run the widget inline (certain mobile payment methods).
	CheckoutCallbackURL string
}

// Load loads configuration from the .env file and environment
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		Port:                getEnv("PORT", "8080"),
		Env:                 getEnv("ENV", "development"),
		BackendURL:          os.Getenv("BACKEND_URL"),
		RedisURL:            os.Getenv("REDIS_URL"),
		SessionTTL:          getDuration("SESSION_TTL", 24*time.Hour),
		RequestTimeout:      getDuration("REQUEST_TIMEOUT", 60*time.Second),
		PriceAmount:         getInt("PRICE_AMOUNT", 100),
		PriceCurrency:       getEnv("PRICE_CURRENCY", "INR"),
		CheckoutCallbackURL: os.Getenv("CHECKOUT_CALLBACK_URL"),
	}

	if cfg.BackendURL == "" {
		return nil, fmt.Errorf("missing required environment variable BACKEND_URL")
	}
	if cfg.PriceAmount <= 0 {
		return nil, fmt.Errorf("PRICE_AMOUNT must be a positive amount in minor units")
	}

	return cfg, nil
}

// Helper to get an environment variable or return a default
func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
		log.Printf("Invalid duration for %s, using default %s", key, fallback)
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		var n int
		if _, err := fmt.Sscanf(val, "%d", &n); err == nil {
			return n
		}
		log.Printf("Invalid integer for %s, using default %d", key, fallback)
	}
	return fallback
}
