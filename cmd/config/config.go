package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config is loaded once at startup and passed into the components that need
// it. There is no runtime mutation path; changing settings means restarting
// the process.
type Config struct {
	Port        string
	DatabaseURL string
	JWTSecret   string

	StripeSecretKey      string
	StripePublishableKey string
	StripeWebhookSecret  string
	Currency             string

	SMTPHost    string
	SMTPPort    int
	SMTPUser    string
	SMTPPass    string
	SenderName  string
	SenderEmail string
}

func Load() (*Config, error) {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := &Config{
		Port:                 getEnv("SERVER_PORT", "8080"),
		DatabaseURL:          os.Getenv("DB_URL"),
		JWTSecret:            os.Getenv("SECRET_KEY"),
		StripeSecretKey:      os.Getenv("STRIPE_SECRET_KEY"),
		StripePublishableKey: os.Getenv("STRIPE_PUBLISHABLE_KEY"),
		StripeWebhookSecret:  os.Getenv("STRIPE_WEBHOOK_SECRET"),
		Currency:             getEnv("CURRENCY", "usd"),
		SMTPHost:             os.Getenv("SMTP_HOST"),
		SMTPUser:             os.Getenv("SMTP_USER"),
		SMTPPass:             os.Getenv("SMTP_PASS"),
		SenderName:           getEnv("SENDER_NAME", "Serenity Wellness"),
		SenderEmail:          os.Getenv("SENDER_EMAIL"),
	}

	if port := os.Getenv("SMTP_PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return nil, fmt.Errorf("invalid SMTP_PORT: %v", err)
		}
		cfg.SMTPPort = p
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DB_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("SECRET_KEY is required")
	}
	if cfg.StripeSecretKey == "" {
		return nil, fmt.Errorf("STRIPE_SECRET_KEY is required")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
