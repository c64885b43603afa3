package config

import (
	"os"
	"strconv"
)

type Config struct {
	// Server
	Port string
	// AppURL is the public origin this service is reachable at. Baked into
	// the embed widget script for the cross-origin message check.
	AppURL string

	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Auth
	JWTSecret string

	// Completion provider (OpenRouter-compatible)
	CompletionAPIKey  string
	CompletionAPIURL  string
	CompletionModel   string
	CompletionTimeout int // seconds

	// SMTP (OTP delivery)
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	SMTPFrom     string
}

func Load() *Config {
	smtpPort, _ := strconv.Atoi(getEnv("SMTP_PORT", "587"))
	completionTimeout, _ := strconv.Atoi(getEnv("COMPLETION_TIMEOUT_SECONDS", "60"))
	return &Config{
		Port:              getEnv("PORT", "8080"),
		AppURL:            getEnv("APP_URL", "http://localhost:8080"),
		DBHost:            getEnv("DB_HOST", "localhost"),
		DBPort:            getEnv("DB_PORT", "5432"),
		DBUser:            getEnv("DB_USER", "postgres"),
		DBPassword:        getEnv("DB_PASSWORD", ""),
		DBName:            getEnv("DB_NAME", "chatnest_db"),
		DBSSLMode:         getEnv("DB_SSLMODE", "disable"),
		JWTSecret:         getEnv("JWT_SECRET", ""),
		CompletionAPIKey:  getEnv("OPENROUTER_API_KEY", ""),
		CompletionAPIURL:  getEnv("OPENROUTER_API_URL", "https://openrouter.ai/api/v1/chat/completions"),
		CompletionModel:   getEnv("OPENROUTER_MODEL", "meta-llama/llama-3.3-70b-instruct:free"),
		CompletionTimeout: completionTimeout,
		SMTPHost:          getEnv("SMTP_HOST", "smtp.unosend.com"),
		SMTPPort:          smtpPort,
		SMTPUser:          getEnv("SMTP_USER", ""),
		SMTPPassword:      getEnv("SMTP_PASSWORD", ""),
		SMTPFrom:          getEnv("SMTP_FROM", "AI Chatbot <noreply@ai-chatbot.com>"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
