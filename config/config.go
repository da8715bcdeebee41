package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port        string
	Environment string

	// Database
	DatabaseURL string
	MongoDBURL  string
	MongoDBName string

	// LLM extraction (Groq exposes an OpenAI-compatible API)
	GroqAPIKey     string
	LLMBaseURL     string
	LLMModel       string
	LLMTemperature float64
	LLMTimeoutSec  int
	LLMMaxBodyLen  int

	// Gmail (static refresh-token credentials, no interactive flow)
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRefreshToken string

	// Sync
	PaymentSender       string
	PaymentSubject      string
	BillSubject         string
	SyncDefaultLimit    int
	SyncMaxLimit        int
	SyncCallTimeoutSec  int

	// Scheduler
	SchedulerEnabled  bool
	SchedulerInterval time.Duration
}

func Load() (*Config, error) {
	return &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENV", "development"),

		// Database
		DatabaseURL: getEnv("DATABASE_URL", ""),
		MongoDBURL:  getEnv("MONGODB_URL", ""),
		MongoDBName: getEnv("MONGODB_DATABASE", "billsync"),

		// LLM
		GroqAPIKey:     getEnv("GROQ_API_KEY", ""),
		LLMBaseURL:     getEnv("LLM_BASE_URL", "https://api.groq.com/openai/v1"),
		LLMModel:       getEnv("LLM_MODEL", "llama-3.1-8b-instant"),
		LLMTemperature: getEnvFloat("LLM_TEMPERATURE", 0.1),
		LLMTimeoutSec:  getEnvInt("LLM_TIMEOUT_SEC", 60),
		LLMMaxBodyLen:  getEnvInt("LLM_MAX_BODY_CHARS", 4000),

		// Gmail
		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRefreshToken: getEnv("GOOGLE_REFRESH_TOKEN", ""),

		// Sync
		PaymentSender:      getEnv("PAYMENT_SENDER", "noreply@wise.com"),
		PaymentSubject:     getEnv("PAYMENT_SUBJECT", "Direct Debit paid to"),
		BillSubject:        getEnv("BILL_SUBJECT", "bill OR statement OR invoice OR energy"),
		SyncDefaultLimit:   getEnvInt("SYNC_DEFAULT_LIMIT", 10),
		SyncMaxLimit:       getEnvInt("SYNC_MAX_LIMIT", 200),
		SyncCallTimeoutSec: getEnvInt("SYNC_CALL_TIMEOUT_SEC", 30),

		// Scheduler
		SchedulerEnabled:  getEnvBool("SCHEDULER_ENABLED", false),
		SchedulerInterval: time.Duration(getEnvInt("SCHEDULER_INTERVAL_SEC", 3600)) * time.Second,
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
