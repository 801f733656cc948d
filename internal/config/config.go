package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	LogLevel      string
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Auth
	JWTSecret      string
	AllowAnonymous bool

	// LLM oracle
	GeminiAPIKey   string
	GeminiModelID  string
	BedrockModelID string
	AWSRegion      string
	OracleTimeout  time.Duration

	// Chat pipeline
	HistoryWindow     int
	WideHistoryWindow int
	RetryMaxAttempts  int
	RetryBaseDelay    time.Duration

	// SendGrid email configuration
	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string

	CORSAllowedOrigins []string

	// Rate limiting for authenticated endpoints; zero disables it.
	ChatRateLimit int
	ChatRateBurst int
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		JWTSecret:      getEnv("JWT_SECRET", ""),
		AllowAnonymous: getEnvAsBool("ALLOW_ANONYMOUS", false),

		GeminiAPIKey:   getEnv("GEMINI_API_KEY", ""),
		GeminiModelID:  getEnv("GEMINI_MODEL_ID", "gemini-2.5-flash"),
		BedrockModelID: getEnv("BEDROCK_MODEL_ID", ""),
		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		OracleTimeout:  getEnvAsDuration("ORACLE_TIMEOUT", 30*time.Second),

		HistoryWindow:     getEnvAsInt("CHAT_HISTORY_WINDOW", 30),
		WideHistoryWindow: getEnvAsInt("CHAT_WIDE_HISTORY_WINDOW", 200),
		RetryMaxAttempts:  getEnvAsInt("PERSIST_RETRY_MAX_ATTEMPTS", 3),
		RetryBaseDelay:    getEnvAsDuration("PERSIST_RETRY_BASE_DELAY", 200*time.Millisecond),

		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "CancerMitr"),

		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", nil),

		ChatRateLimit: getEnvAsInt("CHAT_RATE_LIMIT", 0),
		ChatRateBurst: getEnvAsInt("CHAT_RATE_BURST", 10),
	}
}

// IsProduction reports whether the process runs with ENV=production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
