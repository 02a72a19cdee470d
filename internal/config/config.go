package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string

	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	// PageTokenSecret enables signed page tokens on the runtime socket.
	PageTokenSecret string
	PageStateTTL    time.Duration
	Timezone        string

	// Scheduling
	BookingMaxYear int
	SlotMinutes    int

	// Flash housekeeping
	FlashVisibleFor   time.Duration
	FlashFadeDuration time.Duration
	FlashRemoveAfter  time.Duration
	PrivilegedRole    string

	// DialogBackend forces "modal" or "native"; "auto" detects per page.
	DialogBackend string

	CORSAllowedOrigins []string
	WSRateLimit        float64
	WSRateBurst        int
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		PageTokenSecret: getEnv("PAGE_TOKEN_SECRET", ""),
		PageStateTTL:    getEnvAsDuration("PAGE_STATE_TTL", 30*time.Minute),
		Timezone:        getEnv("TIMEZONE", "America/Guayaquil"),

		BookingMaxYear: getEnvAsInt("BOOKING_MAX_YEAR", 2030),
		SlotMinutes:    getEnvAsInt("SLOT_MINUTES", 30),

		FlashVisibleFor:   getEnvAsDuration("FLASH_VISIBLE_FOR", 3*time.Second),
		FlashFadeDuration: getEnvAsDuration("FLASH_FADE_DURATION", 500*time.Millisecond),
		FlashRemoveAfter:  getEnvAsDuration("FLASH_REMOVE_AFTER", 600*time.Millisecond),
		PrivilegedRole:    getEnv("PRIVILEGED_ROLE", "1"),

		DialogBackend: strings.ToLower(strings.TrimSpace(getEnv("DIALOG_BACKEND", "auto"))),

		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS"),
		WSRateLimit:        getEnvAsFloat("WS_RATE_LIMIT", 5),
		WSRateBurst:        getEnvAsInt("WS_RATE_BURST", 20),
	}
}

// Location resolves Timezone, falling back to UTC when it is unknown.
func (c *Config) Location() *time.Location {
	if c == nil || strings.TrimSpace(c.Timezone) == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
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

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
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

// getEnvAsList splits a comma separated variable, dropping blanks.
func getEnvAsList(key string) []string {
	var out []string
	for _, part := range strings.Split(getEnv(key, ""), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
