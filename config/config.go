// Package config provides environment configuration for the chat server.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the process.
type Config struct {
	// Server
	ListenAddr         string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration

	// Postgres
	DatabaseURL string

	// Redis (presence mirror)
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	PresenceTTL   time.Duration

	// Auth
	JWTSecret string
	JWTTTL    time.Duration

	// Websocket
	WriteDeadline time.Duration

	// Logging
	LogLevel string
}

// Load reads configuration from environment variables.
func Load() *Config {
	return &Config{
		ListenAddr:         getEnv("LISTEN_ADDR", ":8080"),
		ServerReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
		ServerWriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 30*time.Second),

		DatabaseURL: getEnv("DATABASE_URL", "postgres://localhost:5432/linkchat"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getIntEnv("REDIS_DB", 0),
		PresenceTTL:   getDurationEnv("PRESENCE_TTL", 2*time.Minute),

		JWTSecret: getEnv("JWT_SECRET", "development-secret-change-in-production"),
		JWTTTL:    getDurationEnv("JWT_TTL", 2*time.Hour),

		WriteDeadline: getDurationEnv("WS_WRITE_DEADLINE", 5*time.Second),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
