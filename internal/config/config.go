// Package config provides configuration management for the PixelNode daemon.
package config

import (
	"os"
	"strconv"
)

// Config holds all configuration values for the daemon.
type Config struct {
	// Server configuration
	Port string
	Env  string

	// Database configuration
	DatabaseURL string

	// Platform configuration
	PlatformProfile string // board profile name selecting the output slot table

	// Output configuration
	OutputConfigPath string // persisted output document location
	OutputFrameRate  int    // Hz, render tick rate
	OutputBufferSize int    // shared frame buffer capacity in bytes
	OutputWatchFile  bool   // re-apply the output document when edited externally

	// sACN (E1.31) input configuration
	SACNEnabled       bool
	SACNListenAddr    string
	SACNStartUniverse int

	// CORS configuration
	CORSOrigin string
}

// Load loads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		// Server
		Port: getEnv("PORT", "8090"),
		Env:  getEnv("ENV", "development"),

		// Database
		DatabaseURL: getEnv("DATABASE_URL", "file:./pixelnode.db"),

		// Platform
		PlatformProfile: getEnv("PLATFORM_PROFILE", "pi-hat-3"),

		// Output
		OutputConfigPath: getEnv("OUTPUT_CONFIG_PATH", "./output_config.json"),
		OutputFrameRate:  getEnvInt("OUTPUT_FRAME_RATE", 40),
		OutputBufferSize: getEnvInt("OUTPUT_BUFFER_SIZE", 4096),
		OutputWatchFile:  getEnvBool("OUTPUT_WATCH_FILE", true),

		// sACN input
		SACNEnabled:       getEnvBool("SACN_ENABLED", true),
		SACNListenAddr:    getEnv("SACN_LISTEN_ADDR", ":5568"),
		SACNStartUniverse: getEnvInt("SACN_START_UNIVERSE", 1),

		// CORS
		CORSOrigin: getEnv("CORS_ORIGIN", "http://localhost:3000"),
	}
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// getEnv returns the value of an environment variable or a default value.
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvInt returns the integer value of an environment variable or a default value.
func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvBool returns the boolean value of an environment variable or a default value.
func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
