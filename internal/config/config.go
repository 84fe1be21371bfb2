// Package config provides application configuration through environment variables.
package config

import (
	"os"
	"path/filepath"

	"github.com/allisson/go-env"
	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	// LogLevel is the logging level (e.g., "debug", "info", "warn", "error").
	LogLevel string

	// KeyFilePath is the default path to the exported admin private key PEM file.
	KeyFilePath string
	// KeyBlobPath is the default path to the authenticator-wrapped key blob.
	KeyBlobPath string
	// PublicKeyPath is the default path to the admin public key PEM file.
	PublicKeyPath string

	// FIDO2RelyingPartyID is the relying party identifier used for
	// authenticator credentials (e.g., "priotag.example.org").
	FIDO2RelyingPartyID string
	// FIDO2PIN is the authenticator PIN. Empty means no PIN is sent.
	FIDO2PIN string

	// MetricsEnabled indicates whether metrics collection is enabled.
	MetricsEnabled bool
	// MetricsNamespace is the namespace for the application metrics.
	MetricsNamespace string
	// MetricsPort is the port number for the metrics server.
	MetricsPort int
}

// Load loads configuration from environment variables and .env file.
func Load() *Config {
	// Try to load .env file recursively
	loadDotEnv()

	return &Config{
		// Logging
		LogLevel: env.GetString("LOG_LEVEL", "info"),

		// Key material locations
		KeyFilePath:   env.GetString("KEY_FILE_PATH", "admin_key.pem"),
		KeyBlobPath:   env.GetString("KEY_BLOB_PATH", "admin_key.blob"),
		PublicKeyPath: env.GetString("PUBLIC_KEY_PATH", "admin_key.pub.pem"),

		// Authenticator
		FIDO2RelyingPartyID: env.GetString("FIDO2_RP_ID", "fieldcrypt.local"),
		FIDO2PIN:            env.GetString("FIDO2_PIN", ""),

		// Metrics
		MetricsEnabled:   env.GetBool("METRICS_ENABLED", false),
		MetricsNamespace: env.GetString("METRICS_NAMESPACE", "fieldcrypt"),
		MetricsPort:      env.GetInt("METRICS_PORT", 8081),
	}
}

// loadDotEnv searches for a .env file recursively from the current directory
// up to the root directory and loads it if found.
func loadDotEnv() {
	cwd, err := os.Getwd()
	if err != nil {
		return
	}

	dir := cwd
	for {
		envPath := filepath.Join(dir, ".env")
		if _, err := os.Stat(envPath); err == nil {
			_ = godotenv.Load(envPath)
			return
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
}
