package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort int
	Firebase   FirebaseConfig

	// MachineSecret authenticates device telemetry and scheduler
	// calls on the machine endpoints.
	MachineSecret string

	// UpstreamTimeout bounds each call to the identity provider,
	// record store, and live state tree.
	UpstreamTimeout time.Duration
}

type FirebaseConfig struct {
	// ServiceAccountJSON is the decoded service account key used by
	// the Admin SDK.
	ServiceAccountJSON []byte

	// DatabaseURL is the realtime database root URL.
	DatabaseURL string

	// WebAPIKey is the Identity Toolkit browser key used for password
	// sign-in.
	WebAPIKey string
}

func LoadConfig() Config {
	if os.Getenv("ENV") == "dev" {
		godotenv.Load()
	}

	svcAccount, _ := base64.StdEncoding.DecodeString(
		getEnv("FIREBASE_SERVICE_ACCOUNT_BASE64", ""))

	firebaseConfig := FirebaseConfig{
		ServiceAccountJSON: svcAccount,
		DatabaseURL:        getEnv("FIREBASE_DATABASE_URL", ""),
		WebAPIKey:          getEnv("FIREBASE_API_KEY", ""),
	}

	return Config{
		ServerPort:      getEnvInt("SERVER_PORT", 3000),
		Firebase:        firebaseConfig,
		MachineSecret:   getEnv("MACHINE_SHARED_SECRET", ""),
		UpstreamTimeout: getEnvDuration("UPSTREAM_TIMEOUT", 5*time.Second),
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if valueStr, exists := os.LookupEnv(key); exists {
		var value int
		fmt.Sscanf(valueStr, "%d", &value)
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if valueStr, exists := os.LookupEnv(key); exists {
		if value, err := time.ParseDuration(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}
